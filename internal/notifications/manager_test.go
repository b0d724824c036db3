package notifications

import (
	"sync"
	"testing"
	"time"
)

func TestCreateAndExpire(t *testing.T) {
	m := NewManager(30 * time.Millisecond)

	var mu sync.Mutex
	var seen [][]Notification
	m.Subscribe(func(active []Notification) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, active)
	})

	n := m.Error("Upload failed", WithTitle("Upload"))
	if n.ID == "" {
		t.Fatal("notification has no id")
	}
	if n.Level != LevelError || n.Title != "Upload" || n.Duration != 30*time.Millisecond {
		t.Errorf("unexpected notification %+v", n)
	}
	if got := m.Active(); len(got) != 1 || got[0].ID != n.ID {
		t.Fatalf("Active() = %+v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(m.Active()) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("notification did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || len(seen[0]) != 1 || len(seen[1]) != 0 {
		t.Errorf("listener saw %v", seen)
	}
}

func TestTimeOrdered(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Clear()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(2 * time.Second), base, base.Add(time.Second)}
	i := 0
	m.now = func() time.Time {
		t := times[i]
		i++
		return t
	}

	m.Info("c")
	m.Info("a")
	m.Info("b")

	var got string
	for _, n := range m.Active() {
		got += n.Message
	}
	if got != "abc" {
		t.Errorf("order = %q, want abc", got)
	}
}

func TestDismiss(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Clear()

	a := m.Success("saved")
	m.Warning("slow")

	calls := 0
	m.Subscribe(func([]Notification) { calls++ })

	m.Dismiss("no-such-id")
	if calls != 0 || len(m.Active()) != 2 {
		t.Errorf("unknown id changed the queue")
	}

	m.Dismiss(a.ID)
	if calls != 1 {
		t.Errorf("listener calls = %d, want 1", calls)
	}
	active := m.Active()
	if len(active) != 1 || active[0].Message != "slow" {
		t.Errorf("Active() = %+v", active)
	}
}

func TestMaxActive(t *testing.T) {
	m := NewManager(time.Minute)
	defer m.Clear()
	for i := 0; i < 8; i++ {
		m.Info(string(rune('a' + i)))
	}
	active := m.Active()
	if len(active) != 5 {
		t.Fatalf("len(Active()) = %d, want 5", len(active))
	}
	if active[0].Message != "d" {
		t.Errorf("oldest kept = %q, want d", active[0].Message)
	}
}
