package chats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/logging"
)

func ids(chats []api.ChatSummary) []string {
	out := make([]string, 0, len(chats))
	for _, c := range chats {
		out = append(out, c.ChatID)
	}
	return out
}

func TestGroup(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	today := api.ChatSummary{ChatID: "today", CreatedAt: now.Add(-8 * time.Hour)}
	yesterday := api.ChatSummary{ChatID: "yesterday", CreatedAt: now.Add(-10 * time.Hour)}
	undated := api.ChatSummary{ChatID: "undated"}

	t.Run("independent of list order", func(t *testing.T) {
		for _, order := range [][]api.ChatSummary{
			{today, yesterday},
			{yesterday, today},
		} {
			g := Group(order, now)
			assert.Equal(t, []string{"today"}, ids(g.Today))
			assert.Equal(t, []string{"yesterday"}, ids(g.Previous))
		}
	})

	t.Run("missing timestamp counts as today", func(t *testing.T) {
		g := Group([]api.ChatSummary{undated, yesterday}, now)
		assert.Equal(t, []string{"undated"}, ids(g.Today))
		assert.Equal(t, 2, g.Len())
	})

	t.Run("calendar day in local zone", func(t *testing.T) {
		zone := time.FixedZone("UTC+5", 5*3600)
		localNow := time.Date(2024, 6, 10, 2, 0, 0, 0, zone)
		// 22:00 UTC on the 9th is 03:00 on the 10th at UTC+5.
		late := api.ChatSummary{ChatID: "late", CreatedAt: time.Date(2024, 6, 9, 22, 0, 0, 0, time.UTC)}
		g := Group([]api.ChatSummary{late}, localNow)
		assert.Equal(t, []string{"late"}, ids(g.Today))
	})

	t.Run("preserves order within group", func(t *testing.T) {
		a := api.ChatSummary{ChatID: "a", CreatedAt: now.Add(-time.Hour)}
		b := api.ChatSummary{ChatID: "b", CreatedAt: now.Add(-2 * time.Hour)}
		g := Group([]api.ChatSummary{b, a}, now)
		assert.Equal(t, []string{"b", "a"}, ids(g.Today))
	})
}

func TestFilter(t *testing.T) {
	list := []api.ChatSummary{
		{ChatID: "1", Title: "Quarterly revenue", FileName: "q3.pdf"},
		{ChatID: "2", Title: "Lease agreement", FileName: "lease.pdf"},
		{ChatID: "3", FileName: "invoice-2024.pdf"},
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids(Filter(list, " ")))
	assert.Equal(t, []string{"1"}, ids(Filter(list, "qrev")))
	assert.Equal(t, []string{"2"}, ids(Filter(list, "LEASE")))
	assert.Equal(t, []string{"3"}, ids(Filter(list, "inv24")))
	assert.Empty(t, Filter(list, "zzz"))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "T", Label(api.ChatSummary{Title: "T", FileName: "f.pdf"}))
	assert.Equal(t, "f.pdf", Label(api.ChatSummary{Title: "  ", FileName: "f.pdf"}))
	assert.Equal(t, "Untitled Chat", Label(api.ChatSummary{}))
}

type fakeBackend struct {
	list      []api.ChatSummary
	listErr   error
	deleteErr error
	deleted   []string
	block     chan struct{}
}

func (f *fakeBackend) ListChats(ctx context.Context) ([]api.ChatSummary, error) {
	if f.block != nil {
		<-f.block
	}
	return f.list, f.listErr
}

func (f *fakeBackend) DeleteChat(ctx context.Context, chatID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, chatID)
	return nil
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	backend := &fakeBackend{list: []api.ChatSummary{{ChatID: "a"}, {ChatID: "b"}}}
	s := NewStore(backend, logging.Discard())

	items, err := s.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(items))

	t.Run("refresh failure keeps list", func(t *testing.T) {
		backend.listErr = errors.New("boom")
		defer func() { backend.listErr = nil }()
		items, err := s.Refresh(ctx)
		assert.Error(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(items))
	})

	t.Run("delete removes locally", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, "a"))
		assert.Equal(t, []string{"b"}, ids(s.Items()))
		assert.Equal(t, []string{"a"}, backend.deleted)
		_, ok := s.Find("a")
		assert.False(t, ok)
	})

	t.Run("delete failure keeps item", func(t *testing.T) {
		backend.deleteErr = &api.APIError{StatusCode: 404, Detail: "Chat not found"}
		defer func() { backend.deleteErr = nil }()
		assert.Error(t, s.Delete(ctx, "b"))
		_, ok := s.Find("b")
		assert.True(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		s.Clear()
		assert.Empty(t, s.Items())
	})
}

func TestStoreDropsRefreshAfterClear(t *testing.T) {
	backend := &fakeBackend{
		list:  []api.ChatSummary{{ChatID: "other-user"}},
		block: make(chan struct{}),
	}
	s := NewStore(backend, logging.Discard())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Refresh(context.Background())
	}()
	time.Sleep(10 * time.Millisecond)
	s.Clear()
	close(backend.block)
	<-done

	assert.Empty(t, s.Items())
}
