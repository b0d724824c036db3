package notifications

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NotificationLevel represents the severity level of a notification
type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification is one ephemeral message
type Notification struct {
	ID        string
	Title     string
	Message   string
	Level     NotificationLevel
	Duration  time.Duration
	CreatedAt time.Time
	ExpiresAt time.Time
}

// NotificationOptions contains options for creating notifications
type NotificationOptions struct {
	Title    string
	Duration time.Duration
}

// NotificationOption is a function that modifies NotificationOptions
type NotificationOption func(*NotificationOptions)

// WithTitle sets the notification title
func WithTitle(title string) NotificationOption {
	return func(opts *NotificationOptions) {
		opts.Title = title
	}
}

// WithDuration sets how long the notification stays visible
func WithDuration(duration time.Duration) NotificationOption {
	return func(opts *NotificationOptions) {
		opts.Duration = duration
	}
}

// Listener is told when the set of active notifications changes
type Listener func(active []Notification)

// Manager is a time-ordered queue of notifications that expire on their own.
// Safe for concurrent use.
type Manager struct {
	mu              sync.Mutex
	defaultDuration time.Duration
	maxActive       int
	queue           []*entry
	listeners       []Listener
	now             func() time.Time
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// NewManager creates a manager whose notifications last defaultDuration
// unless overridden.
func NewManager(defaultDuration time.Duration) *Manager {
	if defaultDuration <= 0 {
		defaultDuration = 3 * time.Second
	}
	return &Manager{
		defaultDuration: defaultDuration,
		maxActive:       5,
		now:             time.Now,
	}
}

// Subscribe registers l for change notifications.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// CreateNotification queues a notification and schedules its expiry.
func (m *Manager) CreateNotification(message string, level NotificationLevel, opts ...NotificationOption) Notification {
	options := &NotificationOptions{Duration: m.defaultDuration}
	for _, opt := range opts {
		opt(options)
	}

	created := m.now()
	n := Notification{
		ID:        uuid.New().String(),
		Title:     options.Title,
		Message:   message,
		Level:     level,
		Duration:  options.Duration,
		CreatedAt: created,
		ExpiresAt: created.Add(options.Duration),
	}

	e := &entry{n: n}
	m.mu.Lock()
	m.queue = append(m.queue, e)
	sort.SliceStable(m.queue, func(i, j int) bool {
		return m.queue[i].n.CreatedAt.Before(m.queue[j].n.CreatedAt)
	})
	var dropped []*entry
	for len(m.queue) > m.maxActive {
		dropped = append(dropped, m.queue[0])
		m.queue = m.queue[1:]
	}
	e.timer = time.AfterFunc(options.Duration, func() { m.Dismiss(n.ID) })
	m.mu.Unlock()

	for _, d := range dropped {
		d.timer.Stop()
	}

	log.Debug("notification", "level", level, "message", message)
	m.publish()
	return n
}

// Dismiss removes a notification. Unknown ids are ignored.
func (m *Manager) Dismiss(id string) {
	m.mu.Lock()
	found := false
	for i, e := range m.queue {
		if e.n.ID == id {
			e.timer.Stop()
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			found = true
			break
		}
	}
	m.mu.Unlock()
	if found {
		m.publish()
	}
}

// Clear removes every notification.
func (m *Manager) Clear() {
	m.mu.Lock()
	had := len(m.queue) > 0
	for _, e := range m.queue {
		e.timer.Stop()
	}
	m.queue = nil
	m.mu.Unlock()
	if had {
		m.publish()
	}
}

// Active returns the queued notifications, oldest first.
func (m *Manager) Active() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked()
}

func (m *Manager) activeLocked() []Notification {
	out := make([]Notification, len(m.queue))
	for i, e := range m.queue {
		out[i] = e.n
	}
	return out
}

func (m *Manager) publish() {
	m.mu.Lock()
	active := m.activeLocked()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(active)
	}
}

// Info creates an info notification
func (m *Manager) Info(message string, opts ...NotificationOption) Notification {
	return m.CreateNotification(message, LevelInfo, opts...)
}

// Success creates a success notification
func (m *Manager) Success(message string, opts ...NotificationOption) Notification {
	return m.CreateNotification(message, LevelSuccess, opts...)
}

// Warning creates a warning notification
func (m *Manager) Warning(message string, opts ...NotificationOption) Notification {
	return m.CreateNotification(message, LevelWarning, opts...)
}

// Error creates an error notification
func (m *Manager) Error(message string, opts ...NotificationOption) Notification {
	return m.CreateNotification(message, LevelError, opts...)
}
