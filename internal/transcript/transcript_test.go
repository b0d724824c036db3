package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdfretriever/pdfretriever/internal/api"
	"github.com/pdfretriever/pdfretriever/internal/logging"
)

type fakeBackend struct {
	mu      sync.Mutex
	query   func(ctx context.Context, in api.QueryRequest) (*api.QueryResult, error)
	getChat func(ctx context.Context, id string) (*api.ChatDetail, error)
	queries []api.QueryRequest
}

func (f *fakeBackend) Query(ctx context.Context, in api.QueryRequest) (*api.QueryResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, in)
	fn := f.query
	f.mu.Unlock()
	return fn(ctx, in)
}

func (f *fakeBackend) GetChat(ctx context.Context, id string) (*api.ChatDetail, error) {
	return f.getChat(ctx, id)
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type settings struct{ key, model string }

func (s settings) APIKey() string { return s.key }

func (s settings) Model(fallback string) string {
	if s.model == "" {
		return fallback
	}
	return s.model
}

func newTranscript(backend *fakeBackend, key string) *Transcript {
	return New(Options{
		Backend:      backend,
		Settings:     settings{key: key, model: "gemini-2.5-flash"},
		DefaultModel: "gemini-2.0-flash",
		Logger:       logging.Discard(),
	})
}

func answer(text, reasoning string) func(context.Context, api.QueryRequest) (*api.QueryResult, error) {
	return func(context.Context, api.QueryRequest) (*api.QueryResult, error) {
		return &api.QueryResult{Answer: text, Reasoning: reasoning}, nil
	}
}

func TestSendQuerySuccess(t *testing.T) {
	backend := &fakeBackend{query: answer("Revenue was 42M", "See table 2")}
	tr := newTranscript(backend, "key")
	tr.Replace("c1", []api.Message{{Role: api.RoleUser, Content: "earlier"}})

	require.NoError(t, tr.SendQuery(context.Background(), "  what was revenue?  "))

	msgs := tr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, api.Message{Role: api.RoleUser, Content: "what was revenue?"}, msgs[1])
	assert.Equal(t, api.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "Revenue was 42M", msgs[2].Content)
	assert.Equal(t, "See table 2", msgs[2].Reasoning)
	assert.False(t, tr.Loading())

	require.Len(t, backend.queries, 1)
	assert.Equal(t, api.QueryRequest{ChatID: "c1", Query: "what was revenue?", Model: "gemini-2.5-flash", APIKey: "key"}, backend.queries[0])
}

func TestSendQueryNoops(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		chatID string
		text   string
	}{
		{"empty key", "", "c1", "hello"},
		{"blank text", "key", "c1", "   "},
		{"no chat", "key", "", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{query: answer("x", "")}
			tr := newTranscript(backend, tt.key)
			tr.Replace(tt.chatID, nil)

			require.NoError(t, tr.SendQuery(context.Background(), tt.text))
			assert.Empty(t, tr.Messages())
			assert.Zero(t, backend.queryCount())
		})
	}
}

func TestSendQueryAPIFailure(t *testing.T) {
	backend := &fakeBackend{query: func(context.Context, api.QueryRequest) (*api.QueryResult, error) {
		return nil, &api.APIError{StatusCode: 429, Detail: "rate limited"}
	}}
	tr := newTranscript(backend, "key")
	tr.Replace("c1", nil)

	err := tr.SendQuery(context.Background(), "question")
	require.Error(t, err)

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, api.Message{Role: api.RoleUser, Content: "question"}, msgs[0])
	assert.Equal(t, api.RoleAssistant, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "rate limited")
	assert.Equal(t, "Error: rate limited", msgs[1].Content)
}

func TestSendQueryFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api error without detail", &api.APIError{StatusCode: 500}, "Error: Failed to get answer"},
		{"transport error", errors.New("connection refused"), "Connection failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{query: func(context.Context, api.QueryRequest) (*api.QueryResult, error) {
				return nil, tt.err
			}}
			tr := newTranscript(backend, "key")
			tr.Replace("c1", nil)

			assert.Error(t, tr.SendQuery(context.Background(), "q"))
			msgs := tr.Messages()
			require.Len(t, msgs, 2)
			assert.Equal(t, tt.want, msgs[1].Content)
		})
	}
}

func TestSendQueryCanceledAppendsNothing(t *testing.T) {
	backend := &fakeBackend{query: func(ctx context.Context, _ api.QueryRequest) (*api.QueryResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	tr := newTranscript(backend, "key")
	tr.Replace("c1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.SendQuery(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, tr.Messages(), 1)
	assert.False(t, tr.Loading())
}

func TestSendQueryBusy(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{query: func(context.Context, api.QueryRequest) (*api.QueryResult, error) {
		<-release
		return &api.QueryResult{Answer: "first"}, nil
	}}
	tr := newTranscript(backend, "key")
	tr.Replace("c1", nil)

	done := make(chan error, 1)
	go func() { done <- tr.SendQuery(context.Background(), "one") }()
	require.Eventually(t, tr.Loading, time.Second, time.Millisecond)

	assert.ErrorIs(t, tr.SendQuery(context.Background(), "two"), ErrBusy)
	close(release)
	require.NoError(t, <-done)

	msgs := tr.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "first", msgs[1].Content)
}

func TestAnswerDroppedAfterReplace(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeBackend{query: func(context.Context, api.QueryRequest) (*api.QueryResult, error) {
		<-release
		return &api.QueryResult{Answer: "for c1"}, nil
	}}
	tr := newTranscript(backend, "key")
	tr.Replace("c1", nil)

	done := make(chan error, 1)
	go func() { done <- tr.SendQuery(context.Background(), "q") }()
	require.Eventually(t, tr.Loading, time.Second, time.Millisecond)

	tr.Replace("c2", []api.Message{{Role: api.RoleUser, Content: "other"}})
	close(release)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, []api.Message{{Role: api.RoleUser, Content: "other"}}, tr.Messages())
	assert.Equal(t, "c2", tr.ChatID())
}

func TestLoadHistory(t *testing.T) {
	history := []api.Message{
		{Role: api.RoleUser, Content: "q"},
		{Role: api.RoleAssistant, Content: "a", Reasoning: "because"},
	}
	backend := &fakeBackend{getChat: func(_ context.Context, id string) (*api.ChatDetail, error) {
		if id == "missing" {
			return nil, &api.APIError{StatusCode: 404}
		}
		return &api.ChatDetail{ChatID: id, History: history}, nil
	}}
	tr := newTranscript(backend, "key")
	tr.Replace("old", []api.Message{{Role: api.RoleUser, Content: "stale"}})

	require.NoError(t, tr.LoadHistory(context.Background(), "c1"))
	assert.Equal(t, history, tr.Messages())
	assert.Equal(t, "c1", tr.ChatID())

	assert.Error(t, tr.LoadHistory(context.Background(), "missing"))
	assert.Equal(t, history, tr.Messages(), "failed load keeps the transcript")
}

func TestToggleReasoning(t *testing.T) {
	tr := newTranscript(&fakeBackend{}, "key")
	tr.Replace("c1", []api.Message{
		{Role: api.RoleUser, Content: "q"},
		{Role: api.RoleAssistant, Content: "a", Reasoning: "because"},
	})

	assert.False(t, tr.Expanded(1), "reasoning starts collapsed")
	assert.True(t, tr.ToggleReasoning(1))
	assert.True(t, tr.Expanded(1))
	assert.False(t, tr.ToggleReasoning(1))
	assert.False(t, tr.ToggleReasoning(0), "no reasoning to expand")
	assert.False(t, tr.ToggleReasoning(9))

	tr.ToggleReasoning(1)
	tr.Replace("c1", tr.Messages())
	assert.False(t, tr.Expanded(1), "replace collapses everything")

	last, ok := tr.LastAnswer()
	assert.True(t, ok)
	assert.Equal(t, "a", last)
}

func TestIsFailure(t *testing.T) {
	assert.True(t, IsFailure("Connection failed"))
	assert.True(t, IsFailure("Error: Failed to get answer"))
	assert.False(t, IsFailure("Errors in table 3 were corrected"))
}
