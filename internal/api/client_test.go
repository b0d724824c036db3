package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:    srv.URL,
		Retries:    3,
		RetryDelay: time.Millisecond,
		Tokens:     StaticToken(token),
	})
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not send a bearer token")
		}
		if r.PostForm.Get("username") != "alice" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"tok-1","token_type":"bearer"}`)
	})
	c := newTestClient(t, mux, "")

	t.Run("success", func(t *testing.T) {
		token, err := c.Login(context.Background(), "alice", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)
	})

	t.Run("bad credentials", func(t *testing.T) {
		_, err := c.Login(context.Background(), "alice", "wrong")
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, "Incorrect username or password", Detail(err))
	})
}

func TestRegisterSendsJSON(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"message":"User created successfully"}`)
	}), "")

	require.NoError(t, c.Register(context.Background(), "bob", "pw"))
	assert.Equal(t, map[string]string{"username": "bob", "password": "pw"}, got)
}

func TestAuthorizedCallsRequireToken(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), "")

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, calls.Load())
}

func TestListChats(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"chat_id":"a","title":"Q3 report","file_name":"q3.pdf","timestamp":"2024-05-01T10:00:00"},
			{"chat_id":"b","title":"Lease","created_at":"2024-05-02T08:30:00Z"},
			{"chat_id":"c","title":"Untitled"}
		]`)
	}), "tok")

	chats, err := c.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 3)

	assert.Equal(t, "a", chats[0].ChatID)
	assert.Equal(t, "q3.pdf", chats[0].FileName)
	assert.Equal(t, 2024, chats[0].CreatedAt.Year())
	assert.Equal(t, time.May, chats[1].CreatedAt.Month())
	assert.True(t, chats[2].CreatedAt.IsZero())
}

func TestGetChatRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{
			"chat_id":"c1",
			"history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello","reasoning":"greeting"}],
			"processed_data":{"file_name":"doc.pdf","toc":[{"page_number":"2","title":"Intro"}],"tables":[],"media":[{"page":3,"description":"chart"}]},
			"pdf_b64":"JVBERi0="
		}`)
	}), "tok")

	detail, err := c.GetChat(context.Background(), "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, "c1", detail.ChatID)
	require.Len(t, detail.History, 2)
	assert.True(t, detail.History[1].HasReasoning())
	require.NotNil(t, detail.ProcessedData)
	assert.EqualValues(t, 2, detail.ProcessedData.TOC[0].PageNumber)
	assert.EqualValues(t, 3, detail.ProcessedData.Media[0].Page)
	assert.Equal(t, "JVBERi0=", detail.PDFBase64)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Chat not found"}`)
	}), "tok")

	_, err := c.GetChat(context.Background(), "missing")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Chat not found", apiErr.Detail)
	assert.EqualValues(t, 1, calls.Load())
}

func TestMalformedBodyIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"chat_id":`)
	}), "tok")

	_, err := c.GetChat(context.Background(), "c1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.EqualValues(t, 1, calls.Load())
}

func TestProcessedDataDecoding(t *testing.T) {
	t.Run("sections", func(t *testing.T) {
		var res UploadResult
		require.NoError(t, json.Unmarshal([]byte(`{"chat_id":"c1","processed_data":{"sections":[{"title":"Intro","content":"x","page_range":"1-3"}]}}`), &res))
		require.NotNil(t, res.ProcessedData)
		require.Len(t, res.ProcessedData.Sections, 1)
		sec := res.ProcessedData.Sections[0]
		assert.Equal(t, "Intro", sec.Title)
		assert.Equal(t, "x", sec.Content)
		assert.Equal(t, "1-3", sec.Pages())
	})

	t.Run("section definitions", func(t *testing.T) {
		var data ProcessedData
		require.NoError(t, json.Unmarshal([]byte(`{"section_definitions":[{"title":"Results","page_start":4,"page_end":"6"},{"title":"Notes","page_start":9}]}`), &data))
		require.Len(t, data.Sections, 2)
		assert.Equal(t, "4-6", data.Sections[0].Pages())
		assert.Equal(t, "9", data.Sections[1].Pages())
	})

	t.Run("mixed cells", func(t *testing.T) {
		var data ProcessedData
		require.NoError(t, json.Unmarshal([]byte(`{"tables":[{"page":1,"cells":[["Year","Revenue"],[2023,1.5],[true,null]]}]}`), &data))
		require.Len(t, data.Tables, 1)
		assert.Equal(t, Grid{{"Year", "Revenue"}, {"2023", "1.5"}, {"true", ""}}, data.Tables[0].Cells)
	})

	t.Run("cached round trip", func(t *testing.T) {
		in := ProcessedData{
			FileName: "a.pdf",
			Sections: []Section{{Title: "Intro", PageRange: "1-2"}},
			Tables:   []Table{{Page: 2, Cells: Grid{{"a", "1"}}}},
		}
		raw, err := json.Marshal(in)
		require.NoError(t, err)
		var out ProcessedData
		require.NoError(t, json.Unmarshal(raw, &out))
		assert.Equal(t, in, out)
	})
}

func TestUploadMultipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o644))

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/upload", r.URL.Path)
		assert.Equal(t, "key-1", r.URL.Query().Get("api_key"))
		assert.Equal(t, "gemini-2.0-flash", r.URL.Query().Get("model"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "report.pdf", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "%PDF-1.4\n%%EOF\n", string(data))

		_, _ = io.WriteString(w, `{"chat_id":"c9","file_name":"report.pdf","processed_data":{"file_name":"report.pdf","tables":[{"page":1,"cells":[["a","b"]]}],"media":[],"toc":[]}}`)
	}), "tok")

	res, err := c.Upload(context.Background(), UploadRequest{Path: path, APIKey: "key-1", Model: "gemini-2.0-flash"})
	require.NoError(t, err)
	assert.Equal(t, "c9", res.ChatID)
	require.NotNil(t, res.ProcessedData)
	assert.Equal(t, Grid{{"a", "b"}}, res.ProcessedData.Tables[0].Cells)
}

func TestUploadMissingKeyDetail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"API Key is required"}`)
	}), "tok")

	_, err := c.Upload(context.Background(), UploadRequest{Path: path})
	require.Error(t, err)
	assert.Equal(t, "API Key is required", Detail(err))
}

func TestCanceledRequestSurfacesContextCanceled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), "tok")
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Query(ctx, QueryRequest{ChatID: "c1", Query: "q", APIKey: "k"})
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.True(t, IsCanceled(err), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("query did not return after cancel")
	}
}

func TestQuery(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("api_key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "c1", body["chat_id"])
		assert.Equal(t, "what is revenue?", body["query"])
		assert.NotContains(t, body, "APIKey")
		_, _ = io.WriteString(w, `{"answer":"42M","reasoning":"table 2","context":[{"type":"table"}]}`)
	}), "tok")

	res, err := c.Query(context.Background(), QueryRequest{ChatID: "c1", Query: "what is revenue?", Model: "m", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "42M", res.Answer)
	assert.Equal(t, "table 2", res.Reasoning)
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"rate limited"}`, "rate limited"},
		{"validation list", `{"detail":[{"loc":["body","query"],"msg":"field required"}]}`, "query: field required"},
		{"plain text", `Internal Server Error`, "Internal Server Error"},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDetail([]byte(tt.body)); got != tt.want {
				t.Errorf("parseDetail() = %q, want %q", got, tt.want)
			}
		})
	}
}
