package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
)

// maxErrorBody bounds how much of an error response is read for its detail.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token for authorized calls
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Options configures a Client
type Options struct {
	BaseURL string
	// Timeout is the per-request deadline; zero means none.
	Timeout time.Duration
	// Retries is the number of attempts for idempotent GETs.
	Retries    uint
	RetryDelay time.Duration
	Tokens     TokenSource
	Logger     *log.Logger
	HTTPClient *http.Client
}

// Client talks to the document analysis backend
type Client struct {
	baseURL    string
	http       *http.Client
	tokens     TokenSource
	logger     *log.Logger
	retries    uint
	retryDelay time.Duration
}

// NewClient creates a backend client
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	retries := opts.Retries
	if retries == 0 {
		retries = 1
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		http:       httpClient,
		tokens:     tokens,
		logger:     logger.WithPrefix("api"),
		retries:    retries,
		retryDelay: delay,
	}
}

// BaseURL returns the backend address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/token", nil), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("backend returned an empty access token")
	}
	return out.AccessToken, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/register", nil), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

// Me returns the profile of the token owner.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/api/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListChats returns the chat history of the current user.
func (c *Client) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var chats []ChatSummary
	if err := c.get(ctx, "/api/chats", &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// GetChat returns the full stored session for chatID.
func (c *Client) GetChat(ctx context.Context, chatID string) (*ChatDetail, error) {
	var detail ChatDetail
	if err := c.get(ctx, "/api/chats/"+url.PathEscape(chatID), &detail); err != nil {
		return nil, err
	}
	if detail.ChatID == "" {
		detail.ChatID = chatID
	}
	return &detail, nil
}

// DeleteChat removes a chat on the backend.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	req, err := c.authorized(ctx, http.MethodDelete, c.endpoint("/api/chats/"+url.PathEscape(chatID), nil), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Upload sends a PDF for ingestion and analysis.
func (c *Client) Upload(ctx context.Context, in UploadRequest) (*UploadResult, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", in.Path, err)
	}
	defer f.Close()

	query := url.Values{}
	query.Set("api_key", in.APIKey)
	if in.Model != "" {
		query.Set("model", in.Model)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(in.Path)))
		header.Set("Content-Type", "application/pdf")
		part, err := mw.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.authorized(ctx, http.MethodPost, c.endpoint("/api/upload", query), pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	c.logger.Debug("uploading document", "file", filepath.Base(in.Path), "model", in.Model)

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	if out.ChatID == "" {
		return nil, errors.New("backend returned no chat id")
	}
	return &out, nil
}

// Query asks a question about an indexed document.
func (c *Client) Query(ctx context.Context, in QueryRequest) (*QueryResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	query := url.Values{}
	query.Set("api_key", in.APIKey)

	req, err := c.authorized(ctx, http.MethodPost, c.endpoint("/api/query", query), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out QueryResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks that the backend is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health", nil), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(req, &out); err != nil {
		return err
	}
	if out.Status != "" && out.Status != "ok" && out.Status != "healthy" {
		return fmt.Errorf("backend reports status %q", out.Status)
	}
	return nil
}

// get performs an authorized GET, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, out any) error {
	return retry.Do(
		func() error {
			req, err := c.authorized(ctx, http.MethodGet, c.endpoint(path, nil), nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			return c.do(req, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.retries),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("retrying request", "path", path, "attempt", n+1, "err", err)
		}),
	)
}

func retryable(err error) bool {
	if IsCanceled(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !errors.Is(err, ErrNotAuthenticated)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) authorized(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	token := c.tokens.Token()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a JSON body into out when out is non-nil.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Error("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to decode response: %w: %w", ErrMalformedResponse, err)
	}
	return nil
}
