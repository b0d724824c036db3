package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message roles used in chat histories
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is the profile returned by /api/me
type User struct {
	Username string   `json:"username"`
	ID       FlexText `json:"id,omitempty"`
}

// ChatSummary is one entry of the chat history list
type ChatSummary struct {
	ChatID    string
	Title     string
	FileName  string
	CreatedAt time.Time
}

type chatSummaryWire struct {
	ChatID    string `json:"chat_id"`
	Title     string `json:"title"`
	FileName  string `json:"file_name"`
	CreatedAt string `json:"created_at"`
	Timestamp string `json:"timestamp"`
}

// UnmarshalJSON accepts either created_at or timestamp for the creation time.
func (c *ChatSummary) UnmarshalJSON(data []byte) error {
	var w chatSummaryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c.ChatID = w.ChatID
	c.Title = w.Title
	c.FileName = w.FileName

	raw := w.CreatedAt
	if raw == "" {
		raw = w.Timestamp
	}
	if raw == "" {
		c.CreatedAt = time.Time{}
		return nil
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return fmt.Errorf("chat %s: %w", w.ChatID, err)
	}
	c.CreatedAt = ts
	return nil
}

// MarshalJSON writes the summary with the created_at key.
func (c ChatSummary) MarshalJSON() ([]byte, error) {
	w := chatSummaryWire{
		ChatID:   c.ChatID,
		Title:    c.Title,
		FileName: c.FileName,
	}
	if !c.CreatedAt.IsZero() {
		w.CreatedAt = c.CreatedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(w)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the ISO-8601 variants the backend emits. Timestamps
// without a zone are read as local time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if layout == time.RFC3339Nano {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, nil
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// Message is one entry of a chat transcript
type Message struct {
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Reasoning string          `json:"reasoning,omitempty"`
	Context   json.RawMessage `json:"context,omitempty"`
}

// HasReasoning reports whether the message carries a reasoning trace.
func (m Message) HasReasoning() bool {
	return strings.TrimSpace(m.Reasoning) != ""
}

// ChatDetail is the full stored session returned by /api/chats/{id}
type ChatDetail struct {
	ChatID        string         `json:"chat_id"`
	Title         string         `json:"title,omitempty"`
	FileName      string         `json:"file_name,omitempty"`
	History       []Message      `json:"history"`
	ProcessedData *ProcessedData `json:"processed_data"`
	PDFBase64     string         `json:"pdf_b64,omitempty"`
}

// ProcessedData is the analysis snapshot the backend extracts from a PDF
type ProcessedData struct {
	FileName string     `json:"file_name"`
	TOC      []TOCEntry `json:"toc"`
	Sections []Section  `json:"sections,omitempty"`
	Tables   []Table    `json:"tables"`
	Media    []Media    `json:"media"`
}

// UnmarshalJSON accepts the older section_definitions key when sections is
// absent.
func (p *ProcessedData) UnmarshalJSON(data []byte) error {
	type plain ProcessedData
	var raw struct {
		plain
		Legacy []Section `json:"section_definitions"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = ProcessedData(raw.plain)
	if len(p.Sections) == 0 {
		p.Sections = raw.Legacy
	}
	return nil
}

// Table is one extracted table; Cells is row-major
type Table struct {
	Page    FlexInt `json:"page"`
	Caption string  `json:"caption,omitempty"`
	Cells   Grid    `json:"cells"`
}

// Grid is a row-major table body. Cells the extraction model emits as
// numbers or booleans are kept as their JSON text; null becomes "".
type Grid [][]string

func (g *Grid) UnmarshalJSON(data []byte) error {
	var rows [][]FlexText
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if rows == nil {
		*g = nil
		return nil
	}
	out := make(Grid, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = string(cell)
		}
	}
	*g = out
	return nil
}

// Media is a visual insight description
type Media struct {
	Page        FlexInt `json:"page"`
	Description string  `json:"description"`
}

// TOCEntry is one table-of-contents line
type TOCEntry struct {
	PageNumber FlexInt `json:"page_number"`
	Title      string  `json:"title"`
}

// Section is a titled part of the document
type Section struct {
	Title     string   `json:"title"`
	Content   string   `json:"content,omitempty"`
	PageRange FlexText `json:"page_range,omitempty"`
	PageStart FlexInt  `json:"page_start,omitempty"`
	PageEnd   FlexInt  `json:"page_end,omitempty"`
}

// Pages returns the page range as text, e.g. "1-3", or "" when unknown.
func (s Section) Pages() string {
	if r := strings.TrimSpace(string(s.PageRange)); r != "" {
		return r
	}
	switch {
	case s.PageStart > 0 && s.PageEnd > s.PageStart:
		return fmt.Sprintf("%d-%d", s.PageStart, s.PageEnd)
	case s.PageStart > 0:
		return strconv.Itoa(int(s.PageStart))
	}
	return ""
}

// UploadRequest describes a document upload
type UploadRequest struct {
	Path   string
	APIKey string
	Model  string
}

// UploadResult is the backend answer to an upload
type UploadResult struct {
	ChatID        string         `json:"chat_id"`
	FileName      string         `json:"file_name"`
	ProcessedData *ProcessedData `json:"processed_data"`
}

// QueryRequest is a question about an indexed document
type QueryRequest struct {
	ChatID string `json:"chat_id"`
	Query  string `json:"query"`
	Model  string `json:"model,omitempty"`
	APIKey string `json:"-"`
}

// QueryResult is the assistant answer
type QueryResult struct {
	Answer    string          `json:"answer"`
	Reasoning string          `json:"reasoning"`
	Context   json.RawMessage `json:"context,omitempty"`
	History   []Message       `json:"history,omitempty"`
}

// FlexInt decodes a number that the extraction model may emit as a number,
// a numeric string or null.
type FlexInt int

func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid page number %q", s)
		}
		*n = FlexInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = FlexInt(int(f))
	return nil
}

// FlexText decodes an identifier that may be a number or a string.
type FlexText string

func (t *FlexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = FlexText(s)
		return nil
	}
	*t = FlexText(string(data))
	return nil
}
