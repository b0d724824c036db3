// Package preview inspects local PDF files and renders the document outline.
package preview

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/pdfretriever/pdfretriever/internal/api"
)

const (
	// Unavailable is shown when there is no document to preview.
	Unavailable = "PDF Source Not Available"
	// NoOutline is shown when the analysis has no table of contents.
	NoOutline = "No table of contents extracted."

	pdfMIME      = "application/pdf"
	excerptRunes = 600
)

// ErrNotPDF is returned when a file does not look like a PDF.
var ErrNotPDF = errors.New("not a PDF document")

// Document describes a local PDF
type Document struct {
	Path    string
	Size    int64
	Pages   int
	Excerpt string
}

// SizeLabel is the human readable file size.
func (d *Document) SizeLabel() string {
	return humanize.Bytes(uint64(d.Size))
}

// CheckPDF verifies that path exists and sniffs as a PDF.
func CheckPDF(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !mt.Is(pdfMIME) {
		return nil, fmt.Errorf("%s is %s: %w", path, mt.String(), ErrNotPDF)
	}
	return info, nil
}

// Inspect reads the page count and a first-page text excerpt. Text
// extraction problems leave Excerpt empty rather than failing.
func Inspect(path string) (*Document, error) {
	info, err := CheckPDF(path)
	if err != nil {
		return nil, err
	}
	doc := &Document{Path: path, Size: info.Size()}

	pages, excerpt, err := readPDF(path)
	if err != nil {
		return doc, err
	}
	doc.Pages = pages
	doc.Excerpt = excerpt
	return doc, nil
}

// readPDF recovers from parser panics on malformed input.
func readPDF(path string) (pages int, excerpt string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	if pages == 0 {
		return 0, "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return pages, "", nil
	}
	text, textErr := page.GetPlainText(nil)
	if textErr != nil {
		return pages, "", nil
	}
	return pages, clip(strings.Join(strings.Fields(text), " "), excerptRunes), nil
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// WriteTemp decodes a base64 PDF payload, optionally given as a data URL,
// into a new file in dir and returns its path.
func WriteTemp(dir, payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	if payload == "" {
		return "", errors.New("empty PDF payload")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return "", fmt.Errorf("failed to decode PDF payload: %w", err)
		}
	}

	f, err := os.CreateTemp(dir, "chat-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create preview file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write preview file: %w", err)
	}
	return f.Name(), nil
}

// Remove deletes a preview file. Missing files are ignored.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Outline renders the table of contents as a flat list, one entry per line.
func Outline(toc []api.TOCEntry, width int) string {
	if len(toc) == 0 {
		return NoOutline
	}
	var b strings.Builder
	for i, entry := range toc {
		if i > 0 {
			b.WriteByte('\n')
		}
		line := fmt.Sprintf("p.%-4d %s", int(entry.PageNumber), strings.TrimSpace(entry.Title))
		if width > 0 {
			line = ansi.Truncate(line, width, "…")
		}
		b.WriteString(line)
	}
	return b.String()
}

// SectionList renders document sections one per line as "p.1-3  Title".
// Sections without a page range are listed by title only.
func SectionList(sections []api.Section, width int) string {
	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = fmt.Sprintf("Section %d", i+1)
		}
		line := title
		if pages := sec.Pages(); pages != "" {
			line = fmt.Sprintf("p.%-4s %s", pages, title)
		}
		if width > 0 {
			line = ansi.Truncate(line, width, "…")
		}
		b.WriteString(line)
	}
	return b.String()
}
