// package formatter renders story lists to various formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/shared"
)

// Format is an export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat maps a name (or common file extension) to a [Format].
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
}

// Extension returns the file extension for f, without a dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// StoryExport is a titled list of stories with the viewer's favorite marks.
type StoryExport struct {
	Title       string
	Stories     []models.Story
	Favorites   *models.FavoriteSet // nil when nobody is signed in
	GeneratedAt time.Time
}

type storyRecord struct {
	ID          string    `json:"storyId"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Host        string    `json:"host"`
	Author      string    `json:"author"`
	SubmittedBy string    `json:"username"`
	CreatedAt   time.Time `json:"createdAt"`
	Favorite    bool      `json:"favorite"`
}

type exportDocument struct {
	Title       string        `json:"title"`
	GeneratedAt time.Time     `json:"generatedAt"`
	Count       int           `json:"count"`
	Stories     []storyRecord `json:"stories"`
}

func (e *StoryExport) records() []storyRecord {
	out := make([]storyRecord, len(e.Stories))
	for i, s := range e.Stories {
		out[i] = storyRecord{
			ID:          s.ID,
			Title:       s.Title,
			URL:         s.URL,
			Host:        s.Hostname(),
			Author:      s.Author,
			SubmittedBy: s.SubmittedBy,
			CreatedAt:   s.CreatedAt,
			Favorite:    e.Favorites.Has(s.ID),
		}
	}
	return out
}

// ExportToJSON renders the export as an indented JSON document.
func ExportToJSON(export *StoryExport) ([]byte, error) {
	doc := exportDocument{
		Title:       export.Title,
		GeneratedAt: export.GeneratedAt,
		Count:       len(export.Stories),
		Stories:     export.records(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV renders the export with columns: ID, Title, URL, Host, Author, Submitted By, Created At, Favorite
func ExportToCSV(export *StoryExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "URL", "Host", "Author", "Submitted By", "Created At", "Favorite"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range export.records() {
		record := []string{
			r.ID,
			r.Title,
			r.URL,
			r.Host,
			r.Author,
			r.SubmittedBy,
			formatTime(r.CreatedAt),
			fmt.Sprintf("%t", r.Favorite),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the export as a numbered Markdown list of links.
func ExportToMarkdown(export *StoryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)
	fmt.Fprintf(&buf, "**Stories**: %d\n", len(export.Stories))
	if !export.GeneratedAt.IsZero() {
		fmt.Fprintf(&buf, "**Generated**: %s\n", formatTime(export.GeneratedAt))
	}
	buf.WriteString("\n")

	for i, r := range export.records() {
		star := ""
		if r.Favorite {
			star = " ★"
		}
		fmt.Fprintf(&buf, "%d. [%s](%s) (%s) by %s%s\n", i+1, escapeMarkdown(r.Title), r.URL, r.Host, r.Author, star)
	}

	return buf.Bytes(), nil
}

// ExportToText renders the export as plain text.
func ExportToText(export *StoryExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", export.Title)
	fmt.Fprintf(&buf, "Stories: %d\n\n", len(export.Stories))

	for i, r := range export.records() {
		mark := "☆"
		if r.Favorite {
			mark = "★"
		}
		fmt.Fprintf(&buf, "%d. %s %s (%s)\n", i+1, mark, r.Title, r.Host)
		fmt.Fprintf(&buf, "   by %s | posted by %s | %s\n", r.Author, r.SubmittedBy, r.ID)
	}

	return buf.Bytes(), nil
}

// Render dispatches to the exporter for format.
func Render(export *StoryExport, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	}
	return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
}

// WriteTo renders export and writes it to w.
func WriteTo(w io.Writer, export *StoryExport, format Format) error {
	data, err := Render(export, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders export into path.
//
// Defaults to stories.{ext} when path is empty. Returns the path written.
func WriteFile(export *StoryExport, format Format, path string) (string, error) {
	if path == "" {
		path = "stories." + format.Extension()
	}

	data, err := Render(export, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return path, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
