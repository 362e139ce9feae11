package writer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-scripts/chatextract/internal/types"
)

const (
	summaryTimeLayout = "20060102_150405"
	maxSlugRunes      = 200
)

// FileWriter handles writing extraction artifacts to the output directory
type FileWriter struct {
	outputDir string
}

// New creates a new FileWriter instance
func New(outputDir string) (*FileWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{outputDir: outputDir}, nil
}

// Dir returns the output directory.
func (w *FileWriter) Dir() string {
	return w.outputDir
}

// WriteChat writes the extraction record as <slug>_chat.json
func (w *FileWriter) WriteChat(slug string, record *types.ChatRecord) (string, error) {
	fp := filepath.Join(w.outputDir, slug+"_chat.json")
	if err := WriteJSON(fp, record); err != nil {
		return "", err
	}
	return fp, nil
}

// WriteHTML writes the raw page snapshot as <slug>_raw.html
func (w *FileWriter) WriteHTML(slug, html string) (string, error) {
	return w.writeFile(slug+"_raw.html", []byte(html))
}

// WriteProbeHTML writes a probe snapshot as <slug>_probe.html
func (w *FileWriter) WriteProbeHTML(slug, html string) (string, error) {
	return w.writeFile(slug+"_probe.html", []byte(html))
}

// WriteScreenshot writes a PNG screenshot as <slug>_screenshot.png
func (w *FileWriter) WriteScreenshot(slug string, png []byte) (string, error) {
	return w.writeFile(slug+"_screenshot.png", png)
}

// WriteSummary writes the run summary, named after its timestamp
func (w *FileWriter) WriteSummary(summary *types.Summary) (string, error) {
	name := fmt.Sprintf("summary_%s.json", summary.Timestamp.Format(summaryTimeLayout))
	fp := filepath.Join(w.outputDir, name)
	if err := WriteJSON(fp, summary); err != nil {
		return "", fmt.Errorf("failed to write summary: %w", err)
	}
	return fp, nil
}

func (w *FileWriter) writeFile(name string, data []byte) (string, error) {
	fp := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(fp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return fp, nil
}

// WriteJSON encodes v with two-space indentation to fp, creating the parent
// directory. HTML characters and non-ASCII text are written as-is.
func WriteJSON(fp string, v any) error {
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", fp, err)
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", fp, err)
	}

	if err := os.WriteFile(fp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	return nil
}

var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

// Slug derives the artifact filename prefix from the last path segment of a
// share URL, falling back to the host.
func Slug(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		if s := sanitize(lastSegment(rawURL)); s != "" {
			return s
		}
		return "index"
	}

	if s := sanitize(path.Base(strings.TrimRight(u.Path, "/"))); s != "" && s != "." && s != "_" {
		return s
	}
	if s := sanitize(strings.TrimPrefix(u.Hostname(), "www.")); s != "" {
		return s
	}
	return "index"
}

func lastSegment(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func sanitize(s string) string {
	s = unsafeChars.Replace(s)
	if r := []rune(s); len(r) > maxSlugRunes {
		s = string(r[:maxSlugRunes])
	}
	return s
}
