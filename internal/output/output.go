// Package output formats CLI output: status lines and search results.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/medlit/medsearch/internal/search"
)

// snippetLen bounds the text preview printed per result.
const snippetLen = 200

// Writer provides formatted output for the CLI.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Results prints a ranked result list for a query.
func (w *Writer) Results(query string, results []*search.Result) {
	if len(results) == 0 {
		_, _ = fmt.Fprintf(w.out, "No results for %q\n", query)
		return
	}

	_, _ = fmt.Fprintf(w.out, "Results for %q (%d):\n\n", query, len(results))
	for i, r := range results {
		_, _ = fmt.Fprintf(w.out, "%2d. %s  score=%.4f  [%s]\n",
			i+1, r.ChunkID, r.FusedScore, r.SourceBackend)
		if r.DocumentID != "" && r.DocumentID != r.ChunkID {
			_, _ = fmt.Fprintf(w.out, "    document: %s\n", r.DocumentID)
		}
		if len(r.MatchedTerms) > 0 {
			_, _ = fmt.Fprintf(w.out, "    matched: %s\n", strings.Join(r.MatchedTerms, ", "))
		}
		if snippet := Snippet(r.Text, snippetLen); snippet != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", snippet)
		}
		_, _ = fmt.Fprintln(w.out)
	}
}

// Snippet truncates text to at most maxLen runes on a word boundary,
// collapsing internal newlines.
func Snippet(text string, maxLen int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= maxLen {
		return text
	}
	cut := text[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
