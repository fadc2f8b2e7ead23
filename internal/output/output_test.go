package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medlit/medsearch/internal/search"
)

func TestWriter_StatusIcons(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("index built")
	w.Warning("structured store missing")
	w.Errorf("open failed: %s", "locked")

	out := buf.String()
	assert.Contains(t, out, "✅ index built")
	assert.Contains(t, out, "structured store missing")
	assert.Contains(t, out, "❌ open failed: locked")
}

func TestWriter_ResultsEmpty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Results("pneumothorax", nil)

	assert.Contains(t, buf.String(), `No results for "pneumothorax"`)
}

func TestWriter_ResultsRanked(t *testing.T) {
	var buf bytes.Buffer
	results := []*search.Result{
		{
			ChunkID:       "NCT001#0",
			DocumentID:    "NCT001",
			FusedScore:    0.91,
			SourceBackend: search.BackendVector,
			Text:          "Pneumothorax occurred in 34 of 128 patients.",
			MatchedTerms:  []string{"pneumothorax"},
		},
		{
			ChunkID:       "CHAP-12#0",
			DocumentID:    "CHAP-12",
			FusedScore:    0.45,
			SourceBackend: search.BackendLexical,
		},
	}

	New(&buf).Results("pneumothorax valve", results)

	out := buf.String()
	assert.Contains(t, out, "Results for \"pneumothorax valve\" (2):")
	assert.Contains(t, out, "NCT001#0")
	assert.Contains(t, out, "score=0.9100")
	assert.Contains(t, out, "matched: pneumothorax")
	assert.Contains(t, out, "Pneumothorax occurred in 34 of 128 patients.")
	assert.Less(t, strings.Index(out, "NCT001#0"), strings.Index(out, "CHAP-12#0"),
		"results should print in rank order")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "", Snippet("", 50))
	assert.Equal(t, "short text", Snippet("short\ntext", 50))

	long := strings.Repeat("valve placement ", 30)
	got := Snippet(long, 50)
	assert.LessOrEqual(t, len(got), 54)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "..."), " "))
}
