// Package chunk converts source documents into bounded, overlapping
// passages, the atomic retrievable units shared by every index.
package chunk

import (
	"fmt"
	"strconv"
	"strings"
)

// Windowing defaults. An 850-token window with 120 tokens of overlap
// keeps trial results sections intact while preserving context across
// chunk boundaries.
const (
	DefaultChunkTokens   = 850
	DefaultOverlapTokens = 120
)

// Source tags the provenance category of a chunk.
type Source string

const (
	SourceTrial   Source = "trial"
	SourceChapter Source = "chapter"
	SourceDerived Source = "derived-summary"
)

// Document is an externally supplied unit of text: one trial report
// section or textbook chapter passage. Immutable once ingested; the
// ingestion pipeline owns its lifecycle.
type Document struct {
	// ID is the stable, unique document identifier (e.g., trial registry id).
	ID string

	// Text is the extracted, cleaned full text.
	Text string

	// Source is the provenance category.
	Source Source

	// SectionPath gives hierarchical section context (e.g., ["results"]).
	SectionPath []string

	// Pages lists the page numbers the text spans, for citation.
	Pages []int

	// AdverseEvents holds tabulated safety rows from trial reports.
	// Each row is indexed as its own atomic chunk.
	AdverseEvents []AdverseEvent
}

// AdverseEvent is one tabulated safety row. Optional fields are
// pointers so absent counts are distinguishable from zero.
type AdverseEvent struct {
	Event               string   `json:"event"`
	InterventionN       *int     `json:"intervention_n"`
	InterventionPercent *float64 `json:"intervention_percent"`
	ControlN            *int     `json:"control_n"`
	ControlPercent      *float64 `json:"control_percent"`
	Serious             *bool    `json:"serious"`
}

// Sentence renders the row as a short English passage. Keeping the
// event name and its incidence figures in one sentence makes
// "what percent had pneumothorax" answerable by every backend.
func (e AdverseEvent) Sentence() string {
	event := e.Event
	if event == "" {
		event = "adverse event"
	}

	parts := []string{fmt.Sprintf("Adverse Event: %s.", event)}
	if e.InterventionN != nil {
		parts = append(parts, armSentence("Intervention", *e.InterventionN, e.InterventionPercent))
	}
	if e.ControlN != nil {
		parts = append(parts, armSentence("Control", *e.ControlN, e.ControlPercent))
	}
	if e.Serious != nil {
		if *e.Serious {
			parts = append(parts, "Serious.")
		} else {
			parts = append(parts, "Non-serious.")
		}
	}
	return strings.Join(parts, " ")
}

func armSentence(arm string, n int, percent *float64) string {
	if percent == nil {
		return fmt.Sprintf("%s: %d patients.", arm, n)
	}
	return fmt.Sprintf("%s: %d patients (%s%%).", arm, n,
		strconv.FormatFloat(*percent, 'f', -1, 64))
}

// Chunk is the atomic retrievable unit. The JSON field names form the
// persistence contract consumed by both indexes; any conforming
// producer/consumer pair must agree on exactly these fields.
type Chunk struct {
	// ID is "{document_id}#{token offset}", derived deterministically
	// so re-chunking the same document yields identical ids.
	ID string `json:"chunk_id"`

	// DocumentID back-references the owning document.
	DocumentID string `json:"document_id"`

	// Text is the passage's tokens joined with single spaces.
	Text string `json:"text"`

	// Source is the provenance category.
	Source Source `json:"source"`

	// Pages lists the page numbers the chunk spans.
	Pages []int `json:"pages"`

	// SectionPath gives hierarchical section context.
	SectionPath []string `json:"section_path"`

	// TableNumber identifies the source table for tabulated records.
	TableNumber *int `json:"table_number"`

	// FigureNumber identifies the source figure.
	FigureNumber *int `json:"figure_number"`

	// Signals is an open bag of lightweight extracted facts (e.g. study
	// population size) carried for filtering and boosting. Optional,
	// additive only, never required for correctness.
	Signals map[string]any `json:"signals"`
}

// ChunkID builds the canonical chunk id for a document and token offset.
func ChunkID(documentID string, offset int) string {
	return fmt.Sprintf("%s#%d", documentID, offset)
}

// Options configures the sliding-window chunker.
type Options struct {
	// Size is the maximum tokens per chunk. Values <= 0 fall back to
	// DefaultChunkTokens.
	Size int

	// Overlap is the token overlap between consecutive chunks. Negative
	// values fall back to DefaultOverlapTokens. Overlap >= Size would
	// stall the window; the step is clamped to at least 1.
	Overlap int
}

// DefaultOptions returns the default windowing parameters.
func DefaultOptions() Options {
	return Options{
		Size:    DefaultChunkTokens,
		Overlap: DefaultOverlapTokens,
	}
}

// normalized applies the fallback rules from Options.
func (o Options) normalized() Options {
	if o.Size <= 0 {
		o.Size = DefaultChunkTokens
	}
	if o.Overlap < 0 {
		o.Overlap = DefaultOverlapTokens
	}
	return o
}

// step returns the window advance, clamped to at least 1 so chunking
// always terminates.
func (o Options) step() int {
	step := o.Size - o.Overlap
	if step < 1 {
		return 1
	}
	return step
}
