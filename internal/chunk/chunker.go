package chunk

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/medlit/medsearch/internal/errors"
)

// tokenPattern treats contiguous alphanumerics as one token and each
// punctuation mark as its own token, so statistical content such as
// "26.6%" survives as matchable tokens ["26", ".", "6", "%"].
var tokenPattern = regexp.MustCompile(`\w+|[^\w\s]`)

// Tokenize splits text into word-or-punctuation tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(text, -1)
}

// Chunker deterministically converts document text into an ordered
// sequence of overlapping chunks. It is stateless and safe for
// concurrent use across documents.
type Chunker struct {
	opts Options
}

// New creates a chunker, applying defaults for out-of-range options.
func New(opts Options) *Chunker {
	return &Chunker{opts: opts.normalized()}
}

// Chunk splits a document into overlapping windows of tokens.
// Re-running on the same document yields an identical sequence: chunk
// ids are a pure function of (document id, token offset).
// Malformed windows are skipped with a warning; the document's
// remaining chunks still proceed.
func (c *Chunker) Chunk(doc *Document) []*Chunk {
	tokens := Tokenize(doc.Text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.opts.step()
	chunks := make([]*Chunk, 0, (len(tokens)+step-1)/step)
	for i := 0; i < len(tokens); i += step {
		end := i + c.opts.Size
		if end > len(tokens) {
			end = len(tokens)
		}

		ck := &Chunk{
			ID:          ChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			Text:        strings.Join(tokens[i:end], " "),
			Source:      doc.Source,
			Pages:       doc.Pages,
			SectionPath: doc.SectionPath,
			Signals:     map[string]any{},
		}

		if err := c.Validate(ck); err != nil {
			slog.Warn("skipping malformed chunk",
				slog.String("chunk_id", ck.ID),
				slog.String("error", err.Error()))
			continue
		}
		chunks = append(chunks, ck)
	}

	return chunks
}

// Record emits a structured sub-record (e.g., one tabulated
// adverse-event row) as a single atomic chunk. Atomic chunks bypass
// the sliding window: they are already below the size budget and
// splitting them would break their semantics. The suffix distinguishes
// the record within its document (e.g., "ae3").
func (c *Chunker) Record(doc *Document, suffix, text string) (*Chunk, error) {
	ck := &Chunk{
		ID:          doc.ID + "#" + suffix,
		DocumentID:  doc.ID,
		Text:        strings.TrimSpace(text),
		Source:      doc.Source,
		Pages:       doc.Pages,
		SectionPath: doc.SectionPath,
		Signals:     map[string]any{},
	}
	if err := c.Validate(ck); err != nil {
		return nil, err
	}
	return ck, nil
}

// Validate checks the chunk invariants: non-empty text, within the
// token budget.
func (c *Chunker) Validate(ck *Chunk) error {
	if strings.TrimSpace(ck.Text) == "" {
		return errors.MalformedChunk("empty text").WithDetail("chunk_id", ck.ID)
	}
	if n := len(Tokenize(ck.Text)); n > c.opts.Size {
		return errors.MalformedChunk("text exceeds token budget").
			WithDetail("chunk_id", ck.ID).
			WithDetail("tokens", strconv.Itoa(n))
	}
	return nil
}

// Options returns the normalized windowing parameters in effect.
func (c *Chunker) Options() Options {
	return c.opts
}
