package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"

	mederrors "github.com/medlit/medsearch/internal/errors"
)

const (
	// MedicalTokenizerName is the name of our custom clinical text tokenizer.
	MedicalTokenizerName = "medical_tokenizer"

	// MedicalStopFilterName is the name of our custom stop word filter.
	MedicalStopFilterName = "medical_stop"

	// MedicalAnalyzerName is the name of our custom clinical text analyzer.
	MedicalAnalyzerName = "medical_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(MedicalTokenizerName, medicalTokenizerConstructor)
	_ = registry.RegisterTokenFilter(MedicalStopFilterName, medicalStopFilterConstructor)
}

// BleveBM25Index wraps Bleve v2 for BM25 keyword search over chunks.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	config BM25Config
	closed bool
}

// Verify interface implementation
var _ BM25Index = (*BleveBM25Index)(nil)

// bleveChunk is the document structure for Bleve indexing.
type bleveChunk struct {
	Content    string `json:"content"`
	DocumentID string `json:"document_id"`
}

// NewBleveBM25Index creates or opens a BM25 index.
// If path is empty, creates an in-memory index.
func NewBleveBM25Index(path string, config BM25Config) (*BleveBM25Index, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}

		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		} else if err != nil {
			slog.Error("bm25_index_open_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil, mederrors.IndexCorrupt(
				fmt.Sprintf("lexical index at %s cannot be opened", path), err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create/open index: %w", err)
	}

	return &BleveBM25Index{
		index:  idx,
		path:   path,
		config: config,
	}, nil
}

// createIndexMapping creates the Bleve index mapping with the clinical analyzer.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(MedicalAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": MedicalTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			MedicalStopFilterName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = MedicalAnalyzerName

	docIDField := bleve.NewTextFieldMapping()
	docIDField.Analyzer = keyword.Name
	docIDField.Store = true
	docIDField.IncludeInAll = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("content", contentField)
	docMapping.AddFieldMappingsAt("document_id", docIDField)

	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = MedicalAnalyzerName

	return indexMapping, nil
}

// Index adds documents to the index.
func (b *BleveBM25Index) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		entry := bleveChunk{Content: doc.Content, DocumentID: doc.DocumentID}
		if err := batch.Index(doc.ID, entry); err != nil {
			return fmt.Errorf("failed to index chunk %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}

	return nil
}

// Search returns chunks matching query, scored by BM25.
// An empty query returns an empty result set, not an error.
func (b *BleveBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if strings.TrimSpace(queryStr) == "" {
		return []*BM25Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit
	searchRequest.Fields = []string{"document_id"}
	searchRequest.IncludeLocations = true

	result, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		documentID, _ := hit.Fields["document_id"].(string)
		results = append(results, &BM25Result{
			ChunkID:      hit.ID,
			DocumentID:   documentID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}

	return results, nil
}

// Delete removes chunks from the index.
func (b *BleveBM25Index) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range chunkIDs {
		batch.Delete(id)
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	return nil
}

// Stats returns index statistics.
func (b *BleveBM25Index) Stats() *IndexStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return &IndexStats{}
	}

	docCount, _ := b.index.DocCount()
	return &IndexStats{DocumentCount: int(docCount)}
}

// Close closes the index.
func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	if b.index != nil {
		return b.index.Close()
	}
	return nil
}

// extractMatchedTerms extracts matched terms from a search hit.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for field, locations := range hit.Locations {
		if field == "content" {
			for term := range locations {
				terms[term] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	return result
}

// wordRegex matches alphanumeric runs, keeping interior dots and
// hyphens plus a trailing percent sign. Dosages like "5mg",
// identifiers like "NCT00123456", and incidence figures like "26.6%"
// stay whole; sentence-final punctuation does not attach.
var wordRegex = regexp.MustCompile(`[a-zA-Z0-9]+(?:[.\-][a-zA-Z0-9]+)*%?`)

// medicalTokenizerConstructor creates the clinical text tokenizer for Bleve.
func medicalTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &medicalTokenizer{}, nil
}

type medicalTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *medicalTokenizer) Tokenize(input []byte) analysis.TokenStream {
	matches := wordRegex.FindAllIndex(input, -1)

	result := make(analysis.TokenStream, 0, len(matches))
	for i, m := range matches {
		result = append(result, &analysis.Token{
			Term:     input[m[0]:m[1]],
			Start:    m[0],
			End:      m[1],
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return result
}

// medicalStopFilterConstructor creates the stop word filter for Bleve.
func medicalStopFilterConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.TokenFilter, error) {
	return &medicalStopFilter{
		stopWords: buildTermSet(DefaultMedicalStopWords),
		keepTerms: buildTermSet(ClinicalKeepTerms),
	}, nil
}

// medicalStopFilter drops stop words and fragments shorter than two
// characters, except for whitelisted clinical abbreviations.
type medicalStopFilter struct {
	stopWords map[string]struct{}
	keepTerms map[string]struct{}
}

// Filter implements analysis.TokenFilter.
func (f *medicalStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		term := strings.ToLower(string(token.Term))
		if _, keep := f.keepTerms[term]; keep {
			result = append(result, token)
			continue
		}
		if _, isStop := f.stopWords[term]; isStop {
			continue
		}
		if len(term) < 2 {
			continue
		}
		result = append(result, token)
	}
	return result
}

// buildTermSet converts a slice of terms to a lookup set.
func buildTermSet(terms []string) map[string]struct{} {
	m := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		m[strings.ToLower(t)] = struct{}{}
	}
	return m
}
