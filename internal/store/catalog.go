package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/medlit/medsearch/internal/chunk"
)

// catalogMaxLineBytes bounds a single serialized chunk line.
const catalogMaxLineBytes = 1 << 20

// Catalog holds the chunk records backing both indexes, keyed by chunk
// ID. It is the source of truth for result text hydration.
type Catalog struct {
	mu     sync.RWMutex
	chunks map[string]*chunk.Chunk
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{chunks: make(map[string]*chunk.Chunk)}
}

// Put adds or replaces a chunk record.
func (c *Catalog) Put(ch *chunk.Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks[ch.ID] = ch
}

// Get returns the chunk for an ID.
func (c *Catalog) Get(chunkID string) (*chunk.Chunk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.chunks[chunkID]
	return ch, ok
}

// Text returns the chunk text, or empty string if the chunk is unknown.
// Results referencing missing chunks are still returned to callers,
// just without text.
func (c *Catalog) Text(chunkID string) string {
	if ch, ok := c.Get(chunkID); ok {
		return ch.Text
	}
	return ""
}

// Len returns the number of chunks in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// WriteCatalog persists chunks as JSONL, one chunk object per line.
// Uses atomic save (temp file + rename).
func WriteCatalog(path string, chunks []*chunk.Chunk) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create catalog file: %w", err)
	}

	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, ch := range chunks {
		if err := encoder.Encode(ch); err != nil {
			_ = file.Close()
			_ = os.Remove(tmpPath)
			return fmt.Errorf("failed to encode chunk %s: %w", ch.ID, err)
		}
	}

	if err := writer.Flush(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to flush catalog: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close catalog file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// LoadCatalog reads a JSONL catalog from disk.
// Malformed lines are skipped with a warning so one bad record does not
// take the whole index offline.
func LoadCatalog(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() { _ = file.Close() }()

	catalog := NewCatalog()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), catalogMaxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ch chunk.Chunk
		if err := json.Unmarshal(line, &ch); err != nil {
			slog.Warn("catalog_line_malformed",
				slog.String("path", path),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()))
			continue
		}
		if ch.ID == "" {
			slog.Warn("catalog_line_missing_chunk_id",
				slog.String("path", path),
				slog.Int("line", lineNo))
			continue
		}

		catalog.chunks[ch.ID] = &ch
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return catalog, nil
}
