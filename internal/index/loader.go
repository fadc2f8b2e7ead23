package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/medlit/medsearch/internal/chunk"
)

// maxRecordBytes bounds a single extraction record. Trial report
// sections stay well under this.
const maxRecordBytes = 16 * 1024 * 1024

// docRecord is the on-disk shape of one extracted document. Trial
// extractions may carry tabulated adverse-event rows alongside the
// running text; each row becomes its own atomic chunk.
type docRecord struct {
	DocumentID    string               `json:"document_id"`
	Text          string               `json:"text"`
	Source        string               `json:"source"`
	SectionPath   []string             `json:"section_path"`
	Pages         []int                `json:"pages"`
	AdverseEvents []chunk.AdverseEvent `json:"adverse_events"`
}

// LoadDocuments reads document extractions from a directory. Files
// ending in .jsonl hold one record per line; files ending in .json
// hold a single record or an array of records. Files are read in
// lexical name order so repeated loads yield the same document order.
// Malformed records are skipped with a warning.
func LoadDocuments(dir string, logger *slog.Logger) ([]chunk.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read documents directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".json" || ext == ".jsonl" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []chunk.Document
	for _, name := range names {
		path := filepath.Join(dir, name)
		var loaded []chunk.Document
		var err error
		if strings.HasSuffix(strings.ToLower(name), ".jsonl") {
			loaded, err = loadJSONL(path, logger)
		} else {
			loaded, err = loadJSON(path, logger)
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	logger.Info("documents_loaded",
		slog.Int("files", len(names)),
		slog.Int("documents", len(docs)))
	return docs, nil
}

func loadJSONL(path string, logger *slog.Logger) ([]chunk.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var docs []chunk.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec docRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			logger.Warn("document_record_skipped",
				slog.String("file", path),
				slog.Int("line", line),
				slog.String("error", err.Error()))
			continue
		}
		doc, ok := toDocument(rec, path, logger)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return docs, nil
}

func loadJSON(path string, logger *slog.Logger) ([]chunk.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	trimmed := strings.TrimSpace(string(data))
	var recs []docRecord
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &recs); err != nil {
			logger.Warn("document_file_skipped",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return nil, nil
		}
	} else {
		var rec docRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			logger.Warn("document_file_skipped",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return nil, nil
		}
		recs = append(recs, rec)
	}

	var docs []chunk.Document
	for _, rec := range recs {
		doc, ok := toDocument(rec, path, logger)
		if !ok {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// toDocument validates the required fields. Records without an id or
// text cannot be indexed and are dropped.
func toDocument(rec docRecord, path string, logger *slog.Logger) (chunk.Document, bool) {
	if rec.DocumentID == "" || rec.Text == "" {
		logger.Warn("document_record_skipped",
			slog.String("file", path),
			slog.String("document_id", rec.DocumentID),
			slog.String("reason", "missing document_id or text"))
		return chunk.Document{}, false
	}

	source := chunk.Source(rec.Source)
	if source == "" {
		source = chunk.SourceTrial
	}

	return chunk.Document{
		ID:            rec.DocumentID,
		Text:          rec.Text,
		Source:        source,
		SectionPath:   rec.SectionPath,
		Pages:         rec.Pages,
		AdverseEvents: rec.AdverseEvents,
	}, true
}
