// Package structured translates free-text queries into pattern-based
// lookups over relational trial tables and wraps matching rows as
// synthetic retrieval results.
package structured

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// RawConfidence is the raw score attached to every structured hit.
// Structured rows carry no continuous relevance score.
const RawConfidence = 1.0

// Result is a synthetic retrieval result built from a matched row.
type Result struct {
	ChunkID  string // "{study_id}#sql"
	StudyID  string
	RawScore float64
	Metadata map[string]any
}

// Adapter performs structured lookups against a SQLite trial database
// with studies, adverse_events, and outcomes tables.
type Adapter struct {
	db *sql.DB
}

// Open opens the trial database read-only.
func Open(path string) (*Adapter, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open trial database: %w", err)
	}

	// Single connection, lookups are short-lived and read-only
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	return &Adapter{db: db}, nil
}

// NewWithDB wraps an existing database handle. Used by tests.
func NewWithDB(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

// Available reports whether the trial database is reachable.
func (a *Adapter) Available(ctx context.Context) bool {
	return a.db.PingContext(ctx) == nil
}

// Search classifies the query and runs the matching table lookup,
// returning at most k rows. Any connectivity or query error degrades
// to an empty result list; the structured signal is optional and its
// absence must never abort the overall search.
func (a *Adapter) Search(ctx context.Context, query string, k int) []*Result {
	intent := DetectIntent(query)
	if intent == IntentNone {
		return []*Result{}
	}

	var (
		results []*Result
		err     error
	)
	switch intent {
	case IntentSafety:
		results, err = a.searchAdverseEvents(ctx, query, k)
	case IntentOutcomes:
		results, err = a.searchOutcomes(ctx, query, k)
	case IntentInterventions:
		results, err = a.searchStudies(ctx, query, k)
	}

	if err != nil {
		slog.Warn("structured_search_degraded",
			slog.String("intent", string(intent)),
			slog.String("error", err.Error()))
		return []*Result{}
	}
	return results
}

// searchAdverseEvents matches the study title or event name, highest
// event rates first with unknown rates last.
func (a *Adapter) searchAdverseEvents(ctx context.Context, query string, k int) ([]*Result, error) {
	const q = `
		SELECT DISTINCT s.study_id, s.title, ae.event_name, ae.arm_id, ae.patients, ae.events, ae.percentage
		FROM studies s
		LEFT JOIN adverse_events ae ON s.study_id = ae.study_id
		WHERE s.title LIKE ? COLLATE NOCASE
		OR ae.event_name LIKE ? COLLATE NOCASE
		ORDER BY ae.percentage DESC NULLS LAST
		LIMIT ?`

	pattern := "%" + query + "%"
	rows, err := a.db.QueryContext(ctx, q, pattern, pattern, k)
	if err != nil {
		return nil, fmt.Errorf("adverse event lookup: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Result
	for rows.Next() {
		var (
			studyID, title       string
			eventName, armID     sql.NullString
			patients, eventCount sql.NullInt64
			percentage           sql.NullFloat64
		)
		if err := rows.Scan(&studyID, &title, &eventName, &armID, &patients, &eventCount, &percentage); err != nil {
			return nil, fmt.Errorf("adverse event scan: %w", err)
		}

		metadata := map[string]any{"title": title}
		if eventName.Valid {
			metadata["event"] = eventName.String
		}
		if armID.Valid {
			metadata["arm"] = armID.String
		}
		if patients.Valid {
			metadata["patients"] = patients.Int64
		}
		if eventCount.Valid {
			metadata["events"] = eventCount.Int64
		}
		if percentage.Valid {
			metadata["percentage"] = percentage.Float64
		}

		results = append(results, newResult(studyID, metadata))
	}
	return results, rows.Err()
}

// searchOutcomes matches the study title or outcome name.
func (a *Adapter) searchOutcomes(ctx context.Context, query string, k int) ([]*Result, error) {
	const q = `
		SELECT DISTINCT s.study_id, s.title, o.name, o.est, o.unit, o.timepoint
		FROM studies s
		LEFT JOIN outcomes o ON s.study_id = o.study_id
		WHERE s.title LIKE ? COLLATE NOCASE
		OR o.name LIKE ? COLLATE NOCASE
		ORDER BY o.est DESC NULLS LAST
		LIMIT ?`

	pattern := "%" + query + "%"
	rows, err := a.db.QueryContext(ctx, q, pattern, pattern, k)
	if err != nil {
		return nil, fmt.Errorf("outcome lookup: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Result
	for rows.Next() {
		var (
			studyID, title string
			name, unit     sql.NullString
			timepoint      sql.NullString
			est            sql.NullFloat64
		)
		if err := rows.Scan(&studyID, &title, &name, &est, &unit, &timepoint); err != nil {
			return nil, fmt.Errorf("outcome scan: %w", err)
		}

		metadata := map[string]any{"title": title}
		if name.Valid {
			metadata["outcome"] = name.String
		}
		if est.Valid {
			metadata["value"] = est.Float64
		}
		if unit.Valid {
			metadata["unit"] = unit.String
		}
		if timepoint.Valid {
			metadata["timepoint"] = timepoint.String
		}

		results = append(results, newResult(studyID, metadata))
	}
	return results, rows.Err()
}

// searchStudies matches intervention names against study titles.
func (a *Adapter) searchStudies(ctx context.Context, query string, k int) ([]*Result, error) {
	const q = `
		SELECT DISTINCT study_id, title
		FROM studies
		WHERE title LIKE ? COLLATE NOCASE
		LIMIT ?`

	rows, err := a.db.QueryContext(ctx, q, "%"+query+"%", k)
	if err != nil {
		return nil, fmt.Errorf("study lookup: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Result
	for rows.Next() {
		var studyID, title string
		if err := rows.Scan(&studyID, &title); err != nil {
			return nil, fmt.Errorf("study scan: %w", err)
		}
		results = append(results, newResult(studyID, map[string]any{"title": title}))
	}
	return results, rows.Err()
}

func newResult(studyID string, metadata map[string]any) *Result {
	return &Result{
		ChunkID:  studyID + "#sql",
		StudyID:  studyID,
		RawScore: RawConfidence,
		Metadata: metadata,
	}
}

// Close releases the database handle.
func (a *Adapter) Close() error {
	return a.db.Close()
}
