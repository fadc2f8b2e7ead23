package telemetry

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlit/medsearch/internal/structured"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_IntentCountsRoundtrip(t *testing.T) {
	store := openTestStore(t)

	counts := map[structured.Intent]int64{
		structured.IntentSafety:   3,
		structured.IntentOutcomes: 1,
	}
	require.NoError(t, store.SaveIntentCounts("2026-09-01", counts))

	// Same-day upsert accumulates.
	require.NoError(t, store.SaveIntentCounts("2026-09-01", map[structured.Intent]int64{
		structured.IntentSafety: 2,
	}))

	got, err := store.GetIntentCounts("2026-09-01", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got[structured.IntentSafety])
	assert.Equal(t, int64(1), got[structured.IntentOutcomes])
}

func TestSQLiteStore_IntentCountsDateRange(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveIntentCounts("2026-08-30", map[structured.Intent]int64{
		structured.IntentSafety: 1,
	}))
	require.NoError(t, store.SaveIntentCounts("2026-09-01", map[structured.Intent]int64{
		structured.IntentSafety: 4,
	}))

	got, err := store.GetIntentCounts("2026-09-01", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, int64(4), got[structured.IntentSafety])

	got, err = store.GetIntentCounts("2026-08-01", "2026-09-30")
	require.NoError(t, err)
	assert.Equal(t, int64(5), got[structured.IntentSafety])
}

func TestSQLiteStore_TermCounts(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{
		"pneumothorax": 3,
		"valve":        1,
	}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{
		"valve": 5,
	}))

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, TermCount{Term: "valve", Count: 6}, terms[0])
	assert.Equal(t, TermCount{Term: "pneumothorax", Count: 3}, terms[1])
}

func TestSQLiteStore_TermCountsEmptyNoop(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.UpsertTermCounts(nil))
}

func TestSQLiteStore_ZeroResultQueriesNewestFirst(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	require.NoError(t, store.AddZeroResultQuery("first", now))
	require.NoError(t, store.AddZeroResultQuery("second", now))

	got, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, got)
}

func TestSQLiteStore_ZeroResultQueriesTrimmed(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	for i := 0; i < zeroResultRetention+10; i++ {
		require.NoError(t, store.AddZeroResultQuery(fmt.Sprintf("query %d", i), now))
	}

	got, err := store.GetZeroResultQueries(zeroResultRetention * 2)
	require.NoError(t, err)
	assert.Len(t, got, zeroResultRetention)
	assert.Equal(t, fmt.Sprintf("query %d", zeroResultRetention+9), got[0])
}

func TestSQLiteStore_LatencyCountsRoundtrip(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-09-01", map[LatencyBucket]int64{
		BucketP50:   7,
		BucketP1000: 1,
	}))

	got, err := store.GetLatencyCounts("2026-09-01", "2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got[BucketP50])
	assert.Equal(t, int64(1), got[BucketP1000])
}

func TestCollector_FlushPersistsAndResets(t *testing.T) {
	store := openTestStore(t)
	c := NewCollector(store, Config{})

	c.Record(QueryEvent{
		Query:       "pneumothorax rate",
		Intent:      structured.IntentSafety,
		ResultCount: 0,
		Latency:     30 * time.Millisecond,
	})
	require.NoError(t, c.Flush())

	// In-memory aggregates reset after flush.
	snap := c.Snapshot()
	assert.Empty(t, snap.IntentCounts)
	assert.Empty(t, snap.TopTerms)
	assert.Empty(t, snap.ZeroResultQueries)

	today := time.Now().Format("2006-01-02")
	intents, err := store.GetIntentCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), intents[structured.IntentSafety])

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	assert.Len(t, terms, 2)

	zeroes, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"pneumothorax rate"}, zeroes)

	latencies, err := store.GetLatencyCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(1), latencies[BucketP50])
}
