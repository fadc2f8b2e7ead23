// Package telemetry collects local query metrics: intent mix, latency
// distribution, frequent terms, and zero-result queries. Everything is
// stored locally; nothing is reported anywhere.
package telemetry

import (
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medlit/medsearch/internal/structured"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent represents a single search query.
type QueryEvent struct {
	Query       string
	Intent      structured.Intent
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int
	size     int
	capacity int
}

// NewCircularBuffer creates a circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// ExtractTerms extracts countable terms from a query: lowercased,
// minimum length 3.
func ExtractTerms(query string) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	var terms []string
	for _, w := range strings.Fields(query) {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable snapshot of collected metrics.
type Snapshot struct {
	IntentCounts        map[structured.Intent]int64 `json:"intent_counts"`
	TopTerms            []TermCount                 `json:"top_terms"`
	ZeroResultQueries   []string                    `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64     `json:"latency_distribution"`
	TotalQueries        int64                       `json:"total_queries"`
	ZeroResultCount     int64                       `json:"zero_result_count"`
	Since               time.Time                   `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *Snapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// Config configures the metrics collector.
type Config struct {
	// TopTermsCapacity bounds the in-memory term counter (default 100).
	TopTermsCapacity int

	// ZeroResultsCapacity bounds the zero-result buffer (default 100).
	ZeroResultsCapacity int
}

// Collector aggregates query events in memory and flushes them to a
// Store. Safe for concurrent use. A nil store keeps metrics in memory
// only.
type Collector struct {
	mu sync.Mutex

	intents         map[structured.Intent]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	startTime       time.Time

	store  Store
	closed bool
}

// NewCollector creates a metrics collector.
func NewCollector(store Store, cfg Config) *Collector {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)

	return &Collector{
		intents:     make(map[structured.Intent]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:   make(map[LatencyBucket]int64),
		startTime:   time.Now(),
		store:       store,
	}
}

// Record captures one query event.
func (c *Collector) Record(event QueryEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.totalQueries++
	c.intents[event.Intent]++
	c.latencies[LatencyToBucket(event.Latency)]++

	for _, term := range ExtractTerms(event.Query) {
		count, _ := c.topTerms.Get(term)
		c.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		c.zeroResultCount++
		c.zeroResults.Add(event.Query)
	}
}

// Snapshot returns the current in-memory aggregates.
func (c *Collector) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	intents := make(map[structured.Intent]int64, len(c.intents))
	for k, v := range c.intents {
		intents[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(c.latencies))
	for k, v := range c.latencies {
		latencies[k] = v
	}

	var terms []TermCount
	for _, key := range c.topTerms.Keys() {
		if count, ok := c.topTerms.Get(key); ok {
			terms = append(terms, TermCount{Term: key, Count: count})
		}
	}

	return &Snapshot{
		IntentCounts:        intents,
		TopTerms:            terms,
		ZeroResultQueries:   c.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        c.totalQueries,
		ZeroResultCount:     c.zeroResultCount,
		Since:               c.startTime,
	}
}

// Flush persists the in-memory aggregates and resets the counters.
// A nil store makes Flush a no-op.
func (c *Collector) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil || c.closed {
		return nil
	}

	date := time.Now().Format("2006-01-02")

	if err := c.store.SaveIntentCounts(date, c.intents); err != nil {
		return fmt.Errorf("flush intent counts: %w", err)
	}
	if err := c.store.SaveLatencyCounts(date, c.latencies); err != nil {
		return fmt.Errorf("flush latency counts: %w", err)
	}

	terms := make(map[string]int64)
	for _, key := range c.topTerms.Keys() {
		if count, ok := c.topTerms.Get(key); ok {
			terms[key] = count
		}
	}
	if err := c.store.UpsertTermCounts(terms); err != nil {
		return fmt.Errorf("flush term counts: %w", err)
	}

	now := time.Now()
	for _, q := range c.zeroResults.Items() {
		if err := c.store.AddZeroResultQuery(q, now); err != nil {
			return fmt.Errorf("flush zero-result query: %w", err)
		}
	}

	c.intents = make(map[structured.Intent]int64)
	c.latencies = make(map[LatencyBucket]int64)
	c.topTerms.Purge()
	c.zeroResults = NewCircularBuffer[string](c.zeroResults.capacity)

	return nil
}

// Close flushes and stops the collector.
func (c *Collector) Close() error {
	if err := c.Flush(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
