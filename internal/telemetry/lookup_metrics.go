// Package telemetry keeps in-memory lookup statistics for status output.
// Nothing is persisted or reported anywhere.
package telemetry

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Outcome classifies one lookup.
type Outcome string

const (
	OutcomeExact       Outcome = "exact"
	OutcomeSuggestions Outcome = "suggestions"
	OutcomeNoMatch     Outcome = "no_match"
	OutcomeLoading     Outcome = "loading"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP1   LatencyBucket = "p1"   // <1ms
	BucketP10  LatencyBucket = "p10"  // 1-10ms
	BucketP50  LatencyBucket = "p50"  // 10-50ms
	BucketP100 LatencyBucket = "p100" // 50-100ms
	BucketSlow LatencyBucket = "slow" // >=100ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < time.Millisecond:
		return BucketP1
	case d < 10*time.Millisecond:
		return BucketP10
	case d < 50*time.Millisecond:
		return BucketP50
	case d < 100*time.Millisecond:
		return BucketP100
	default:
		return BucketSlow
	}
}

// Event is one resolved lookup.
type Event struct {
	Query   string
	Outcome Outcome
	Latency time.Duration
}

// IsMiss reports whether the lookup found no exact key.
func (e Event) IsMiss() bool {
	return e.Outcome == OutcomeSuggestions || e.Outcome == OutcomeNoMatch
}

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int // next write position
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in the buffer, oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Clear removes all items from the buffer.
func (b *CircularBuffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}

// NormalizeQuery folds case and inner whitespace so "Lucky  CAT" and
// "lucky cat" count as the same query.
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// QueryCount is a query and how often it was asked.
type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	Total               int64                   `json:"total"`
	Outcomes            map[Outcome]int64       `json:"outcomes"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	// TopMisses are the most asked queries without an exact key, most
	// frequent first.
	TopMisses    []QueryCount `json:"top_misses,omitempty"`
	RecentMisses []string     `json:"recent_misses,omitempty"`
	RepeatCount  int64        `json:"repeat_count"`
	UniqueCount  int64        `json:"unique_count"`
	Since        time.Time    `json:"since"`
}

// HitRate returns the share of answered lookups that found an exact key,
// between 0 and 1. Lookups made while loading are not answered.
func (s *Snapshot) HitRate() float64 {
	answered := s.Total - s.Outcomes[OutcomeLoading]
	if answered <= 0 {
		return 0
	}
	return float64(s.Outcomes[OutcomeExact]) / float64(answered)
}

// RepeatRate returns the share of lookups already asked recently.
func (s *Snapshot) RepeatRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.RepeatCount) / float64(s.Total)
}

// Config sizes the collector.
type Config struct {
	// TopMissesCapacity bounds the distinct missed queries counted.
	TopMissesCapacity int
	// RecentMissesCapacity bounds the recent miss list.
	RecentMissesCapacity int
	// RecentQueriesCapacity bounds repeat detection.
	RecentQueriesCapacity int
	// TopMissesLimit is how many top misses a Snapshot lists.
	TopMissesLimit int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TopMissesCapacity:     200,
		RecentMissesCapacity:  20,
		RecentQueriesCapacity: 500,
		TopMissesLimit:        5,
	}
}

// Metrics collects lookup statistics. It is safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	outcomes     map[Outcome]int64
	latencies    map[LatencyBucket]int64
	total        int64
	misses       *lru.Cache[string, int64]
	recentMisses *CircularBuffer[string]
	recent       *lru.Cache[string, struct{}]
	repeats      int64
	startTime    time.Time
	cfg          Config
}

// New creates a collector with DefaultConfig.
func New() *Metrics {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a collector. Non-positive sizes take the defaults.
func NewWithConfig(cfg Config) *Metrics {
	def := DefaultConfig()
	if cfg.TopMissesCapacity <= 0 {
		cfg.TopMissesCapacity = def.TopMissesCapacity
	}
	if cfg.RecentMissesCapacity <= 0 {
		cfg.RecentMissesCapacity = def.RecentMissesCapacity
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = def.RecentQueriesCapacity
	}
	if cfg.TopMissesLimit <= 0 {
		cfg.TopMissesLimit = def.TopMissesLimit
	}

	// lru.New only fails for a non-positive size.
	misses, _ := lru.New[string, int64](cfg.TopMissesCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	return &Metrics{
		outcomes:     make(map[Outcome]int64),
		latencies:    make(map[LatencyBucket]int64),
		misses:       misses,
		recentMisses: NewCircularBuffer[string](cfg.RecentMissesCapacity),
		recent:       recent,
		startTime:    time.Now(),
		cfg:          cfg,
	}
}

// Record counts one lookup.
func (m *Metrics) Record(e Event) {
	query := NormalizeQuery(e.Query)
	if query == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	m.outcomes[e.Outcome]++
	m.latencies[LatencyToBucket(e.Latency)]++

	if e.IsMiss() {
		count, _ := m.misses.Get(query)
		m.misses.Add(query, count+1)
		m.recentMisses.Add(query)
	}

	h := hashQuery(query)
	if _, seen := m.recent.Get(h); seen {
		m.repeats++
	}
	m.recent.Add(h, struct{}{})
}

func hashQuery(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:16])
}

// Snapshot returns a copy of the current metrics.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcomes := make(map[Outcome]int64, len(m.outcomes))
	for k, v := range m.outcomes {
		outcomes[k] = v
	}
	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	var top []QueryCount
	for _, q := range m.misses.Keys() {
		if count, ok := m.misses.Peek(q); ok {
			top = append(top, QueryCount{Query: q, Count: count})
		}
	}
	slices.SortStableFunc(top, func(a, b QueryCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.Query, b.Query))
	})
	if len(top) > m.cfg.TopMissesLimit {
		top = top[:m.cfg.TopMissesLimit]
	}

	return &Snapshot{
		Total:               m.total,
		Outcomes:            outcomes,
		LatencyDistribution: latencies,
		TopMisses:           top,
		RecentMisses:        m.recentMisses.Items(),
		RepeatCount:         m.repeats,
		UniqueCount:         int64(m.recent.Len()),
		Since:               m.startTime,
	}
}
