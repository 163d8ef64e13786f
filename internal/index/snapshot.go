package index

import (
	"slices"
	"sync/atomic"
	"time"
)

var versions atomic.Uint64

// Snapshot is one complete, immutable version of the lookup table.
type Snapshot struct {
	entries     map[string][]string
	keys        []string
	builtAt     time.Time
	sourceCount int
	skipped     int
	version     uint64
}

func newSnapshot(entries map[string][]string, keys []string, builtAt time.Time, sourceCount, skipped int) *Snapshot {
	return &Snapshot{
		entries:     entries,
		keys:        keys,
		builtAt:     builtAt,
		sourceCount: sourceCount,
		skipped:     skipped,
		version:     versions.Add(1),
	}
}

// Len returns the number of distinct keys.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns every key in first-seen order. The slice is shared and
// must not be modified.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	return s.keys
}

// Locations returns the locations for a normalized key in first-seen order.
func (s *Snapshot) Locations(key string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	locs, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(locs), true
}

// Lookup normalizes query and returns its locations.
func (s *Snapshot) Lookup(query string) ([]string, bool) {
	return s.Locations(NormalizeKey(query))
}

// BuiltAt returns when the build that produced s finished.
func (s *Snapshot) BuiltAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.builtAt
}

// SourceCount returns the number of sources scanned successfully.
func (s *Snapshot) SourceCount() int {
	if s == nil {
		return 0
	}
	return s.sourceCount
}

// Skipped returns the number of sources or listings that failed and were skipped.
func (s *Snapshot) Skipped() int {
	if s == nil {
		return 0
	}
	return s.skipped
}

// Version identifies s among all snapshots built by this process.
func (s *Snapshot) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}
