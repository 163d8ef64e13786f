package index

import "sync/atomic"

// Index publishes the current Snapshot of one location collection.
// Any number of goroutines may call Current while another installs.
type Index struct {
	name    string
	current atomic.Pointer[Snapshot]
}

// New creates an empty index. Current returns nil until the first Install.
func New(name string) *Index {
	return &Index{name: name}
}

// Name returns the index name, e.g. "items" or "villagers".
func (i *Index) Name() string { return i.name }

// Current returns the installed snapshot, or nil before the first build.
// Callers should hold the returned pointer for the duration of one query.
func (i *Index) Current() *Snapshot {
	return i.current.Load()
}

// Ready reports whether a snapshot has been installed.
func (i *Index) Ready() bool {
	return i.current.Load() != nil
}

// Install replaces the current snapshot and returns the previous one.
// A nil snapshot is ignored; an index never goes back to empty.
func (i *Index) Install(s *Snapshot) *Snapshot {
	if s == nil {
		return i.current.Load()
	}
	return i.current.Swap(s)
}
