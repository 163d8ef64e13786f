// Package refresh owns the lifecycle of an index: the initial load, the
// periodic reload and manual reloads.
package refresh

import "time"

// State is the lifecycle state of a Scheduler.
type State string

const (
	// StateUninitialized means no build has been started.
	StateUninitialized State = "uninitialized"
	// StateLoading means a build is running, or the initial build failed
	// and there is still no data to serve.
	StateLoading State = "loading"
	// StateReady means a snapshot is installed and can be queried.
	StateReady State = "ready"
)

// Status is a point-in-time copy of a scheduler's state.
type Status struct {
	Name        string    `json:"name"`
	State       State     `json:"state"`
	Items       int       `json:"items"`
	HasData     bool      `json:"has_data"`
	Sources     int       `json:"sources"`
	Skipped     int       `json:"skipped"`
	BuiltAt     time.Time `json:"built_at,omitzero"`
	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Refreshes   int       `json:"refreshes"`
	Failures    int       `json:"failures"`
	InProgress  bool      `json:"in_progress"`
	Interval    string    `json:"interval"`
}

// Ready reports whether the scheduler is idle with a snapshot installed.
// A reload moves State back to loading; use HasData to ask whether the
// index can still answer queries.
func (s Status) Ready() bool {
	return s.State == StateReady
}
