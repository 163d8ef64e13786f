// Package resolve turns a user's search text into a structured answer.
package resolve

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/telemetry"
)

// Kind tags a Result.
type Kind int

const (
	// NoMatch means neither an exact key nor a close suggestion was found.
	NoMatch Kind = iota
	// ExactHit means the normalized query is a key.
	ExactHit
	// Suggestions means no exact key, but similar keys exist.
	Suggestions
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case ExactHit:
		return "exact"
	case Suggestions:
		return "suggestions"
	default:
		return "no_match"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name written by MarshalText.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "exact":
		*k = ExactHit
	case "suggestions":
		*k = Suggestions
	case "no_match":
		*k = NoMatch
	default:
		return fmt.Errorf("unknown result kind %q", text)
	}
	return nil
}

// Result is the answer to one query. Which fields are set depends on Kind.
type Result struct {
	Kind  Kind   `json:"kind"`
	Query string `json:"query"`

	// Name is the matched key (ExactHit).
	Name string `json:"name,omitempty"`
	// Locations are deduplicated and uppercased for display (ExactHit).
	Locations []string `json:"locations,omitempty"`
	// Candidates are ranked best first (Suggestions).
	Candidates []index.Suggestion `json:"candidates,omitempty"`
}

// CandidateNames returns the suggested keys in rank order.
func (r Result) CandidateNames() []string {
	names := make([]string, len(r.Candidates))
	for i, c := range r.Candidates {
		names[i] = c.Key
	}
	return names
}

// ErrEmptyQuery is returned for blank search text.
var ErrEmptyQuery = boterrors.New(boterrors.ErrCodeQueryEmpty, "search text is empty", nil).WithSuggestion("Usage: !find <item name>")

// ErrIndexLoading is returned before the primary index has any data.
var ErrIndexLoading = boterrors.New(boterrors.ErrCodeIndexLoading, "database loading", nil)

// Options tunes suggestion ranking.
type Options struct {
	Limit    int
	MinScore int
	// CacheSize bounds the suggestion memo. Zero disables it.
	CacheSize int
	// Metrics, when set, counts every non-blank lookup.
	Metrics *telemetry.Metrics
}

// DefaultOptions returns the limit and threshold the bots have always used.
func DefaultOptions() Options {
	return Options{
		Limit:     index.DefaultSuggestLimit,
		MinScore:  index.DefaultMinScore,
		CacheSize: 512,
	}
}

// Resolver answers queries against a primary index and any number of
// secondary ones, such as villager directories. Only the primary decides
// whether data is available; a secondary index without a snapshot is
// treated as empty. Resolver is safe for concurrent use.
type Resolver struct {
	primary   *index.Index
	secondary []*index.Index
	opts      Options
	memo      *lru.Cache[string, []index.Suggestion]
}

// New creates a Resolver.
func New(opts Options, primary *index.Index, secondary ...*index.Index) *Resolver {
	r := &Resolver{
		primary:   primary,
		secondary: secondary,
		opts:      opts,
	}
	if opts.CacheSize > 0 {
		// lru.New only fails for a non-positive size.
		r.memo, _ = lru.New[string, []index.Suggestion](opts.CacheSize)
	}
	return r
}

// Ready reports whether the primary index has data.
func (r *Resolver) Ready() bool {
	return r.primary.Ready()
}

// Metrics returns the lookup collector, or nil.
func (r *Resolver) Metrics() *telemetry.Metrics {
	return r.opts.Metrics
}

// Resolve looks raw up. Blank input returns ErrEmptyQuery and a primary
// index without data returns ErrIndexLoading; neither is a Result.
func (r *Resolver) Resolve(raw string) (Result, error) {
	start := time.Now()
	res, err := r.resolve(raw)
	if m := r.opts.Metrics; m != nil && !errors.Is(err, ErrEmptyQuery) {
		outcome := telemetry.OutcomeLoading
		if err == nil {
			outcome = telemetry.Outcome(res.Kind.String())
		}
		m.Record(telemetry.Event{Query: raw, Outcome: outcome, Latency: time.Since(start)})
	}
	return res, err
}

func (r *Resolver) resolve(raw string) (Result, error) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return Result{}, ErrEmptyQuery
	}

	primary := r.primary.Current()
	if primary == nil {
		return Result{}, ErrIndexLoading
	}
	snaps := []*index.Snapshot{primary}
	for _, idx := range r.secondary {
		if s := idx.Current(); s != nil {
			snaps = append(snaps, s)
		}
	}

	key := index.NormalizeKey(query)
	if locs := mergeLocations(key, snaps); len(locs) > 0 {
		return Result{Kind: ExactHit, Query: query, Name: key, Locations: locs}, nil
	}

	if cands := r.suggest(key, snaps); len(cands) > 0 {
		return Result{Kind: Suggestions, Query: query, Candidates: cands}, nil
	}
	return Result{Kind: NoMatch, Query: query}, nil
}

// mergeLocations unions the key's locations across snapshots. Locations
// that differ only by case are the same place.
func mergeLocations(key string, snaps []*index.Snapshot) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range snaps {
		locs, ok := s.Locations(key)
		if !ok {
			continue
		}
		for _, loc := range locs {
			display := strings.ToUpper(loc)
			if _, dup := seen[display]; dup {
				continue
			}
			seen[display] = struct{}{}
			out = append(out, display)
		}
	}
	return out
}

func (r *Resolver) suggest(key string, snaps []*index.Snapshot) []index.Suggestion {
	memoKey := versionKey(snaps) + "|" + key
	if r.memo != nil {
		if cached, ok := r.memo.Get(memoKey); ok {
			return cached
		}
	}

	var keys []string
	if len(snaps) == 1 {
		keys = snaps[0].Keys()
	} else {
		for _, s := range snaps {
			keys = append(keys, s.Keys()...)
		}
	}

	cands := index.Suggest(key, keys, r.opts.Limit, r.opts.MinScore)
	if r.memo != nil {
		r.memo.Add(memoKey, cands)
	}
	return cands
}

// versionKey identifies the exact set of snapshots a query ran against,
// so a swap makes older memo entries unreachable.
func versionKey(snaps []*index.Snapshot) string {
	var b strings.Builder
	for i, s := range snaps {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(s.Version(), 10))
	}
	return b.String()
}

// String renders a result for logs.
func (r Result) String() string {
	switch r.Kind {
	case ExactHit:
		return fmt.Sprintf("exact %q -> %s", r.Name, strings.Join(r.Locations, " | "))
	case Suggestions:
		return fmt.Sprintf("suggestions for %q: %s", r.Query, strings.Join(r.CandidateNames(), ", "))
	default:
		return fmt.Sprintf("no match for %q", r.Query)
	}
}
