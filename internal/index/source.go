package index

import (
	"context"
	"slices"
	"time"
)

// Table is the raw content of one source: the location it describes and
// its rows of cell text.
type Table struct {
	// Location is the name every key in the table is found at, such as a
	// worksheet title or a villager directory name.
	Location string

	Rows [][]string

	// Header marks the first row as column titles to skip.
	Header bool

	// MaxKeyLen drops keys longer than this many runes. Zero disables it.
	MaxKeyLen int
}

// RawSource is a named table fetched on demand.
type RawSource interface {
	Name() string
	Fetch(ctx context.Context) (*Table, error)
}

// Provider lists the sources of one collaborator, such as a workbook or a
// directory tree.
type Provider interface {
	Name() string
	Sources(ctx context.Context) ([]RawSource, error)

	// Throttle is the minimum spacing between fetches of this provider's
	// sources. Zero disables throttling.
	Throttle() time.Duration

	// Excluded reports whether the named source must not be scanned.
	Excluded(source string) bool
}

// StaticSource is a RawSource over an in-memory table.
type StaticSource struct {
	Table *Table
	Err   error
}

// Name returns the table location.
func (s StaticSource) Name() string { return s.Table.Location }

// Fetch returns the table, or Err when set.
func (s StaticSource) Fetch(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Table, nil
}

// StaticProvider serves fixed sources.
type StaticProvider struct {
	ProviderName string
	Items        []RawSource
	Exclude      []string
	Delay        time.Duration
}

// NewStaticProvider creates a provider with one StaticSource per table.
func NewStaticProvider(name string, tables ...*Table) *StaticProvider {
	p := &StaticProvider{ProviderName: name}
	for _, t := range tables {
		p.Items = append(p.Items, StaticSource{Table: t})
	}
	return p
}

// Name returns the provider name.
func (p *StaticProvider) Name() string { return p.ProviderName }

// Sources returns the configured sources.
func (p *StaticProvider) Sources(ctx context.Context) ([]RawSource, error) {
	return p.Items, ctx.Err()
}

// Throttle returns Delay.
func (p *StaticProvider) Throttle() time.Duration { return p.Delay }

// Excluded reports whether source is listed in Exclude.
func (p *StaticProvider) Excluded(source string) bool {
	return slices.Contains(p.Exclude, source)
}
