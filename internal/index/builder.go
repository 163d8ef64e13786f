package index

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// Builder scans providers into a Snapshot. A Builder has no state of its
// own and may run several builds concurrently.
type Builder struct {
	retry  boterrors.RetryConfig
	logger *slog.Logger
	now    func() time.Time
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRetry sets the per-source fetch retry policy.
func WithRetry(cfg boterrors.RetryConfig) BuilderOption {
	return func(b *Builder) {
		b.retry = cfg
	}
}

// WithLogger sets the logger for skipped sources.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithClock sets the clock used to stamp BuiltAt.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// NewBuilder creates a Builder. By default retryable fetch errors are
// retried with jittered exponential backoff.
func NewBuilder(opts ...BuilderOption) *Builder {
	retry := boterrors.DefaultRetryConfig()
	retry.Jitter = true
	retry.RetryIf = boterrors.IsRetryable

	b := &Builder{
		retry:  retry,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build scans every source of every provider and returns the merged
// snapshot. A source that cannot be listed or fetched is logged and
// skipped. Build fails only when something failed and nothing succeeded,
// or when ctx ends before the scan completes; in both cases no snapshot
// is returned.
func (b *Builder) Build(ctx context.Context, providers ...Provider) (*Snapshot, error) {
	acc := newAccumulator()
	var scanned, failed int
	var lastErr error

	skip := func(err error, attrs ...any) {
		failed++
		lastErr = err
		b.logger.Warn("source skipped", append(attrs, boterrors.LogAttrs(err)...)...)
	}

	for _, p := range providers {
		sources, err := p.Sources(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx.Err())
			}
			skip(err, "provider", p.Name())
			continue
		}

		var limiter *rate.Limiter
		if d := p.Throttle(); d > 0 {
			limiter = rate.NewLimiter(rate.Every(d), 1)
		}

		for _, src := range sources {
			if p.Excluded(src.Name()) {
				b.logger.Debug("source excluded", "provider", p.Name(), "source", src.Name())
				continue
			}
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return nil, cancelled(err)
				}
			}

			table, err := boterrors.RetryWithResult(ctx, b.retry, func() (*Table, error) {
				return src.Fetch(ctx)
			})
			if err == nil {
				err = acc.add(table)
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil, cancelled(ctx.Err())
				}
				skip(err, "provider", p.Name(), "source", src.Name())
				continue
			}
			scanned++
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}
	if failed > 0 && scanned == 0 {
		return nil, boterrors.RefreshError(fmt.Sprintf("all %d sources failed", failed), lastErr)
	}

	snap := newSnapshot(acc.entries, acc.keys, b.now(), scanned, failed)
	b.logger.Debug("index built",
		"keys", snap.Len(),
		"sources", scanned,
		"skipped", failed,
		"version", snap.Version())
	return snap, nil
}

func cancelled(err error) error {
	return boterrors.RefreshError("build cancelled", err)
}

// accumulator merges (location, cell) pairs. Locations per key are kept
// as an ordered set.
type accumulator struct {
	entries map[string][]string
	keys    []string
}

func newAccumulator() *accumulator {
	return &accumulator{entries: make(map[string][]string)}
}

func (a *accumulator) add(t *Table) error {
	if t == nil {
		return boterrors.New(boterrors.ErrCodeSourceDecode, "source returned no table", nil)
	}
	location := strings.TrimSpace(t.Location)
	if location == "" {
		return boterrors.New(boterrors.ErrCodeSourceDecode, "table has no location name", nil)
	}

	rows := t.Rows
	if t.Header && len(rows) > 0 {
		rows = rows[1:]
	}
	for _, row := range rows {
		for _, cell := range row {
			a.insert(cell, location, t.MaxKeyLen)
		}
	}
	return nil
}

func (a *accumulator) insert(cell, location string, maxLen int) {
	key := NormalizeKey(cell)
	if key == "" {
		return
	}
	if maxLen > 0 && utf8.RuneCountInString(key) > maxLen {
		return
	}

	locs, ok := a.entries[key]
	if !ok {
		a.keys = append(a.keys, key)
	}
	if slices.Contains(locs, location) {
		return
	}
	a.entries[key] = append(locs, location)
}
