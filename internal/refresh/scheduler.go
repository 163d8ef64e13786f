package refresh

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
)

// Config configures a Scheduler.
type Config struct {
	// Interval between periodic builds. Zero disables the periodic reload.
	Interval time.Duration

	// Timeout bounds a single build. Zero means no limit.
	Timeout time.Duration

	Logger *slog.Logger
}

// Scheduler builds snapshots for one Index and installs them. At most one
// build runs at a time; a trigger that arrives during a build waits for
// that build instead of starting another.
type Scheduler struct {
	idx       *index.Index
	builder   *index.Builder
	providers []index.Provider
	cfg       Config
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	flight singleflight.Group

	mu          sync.Mutex
	started     bool
	state       State
	inProgress  bool
	lastAttempt time.Time
	lastErr     error
	refreshes   int
	failures    int
}

// New creates a scheduler that builds idx from providers.
func New(idx *index.Index, builder *index.Builder, providers []index.Provider, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		idx:       idx,
		builder:   builder,
		providers: providers,
		cfg:       cfg,
		logger:    logger.With("index", idx.Name()),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateUninitialized,
	}
}

// Index returns the index this scheduler installs into.
func (s *Scheduler) Index() *index.Index {
	return s.idx
}

// Start triggers the initial build and the periodic reload in a background
// goroutine and returns immediately. Cancelling ctx has the same effect as
// Stop. Calling Start more than once has no effect.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	if s.state == StateUninitialized {
		s.state = StateLoading
	}
	s.mu.Unlock()

	unlink := context.AfterFunc(ctx, s.cancel)
	go s.loop(unlink)
}

func (s *Scheduler) loop(unlink func() bool) {
	defer close(s.done)
	defer unlink()

	_, _ = s.Refresh(s.ctx)

	if s.cfg.Interval <= 0 {
		<-s.ctx.Done()
		return
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Refresh(s.ctx)
		}
	}
}

// Refresh builds and installs a new snapshot and returns it. If a build is
// already running the call waits for that build's outcome. ctx only bounds
// the wait; the build itself runs under the scheduler's lifetime.
//
// On failure the previous snapshot stays installed.
func (s *Scheduler) Refresh(ctx context.Context) (*index.Snapshot, error) {
	ch := s.flight.DoChan("build", func() (any, error) {
		return s.build()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("joined running refresh")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*index.Snapshot), nil
	}
}

func (s *Scheduler) build() (*index.Snapshot, error) {
	ctx := s.ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)
	start := time.Now()

	s.mu.Lock()
	s.state = StateLoading
	s.inProgress = true
	s.lastAttempt = start
	s.mu.Unlock()

	logger.Debug("refresh started")
	snap, err := s.builder.Build(ctx, s.providers...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inProgress = false

	if err != nil {
		s.failures++
		s.lastErr = err
		if s.idx.Ready() {
			s.state = StateReady
		} else {
			s.state = StateLoading
		}

		if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
			logger.Debug("refresh abandoned on shutdown")
		} else {
			logger.Warn("refresh failed, keeping previous data",
				append([]any{"items", s.idx.Current().Len()}, boterrors.LogAttrs(err)...)...)
		}
		return nil, err
	}

	s.idx.Install(snap)
	s.refreshes++
	s.lastErr = nil
	s.state = StateReady

	logger.Info("index refreshed",
		"items", snap.Len(),
		"sources", snap.SourceCount(),
		"skipped", snap.Skipped(),
		"duration", time.Since(start).Round(time.Millisecond).String())
	return snap, nil
}

// Stop cancels any running build, stops the periodic reload and waits for
// the background goroutine to exit. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.cancel()
	s.Wait()
}

// Wait blocks until the background goroutine exits. It returns at once if
// Start was never called.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// Status returns a copy of the current state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.idx.Current()
	st := Status{
		Name:        s.idx.Name(),
		State:       s.state,
		Items:       snap.Len(),
		HasData:     s.idx.Ready(),
		Sources:     snap.SourceCount(),
		Skipped:     snap.Skipped(),
		BuiltAt:     snap.BuiltAt(),
		LastAttempt: s.lastAttempt,
		Refreshes:   s.refreshes,
		Failures:    s.failures,
		InProgress:  s.inProgress,
		Interval:    s.cfg.Interval.String(),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}
