package refresh

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Group runs several schedulers as one unit. The first scheduler is the
// primary: its index decides whether the bot is ready.
type Group struct {
	schedulers []*Scheduler
}

// NewGroup creates a group. Nil schedulers are ignored.
func NewGroup(schedulers ...*Scheduler) *Group {
	g := &Group{}
	for _, s := range schedulers {
		if s != nil {
			g.schedulers = append(g.schedulers, s)
		}
	}
	return g
}

// Schedulers returns the members in order.
func (g *Group) Schedulers() []*Scheduler {
	return g.schedulers
}

// Primary returns the first scheduler, or nil for an empty group.
func (g *Group) Primary() *Scheduler {
	if len(g.schedulers) == 0 {
		return nil
	}
	return g.schedulers[0]
}

// Start starts every scheduler.
func (g *Group) Start(ctx context.Context) {
	for _, s := range g.schedulers {
		s.Start(ctx)
	}
}

// Stop stops every scheduler and waits for them.
func (g *Group) Stop() {
	for _, s := range g.schedulers {
		s.cancel()
	}
	for _, s := range g.schedulers {
		s.Wait()
	}
}

// Refresh refreshes every scheduler concurrently and waits for all of
// them. One failing index does not stop the others; the returned error
// joins every failure.
func (g *Group) Refresh(ctx context.Context) error {
	errs := make([]error, len(g.schedulers))

	var eg errgroup.Group
	for i, s := range g.schedulers {
		eg.Go(func() error {
			_, errs[i] = s.Refresh(ctx)
			return nil
		})
	}
	_ = eg.Wait()

	return errors.Join(errs...)
}

// Status returns the status of every scheduler in order.
func (g *Group) Status() []Status {
	out := make([]Status, 0, len(g.schedulers))
	for _, s := range g.schedulers {
		out = append(out, s.Status())
	}
	return out
}

// Find returns the scheduler whose index has the given name.
func (g *Group) Find(name string) (*Scheduler, bool) {
	for _, s := range g.schedulers {
		if s.idx.Name() == name {
			return s, true
		}
	}
	return nil, false
}
