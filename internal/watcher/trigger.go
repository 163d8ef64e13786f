package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
)

// Refresher rebuilds an index. *refresh.Scheduler implements it.
type Refresher interface {
	Refresh(ctx context.Context) (*index.Snapshot, error)
}

// Filter reports whether an event should cause a refresh.
type Filter func(FileEvent) bool

// MarkerFilter matches events on files named marker, ignoring case, and
// any change to a directory, since a renamed or removed directory takes
// its marker file with it.
func MarkerFilter(marker string) Filter {
	return func(e FileEvent) bool {
		if strings.EqualFold(filepath.Base(e.Path), marker) {
			return true
		}
		switch e.Operation {
		case OpCreate:
			return e.IsDir
		case OpDelete, OpRename:
			return filepath.Ext(e.Path) == ""
		}
		return false
	}
}

// Trigger refreshes r for every batch from w that contains a matching
// event. It returns when ctx is cancelled or w stops. The refresh runs
// synchronously, so batches that arrive meanwhile coalesce into one more
// refresh at most.
func Trigger(ctx context.Context, w *Watcher, r Refresher, match Filter, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-w.Events():
			if !ok {
				return
			}
			changed := relevant(batch, match)
			if len(changed) == 0 {
				continue
			}
			logger.Info("villager files changed, refreshing", "paths", changed)
			if _, err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("watch refresh failed", boterrors.LogAttrs(err)...)
			}
		}
	}
}

func relevant(batch []FileEvent, match Filter) []string {
	var out []string
	for _, e := range batch {
		if match(e) {
			out = append(out, e.Path)
		}
	}
	return out
}
