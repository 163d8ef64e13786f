package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher follows a directory tree with fsnotify and emits debounced
// batches of events.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	logger    *slog.Logger
	events    chan []FileEvent
	stopCh    chan struct{}

	mu       sync.Mutex
	rootPath string
	stopped  bool
}

// New creates a Watcher. Call Start to begin watching.
func New(opts Options, logger *slog.Logger) (*Watcher, error) {
	opts = opts.WithDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		fsWatcher: fsw,
		debouncer: NewDebouncer(opts.DebounceWindow, logger),
		logger:    logger,
		events:    make(chan []FileEvent, opts.EventBufferSize),
		stopCh:    make(chan struct{}),
	}, nil
}

// Start watches root recursively and blocks until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}
	w.mu.Lock()
	w.rootPath = absPath
	w.mu.Unlock()

	if err := w.addRecursive(absPath); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}
	w.logger.Debug("watching", "root", absPath)

	go w.forward(ctx)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// handle converts one fsnotify event.
func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.Root(), event.Name)
	if err != nil || rel == "." {
		return
	}

	isDir := false
	if info, err := os.Stat(event.Name); err == nil {
		isDir = info.IsDir()
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
		if isDir {
			// Files written before the watch is in place are reported by
			// the directory create itself.
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", "path", event.Name, "error", err)
			}
		}
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&fsnotify.Remove != 0:
		op = OpDelete
	case event.Op&fsnotify.Rename != 0:
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(FileEvent{
		Path:      rel,
		Operation: op,
		IsDir:     isDir,
		Timestamp: time.Now(),
	})
}

// forward moves debounced batches to the output channel.
func (w *Watcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emit(batch)
		}
	}
}

func (w *Watcher) emit(batch []FileEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	select {
	case w.events <- batch:
	default:
		w.logger.Warn("event buffer full, dropping batch", slog.Int("batch_size", len(batch)))
	}
}

// addRecursive adds root and every directory below it.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsWatcher.Add(path)
	})
}

// Stop stops the watcher and closes Events. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	err := w.fsWatcher.Close()
	close(w.events)
	return err
}

// Events returns the channel of batched file events.
func (w *Watcher) Events() <-chan []FileEvent {
	return w.events
}

// Root returns the absolute watched root.
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rootPath
}
