package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// InstanceLock keeps a second bot from running with the same data
// directory. The lock file records the holder's PID for diagnostics.
type InstanceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewInstanceLock creates a lock at path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path, flock: flock.New(path)}
}

// Acquire takes the lock without blocking. If another process holds it
// the error has code ERR_504_ALREADY_RUNNING.
func (l *InstanceLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		be := boterrors.New(boterrors.ErrCodeAlreadyRunning, "another treasurebot is already running", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop it first, or use 'treasurebot status' to talk to it")
		if pid, err := l.PID(); err == nil {
			be = be.WithDetail("pid", strconv.Itoa(pid))
		}
		return be
	}
	l.locked = true

	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		_ = l.Release()
		return fmt.Errorf("failed to record PID: %w", err)
	}
	return nil
}

// PID returns the PID recorded by the current or last holder.
func (l *InstanceLock) PID() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in lock file: %w", err)
	}
	return pid, nil
}

// Release unlocks and removes the lock file. Safe to call more than once.
func (l *InstanceLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	_ = os.Remove(l.path)
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string { return l.path }

// IsLocked reports whether this process holds the lock.
func (l *InstanceLock) IsLocked() bool { return l.locked }
