// Package daemon is the local control channel of a running bot: a
// JSON-RPC server on a Unix socket, its client, and the lock that keeps
// a second bot from starting against the same data directory.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/treasurebot/internal/config"
)

// Config holds configuration for the control socket.
type Config struct {
	// SocketPath is the Unix domain socket path for IPC.
	// Default: ~/.treasurebot/bot.sock
	SocketPath string

	// LockPath is the single-instance lock file. It also records the PID.
	// Default: ~/.treasurebot/bot.lock
	LockPath string

	// Timeout bounds one client request. A refresh can take a while on a
	// large workbook, so this is generous.
	// Default: 30s
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	dir := config.DataDir()
	return Config{
		SocketPath: filepath.Join(dir, "bot.sock"),
		LockPath:   filepath.Join(dir, "bot.lock"),
		Timeout:    30 * time.Second,
	}
}

// FromConfig builds a Config from the loaded bot configuration.
func FromConfig(cfg *config.Config) Config {
	d := DefaultConfig()
	if cfg.Control.SocketPath != "" {
		d.SocketPath = cfg.Control.SocketPath
	}
	if cfg.Control.LockPath != "" {
		d.LockPath = cfg.Control.LockPath
	}
	if t := cfg.ControlTimeout(); t > 0 {
		d.Timeout = t
	}
	return d
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket path cannot be empty")
	}
	if c.LockPath == "" {
		return fmt.Errorf("lock path cannot be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// EnsureDir creates the directories for the socket and lock files.
func (c Config) EnsureDir() error {
	socketDir := filepath.Dir(c.SocketPath)
	if err := os.MkdirAll(socketDir, 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	lockDir := filepath.Dir(c.LockPath)
	if lockDir != socketDir {
		if err := os.MkdirAll(lockDir, 0o755); err != nil {
			return fmt.Errorf("failed to create lock directory: %w", err)
		}
	}
	return nil
}
