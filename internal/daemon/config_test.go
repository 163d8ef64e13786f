package daemon

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/treasurebot/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "bot.sock", filepath.Base(cfg.SocketPath))
	assert.Equal(t, "bot.lock", filepath.Base(cfg.LockPath))
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestFromConfig(t *testing.T) {
	c := config.NewConfig()
	c.Control.SocketPath = "/run/tb.sock"
	c.Control.LockPath = "/run/tb.lock"
	c.Control.Timeout = "2m"

	cfg := FromConfig(c)

	assert.Equal(t, Config{SocketPath: "/run/tb.sock", LockPath: "/run/tb.lock", Timeout: 2 * time.Minute}, cfg)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty socket", func(c *Config) { c.SocketPath = "" }, "socket path"},
		{"empty lock", func(c *Config) { c.LockPath = "" }, "lock path"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestConfig_EnsureDir(t *testing.T) {
	root := t.TempDir()
	cfg := Config{
		SocketPath: filepath.Join(root, "run", "bot.sock"),
		LockPath:   filepath.Join(root, "lock", "bot.lock"),
		Timeout:    time.Second,
	}

	require.NoError(t, cfg.EnsureDir())

	assert.DirExists(t, filepath.Join(root, "run"))
	assert.DirExists(t, filepath.Join(root, "lock"))
}
