package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolate points every config, log and socket path at temp directories
// and clears the environment overrides. It returns the working directory.
func isolate(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, key := range []string{
		"TWITCH_TOKEN", "TWITCH_CHANNEL", "TWITCH_NICK", "DISCORD_TOKEN",
		"WORKBOOK_NAME", "WORKBOOK_ID", "GOOGLE_CREDENTIALS_FILE", "VILLAGERS_ROOT",
		"TREASUREBOT_CSV_DIR", "TREASUREBOT_REFRESH_INTERVAL", "TREASUREBOT_COOLDOWN",
		"TREASUREBOT_HTTP_ADDR", "TREASUREBOT_LOG_LEVEL", "TREASUREBOT_LOG_FILE",
		"TREASUREBOT_OWNERS", "TREASUREBOT_MIN_SCORE",
	} {
		t.Setenv(key, "")
	}

	// t.TempDir can exceed the Unix socket path limit on some systems.
	socket := filepath.Join("/tmp", fmt.Sprintf("treasurebot-cmd-%d.sock", time.Now().UnixNano()))
	t.Cleanup(func() { _ = os.Remove(socket) })
	t.Setenv("TREASUREBOT_SOCKET", socket)

	work := t.TempDir()
	t.Chdir(work)
	return work
}

// withIslands writes the two-island CSV workbook and selects it.
func withIslands(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Harv's Island.csv"),
		[]byte("Furniture,Tools\nLucky Cat,Wand\nRoyal Crown,\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Dom's Island.csv"),
		[]byte("Items\nlucky cat\n"), 0o644))
	t.Setenv("TREASUREBOT_CSV_DIR", dir)
	return dir
}

// execute runs the root command with args and returns everything written
// to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
