package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.treasurebot/logs, or a temp-dir fallback when
// the home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".treasurebot", "logs")
	}
	return filepath.Join(home, ".treasurebot", "logs")
}

// DefaultLogPath returns the default bot log file.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "bot.log")
}

// FindLogFile resolves the log file to view: the explicit path when given,
// otherwise the default location.
func FindLogFile(explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = DefaultLogPath()
	}

	if _, err := os.Stat(path); err != nil {
		if explicit != "" {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return "", fmt.Errorf("no log file found at %s; start the bot with `treasurebot serve` first", path)
	}
	return path, nil
}
