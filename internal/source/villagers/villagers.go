// Package villagers reads villager locations from a directory tree. Every
// directory holding a marker file (villagers.txt by default) is a
// location named after the directory; the file lists villager names
// separated by commas or newlines.
package villagers

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
)

// Defaults for Config.
const (
	DefaultMarkerFile    = "villagers.txt"
	DefaultMaxNameLength = 30
)

// Config configures a Directory.
type Config struct {
	Root       string
	MarkerFile string
	// MaxNameLength drops longer entries, which are almost always
	// sentences or scan garbage rather than names.
	MaxNameLength int
	Throttle      time.Duration
	Logger        *slog.Logger
}

// Directory is an index.Provider over a villager directory tree.
type Directory struct {
	cfg    Config
	logger *slog.Logger
}

var _ index.Provider = (*Directory)(nil)

// New creates a Directory provider.
func New(cfg Config) *Directory {
	if cfg.MarkerFile == "" {
		cfg.MarkerFile = DefaultMarkerFile
	}
	if cfg.MaxNameLength == 0 {
		cfg.MaxNameLength = DefaultMaxNameLength
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Directory{cfg: cfg, logger: logger.With("provider", "villagers")}
}

// Name returns "villagers".
func (d *Directory) Name() string { return "villagers" }

// Root returns the scanned directory.
func (d *Directory) Root() string { return d.cfg.Root }

// MarkerFile returns the marker file name.
func (d *Directory) MarkerFile() string { return d.cfg.MarkerFile }

// Throttle returns the configured delay between file reads.
func (d *Directory) Throttle() time.Duration { return d.cfg.Throttle }

// Excluded always returns false.
func (d *Directory) Excluded(string) bool { return false }

// IsMarker reports whether name is the marker file name, ignoring case.
func (d *Directory) IsMarker(name string) bool {
	return strings.EqualFold(name, d.cfg.MarkerFile)
}

// Sources walks the root for marker files. Unreadable subdirectories are
// logged and skipped; an unreadable root is an error.
func (d *Directory) Sources(ctx context.Context) ([]index.RawSource, error) {
	if _, err := os.Stat(d.cfg.Root); err != nil {
		return nil, boterrors.New(boterrors.ErrCodeSourceNotFound, "villager root not readable: "+d.cfg.Root, err)
	}

	var out []index.RawSource
	err := filepath.WalkDir(d.cfg.Root, func(path string, entry fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == d.cfg.Root {
				return err
			}
			d.logger.Warn("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if entry.IsDir() || !d.IsMarker(entry.Name()) {
			return nil
		}
		dir := filepath.Dir(path)
		out = append(out, &file{
			path:     path,
			location: filepath.Base(dir),
			maxLen:   d.cfg.MaxNameLength,
		})
		return nil
	})
	if err != nil {
		return nil, boterrors.SourceError(d.cfg.Root, err)
	}

	d.logger.Debug("villager directories found", "root", d.cfg.Root, "count", len(out))
	return out, nil
}

type file struct {
	path     string
	location string
	maxLen   int
}

func (f *file) Name() string { return f.location }

func (f *file) Fetch(ctx context.Context) (*index.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.path)
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeSourceNotFound, "cannot read "+f.path, err).
			WithDetail("source", f.location)
	}
	return &index.Table{
		Location:  f.location,
		Rows:      [][]string{ParseNames(Decode(raw))},
		MaxKeyLen: f.maxLen,
	}, nil
}

// Decode converts file content to UTF-8. A byte order mark selects
// UTF-8 or UTF-16; without one the content is read as UTF-8. Bytes that
// cannot be decoded are dropped.
func Decode(raw []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), dec))
	if err != nil {
		out = raw
	}
	s := strings.ToValidUTF8(string(out), "")
	return strings.ReplaceAll(s, "\ufffd", "")
}

// ParseNames splits content on commas and line breaks and trims each name.
// Empty entries are dropped.
func ParseNames(content string) []string {
	parts := strings.FieldsFunc(content, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
