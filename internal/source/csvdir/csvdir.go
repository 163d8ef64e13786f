// Package csvdir reads a directory of CSV exports as a workbook. Each
// *.csv file is one location named after the file; the first row is a
// header and every other cell is an item name.
package csvdir

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
)

// Config configures a Dir.
type Config struct {
	Path     string
	Exclude  []string
	Throttle time.Duration
	Logger   *slog.Logger
}

// Dir is an index.Provider over CSV files in one directory.
type Dir struct {
	cfg    Config
	logger *slog.Logger
}

var _ index.Provider = (*Dir)(nil)

// New creates a Dir provider.
func New(cfg Config) *Dir {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{cfg: cfg, logger: logger.With("provider", "csv")}
}

func (d *Dir) Name() string             { return "csv" }
func (d *Dir) Throttle() time.Duration { return d.cfg.Throttle }

// Excluded reports whether the sheet is on the exclude list, ignoring case.
func (d *Dir) Excluded(sheet string) bool {
	return slices.ContainsFunc(d.cfg.Exclude, func(e string) bool {
		return strings.EqualFold(strings.TrimSpace(e), sheet)
	})
}

// Sources lists the CSV files in name order. Subdirectories are ignored.
func (d *Dir) Sources(ctx context.Context) ([]index.RawSource, error) {
	entries, err := os.ReadDir(d.cfg.Path)
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeSourceNotFound, "csv directory not readable: "+d.cfg.Path, err)
	}

	var out []index.RawSource
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		out = append(out, &sheet{
			path: filepath.Join(d.cfg.Path, e.Name()),
			name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
		})
	}
	d.logger.Debug("csv sheets found", "path", d.cfg.Path, "count", len(out))
	return out, ctx.Err()
}

type sheet struct {
	path string
	name string
}

func (s *sheet) Name() string { return s.name }

func (s *sheet) Fetch(ctx context.Context) (*index.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeSourceNotFound, "cannot open "+s.path, err).
			WithDetail("source", s.name)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeSourceDecode, "malformed csv "+s.path, err).
			WithDetail("source", s.name)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return &index.Table{Location: s.name, Rows: rows, Header: true}, nil
}
