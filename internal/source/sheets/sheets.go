// Package sheets reads item locations from a Google Sheets workbook. Each
// worksheet is one location: its title is the location name and every
// non-empty cell below the header row is an item found there.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/pkg/version"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// Config selects the workbook.
type Config struct {
	// WorkbookID is used as is. When empty, WorkbookName is looked up
	// through Drive among the files shared with the service account.
	WorkbookID      string
	WorkbookName    string
	CredentialsFile string
	Exclude         []string
	Throttle        time.Duration
	// Endpoint overrides both API base URLs.
	Endpoint string
	Logger   *slog.Logger
}

// Workbook is an index.Provider over one spreadsheet.
type Workbook struct {
	cfg    Config
	sheets *sheets.Service
	drive  *drive.Service
	logger *slog.Logger

	mu         sync.Mutex
	resolvedID string
}

var _ index.Provider = (*Workbook)(nil)

// New creates the API clients. Without explicit client options the
// service account key in cfg.CredentialsFile is used; a missing key file
// is a fatal configuration error.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Workbook, error) {
	if cfg.WorkbookID == "" && cfg.WorkbookName == "" {
		return nil, boterrors.MissingConfig("WORKBOOK_NAME")
	}

	if len(opts) == 0 {
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, boterrors.New(boterrors.ErrCodeCredentials,
				fmt.Sprintf("service account key not readable: %s", cfg.CredentialsFile), err).
				WithSuggestion("download a JSON key for the service account and set sheets.credentials_file")
		}
		opts = append(opts,
			option.WithCredentialsFile(cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsReadonlyScope, drive.DriveMetadataReadonlyScope))
	}
	opts = append(opts, option.WithUserAgent(version.UserAgent()))
	if cfg.Endpoint != "" {
		endpoint := strings.TrimSuffix(cfg.Endpoint, "/") + "/"
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeCredentials, "failed to create Sheets client", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeCredentials, "failed to create Drive client", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{
		cfg:        cfg,
		sheets:     sheetsSvc,
		drive:      driveSvc,
		logger:     logger.With("provider", "sheets"),
		resolvedID: cfg.WorkbookID,
	}, nil
}

// Name returns "sheets".
func (w *Workbook) Name() string { return "sheets" }

// Throttle returns the configured delay between worksheet reads.
func (w *Workbook) Throttle() time.Duration { return w.cfg.Throttle }

// Excluded reports whether title is in the exclusion list.
func (w *Workbook) Excluded(title string) bool {
	return slices.Contains(w.cfg.Exclude, title)
}

// Sources lists the worksheets of the workbook.
func (w *Workbook) Sources(ctx context.Context) ([]index.RawSource, error) {
	id, err := w.workbookID(ctx)
	if err != nil {
		return nil, err
	}

	book, err := w.sheets.Spreadsheets.Get(id).
		Fields("properties.title", "sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("workbook "+id, err)
	}

	out := make([]index.RawSource, 0, len(book.Sheets))
	for _, sh := range book.Sheets {
		if sh.Properties == nil || sh.Properties.Title == "" {
			continue
		}
		out = append(out, &worksheet{wb: w, id: id, title: sh.Properties.Title})
	}
	title := id
	if book.Properties != nil && book.Properties.Title != "" {
		title = book.Properties.Title
	}
	w.logger.Info("workbook listed", "workbook", title, "sheets", len(out))
	return out, nil
}

// workbookID returns the configured ID or resolves the workbook name once.
func (w *Workbook) workbookID(ctx context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.resolvedID != "" {
		return w.resolvedID, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(w.cfg.WorkbookName), spreadsheetMimeType)
	list, err := w.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", classify("workbook "+w.cfg.WorkbookName, err)
	}
	if len(list.Files) == 0 {
		return "", boterrors.New(boterrors.ErrCodeSourceNotFound,
			fmt.Sprintf("no spreadsheet named %q is shared with the service account", w.cfg.WorkbookName), nil).
			WithSuggestion("share the workbook with the service account's email address")
	}
	if len(list.Files) > 1 {
		w.logger.Warn("several spreadsheets share the workbook name, using the first",
			"workbook", w.cfg.WorkbookName, "count", len(list.Files))
	}

	w.resolvedID = list.Files[0].Id
	w.logger.Info("workbook resolved", "workbook", w.cfg.WorkbookName, "id", w.resolvedID)
	return w.resolvedID, nil
}

type worksheet struct {
	wb    *Workbook
	id    string
	title string
}

func (s *worksheet) Name() string { return s.title }

func (s *worksheet) Fetch(ctx context.Context) (*index.Table, error) {
	vr, err := s.wb.sheets.Spreadsheets.Values.Get(s.id, quoteTitle(s.title)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("sheet "+s.title, err)
	}

	rows := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	s.wb.logger.Debug("sheet read", "sheet", s.title, "rows", len(rows))
	return &index.Table{Location: s.title, Rows: rows, Header: true}, nil
}

// quoteTitle makes a sheet title usable as an A1 range.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// escapeQuery escapes a value for a Drive query string literal.
func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// classify wraps an API error with a code that tells the builder whether
// to retry.
func classify(what string, err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return boterrors.SourceError(what, err)
	}

	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return boterrors.New(boterrors.ErrCodeSourceRateLimit,
			fmt.Sprintf("%s: rate limited", what), err).WithDetail("source", what)
	case gerr.Code == http.StatusNotFound || gerr.Code == http.StatusForbidden:
		return boterrors.New(boterrors.ErrCodeSourceNotFound,
			fmt.Sprintf("%s: not found or not shared (HTTP %d)", what, gerr.Code), err).WithDetail("source", what)
	case gerr.Code == http.StatusUnauthorized:
		return boterrors.New(boterrors.ErrCodeCredentials,
			fmt.Sprintf("%s: credentials rejected", what), err).WithDetail("source", what)
	default:
		return boterrors.SourceError(what, err)
	}
}
