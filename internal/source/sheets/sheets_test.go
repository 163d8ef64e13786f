package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
)

// fakeAPI serves the subset of the Drive and Sheets APIs the provider uses.
type fakeAPI struct {
	files      []map[string]string
	sheets     map[string][][]any
	order      []string
	failSheet  string
	failCode   int
	driveCalls atomic.Int32
	lastDriveQ atomic.Value
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		f.driveCalls.Add(1)
		f.lastDriveQ.Store(r.URL.Query().Get("q"))
		writeJSON(t, w, map[string]any{"files": f.files})
	})
	mux.HandleFunc("GET /v4/spreadsheets/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "wb1" {
			http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
			return
		}
		var list []map[string]any
		for _, title := range f.order {
			list = append(list, map[string]any{"properties": map[string]any{"title": title}})
		}
		writeJSON(t, w, map[string]any{
			"properties": map[string]any{"title": "Treasure Hunt"},
			"sheets":     list,
		})
	})
	mux.HandleFunc("GET /v4/spreadsheets/{id}/values/{range}", func(w http.ResponseWriter, r *http.Request) {
		rng := r.PathValue("range")
		title := strings.ReplaceAll(strings.Trim(rng, "'"), "''", "'")
		if title == f.failSheet {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.failCode)
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"failure"}}`, f.failCode)
			return
		}
		writeJSON(t, w, map[string]any{"range": rng, "values": f.sheets[title]})
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func newFake() *fakeAPI {
	return &fakeAPI{
		files: []map[string]string{{"id": "wb1", "name": "Treasure Hunt"}},
		order: []string{"Harv's Island", "ACNH_Items", "Dom's Island"},
		sheets: map[string][][]any{
			"Harv's Island": {{"Item", "Notes"}, {"Lucky Cat", ""}, {"Wand"}},
			"ACNH_Items":    {{"Name"}, {"Every Item"}},
			"Dom's Island":  {{"Item"}, {"LUCKY CAT"}},
		},
	}
}

func newTestWorkbook(t *testing.T, api *fakeAPI, cfg Config) *Workbook {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cfg.Endpoint = srv.URL
	cfg.Logger = slog.New(slog.DiscardHandler)
	if cfg.WorkbookID == "" && cfg.WorkbookName == "" {
		cfg.WorkbookName = "Treasure Hunt"
	}
	wb, err := New(context.Background(), cfg, option.WithoutAuthentication())
	require.NoError(t, err)
	return wb
}

func TestWorkbook_BuildsIndexFromWorksheets(t *testing.T) {
	// Given: a workbook with two island sheets and the reference sheet
	api := newFake()
	wb := newTestWorkbook(t, api, Config{Exclude: []string{"ACNH_Items"}})
	b := index.NewBuilder(index.WithRetry(boterrors.RetryConfig{}), index.WithLogger(slog.New(slog.DiscardHandler)))

	// When: building from the workbook
	snap, err := b.Build(context.Background(), wb)

	// Then: island items are merged and the reference sheet is skipped
	require.NoError(t, err)
	locs, ok := snap.Lookup("lucky cat")
	require.True(t, ok)
	assert.Equal(t, []string{"Harv's Island", "Dom's Island"}, locs)
	_, ok = snap.Lookup("every item")
	assert.False(t, ok)
	_, ok = snap.Lookup("notes")
	assert.False(t, ok, "header row must be skipped")
	assert.Equal(t, 2, snap.SourceCount())
}

func TestWorkbook_ResolvesNameOnce(t *testing.T) {
	api := newFake()
	wb := newTestWorkbook(t, api, Config{})

	_, err := wb.Sources(context.Background())
	require.NoError(t, err)
	_, err = wb.Sources(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), api.driveCalls.Load())
	q, _ := api.lastDriveQ.Load().(string)
	assert.Contains(t, q, "name = 'Treasure Hunt'")
	assert.Contains(t, q, spreadsheetMimeType)
}

func TestWorkbook_IDSkipsDrive(t *testing.T) {
	api := newFake()
	wb := newTestWorkbook(t, api, Config{WorkbookID: "wb1"})

	sources, err := wb.Sources(context.Background())

	require.NoError(t, err)
	assert.Len(t, sources, 3)
	assert.Zero(t, api.driveCalls.Load())
}

func TestWorkbook_UnknownNameIsNotFound(t *testing.T) {
	api := newFake()
	api.files = nil
	wb := newTestWorkbook(t, api, Config{})

	_, err := wb.Sources(context.Background())

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeSourceNotFound, boterrors.GetCode(err))
	assert.False(t, boterrors.IsRetryable(err))
}

func TestWorkbook_MissingWorkbookIsNotFound(t *testing.T) {
	wb := newTestWorkbook(t, newFake(), Config{WorkbookID: "nope"})

	_, err := wb.Sources(context.Background())

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeSourceNotFound, boterrors.GetCode(err))
}

func TestWorkbook_FailingSheetIsRetryableAndSkipped(t *testing.T) {
	// Given: one sheet answering 503
	api := newFake()
	api.failSheet = "Dom's Island"
	api.failCode = http.StatusServiceUnavailable
	wb := newTestWorkbook(t, api, Config{Exclude: []string{"ACNH_Items"}})

	sources, err := wb.Sources(context.Background())
	require.NoError(t, err)

	// When: fetching the failing sheet directly
	_, err = sources[2].Fetch(context.Background())

	// Then: the error is a retryable source error
	require.Error(t, err)
	assert.True(t, boterrors.IsRetryable(err))

	// And: a build still succeeds with the other sheet
	b := index.NewBuilder(index.WithRetry(boterrors.RetryConfig{}), index.WithLogger(slog.New(slog.DiscardHandler)))
	snap, err := b.Build(context.Background(), wb)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.SourceCount())
	assert.Equal(t, 1, snap.Skipped())
}

func TestWorkbook_RateLimitIsRetryable(t *testing.T) {
	api := newFake()
	api.failSheet = "Harv's Island"
	api.failCode = http.StatusTooManyRequests
	wb := newTestWorkbook(t, api, Config{WorkbookID: "wb1"})
	sources, err := wb.Sources(context.Background())
	require.NoError(t, err)

	_, err = sources[0].Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeSourceRateLimit, boterrors.GetCode(err))
	assert.True(t, boterrors.IsRetryable(err))
}

func TestNew_RequiresWorkbook(t *testing.T) {
	_, err := New(context.Background(), Config{CredentialsFile: "x.json"})

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeConfigMissing, boterrors.GetCode(err))
}

func TestNew_MissingKeyFileIsFatal(t *testing.T) {
	_, err := New(context.Background(), Config{
		WorkbookName:    "Treasure Hunt",
		CredentialsFile: filepath.Join(t.TempDir(), "service_account.json"),
	})

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeCredentials, boterrors.GetCode(err))
	assert.True(t, boterrors.IsFatal(err))
}

func TestQuoteTitle(t *testing.T) {
	assert.Equal(t, "'Harv''s Island'", quoteTitle("Harv's Island"))
	assert.Equal(t, "'Plaza'", quoteTitle("Plaza"))
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `Harv\'s \\ Hunt`, escapeQuery(`Harv's \ Hunt`))
}
