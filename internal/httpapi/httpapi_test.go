package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

var discard = slog.New(slog.DiscardHandler)

func newServer(t *testing.T, load bool) *Server {
	t.Helper()
	p := index.NewStaticProvider("sheets",
		&index.Table{Location: "Harv's Island", Rows: [][]string{{"Lucky Cat", "Wand"}}},
		&index.Table{Location: "Dom's Island", Rows: [][]string{{"lucky cat"}}},
	)
	idx := index.New("items")
	b := index.NewBuilder(index.WithRetry(boterrors.RetryConfig{}), index.WithLogger(discard))
	s := refresh.New(idx, b, []index.Provider{p}, refresh.Config{Logger: discard})
	t.Cleanup(s.Stop)
	if load {
		_, err := s.Refresh(context.Background())
		require.NoError(t, err)
	}
	return New(resolve.New(resolve.DefaultOptions(), idx), refresh.NewGroup(s), "!", discard)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := get(t, newServer(t, false), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name string
		load bool
		code int
		body string
	}{
		{"before first build", false, http.StatusServiceUnavailable, `{"ready":false}`},
		{"after build", true, http.StatusOK, `{"ready":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newServer(t, tt.load), "/readyz")

			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestStatus(t *testing.T) {
	rec := get(t, newServer(t, true), "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []refresh.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "items", got[0].Name)
	assert.Equal(t, refresh.StateReady, got[0].State)
	assert.Equal(t, 2, got[0].Items)
}

func TestFind(t *testing.T) {
	// Given: a loaded bot
	s := newServer(t, true)

	// When: looking up an item by URL
	rec := get(t, s, "/find?q=Lucky%20Cat")

	// Then: the result and its chat line are returned
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"kind": "exact",
		"query": "Lucky Cat",
		"name": "lucky cat",
		"locations": ["HARV'S ISLAND", "DOM'S ISLAND"],
		"text": "Found LUCKY CAT on: HARV'S ISLAND | DOM'S ISLAND"
	}`, rec.Body.String())
}

func TestFind_Errors(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, get(t, newServer(t, true), "/find?q=%20").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, newServer(t, false), "/find?q=wand").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		newServer(t, true).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/find", nil))
		return rec.Code
	}())
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := newServer(t, true)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
