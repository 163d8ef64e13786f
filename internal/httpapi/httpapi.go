// Package httpapi serves health, status and lookup endpoints for
// monitoring and quick manual checks.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// Server exposes the bot core over HTTP.
type Server struct {
	resolver *resolve.Resolver
	group    *refresh.Group
	prefix   string
	logger   *slog.Logger
	router   chi.Router
}

// New creates a Server.
func New(resolver *resolve.Resolver, group *refresh.Group, prefix string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		resolver: resolver,
		group:    group,
		prefix:   prefix,
		logger:   logger.With("component", "http"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/status", s.handleStatus)
	r.Get("/find", s.handleFind)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	s.logger.Info("http listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start))
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	ready := s.resolver.Ready()
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]bool{"ready": ready})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.group.Status())
}

type findBody struct {
	resolve.Result
	Text string `json:"text"`
}

func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	res, err := s.resolver.Resolve(r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, resolve.ErrEmptyQuery):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "query parameter q is required"})
		return
	case errors.Is(err, resolve.ErrIndexLoading):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "database loading"})
		return
	case err != nil:
		s.logger.Error("lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, findBody{
		Result: res,
		Text:   bot.Reply{Kind: bot.ReplyResult, Prefix: s.prefix, Result: res}.Text(),
	})
}
