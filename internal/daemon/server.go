package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// RequestHandler handles incoming RPC requests.
type RequestHandler interface {
	HandleFind(ctx context.Context, params FindParams) (FindResult, error)
	HandleRefresh(ctx context.Context) (RefreshResult, error)
	GetStatus() StatusResult
}

// Server listens on a Unix socket and handles RPC requests.
type Server struct {
	socketPath string
	timeout    time.Duration
	listener   net.Listener
	handler    RequestHandler
	started    time.Time
	logger     *slog.Logger

	mu       sync.Mutex
	shutdown bool
	wg       sync.WaitGroup
}

// NewServer creates a server for cfg.SocketPath.
func NewServer(cfg Config, handler RequestHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Server{
		socketPath: cfg.SocketPath,
		timeout:    timeout,
		handler:    handler,
		logger:     logger,
	}
}

// ListenAndServe starts the server and blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	// A socket left by a crashed bot; the instance lock guarantees it is stale.
	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	_ = os.Chmod(s.socketPath, 0o600)

	s.mu.Lock()
	s.listener = listener
	s.started = time.Now()
	s.mu.Unlock()

	defer func() {
		_ = listener.Close()
		_ = os.Remove(s.socketPath)
	}()

	s.logger.Info("control socket listening", slog.String("socket", s.socketPath))

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		_ = listener.Close()
	})
	defer stop()

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				break
			}
			s.logger.Error("accept error", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.wg.Wait()
	return ctx.Err()
}

// handleConnection processes a single request.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		s.logger.Warn("failed to set connection deadline", slog.String("error", err.Error()))
	}

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var req Request
	if err := decoder.Decode(&req); err != nil {
		_ = encoder.Encode(NewErrorResponse("", ErrCodeParseError, "failed to parse request"))
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		_ = encoder.Encode(NewErrorResponse(req.ID, ErrCodeInvalidRequest, "invalid request"))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	s.logger.Debug("control request", "method", req.Method, "id", req.ID)
	_ = encoder.Encode(s.handleRequest(reqCtx, req))
}

// handleRequest dispatches a request to the appropriate handler.
func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	switch req.Method {
	case MethodPing:
		return NewSuccessResponse(req.ID, PingResult{Pong: true})
	case MethodStatus:
		return NewSuccessResponse(req.ID, s.getStatus())
	case MethodFind:
		return s.handleFind(ctx, req)
	case MethodRefresh:
		return s.handleRefresh(ctx, req)
	default:
		return NewErrorResponse(req.ID, ErrCodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleFind(ctx context.Context, req Request) Response {
	if s.handler == nil {
		return NewErrorResponse(req.ID, ErrCodeInternalError, "no handler configured")
	}

	var params FindParams
	if err := decodeParams(req.Params, &params); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, "failed to decode params")
	}
	if err := params.Validate(); err != nil {
		return NewErrorResponse(req.ID, ErrCodeInvalidParams, err.Error())
	}

	result, err := s.handler.HandleFind(ctx, params)
	switch {
	case errors.Is(err, resolve.ErrIndexLoading):
		return NewErrorResponse(req.ID, ErrCodeIndexLoading, "database loading")
	case err != nil:
		return NewErrorResponse(req.ID, ErrCodeInternalError, err.Error())
	}
	return NewSuccessResponse(req.ID, result)
}

func (s *Server) handleRefresh(ctx context.Context, req Request) Response {
	if s.handler == nil {
		return NewErrorResponse(req.ID, ErrCodeInternalError, "no handler configured")
	}
	s.logger.Info("manual refresh", "source", "control socket")
	result, err := s.handler.HandleRefresh(ctx)
	if err != nil {
		return NewErrorResponse(req.ID, ErrCodeRefreshFailed, err.Error())
	}
	return NewSuccessResponse(req.ID, result)
}

func (s *Server) getStatus() StatusResult {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	var status StatusResult
	if s.handler != nil {
		status = s.handler.GetStatus()
	}
	status.Running = true
	status.PID = os.Getpid()
	status.Uptime = time.Since(started).Round(time.Second).String()
	return status
}

// decodeParams converts the generic params value into dst.
func decodeParams(params any, dst any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Close stops the server.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}
