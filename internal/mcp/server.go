package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/pkg/version"
)

// Backend answers tool calls. *daemon.Client implements it against a
// running bot; Local adapts an in-process daemon.RequestHandler.
type Backend interface {
	Find(ctx context.Context, query string) (*daemon.FindResult, error)
	Status(ctx context.Context) (*daemon.StatusResult, error)
	Refresh(ctx context.Context) (*daemon.RefreshResult, error)
}

var _ Backend = (*daemon.Client)(nil)

// Local adapts a request handler, usually a *daemon.Service built in
// this process, to Backend.
func Local(h daemon.RequestHandler) Backend {
	return localBackend{h: h}
}

type localBackend struct {
	h daemon.RequestHandler
}

func (l localBackend) Find(ctx context.Context, query string) (*daemon.FindResult, error) {
	params := daemon.FindParams{Query: query}
	if err := params.Validate(); err != nil {
		return nil, NewInvalidParamsError(err.Error())
	}
	res, err := l.h.HandleFind(ctx, params)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (l localBackend) Status(context.Context) (*daemon.StatusResult, error) {
	st := l.h.GetStatus()
	return &st, nil
}

func (l localBackend) Refresh(ctx context.Context) (*daemon.RefreshResult, error) {
	res, err := l.h.HandleRefresh(ctx)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Server is the MCP server for TreasureBot.
type Server struct {
	mcp     *mcp.Server
	backend Backend
	logger  *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "find_item",
		Description: "Find which islands or villages have an item. Typos are tolerated: when there is no exact match the closest item names are returned instead.",
	},
	{
		Name:        "index_status",
		Description: "Report whether the item database is loaded, how many items each index holds and when it was last updated.",
	},
	{
		Name:        "refresh_index",
		Description: "Reload every location source now and wait for the result. Takes a while on large workbooks.",
	},
}

// NewServer creates a new MCP server answering from backend.
func NewServer(backend Backend, logger *slog.Logger) (*Server, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{backend: backend, logger: logger}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "TreasureBot",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools/resources
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "TreasureBot", version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return append([]ToolInfo(nil), tools...)
}

// CallTool invokes a tool by name with JSON-style arguments and returns
// its markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "find_item":
		query, _ := args["query"].(string)
		out, err := s.findItem(ctx, query)
		if err != nil {
			return "", err
		}
		return out.markdown, nil
	case "index_status":
		out, err := s.indexStatus(ctx)
		if err != nil {
			return "", err
		}
		return FormatStatus(out), nil
	case "refresh_index":
		out, err := s.refreshIndex(ctx)
		if err != nil {
			return "", err
		}
		return out.Text, nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

type findOutcome struct {
	output   FindItemOutput
	markdown string
}

func (s *Server) findItem(ctx context.Context, query string) (*findOutcome, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("find_item started",
		slog.String("request_id", requestID),
		slog.String("query", query))

	res, err := s.backend.Find(ctx, query)
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("find_item failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.logger.Info("find_item completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", duration),
		slog.String("kind", res.Kind.String()))
	return &findOutcome{output: ToFindItemOutput(res), markdown: FormatFindResult(res)}, nil
}

func (s *Server) indexStatus(ctx context.Context) (*IndexStatusOutput, error) {
	st, err := s.backend.Status(ctx)
	if err != nil {
		return nil, MapError(err)
	}
	return ToIndexStatusOutput(st), nil
}

func (s *Server) refreshIndex(ctx context.Context) (*RefreshIndexOutput, error) {
	requestID := generateRequestID()
	s.logger.Info("refresh_index started", slog.String("request_id", requestID))

	res, err := s.backend.Refresh(ctx)
	if err != nil {
		s.logger.Error("refresh_index failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	s.logger.Info("refresh_index completed",
		slog.String("request_id", requestID),
		slog.Int("items", res.Items))
	return &RefreshIndexOutput{Items: res.Items, Error: res.Error, Text: res.Text}, nil
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpFindItemHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpIndexStatusHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpRefreshIndexHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

// mcpFindItemHandler is the MCP SDK handler for the find_item tool.
func (s *Server) mcpFindItemHandler(ctx context.Context, _ *mcp.CallToolRequest, input FindItemInput) (
	*mcp.CallToolResult,
	FindItemOutput,
	error,
) {
	out, err := s.findItem(ctx, input.Query)
	if err != nil {
		return nil, FindItemOutput{}, err
	}
	return textResult(out.markdown), out.output, nil
}

// mcpIndexStatusHandler is the MCP SDK handler for the index_status tool.
func (s *Server) mcpIndexStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ IndexStatusInput) (
	*mcp.CallToolResult,
	*IndexStatusOutput,
	error,
) {
	out, err := s.indexStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, out, nil
}

// mcpRefreshIndexHandler is the MCP SDK handler for the refresh_index tool.
func (s *Server) mcpRefreshIndexHandler(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshIndexInput) (
	*mcp.CallToolResult,
	RefreshIndexOutput,
	error,
) {
	out, err := s.refreshIndex(ctx)
	if err != nil {
		return nil, RefreshIndexOutput{}, err
	}
	return textResult(out.Text), *out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	return uuid.NewString()[:8]
}
