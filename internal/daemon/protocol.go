package daemon

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
	"github.com/Aman-CERP/treasurebot/internal/telemetry"
)

// JSON-RPC 2.0 method names.
const (
	MethodPing    = "ping"
	MethodFind    = "find"
	MethodStatus  = "status"
	MethodRefresh = "refresh"
)

// Standard JSON-RPC 2.0 error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Custom error codes for bot-specific errors.
const (
	ErrCodeIndexLoading  = -32001
	ErrCodeRefreshFailed = -32002
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      string `json:"id"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
	ID      string `json:"id"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code: %d)", e.Message, e.Code)
}

// NewSuccessResponse creates a successful response.
func NewSuccessResponse(id string, result any) Response {
	return Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id string, code int, message string) Response {
	return Response{
		JSONRPC: "2.0",
		Error: &Error{
			Code:    code,
			Message: message,
		},
		ID: id,
	}
}

// FindParams are the parameters for the find method.
type FindParams struct {
	// Query is the item name as a user would type it (required).
	Query string `json:"query"`
}

// Validate checks that required fields are present.
func (p *FindParams) Validate() error {
	p.Query = strings.TrimSpace(p.Query)
	if p.Query == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

// FindResult is the answer to a find request.
type FindResult struct {
	resolve.Result
	// Text is the chat line the bot would have sent.
	Text string `json:"text"`
}

// StatusResult describes the running bot.
type StatusResult struct {
	Running   bool                `json:"running"`
	PID       int                 `json:"pid"`
	Uptime    string              `json:"uptime"`
	Platforms []string            `json:"platforms,omitempty"`
	Indexes   []refresh.Status    `json:"indexes"`
	Lookups   *telemetry.Snapshot `json:"lookups,omitempty"`
}

// RefreshResult reports a completed refresh. Error is set when at least
// one index kept its previous data.
type RefreshResult struct {
	Items int    `json:"items"`
	Error string `json:"error,omitempty"`
	Text  string `json:"text"`
}

// PingResult is the response to a ping request.
type PingResult struct {
	Pong bool `json:"pong"`
}
