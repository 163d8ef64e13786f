// Package mcp exposes item lookup to AI clients over the Model Context
// Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// Custom MCP error codes. They match the control socket codes so a
// client sees the same number either way.
const (
	// ErrCodeIndexLoading indicates the first build has not finished.
	ErrCodeIndexLoading = daemon.ErrCodeIndexLoading

	// ErrCodeRefreshFailed indicates a refresh could not complete.
	ErrCodeRefreshFailed = daemon.ErrCodeRefreshFailed

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeBotUnavailable indicates the running bot could not be reached.
	ErrCodeBotUnavailable = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	// Errors relayed from a running bot keep their code.
	var rpcErr *daemon.Error
	if errors.As(err, &rpcErr) {
		return &MCPError{Code: rpcErr.Code, Message: rpcErr.Message}
	}

	if botErr, ok := boterrors.As(err); ok {
		return mapBotError(botErr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapBotError converts a BotError to an MCPError.
func mapBotError(be *boterrors.BotError) *MCPError {
	message := be.Message
	if be.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", be.Message, be.Suggestion)
	}

	switch be.Code {
	case boterrors.ErrCodeIndexLoading:
		return &MCPError{Code: ErrCodeIndexLoading, Message: "Database is currently loading, please wait."}
	case boterrors.ErrCodeRefreshFailed:
		return &MCPError{Code: ErrCodeRefreshFailed, Message: message}
	case boterrors.ErrCodeControlSocket:
		return &MCPError{Code: ErrCodeBotUnavailable, Message: message}
	case boterrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	}

	switch be.Category {
	case boterrors.CategoryValidation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
