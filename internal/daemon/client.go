package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// Client talks to a running bot over its control socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new control client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Client{
		socketPath: cfg.SocketPath,
		timeout:    timeout,
	}
}

// Connect establishes a connection to the bot.
func (c *Client) Connect() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeControlSocket, "bot is not running", err).
			WithDetail("socket", c.socketPath).
			WithSuggestion("Start it with: treasurebot serve")
	}
	return conn, nil
}

// IsRunning checks if a bot is accepting connections.
func (c *Client) IsRunning() bool {
	conn, err := c.Connect()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Ping checks if the bot is responsive.
func (c *Client) Ping(ctx context.Context) error {
	var out PingResult
	return c.call(ctx, MethodPing, nil, &out)
}

// Find asks the bot to resolve query.
func (c *Client) Find(ctx context.Context, query string) (*FindResult, error) {
	params := FindParams{Query: query}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	var out FindResult
	if err := c.call(ctx, MethodFind, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status retrieves bot status.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.call(ctx, MethodStatus, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh triggers a rebuild of every index and waits for it.
func (c *Client) Refresh(ctx context.Context) (*RefreshResult, error) {
	var out RefreshResult
	if err := c.call(ctx, MethodRefresh, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one request on a fresh connection and decodes the result
// into out. A JSON-RPC error is returned as *Error.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	req := Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      uuid.NewString(),
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	var resp struct {
		JSONRPC string          `json:"jsonrpc"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
		ID      string          `json:"id"`
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to receive response: %w", err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if resp.ID != req.ID {
		return fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}
