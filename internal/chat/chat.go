// Package chat holds what the platform connectors share: the Connector
// contract, the command handler they feed and the reconnect backoff.
package chat

import (
	"context"
	"time"

	"github.com/Aman-CERP/treasurebot/internal/bot"
)

// Connector is a long-running chat platform integration.
type Connector interface {
	// Start runs the connector until ctx is cancelled or an unrecoverable
	// error occurs. Transient disconnects are retried internally.
	Start(ctx context.Context) error

	// Name returns the platform name, e.g. "twitch".
	Name() string
}

// Handler answers one inbound message. *bot.Router implements it.
type Handler interface {
	Handle(ctx context.Context, msg bot.Message, send bot.SendFunc) error
}

var _ Handler = (*bot.Router)(nil)

// Reconnect delays used by both connectors.
const (
	DefaultMinBackoff = 5 * time.Second
	DefaultMaxBackoff = 60 * time.Second
)

// Backoff doubles a delay between Min and Max.
type Backoff struct {
	Min, Max time.Duration
	cur      time.Duration
}

// Next returns the delay to wait before the next attempt.
func (b *Backoff) Next() time.Duration {
	if b.Min <= 0 {
		b.Min = DefaultMinBackoff
	}
	if b.Max <= 0 {
		b.Max = DefaultMaxBackoff
	}
	if b.Max < b.Min {
		b.Max = b.Min
	}
	if b.cur == 0 {
		b.cur = b.Min
		return b.cur
	}
	b.cur = min(b.cur*2, b.Max)
	return b.cur
}

// Reset starts the sequence over after a successful connection.
func (b *Backoff) Reset() { b.cur = 0 }

// Sleep waits d or until ctx ends.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
