// Package twitch connects the command router to Twitch chat through a
// go-twitch-irc client.
package twitch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	irc "github.com/gempir/go-twitch-irc/v4"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/chat"
	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// DefaultAddress is the Twitch chat TLS endpoint.
const DefaultAddress = "irc.chat.twitch.tv:6697"

// Config configures a Connector.
type Config struct {
	Address string
	// PlainText dials Address without TLS.
	PlainText bool
	Token     string
	Channel   string
	// Nick defaults to the channel name.
	Nick string

	MinBackoff time.Duration
	MaxBackoff time.Duration
	Logger     *slog.Logger
}

// Connector is a chat.Connector for one Twitch channel.
type Connector struct {
	cfg     Config
	handler chat.Handler
	logger  *slog.Logger

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

var _ chat.Connector = (*Connector)(nil)

// New creates a Connector. Token and Channel are required.
func New(cfg Config, handler chat.Handler) (*Connector, error) {
	var missing []string
	if cfg.Token == "" {
		missing = append(missing, "TWITCH_TOKEN")
	}
	if cfg.Channel == "" {
		missing = append(missing, "TWITCH_CHANNEL")
	}
	if len(missing) > 0 {
		return nil, boterrors.MissingConfig(missing...)
	}

	cfg.Channel = strings.ToLower(strings.TrimPrefix(cfg.Channel, "#"))
	if cfg.Nick == "" {
		cfg.Nick = cfg.Channel
	}
	cfg.Nick = strings.ToLower(cfg.Nick)
	if cfg.Address == "" {
		cfg.Address = DefaultAddress
	}
	if !strings.HasPrefix(cfg.Token, "oauth:") {
		cfg.Token = "oauth:" + cfg.Token
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("platform", "twitch", "channel", cfg.Channel),
	}, nil
}

func (c *Connector) Name() string { return "twitch" }

// Start connects and serves chat until ctx is cancelled. Dropped
// connections are retried with backoff; a rejected login is returned.
// Handlers still answering when ctx ends are waited for.
func (c *Connector) Start(ctx context.Context) error {
	defer c.drain()

	backoff := chat.Backoff{Min: c.cfg.MinBackoff, Max: c.cfg.MaxBackoff}
	for {
		err := c.session(ctx, backoff.Reset)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if boterrors.IsFatal(err) {
			return err
		}
		delay := backoff.Next()
		c.logger.Warn("twitch disconnected, reconnecting",
			append(boterrors.LogAttrs(err), "retry_in", delay)...)
		if err := chat.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// session runs one client until its connection drops.
func (c *Connector) session(ctx context.Context, connected func()) error {
	client := irc.NewClient(c.cfg.Nick, c.cfg.Token)
	client.IrcAddress = c.cfg.Address
	client.TLS = !c.cfg.PlainText
	client.Capabilities = []string{irc.TagsCapability, irc.CommandsCapability}

	client.OnConnect(func() {
		// A cancel that raced the dial finds no open connection to close.
		if ctx.Err() != nil {
			_ = client.Disconnect()
			return
		}
		connected()
		c.logger.Info("twitch logged in", "nick", c.cfg.Nick)
	})
	client.OnNoticeMessage(func(m irc.NoticeMessage) {
		c.logger.Debug("twitch notice", "text", m.Message)
	})
	client.OnPrivateMessage(func(m irc.PrivateMessage) {
		c.onMessage(ctx, client, m)
	})
	client.Join(c.cfg.Channel)

	stop := context.AfterFunc(ctx, func() { _ = client.Disconnect() })
	defer stop()

	err := client.Connect()
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, irc.ErrLoginAuthenticationFailed):
		return boterrors.New(boterrors.ErrCodeCredentials, "twitch rejected the login", err).
			WithSuggestion("Check TWITCH_TOKEN; it needs the chat:read and chat:edit scopes")
	default:
		return boterrors.New(boterrors.ErrCodeChatConnect, "twitch connection lost", err)
	}
}

// onMessage answers a chat line off the client's read loop, which must
// keep draining the connection while a lookup or refresh runs.
func (c *Connector) onMessage(ctx context.Context, client *irc.Client, m irc.PrivateMessage) {
	msg, ok := c.message(m)
	if !ok || !c.track() {
		return
	}
	go func() {
		defer c.inflight.Done()
		send := func(r bot.Reply) error { return c.send(client, r) }
		if err := c.handler.Handle(ctx, msg, send); err != nil {
			c.logger.Warn("twitch reply failed", boterrors.LogAttrs(err)...)
		}
	}()
}

// message converts a PRIVMSG. Echoes of the bot's own lines are dropped.
func (c *Connector) message(m irc.PrivateMessage) (bot.Message, bool) {
	login := m.User.Name
	if login == "" || strings.EqualFold(login, c.cfg.Nick) {
		return bot.Message{}, false
	}
	name := m.User.DisplayName
	if name == "" {
		name = login
	}
	return bot.Message{
		Platform: "twitch",
		UserID:   login,
		UserName: name,
		Channel:  "#" + m.Channel,
		Text:     m.Message,
		Owner:    m.User.Badges["broadcaster"] > 0,
	}, true
}

// send renders a reply as one chat line. Cooldown replies are dropped:
// Twitch chat ignores queries on cooldown without answering.
func (c *Connector) send(client *irc.Client, r bot.Reply) error {
	if r.Kind == bot.ReplyCooldown {
		return nil
	}
	client.Say(c.cfg.Channel, strings.ReplaceAll(r.Text(), "\n", " "))
	return nil
}

func (c *Connector) track() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draining {
		return false
	}
	c.inflight.Add(1)
	return true
}

func (c *Connector) drain() {
	c.mu.Lock()
	c.draining = true
	c.mu.Unlock()
	c.inflight.Wait()
}
