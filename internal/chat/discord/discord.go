// Package discord connects the command router to Discord through a
// discordgo session: the gateway for inbound messages and the REST API for
// replies.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/chat"
	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/pkg/version"
)

// Intents are guild messages, direct messages and message content.
const Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

// Close codes after which reconnecting cannot help.
var fatalCloseCodes = map[int]string{
	4004: "authentication failed",
	4010: "invalid shard",
	4011: "sharding required",
	4012: "invalid API version",
	4013: "invalid intents",
	4014: "disallowed intents; enable the message content intent",
}

// Config configures a Connector.
type Config struct {
	Token string
	// StatusText is shown as the bot's "Playing" activity.
	StatusText string

	MinBackoff time.Duration
	MaxBackoff time.Duration
	// HTTPClient carries REST calls, including the gateway lookup.
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *slog.Logger
}

// Connector is a chat.Connector for a Discord bot account.
type Connector struct {
	cfg     Config
	handler chat.Handler
	session *discordgo.Session
	rest    *Client
	logger  *slog.Logger

	mu       sync.Mutex
	draining bool
	inflight sync.WaitGroup
}

var _ chat.Connector = (*Connector)(nil)

// New creates a Connector. Token is required.
func New(cfg Config, handler chat.Handler) (*Connector, error) {
	if cfg.Token == "" {
		return nil, boterrors.MissingConfig("DISCORD_TOKEN")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, boterrors.InternalError("create discord session", err)
	}
	s.Identify.Intents = Intents
	s.ShouldReconnectOnError = true
	s.UserAgent = "DiscordBot (https://github.com/Aman-CERP/treasurebot, " + version.Version + ")"
	if cfg.HTTPClient != nil {
		s.Client = cfg.HTTPClient
	}
	if cfg.Dialer != nil {
		s.Dialer = cfg.Dialer
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		cfg:     cfg,
		handler: handler,
		session: s,
		rest:    NewClient(s),
		logger:  logger.With("platform", "discord"),
	}, nil
}

func (c *Connector) Name() string { return "discord" }

// Client returns the REST client used for replies.
func (c *Connector) Client() *Client { return c.rest }

// Start opens the gateway and serves messages until ctx is cancelled.
// Failed opens are retried with backoff; once connected, discordgo
// resumes dropped sessions itself. Handlers still answering when ctx ends
// are waited for before Start returns.
func (c *Connector) Start(ctx context.Context) error {
	defer c.drain()

	removers := []func(){
		c.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			c.onMessage(ctx, m)
		}),
		c.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
			c.logger.Warn("discord gateway dropped, resuming")
		}),
		c.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
			c.logger.Info("discord session resumed")
		}),
	}
	removeHandlers := func() {
		for _, remove := range removers {
			remove()
		}
	}
	defer removeHandlers()

	backoff := chat.Backoff{Min: c.cfg.MinBackoff, Max: c.cfg.MaxBackoff}
	for {
		err := c.open(ctx)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if boterrors.IsFatal(err) {
			return err
		}
		delay := backoff.Next()
		c.logger.Warn("discord connect failed, retrying",
			append(boterrors.LogAttrs(err), "retry_in", delay)...)
		if err := chat.Sleep(ctx, delay); err != nil {
			return err
		}
	}

	c.loggedIn()
	<-ctx.Done()
	removeHandlers()
	if err := c.session.Close(); err != nil {
		c.logger.Debug("discord close failed", "error", err)
	}
	return ctx.Err()
}

// open runs one gateway handshake. discordgo's Open does not take a
// context, so a cancelled ctx abandons it and closes the session once the
// handshake finishes.
func (c *Connector) open(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- c.session.Open() }()
	select {
	case err := <-done:
		if err != nil {
			return openError(err)
		}
		return nil
	case <-ctx.Done():
		go func() {
			if <-done == nil {
				_ = c.session.Close()
			}
		}()
		return ctx.Err()
	}
}

func (c *Connector) loggedIn() {
	if u := c.self(); u != nil {
		c.logger.Info("discord logged in", "user", u.Username, "id", u.ID)
	}
	if c.cfg.StatusText == "" {
		return
	}
	if err := c.session.UpdateGameStatus(0, c.cfg.StatusText); err != nil {
		c.logger.Debug("discord status update failed", "error", err)
	}
}

func (c *Connector) self() *discordgo.User {
	st := c.session.State
	if st == nil {
		return nil
	}
	st.RLock()
	defer st.RUnlock()
	return st.User
}

func (c *Connector) onMessage(ctx context.Context, m *discordgo.MessageCreate) {
	msg, ok := c.message(m)
	if !ok || !c.track() {
		return
	}
	defer c.inflight.Done()

	send := func(r bot.Reply) error {
		return c.rest.Send(ctx, m.ChannelID, Render(r))
	}
	if err := c.handler.Handle(ctx, msg, send); err != nil {
		c.logger.Warn("discord reply failed", boterrors.LogAttrs(err)...)
	}
}

// message converts a MESSAGE_CREATE. Bots, including this one, are ignored.
func (c *Connector) message(m *discordgo.MessageCreate) (bot.Message, bool) {
	if m.Message == nil || m.Author == nil || m.Author.Bot {
		return bot.Message{}, false
	}
	if u := c.self(); u != nil && m.Author.ID == u.ID {
		return bot.Message{}, false
	}
	name := m.Author.GlobalName
	if name == "" {
		name = m.Author.Username
	}
	return bot.Message{
		Platform: "discord",
		UserID:   m.Author.ID,
		UserName: name,
		Channel:  m.ChannelID,
		Text:     m.Content,
	}, true
}

// track registers a handler run unless Start is shutting down.
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

func openError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if reason, ok := fatalCloseCodes[ce.Code]; ok {
			return boterrors.New(boterrors.ErrCodeCredentials, "discord closed the gateway: "+reason, err).
				WithSuggestion("Check DISCORD_TOKEN and the bot's privileged intents")
		}
	}
	if be := sendError(err); boterrors.GetCode(be) == boterrors.ErrCodeCredentials {
		return be
	}
	return boterrors.New(boterrors.ErrCodeChatConnect, "cannot open discord gateway", err)
}
