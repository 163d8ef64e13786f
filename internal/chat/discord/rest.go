package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// Client posts replies through the session's REST API. Sends go through a
// circuit breaker so a failing API is not hammered by every chat line.
type Client struct {
	session *discordgo.Session
	breaker *boterrors.CircuitBreaker
}

// NewClient creates a Client on an existing session.
func NewClient(s *discordgo.Session) *Client {
	return &Client{
		session: s,
		breaker: boterrors.NewCircuitBreaker("discord-rest"),
	}
}

// Breaker exposes the send circuit breaker.
func (c *Client) Breaker() *boterrors.CircuitBreaker { return c.breaker }

// Send posts msg to a channel.
func (c *Client) Send(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	err := c.breaker.Execute(func() error {
		_, err := c.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx))
		if err != nil {
			return sendError(err)
		}
		return nil
	})
	if errors.Is(err, boterrors.ErrCircuitOpen) {
		return boterrors.New(boterrors.ErrCodeChatSend, "discord sends paused after repeated failures", err)
	}
	return err
}

func sendError(err error) error {
	if errors.Is(err, discordgo.ErrUnauthorized) {
		return boterrors.New(boterrors.ErrCodeCredentials, "discord rejected the bot token", err)
	}

	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		be := boterrors.New(boterrors.ErrCodeChatSend, "discord rate limited the bot", err)
		if rl.RateLimit != nil && rl.TooManyRequests != nil {
			be = be.WithDetail("retry_after", fmt.Sprintf("%.1fs", rl.RetryAfter.Seconds()))
		}
		return be
	}

	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil {
		switch re.Response.StatusCode {
		case http.StatusUnauthorized:
			return boterrors.New(boterrors.ErrCodeCredentials, "discord rejected the bot token", err)
		case http.StatusForbidden:
			return boterrors.New(boterrors.ErrCodeChatSend, "discord denied the send; check channel permissions", err)
		case http.StatusTooManyRequests:
			return boterrors.New(boterrors.ErrCodeChatSend, "discord rate limited the bot", err)
		}
	}
	return boterrors.New(boterrors.ErrCodeChatSend, "discord send failed", err)
}
