// Package bot routes chat commands to the lookup core. It knows nothing
// about any chat platform: adapters turn platform events into Messages
// and render the Replies they get back.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/Aman-CERP/treasurebot/internal/cooldown"
	"github.com/Aman-CERP/treasurebot/internal/logging"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// Message is one inbound chat line.
type Message struct {
	Platform string
	// UserID identifies the sender for cooldowns and ownership: a Discord
	// snowflake or a Twitch login.
	UserID   string
	UserName string
	Channel  string
	Text     string
	// Owner is set by adapters that can prove ownership themselves, such
	// as the Twitch broadcaster badge or the local console.
	Owner bool
}

// SendFunc delivers one reply. Replies for a message are sent in order.
type SendFunc func(Reply) error

// Options configures a Router.
type Options struct {
	Prefix string
	// Owners lists "platform:user" identities allowed to refresh.
	Owners   []string
	Cooldown *cooldown.Limiter
	Logger   *slog.Logger
}

// Router dispatches prefixed commands. It is safe for concurrent use by
// several adapters.
type Router struct {
	prefix   string
	owners   []string
	resolver *resolve.Resolver
	group    *refresh.Group
	cooldown *cooldown.Limiter
	logger   *slog.Logger
}

// NewRouter creates a Router. A nil cooldown disables rate limiting.
func NewRouter(resolver *resolve.Resolver, group *refresh.Group, opts Options) *Router {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "!"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		prefix:   prefix,
		owners:   opts.Owners,
		resolver: resolver,
		group:    group,
		cooldown: opts.Cooldown,
		logger:   logger,
	}
}

// Prefix returns the command prefix.
func (r *Router) Prefix() string {
	return r.prefix
}

// Handle logs msg and, if it is a known command, answers through send.
// Other messages are ignored. The returned error comes from send.
func (r *Router) Handle(ctx context.Context, msg Message, send SendFunc) error {
	r.logger.Info(logging.ChatPrefix+" "+msg.UserName+": "+msg.Text,
		"platform", msg.Platform,
		"channel", msg.Channel)

	cmd, args, ok := r.parse(msg.Text)
	if !ok {
		return nil
	}

	switch cmd {
	case "find", "locate", "where":
		return send(r.find(msg, args))
	case "status":
		return send(r.status())
	case "help":
		return send(r.reply(ReplyHelp))
	case "refresh":
		return r.refresh(ctx, msg, send)
	default:
		return nil
	}
}

// parse splits "!Find lucky cat" into ("find", "lucky cat").
func (r *Router) parse(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, r.prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, r.prefix)
	cmd = rest
	if i := strings.IndexFunc(rest, unicode.IsSpace); i >= 0 {
		cmd, args = rest[:i], rest[i:]
	}
	if cmd == "" {
		return "", "", false
	}
	return strings.ToLower(cmd), strings.TrimSpace(args), true
}

func (r *Router) reply(kind ReplyKind) Reply {
	return Reply{Kind: kind, Prefix: r.prefix}
}

func (r *Router) find(msg Message, query string) Reply {
	if query == "" {
		return r.reply(ReplyUsage)
	}

	if r.cooldown != nil {
		if ok, wait := r.cooldown.Allow(msg.Platform, msg.UserID); !ok {
			r.logger.Debug("query on cooldown", "platform", msg.Platform, "user", msg.UserName, "wait", wait)
			rep := r.reply(ReplyCooldown)
			rep.Wait = wait
			return rep
		}
	}

	res, err := r.resolver.Resolve(query)
	switch {
	case errors.Is(err, resolve.ErrIndexLoading):
		return r.reply(ReplyLoading)
	case errors.Is(err, resolve.ErrEmptyQuery):
		return r.reply(ReplyUsage)
	case err != nil:
		r.logger.Error("lookup failed", "query", query, "error", err)
		return r.reply(ReplyLoading)
	}

	r.logger.Info("lookup", "user", msg.UserName, "result", res.String())
	rep := r.reply(ReplyResult)
	rep.Result = res
	return rep
}

func (r *Router) status() Reply {
	primary := r.group.Primary()
	if primary == nil || !primary.Index().Ready() {
		return r.reply(ReplyStatusLoading)
	}
	st := primary.Status()
	rep := r.reply(ReplyStatus)
	rep.Items = st.Items
	rep.BuiltAt = st.BuiltAt
	return rep
}

func (r *Router) refresh(ctx context.Context, msg Message, send SendFunc) error {
	if !r.IsOwner(msg) {
		r.logger.Warn("refresh denied", "platform", msg.Platform, "user", msg.UserName)
		return send(r.reply(ReplyNotOwner))
	}

	if err := send(r.reply(ReplyRefreshStarted)); err != nil {
		return err
	}

	r.logger.Info("manual refresh", "platform", msg.Platform, "user", msg.UserName)
	err := r.group.Refresh(ctx)

	rep := r.reply(ReplyRefreshDone)
	rep.Err = err
	if p := r.group.Primary(); p != nil {
		rep.Items = p.Index().Current().Len()
	}
	return send(rep)
}

// IsOwner reports whether msg comes from a bot owner.
func (r *Router) IsOwner(msg Message) bool {
	if msg.Owner {
		return true
	}
	want := msg.Platform + ":" + msg.UserID
	for _, o := range r.owners {
		if strings.EqualFold(o, want) {
			return true
		}
	}
	return false
}
