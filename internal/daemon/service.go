package daemon

import (
	"context"
	"errors"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// Service answers control requests from the bot core.
type Service struct {
	resolver  *resolve.Resolver
	group     *refresh.Group
	prefix    string
	platforms []string
}

var _ RequestHandler = (*Service)(nil)

// NewService creates a Service. Platforms names the connected chat
// platforms for status output.
func NewService(resolver *resolve.Resolver, group *refresh.Group, prefix string, platforms ...string) *Service {
	return &Service{resolver: resolver, group: group, prefix: prefix, platforms: platforms}
}

// HandleFind resolves a query.
func (s *Service) HandleFind(_ context.Context, params FindParams) (FindResult, error) {
	res, err := s.resolver.Resolve(params.Query)
	if err != nil {
		return FindResult{}, err
	}
	return FindResult{
		Result: res,
		Text:   bot.Reply{Kind: bot.ReplyResult, Prefix: s.prefix, Result: res}.Text(),
	}, nil
}

// HandleRefresh rebuilds every index and waits for the outcome.
func (s *Service) HandleRefresh(ctx context.Context) (RefreshResult, error) {
	err := s.group.Refresh(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return RefreshResult{}, err
	}

	var out RefreshResult
	if p := s.group.Primary(); p != nil {
		out.Items = p.Index().Current().Len()
	}
	if err != nil {
		out.Error = err.Error()
	}
	out.Text = bot.Reply{Kind: bot.ReplyRefreshDone, Items: out.Items, Err: err}.Text()
	return out, nil
}

// GetStatus reports every index.
func (s *Service) GetStatus() StatusResult {
	st := StatusResult{Platforms: s.platforms, Indexes: s.group.Status()}
	if m := s.resolver.Metrics(); m != nil {
		st.Lookups = m.Snapshot()
	}
	return st
}
