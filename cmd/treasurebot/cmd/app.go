package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/chat"
	"github.com/Aman-CERP/treasurebot/internal/chat/discord"
	"github.com/Aman-CERP/treasurebot/internal/chat/twitch"
	"github.com/Aman-CERP/treasurebot/internal/config"
	"github.com/Aman-CERP/treasurebot/internal/cooldown"
	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
	"github.com/Aman-CERP/treasurebot/internal/source/csvdir"
	"github.com/Aman-CERP/treasurebot/internal/source/sheets"
	"github.com/Aman-CERP/treasurebot/internal/source/villagers"
	"github.com/Aman-CERP/treasurebot/internal/telemetry"
	"github.com/Aman-CERP/treasurebot/internal/watcher"
)

// Index names shown in status output.
const (
	itemsIndexName     = "items"
	villagersIndexName = "villagers"
)

// app is the bot core assembled from configuration: one scheduler per
// index, the resolver over them and the command router.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	items     *refresh.Scheduler
	villagers *refresh.Scheduler
	directory *villagers.Directory

	group    *refresh.Group
	resolver *resolve.Resolver
	router   *bot.Router
}

// newApp builds the core. Nothing is fetched until the schedulers start
// or are refreshed.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &app{cfg: cfg, logger: logger}

	builder := index.NewBuilder(index.WithLogger(logger))
	schedCfg := refresh.Config{
		Interval: cfg.RefreshInterval(),
		Timeout:  cfg.RefreshTimeout(),
		Logger:   logger,
	}

	var providers []index.Provider
	if cfg.HasWorkbook() {
		wb, err := sheets.New(ctx, sheets.Config{
			WorkbookID:      cfg.Sheets.WorkbookID,
			WorkbookName:    cfg.Sheets.WorkbookName,
			CredentialsFile: cfg.Sheets.CredentialsFile,
			Exclude:         cfg.Sheets.Exclude,
			Throttle:        cfg.SheetsThrottle(),
			Endpoint:        cfg.Sheets.Endpoint,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, wb)
	}
	if cfg.CSV.Dir != "" {
		providers = append(providers, csvdir.New(csvdir.Config{
			Path:    cfg.CSV.Dir,
			Exclude: cfg.CSV.Exclude,
			Logger:  logger,
		}))
	}
	a.items = refresh.New(index.New(itemsIndexName), builder, providers, schedCfg)

	var secondary []*index.Index
	if cfg.Villagers.Root != "" {
		a.directory = villagers.New(villagers.Config{
			Root:          cfg.Villagers.Root,
			MarkerFile:    cfg.Villagers.MarkerFile,
			MaxNameLength: cfg.Villagers.MaxNameLength,
			Throttle:      cfg.VillagersThrottle(),
			Logger:        logger,
		})
		a.villagers = refresh.New(index.New(villagersIndexName), builder, []index.Provider{a.directory}, schedCfg)
		secondary = append(secondary, a.villagers.Index())
	}

	a.group = refresh.NewGroup(a.items, a.villagers)
	a.resolver = resolve.New(resolve.Options{
		Limit:     cfg.Lookup.Limit,
		MinScore:  cfg.Lookup.MinScore,
		CacheSize: cfg.Lookup.CacheSize,
		Metrics:   telemetry.New(),
	}, a.items.Index(), secondary...)
	a.router = bot.NewRouter(a.resolver, a.group, bot.Options{
		Prefix:   cfg.Bot.Prefix,
		Owners:   cfg.Bot.Owners,
		Cooldown: cooldown.New(cfg.CooldownDuration(), 0),
		Logger:   logger,
	})
	return a, nil
}

// service exposes the core to the control socket and MCP.
func (a *app) service(platforms ...string) *daemon.Service {
	return daemon.NewService(a.resolver, a.group, a.cfg.Bot.Prefix, platforms...)
}

// load runs one synchronous build of every index. A failed build is
// logged; the resolver then reports the index as loading or serves
// whatever the other indexes hold.
func (a *app) load(ctx context.Context) {
	if err := a.group.Refresh(ctx); err != nil {
		a.logger.Warn("initial load incomplete", slog.String("error", err.Error()))
	}
}

// connectors creates the chat connectors for platforms.
func (a *app) connectors(platforms []string) ([]chat.Connector, error) {
	var out []chat.Connector
	for _, p := range platforms {
		switch p {
		case config.PlatformTwitch:
			c, err := twitch.New(twitch.Config{
				Address: a.cfg.Twitch.Address,
				Token:   a.cfg.Twitch.Token,
				Channel: a.cfg.Twitch.Channel,
				Nick:    a.cfg.Twitch.Nick,
				Logger:  a.logger,
			}, a.router)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		case config.PlatformDiscord:
			c, err := discord.New(discord.Config{
				Token:      a.cfg.Discord.Token,
				StatusText: a.cfg.Discord.StatusText,
				Logger:     a.logger,
			}, a.router)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		default:
			return nil, fmt.Errorf("unknown platform %q", p)
		}
	}
	return out, nil
}

// watch refreshes the villager index when marker files change under the
// villager root. It returns when ctx ends. A watcher that cannot start is
// logged and the bot keeps running on the periodic reload.
func (a *app) watch(ctx context.Context) error {
	if a.directory == nil || !a.cfg.Villagers.Watch {
		return nil
	}

	w, err := watcher.New(watcher.Options{DebounceWindow: a.cfg.VillagersDebounce()}, a.logger)
	if err != nil {
		a.logger.Warn("villager watch disabled", slog.String("error", err.Error()))
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Trigger(ctx, w, a.villagers, watcher.MarkerFilter(a.directory.MarkerFile()), a.logger)
	}()

	err = w.Start(ctx, a.directory.Root())
	w.Stop()
	<-done
	if err != nil && ctx.Err() == nil {
		a.logger.Warn("villager watch stopped",
			slog.String("root", a.directory.Root()),
			slog.String("error", err.Error()))
	}
	return nil
}

// defaultPlatforms returns every platform that has a token configured.
func defaultPlatforms(cfg *config.Config) []string {
	var out []string
	if cfg.Twitch.Token != "" {
		out = append(out, config.PlatformTwitch)
	}
	if cfg.Discord.Token != "" {
		out = append(out, config.PlatformDiscord)
	}
	return out
}
