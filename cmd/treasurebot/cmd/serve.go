package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/httpapi"
	"github.com/Aman-CERP/treasurebot/pkg/version"
)

func newServeCmd() *cobra.Command {
	var platforms []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot",
		Long: `Run the bot: load the indexes, keep them fresh and answer chat commands.

Without --platform the bot joins every platform that has a token
configured (TWITCH_TOKEN, DISCORD_TOKEN). With no platform at all it still
serves the control socket and, when http.addr is set, the HTTP API.

Only one bot runs per lock file. Stop it with Ctrl+C or SIGTERM.`,
		Example: `  # Join every configured platform
  treasurebot serve

  # Discord only
  treasurebot serve --platform discord`,
		Annotations: map[string]string{annotationLogMode: logModeServe},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("platform") {
				platforms = defaultPlatforms(cfg)
			}
			return runServe(cmd.Context(), platforms)
		},
	}

	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "Chat platforms to join: twitch, discord")

	return cmd
}

func runServe(ctx context.Context, platforms []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireFor(platforms...); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dcfg := daemon.FromConfig(cfg)
	if err := dcfg.EnsureDir(); err != nil {
		return err
	}
	lock := daemon.NewInstanceLock(dcfg.LockPath)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	connectors, err := a.connectors(platforms)
	if err != nil {
		return err
	}

	logger.Info("TreasureBot starting",
		slog.String("version", version.Version),
		slog.String("platforms", strings.Join(platforms, ",")),
		slog.Int("pid", os.Getpid()))
	if len(connectors) == 0 {
		logger.Warn("no chat platform configured; serving the control socket only")
	}

	a.group.Start(ctx)
	defer a.group.Stop()

	g, gctx := errgroup.WithContext(ctx)

	srv := daemon.NewServer(dcfg, a.service(platforms...), logger)
	g.Go(func() error {
		return ignoreCanceled(srv.ListenAndServe(gctx))
	})

	if cfg.HTTP.Addr != "" {
		api := httpapi.New(a.resolver, a.group, cfg.Bot.Prefix, logger)
		g.Go(func() error {
			return ignoreCanceled(api.ListenAndServe(gctx, cfg.HTTP.Addr))
		})
	}

	g.Go(func() error { return a.watch(gctx) })

	for _, c := range connectors {
		g.Go(func() error {
			err := c.Start(gctx)
			if gctx.Err() != nil {
				return nil
			}
			if err == nil {
				err = fmt.Errorf("%s connector stopped", c.Name())
			}
			logger.Error("connector failed", slog.String("platform", c.Name()), slog.String("error", err.Error()))
			return err
		})
	}

	err = g.Wait()
	logger.Info("TreasureBot stopped")
	return err
}

// ignoreCanceled maps the error a server returns on shutdown to nil.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
