package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve find_item, index_status and refresh_index over MCP stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools are answered by the running bot when there is one. Otherwise, or
with --local, a bot core is built in this process and kept fresh for the
life of the server.

stdout carries only JSON-RPC; logs go to the log file.`,
		Example: `  # MCP client configuration
  {"command": "treasurebot", "args": ["mcp"]}`,
		Annotations: map[string]string{annotationLogMode: logModeFile},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), local)
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Always build the indexes in this process")

	return cmd
}

func runMCP(ctx context.Context, local bool) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var backend mcp.Backend
	client := daemon.NewClient(daemon.FromConfig(cfg))
	if !local && client.IsRunning() {
		logger.Info("MCP answering through the running bot")
		backend = client
	} else {
		if err := cfg.RequireFor(); err != nil {
			return err
		}
		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		a.group.Start(ctx)
		defer a.group.Stop()
		go func() { _ = a.watch(ctx) }()

		logger.Info("MCP answering from a local index", slog.Bool("forced", local))
		backend = mcp.Local(a.service())
	}

	srv, err := mcp.NewServer(backend, logger)
	if err != nil {
		return err
	}
	if err := srv.Serve(ctx, "stdio"); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
