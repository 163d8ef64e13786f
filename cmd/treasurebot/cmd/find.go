package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
	"github.com/Aman-CERP/treasurebot/internal/ui"
)

func newFindCmd() *cobra.Command {
	var (
		local      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "find <item name>",
		Aliases: []string{"locate", "where"},
		Short:   "Look up where an item can be found",
		Long: `Look up an item the same way !find does in chat.

The running bot answers when there is one. Otherwise, or with --local, the
indexes are built in this process first, which can take a while for a
large workbook.`,
		Example: `  treasurebot find lucky cat
  treasurebot find "wand" --json
  treasurebot find luky cat --local`,
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{annotationLogMode: logModeFile},
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			res, err := find(cmd.Context(), query, local)
			if err != nil {
				return err
			}
			return renderFind(cmd.OutOrStdout(), res, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Build the indexes in this process instead of asking the running bot")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the result as JSON")

	return cmd
}

func find(ctx context.Context, query string, local bool) (*daemon.FindResult, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}
	params := daemon.FindParams{Query: query}
	if err := params.Validate(); err != nil {
		return nil, resolve.ErrEmptyQuery
	}

	if !local {
		client := daemon.NewClient(daemon.FromConfig(cfg))
		if client.IsRunning() {
			return client.Find(ctx, query)
		}
		logger.Debug("bot not running, building indexes locally")
	}
	if err := cfg.RequireFor(); err != nil {
		return nil, err
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer a.group.Stop()
	a.load(ctx)

	res, err := a.service().HandleFind(ctx, params)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func renderFind(out io.Writer, res *daemon.FindResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return nil
	}
	return ui.NewResultRenderer(out, !ui.UseColor(out, noColor)).Render(res)
}
