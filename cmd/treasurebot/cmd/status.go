package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running bot and its indexes",
		Long: `Show whether the bot is running, which platforms it joined and, for every
index, its state, item count, sources and last update.`,
		Annotations: map[string]string{annotationLogMode: logModeFile},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			st := &daemon.StatusResult{}
			client := daemon.NewClient(daemon.FromConfig(cfg))
			if client.IsRunning() {
				st, err = client.Status(cmd.Context())
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			renderer := ui.NewStatusRenderer(out, !ui.UseColor(out, noColor))
			if jsonOutput {
				return renderer.RenderJSON(st)
			}
			return renderer.Render(st)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return cmd
}
