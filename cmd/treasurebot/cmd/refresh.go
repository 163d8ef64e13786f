package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/output"
)

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload every index of the running bot",
		Long: `Ask the running bot to rebuild its indexes now, like an owner typing
!refresh in chat. The command waits for the rebuild. An index that fails
to rebuild keeps its previous data.`,
		Annotations: map[string]string{annotationLogMode: logModeFile},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			client := daemon.NewClient(daemon.FromConfig(cfg))
			if !client.IsRunning() {
				return boterrors.New(boterrors.ErrCodeControlSocket, "treasurebot is not running", nil).
					WithSuggestion("Start it with 'treasurebot serve'")
			}

			out := output.New(cmd.OutOrStdout(), noColor)
			out.Status("🔄", "Refreshing...")
			res, err := client.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if res.Error != "" {
				out.Warningf("Refresh failed, kept %d items: %s", res.Items, res.Error)
				return nil
			}
			out.Successf("Refresh complete. %d items loaded.", res.Items)
			return nil
		},
	}
}
