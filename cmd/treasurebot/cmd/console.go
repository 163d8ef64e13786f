package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/console"
)

func newConsoleCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Chat with the bot in the terminal",
		Long: `Open an interactive chat window backed by a bot core built in this
process. Type commands exactly as in chat (!find lucky cat, !status,
!refresh). You are the owner, so !refresh works.

Logs go to the log file only while the window is open.`,
		Annotations: map[string]string{annotationLogMode: logModeFile},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireFor(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			a.group.Start(ctx)
			defer a.group.Stop()

			go func() { _ = a.watch(ctx) }()

			return console.New(a.router, console.Config{
				User:    user,
				NoColor: noColor,
				Input:   cmd.InOrStdin(),
				Output:  cmd.OutOrStdout(),
			}).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Name shown for your lines (default: $USER)")

	return cmd
}
