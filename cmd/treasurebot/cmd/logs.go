package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/config"
	"github.com/Aman-CERP/treasurebot/internal/logging"
	"github.com/Aman-CERP/treasurebot/internal/ui"
)

type logsOptions struct {
	follow   bool
	lines    int
	level    string
	filter   string
	chatOnly bool
	logFile  string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the bot log",
		Long: `View and tail the bot log.

By default, shows the last 50 lines of the configured log file. Use -f to
follow new entries in real time (like 'tail -f').`,
		Example: `  treasurebot logs                 # Show last 50 lines
  treasurebot logs -n 200          # Show last 200 lines
  treasurebot logs -f              # Follow logs in real time
  treasurebot logs --chat          # Only [CHAT] lines
  treasurebot logs --level warn    # Warnings and errors
  treasurebot logs --filter "luck" # Filter by pattern`,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by keyword/pattern (regex)")
	cmd.Flags().BoolVar(&opts.chatOnly, "chat", false, "Show only chat traffic")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file (default: logging.file from config)")

	return cmd
}

func runLogs(ctx context.Context, out, errOut io.Writer, opts logsOptions) error {
	explicit := opts.logFile
	if explicit == "" {
		explicit = configuredLogFile()
	}
	path, err := logging.FindLogFile(explicit)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:    opts.level,
		Pattern:  pattern,
		ChatOnly: opts.chatOnly,
		NoColor:  !ui.UseColor(out, noColor),
	}, out)

	_, _ = fmt.Fprintf(errOut, "Log file: %s\n", path)
	if opts.follow {
		_, _ = fmt.Fprintln(errOut, "Following... (Ctrl+C to stop)")
	}
	_, _ = fmt.Fprintln(errOut, "---")

	if opts.follow {
		return runFollow(ctx, out, errOut, viewer, path)
	}

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)
	return nil
}

func runFollow(ctx context.Context, out, errOut io.Writer, viewer *logging.Viewer, path string) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	entries := make(chan logging.Entry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			_, _ = fmt.Fprintln(out, viewer.Format(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			_, _ = fmt.Fprintln(errOut, "\n---")
			_, _ = fmt.Fprintln(errOut, "Stopped.")
			return nil
		}
	}
}

// configuredLogFile returns logging.file from the configuration, or ""
// when it cannot be loaded. Viewing logs must work with a broken config.
func configuredLogFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	cfg, err := config.Load(dir, configPath)
	if err != nil {
		return ""
	}
	return cfg.Logging.File
}
