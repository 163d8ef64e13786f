// Package cmd provides the CLI commands for TreasureBot.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/config"
	"github.com/Aman-CERP/treasurebot/internal/logging"
	"github.com/Aman-CERP/treasurebot/internal/profiling"
	"github.com/Aman-CERP/treasurebot/pkg/version"
)

// Command annotations read by the persistent hooks.
const (
	// annotationNoConfig skips config loading and logging setup.
	annotationNoConfig = "treasurebot/no-config"

	// annotationLogMode selects where logs go. See the logMode constants.
	annotationLogMode = "treasurebot/log-mode"

	// logModeServe logs to the file and, when configured, to stderr.
	logModeServe = "serve"
	// logModeFile logs to the file only. Used by commands that own the
	// terminal or stdio, and by one-shot commands whose stderr is for humans.
	logModeFile = "file"
)

// Root flags
var (
	debugMode  bool
	configPath string
	noColor    bool
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
)

// State set up by the persistent pre-run hook.
var (
	loadedConfig   *config.Config
	logger         = slog.Default()
	loggingCleanup func()
	profile        *profiling.Session
)

// NewRootCmd creates the root command for the treasurebot CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treasurebot",
		Short: "Answer \"where do I find item X\" in your community chat",
		Long: `TreasureBot indexes a spreadsheet workbook, villager directories and CSV
files into an in-memory lookup table and answers !find queries on Twitch
and Discord.

Start the bot with 'treasurebot serve'. While it runs, 'treasurebot find',
'status' and 'refresh' talk to it over a local control socket.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("treasurebot version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a treasurebot.yaml config file")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFindCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRefreshCmd())
	cmd.AddCommand(newConsoleCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts the requested profiles, then loads the
// configuration and installs the logger unless the command opts out.
func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	opts := profiling.Options{CPU: profileCPU, Heap: profileMem, Trace: profileTrace}
	if opts.Enabled() {
		s, err := profiling.Start(opts)
		if err != nil {
			return err
		}
		profile = s
	}
	return loadConfigAndLogging(cmd, args)
}

// loadConfigAndLogging loads the configuration and installs the logger
// unless the command opts out.
func loadConfigAndLogging(cmd *cobra.Command, _ []string) error {
	if cmd.Annotations[annotationNoConfig] == "true" {
		return nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	cfg, err := config.Load(dir, configPath)
	if err != nil {
		return err
	}
	loadedConfig = cfg

	logCfg := logging.Config{
		Level:         cfg.Logging.Level,
		FilePath:      cfg.Logging.File,
		MaxSizeMB:     cfg.Logging.MaxSizeMB,
		MaxFiles:      cfg.Logging.MaxFiles,
		WriteToStderr: cfg.Logging.Stderr && cmd.Annotations[annotationLogMode] == logModeServe,
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	var cleanup func()
	if cmd.Annotations[annotationLogMode] == logModeServe {
		var l *slog.Logger
		l, cleanup, err = logging.Setup(logCfg)
		if err == nil {
			slog.SetDefault(l)
		}
	} else {
		cleanup, err = logging.SetupStdioSafe(logCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	logger = slog.Default()

	logger.Debug("config loaded",
		slog.String("command", cmd.CommandPath()),
		slog.String("version", version.Version))
	return nil
}

// stopProfilingAndLogging writes the profiles and closes the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := profile.Stop()
	profile = nil
	if err != nil {
		err = fmt.Errorf("failed to write profiles: %w", err)
	}

	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// requireConfig returns the loaded configuration.
func requireConfig() (*config.Config, error) {
	if loadedConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return loadedConfig, nil
}
