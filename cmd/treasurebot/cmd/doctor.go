package cmd

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/treasurebot/internal/config"
	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
	"github.com/Aman-CERP/treasurebot/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		platforms  []string
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration and diagnose issues",
		Long: `Check that the bot can start with the current configuration.

Checks:
  - Configuration loads and names at least one location source
  - Google service account key (when a workbook is configured)
  - Villager root and CSV directory are readable
  - Chat platform tokens and channels
  - Write permissions, disk space and file descriptor limits

Disk space and file descriptor checks are warnings only.

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  treasurebot doctor

  # Check only what Discord needs
  treasurebot doctor --platform discord

  # JSON output for scripting
  treasurebot doctor --json`,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, platforms, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "Platforms to check (default: every platform with a token)")

	return cmd
}

func runDoctor(cmd *cobra.Command, platforms []string, verbose, jsonOutput bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A broken config is a finding, not a reason to stop checking.
	var results []preflight.CheckResult
	cfg, cfgErr := loadDoctorConfig()
	results = append(results, configResult(cfgErr))

	opts := []preflight.Option{
		preflight.WithVerbose(verbose),
		preflight.WithNoColor(noColor),
		preflight.WithOutput(cmd.OutOrStdout()),
	}
	if len(platforms) > 0 {
		opts = append(opts, preflight.WithPlatforms(platforms...))
	}
	checker := preflight.New(cfg, opts...)
	results = append(results, checker.RunAll(ctx)...)

	if jsonOutput {
		if err := outputDoctorJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return boterrors.New(boterrors.ErrCodeConfigInvalid, "system check failed", nil).
			WithSuggestion("Fix the errors listed above and run 'treasurebot doctor' again")
	}
	return nil
}

// loadDoctorConfig loads the configuration the way the persistent hook does.
func loadDoctorConfig() (*config.Config, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Load(dir, configPath)
}

func configResult(err error) preflight.CheckResult {
	result := preflight.CheckResult{Name: "config", Required: true, Status: preflight.StatusPass, Message: "loaded"}
	if err != nil {
		result.Status = preflight.StatusFail
		result.Message = "cannot load configuration"
		result.Details = err.Error()
	}
	return result
}

// doctorReport is the JSON form of a doctor run.
type doctorReport struct {
	Status   string                  `json:"status"`
	Checks   []preflight.CheckResult `json:"checks"`
	Warnings []string                `json:"warnings,omitempty"`
	Errors   []string                `json:"errors,omitempty"`
}

func outputDoctorJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	report := doctorReport{
		Status: checker.SummaryStatus(results),
		Checks: results,
	}
	for _, r := range results {
		if r.IsCritical() {
			report.Errors = append(report.Errors, r.Name+": "+r.Message)
		} else if r.Status == preflight.StatusWarn {
			report.Warnings = append(report.Warnings, r.Name+": "+r.Message)
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
