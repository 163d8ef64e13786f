package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/treasurebot/internal/config"
	"github.com/Aman-CERP/treasurebot/internal/output"
)

// projectConfigName is the file config init writes and config.Load finds.
const projectConfigName = "treasurebot.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage TreasureBot configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/treasurebot/config.yaml)
  3. Project config (./treasurebot.yaml or --config)
  4. .env next to the project config
  5. Environment variables (DISCORD_TOKEN, TWITCH_TOKEN, WORKBOOK_NAME, ...)`,
		Example: `  # Write treasurebot.yaml with every default
  treasurebot config init

  # Show effective configuration (secrets redacted)
  treasurebot config show

  # Print user config file path
  treasurebot config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with every default",
		Long: `Write treasurebot.yaml in the current directory, or the user
configuration file with --user, filled with the default values.

Tokens are better kept in the environment or a .env file next to the
config than in the YAML itself.`,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := projectConfigName
			if user {
				path = config.GetUserConfigPath()
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file (a .bak copy is kept)")
	cmd.Flags().BoolVar(&user, "user", false, "Write the user configuration instead of ./treasurebot.yaml")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging every source. Tokens are
replaced by "***".`,
		Annotations: map[string]string{annotationLogMode: logModeFile},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			return runConfigShow(cmd, redacted(cfg), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print user config file path",
		Long:        `Print the path to the user configuration file.`,
		Annotations: map[string]string{annotationNoConfig: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout(), noColor)

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.Statusf("📁", "Location: %s", path)
		out.Newline()
		out.Status("💡", "Use --force to overwrite it with the defaults")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Set sheets.workbook_name (or villagers.root, csv.dir)")
	out.Status("", "  2. Put DISCORD_TOKEN / TWITCH_TOKEN in .env")
	out.Status("", "  3. Run 'treasurebot serve'")
	return nil
}

func runConfigShow(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	w := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// redacted returns a copy of cfg with secrets masked.
func redacted(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Twitch.Token != "" {
		c.Twitch.Token = "***"
	}
	if c.Discord.Token != "" {
		c.Discord.Token = "***"
	}
	return &c
}
