package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// isolate points the user config at an empty dir and clears every
// environment variable Load reads.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"TWITCH_TOKEN", "TWITCH_CHANNEL", "TWITCH_NICK", "DISCORD_TOKEN",
		"WORKBOOK_NAME", "WORKBOOK_ID", "GOOGLE_CREDENTIALS_FILE", "VILLAGERS_ROOT",
		"TREASUREBOT_CSV_DIR", "TREASUREBOT_REFRESH_INTERVAL", "TREASUREBOT_COOLDOWN",
		"TREASUREBOT_SOCKET", "TREASUREBOT_HTTP_ADDR", "TREASUREBOT_LOG_LEVEL",
		"TREASUREBOT_LOG_FILE", "TREASUREBOT_OWNERS", "TREASUREBOT_MIN_SCORE",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: defaults match the bot's documented behaviour
	assert.Equal(t, "!", cfg.Bot.Prefix)
	assert.Equal(t, 3*time.Second, cfg.CooldownDuration())
	assert.Equal(t, time.Hour, cfg.RefreshInterval())
	assert.Equal(t, time.Second, cfg.SheetsThrottle())
	assert.Equal(t, time.Duration(0), cfg.VillagersThrottle())
	assert.Equal(t, []string{"ACNH_Items"}, cfg.Sheets.Exclude)
	assert.Equal(t, "villagers.txt", cfg.Villagers.MarkerFile)
	assert.Equal(t, 30, cfg.Villagers.MaxNameLength)
	assert.Equal(t, 5, cfg.Lookup.Limit)
	assert.Equal(t, 75, cfg.Lookup.MinScore)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.HTTP.Addr)
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Layering
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	// When: loading from an empty directory
	cfg, err := Load(t.TempDir(), "")

	// Then: defaults are returned
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Lookup, cfg.Lookup)
}

func TestLoad_ProjectYaml_OverridesDefaults(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), `
bot:
  prefix: "?"
  owners: ["discord:42"]
sheets:
  workbook_name: Treasure Hunt
  exclude: [Index, Notes]
lookup:
  limit: 3
`)

	// When: loading configuration
	cfg, err := Load(dir, "")

	// Then: file values win and untouched fields keep defaults
	require.NoError(t, err)
	assert.Equal(t, "?", cfg.Bot.Prefix)
	assert.Equal(t, []string{"discord:42"}, cfg.Bot.Owners)
	assert.Equal(t, "Treasure Hunt", cfg.Sheets.WorkbookName)
	assert.Equal(t, []string{"Index", "Notes"}, cfg.Sheets.Exclude)
	assert.Equal(t, 3, cfg.Lookup.Limit)
	assert.Equal(t, 75, cfg.Lookup.MinScore)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yml"), "twitch:\n  channel: harv\n")

	cfg, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, "harv", cfg.Twitch.Channel)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: both user and project configs exist
	isolate(t)
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	writeFile(t, filepath.Join(xdg, "treasurebot", "config.yaml"), `
twitch:
  channel: user-channel
  nick: user-nick
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "twitch:\n  channel: project-channel\n")

	// When: loading configuration
	cfg, err := Load(dir, "")

	// Then: project config takes precedence
	require.NoError(t, err)
	assert.Equal(t, "project-channel", cfg.Twitch.Channel)
	// And: user values not set by the project survive
	assert.Equal(t, "user-nick", cfg.Twitch.Nick)
}

func TestLoad_ExplicitPath_MustExist(t *testing.T) {
	isolate(t)

	_, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.yaml"))

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeConfigMissing, boterrors.GetCode(err))
}

func TestLoad_ExplicitPath_ReplacesProjectLookup(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "bot:\n  prefix: \"?\"\n")
	explicit := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, explicit, "bot:\n  prefix: \"$\"\n")

	cfg, err := Load(dir, explicit)

	require.NoError(t, err)
	assert.Equal(t, "$", cfg.Bot.Prefix)
}

func TestLoad_InvalidYaml_ReturnsConfigError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "bot: [unclosed\n")

	_, err := Load(dir, "")

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeConfigInvalid, boterrors.GetCode(err))
	assert.True(t, boterrors.IsFatal(err))
}

func TestLoad_UnknownKey_IsRejected(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "bot:\n  prefx: \"?\"\n")

	_, err := Load(dir, "")

	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeConfigInvalid, boterrors.GetCode(err))
}

func TestLoad_EmptyFile_IsAccepted(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "")

	_, err := Load(dir, "")

	assert.NoError(t, err)
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	isolate(t)
	t.Setenv("MY_DISCORD_SECRET", "secret-token")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "discord:\n  token: ${MY_DISCORD_SECRET}\n")

	cfg, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Discord.Token)
}

// =============================================================================
// Environment and dotenv
// =============================================================================

func TestLoad_EnvVarsOverrideFile(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "treasurebot.yaml"), "twitch:\n  channel: from-file\n")
	t.Setenv("TWITCH_CHANNEL", "from-env")
	t.Setenv("TWITCH_TOKEN", "abc")
	t.Setenv("WORKBOOK_NAME", "Hunt")
	t.Setenv("TREASUREBOT_OWNERS", "discord:1, twitch:harv ,")
	t.Setenv("TREASUREBOT_LOG_LEVEL", "debug")

	cfg, err := Load(dir, "")

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Twitch.Channel)
	assert.Equal(t, "abc", cfg.Twitch.Token)
	assert.Equal(t, "Hunt", cfg.Sheets.WorkbookName)
	assert.Equal(t, []string{"discord:1", "twitch:harv"}, cfg.Bot.Owners)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DotEnvFillsUnsetVariables(t *testing.T) {
	// Given: a .env file and one variable also set in the process env
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), `
# credentials
DISCORD_TOKEN="dotenv-token"
export TWITCH_CHANNEL=dotenv-channel
`)
	t.Setenv("TWITCH_CHANNEL", "process-channel")

	// When: loading configuration
	cfg, err := Load(dir, "")

	// Then: .env fills gaps but the process env wins
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Discord.Token)
	assert.Equal(t, "process-channel", cfg.Twitch.Channel)
}

func TestLoadDotEnv_MissingFile_ReturnsEmpty(t *testing.T) {
	vals, err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"))

	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestLoadDotEnv_ParsesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	writeFile(t, path, "A=1\n\n# comment\nB = 'two words'\nnot-a-pair\nC=x=y\n")

	vals, err := LoadDotEnv(path)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "two words", "C": "x=y"}, vals)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad cooldown", func(c *Config) { c.Bot.Cooldown = "soon" }},
		{"negative throttle", func(c *Config) { c.Sheets.Throttle = "-1s" }},
		{"refresh too fast", func(c *Config) { c.Refresh.Interval = "10s" }},
		{"empty prefix", func(c *Config) { c.Bot.Prefix = "" }},
		{"zero limit", func(c *Config) { c.Lookup.Limit = 0 }},
		{"score above 100", func(c *Config) { c.Lookup.MinScore = 101 }},
		{"malformed owner", func(c *Config) { c.Bot.Owners = []string{"harv"} }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Equal(t, boterrors.ErrCodeConfigInvalid, boterrors.GetCode(err))
		})
	}
}

func TestValidate_ZeroIntervalDisablesPeriodicRefresh(t *testing.T) {
	cfg := NewConfig()
	cfg.Refresh.Interval = "0s"

	assert.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), cfg.RefreshInterval())
}

func TestRequireFor_ListsEveryMissingKey(t *testing.T) {
	// Given: a config with no sources and no credentials
	cfg := NewConfig()

	// When: requiring both platforms
	err := cfg.RequireFor(PlatformTwitch, PlatformDiscord)

	// Then: a fatal missing-config error names each key
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrCodeConfigMissing, boterrors.GetCode(err))
	assert.True(t, boterrors.IsFatal(err))
	for _, key := range []string{"WORKBOOK_NAME", "TWITCH_TOKEN", "TWITCH_CHANNEL", "DISCORD_TOKEN"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestRequireFor_SatisfiedConfig(t *testing.T) {
	cfg := NewConfig()
	cfg.Villagers.Root = "/srv/villagers"
	cfg.Discord.Token = "tok"

	assert.NoError(t, cfg.RequireFor(PlatformDiscord))
}

func TestRequireFor_UnknownPlatform(t *testing.T) {
	cfg := NewConfig()
	cfg.CSV.Dir = "/data"

	err := cfg.RequireFor("irc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown platform")
}

func TestIsOwner_CaseInsensitive(t *testing.T) {
	cfg := NewConfig()
	cfg.Bot.Owners = []string{"twitch:HarvBroadcasts", "discord:123"}

	assert.True(t, cfg.IsOwner("twitch", "harvbroadcasts"))
	assert.True(t, cfg.IsOwner("discord", "123"))
	assert.False(t, cfg.IsOwner("discord", "124"))
	assert.False(t, cfg.IsOwner("twitch", "123"))
}

// =============================================================================
// Paths and writing
// =============================================================================

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	assert.Equal(t, filepath.Join(xdg, "treasurebot", "config.yaml"), GetUserConfigPath())
}

func TestWriteYAML_RoundTripsAndBacksUp(t *testing.T) {
	// Given: an existing config file
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "treasurebot.yaml")
	writeFile(t, path, "bot:\n  prefix: \"?\"\n")

	cfg := NewConfig()
	cfg.Sheets.WorkbookName = "Hunt"

	// When: writing the new config over it
	require.NoError(t, cfg.WriteYAML(path))

	// Then: the old file is kept as .bak
	old, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Contains(t, string(old), `prefix: "?"`)

	// And: the written file loads back
	loaded, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "Hunt", loaded.Sheets.WorkbookName)
	assert.Equal(t, "!", loaded.Bot.Prefix)
}
