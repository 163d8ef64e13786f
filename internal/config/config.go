// Package config loads TreasureBot configuration.
//
// Values are layered in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/treasurebot/config.yaml)
//  3. Project config (treasurebot.yaml or an explicit --config path)
//  4. A .env file next to the project config
//  5. Process environment variables
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	boterrors "github.com/Aman-CERP/treasurebot/internal/errors"
)

// Platform names accepted by RequireFor and the serve command.
const (
	PlatformTwitch  = "twitch"
	PlatformDiscord = "discord"
)

// Config represents the complete TreasureBot configuration.
type Config struct {
	Bot       BotConfig       `yaml:"bot" json:"bot"`
	Sheets    SheetsConfig    `yaml:"sheets" json:"sheets"`
	Villagers VillagersConfig `yaml:"villagers" json:"villagers"`
	CSV       CSVConfig       `yaml:"csv" json:"csv"`
	Refresh   RefreshConfig   `yaml:"refresh" json:"refresh"`
	Lookup    LookupConfig    `yaml:"lookup" json:"lookup"`
	Twitch    TwitchConfig    `yaml:"twitch" json:"twitch"`
	Discord   DiscordConfig   `yaml:"discord" json:"discord"`
	Control   ControlConfig   `yaml:"control" json:"control"`
	HTTP      HTTPConfig      `yaml:"http" json:"http"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// BotConfig configures command handling shared by every platform.
type BotConfig struct {
	Name   string `yaml:"name" json:"name"`
	Prefix string `yaml:"prefix" json:"prefix"`
	// Owners lists "platform:user" identities allowed to run !refresh,
	// e.g. "discord:123456789" or "twitch:harvbroadcasts".
	Owners   []string `yaml:"owners" json:"owners"`
	Cooldown string   `yaml:"cooldown" json:"cooldown"`
}

// SheetsConfig configures the Google Sheets workbook source.
type SheetsConfig struct {
	// WorkbookName is resolved to an ID through Drive when WorkbookID is empty.
	WorkbookName    string   `yaml:"workbook_name" json:"workbook_name"`
	WorkbookID      string   `yaml:"workbook_id" json:"workbook_id"`
	CredentialsFile string   `yaml:"credentials_file" json:"credentials_file"`
	Exclude         []string `yaml:"exclude" json:"exclude"`
	Throttle        string   `yaml:"throttle" json:"throttle"`
	// Endpoint overrides the API base URL. Used for tests and proxies.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// VillagersConfig configures the villager directory source.
type VillagersConfig struct {
	Root          string `yaml:"root" json:"root"`
	MarkerFile    string `yaml:"marker_file" json:"marker_file"`
	MaxNameLength int    `yaml:"max_name_length" json:"max_name_length"`
	Throttle      string `yaml:"throttle" json:"throttle"`
	Watch         bool   `yaml:"watch" json:"watch"`
	Debounce      string `yaml:"debounce" json:"debounce"`
}

// CSVConfig configures the CSV directory source.
type CSVConfig struct {
	Dir     string   `yaml:"dir" json:"dir"`
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// RefreshConfig configures the refresh schedulers.
type RefreshConfig struct {
	Interval string `yaml:"interval" json:"interval"`
	Timeout  string `yaml:"timeout" json:"timeout"`
}

// LookupConfig tunes fuzzy suggestions.
type LookupConfig struct {
	Limit     int `yaml:"limit" json:"limit"`
	MinScore  int `yaml:"min_score" json:"min_score"`
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// TwitchConfig configures the Twitch chat connector.
type TwitchConfig struct {
	Token   string `yaml:"token" json:"-"`
	Channel string `yaml:"channel" json:"channel"`
	Nick    string `yaml:"nick" json:"nick"`
	Address string `yaml:"address" json:"address"`
}

// DiscordConfig configures the Discord connector.
type DiscordConfig struct {
	Token      string `yaml:"token" json:"-"`
	StatusText string `yaml:"status_text" json:"status_text"`
}

// ControlConfig configures the local control socket and instance lock.
type ControlConfig struct {
	SocketPath string `yaml:"socket_path" json:"socket_path"`
	LockPath   string `yaml:"lock_path" json:"lock_path"`
	Timeout    string `yaml:"timeout" json:"timeout"`
}

// HTTPConfig configures the health endpoint. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// NewConfig creates a Config with defaults matching the original bots:
// hourly refresh, 1s between sheets, 3s cooldown, top 5 suggestions above 75.
func NewConfig() *Config {
	dataDir := DataDir()
	return &Config{
		Bot: BotConfig{
			Name:     "TreasureBot",
			Prefix:   "!",
			Cooldown: "3s",
		},
		Sheets: SheetsConfig{
			CredentialsFile: "service_account.json",
			Exclude:         []string{"ACNH_Items"},
			Throttle:        "1s",
		},
		Villagers: VillagersConfig{
			MarkerFile:    "villagers.txt",
			MaxNameLength: 30,
			Throttle:      "0s",
			Watch:         true,
			Debounce:      "2s",
		},
		Refresh: RefreshConfig{
			Interval: "1h",
			Timeout:  "5m",
		},
		Lookup: LookupConfig{
			Limit:     5,
			MinScore:  75,
			CacheSize: 512,
		},
		Twitch: TwitchConfig{
			Address: "irc.chat.twitch.tv:6697",
		},
		Discord: DiscordConfig{
			StatusText: "!help | !find",
		},
		Control: ControlConfig{
			SocketPath: filepath.Join(dataDir, "bot.sock"),
			LockPath:   filepath.Join(dataDir, "bot.lock"),
			Timeout:    "30s",
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(dataDir, "logs", "bot.log"),
			MaxSizeMB: 10,
			MaxFiles:  5,
			Stderr:    true,
		},
	}
}

// DataDir returns ~/.treasurebot, falling back to the temp dir.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".treasurebot")
	}
	return filepath.Join(home, ".treasurebot")
}

// GetUserConfigPath returns the user configuration file, following XDG:
// $XDG_CONFIG_HOME/treasurebot/config.yaml or ~/.config/treasurebot/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "treasurebot", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "treasurebot", "config.yaml")
	}
	return filepath.Join(home, ".config", "treasurebot", "config.yaml")
}

// Load reads configuration for a bot started in dir. explicit, when
// non-empty, replaces the treasurebot.yaml lookup and must exist.
func Load(dir, explicit string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	projectPath, err := findProjectConfig(dir, explicit)
	if err != nil {
		return nil, err
	}
	if projectPath != "" {
		if err := cfg.loadYAML(projectPath); err != nil {
			return nil, err
		}
	}

	envDir := dir
	if projectPath != "" {
		envDir = filepath.Dir(projectPath)
	}
	dotenv, err := LoadDotEnv(filepath.Join(envDir, ".env"))
	if err != nil {
		return nil, boterrors.New(boterrors.ErrCodeConfigUnreadable, err.Error(), err)
	}

	cfg.applyEnvOverrides(func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findProjectConfig(dir, explicit string) (string, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", boterrors.New(boterrors.ErrCodeConfigMissing,
				fmt.Sprintf("config file not found: %s", explicit), nil)
		}
		return explicit, nil
	}
	for _, name := range []string{"treasurebot.yaml", "treasurebot.yml"} {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p, nil
		}
	}
	return "", nil
}

// loadYAML decodes path over the current values. ${VAR} references are
// expanded from the environment and unknown keys are rejected.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return boterrors.New(boterrors.ErrCodeConfigUnreadable,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return boterrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// applyEnvOverrides applies the environment variables the original bots
// used plus TREASUREBOT_* overrides. lookup returns "" for unset keys.
func (c *Config) applyEnvOverrides(lookup func(string) string) {
	set := func(dst *string, key string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}

	set(&c.Twitch.Token, "TWITCH_TOKEN")
	set(&c.Twitch.Channel, "TWITCH_CHANNEL")
	set(&c.Twitch.Nick, "TWITCH_NICK")
	set(&c.Discord.Token, "DISCORD_TOKEN")
	set(&c.Sheets.WorkbookName, "WORKBOOK_NAME")
	set(&c.Sheets.WorkbookID, "WORKBOOK_ID")
	set(&c.Sheets.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	set(&c.Villagers.Root, "VILLAGERS_ROOT")
	set(&c.CSV.Dir, "TREASUREBOT_CSV_DIR")
	set(&c.Refresh.Interval, "TREASUREBOT_REFRESH_INTERVAL")
	set(&c.Bot.Cooldown, "TREASUREBOT_COOLDOWN")
	set(&c.Control.SocketPath, "TREASUREBOT_SOCKET")
	set(&c.HTTP.Addr, "TREASUREBOT_HTTP_ADDR")
	set(&c.Logging.Level, "TREASUREBOT_LOG_LEVEL")
	set(&c.Logging.File, "TREASUREBOT_LOG_FILE")

	if v := lookup("TREASUREBOT_OWNERS"); v != "" {
		c.Bot.Owners = splitList(v)
	}
	if v := lookup("TREASUREBOT_MIN_SCORE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Lookup.MinScore = n
		}
	}
}

// Validate checks value ranges and durations. It does not check that
// platform credentials are present; see RequireFor.
func (c *Config) Validate() error {
	durations := map[string]string{
		"bot.cooldown":       c.Bot.Cooldown,
		"sheets.throttle":    c.Sheets.Throttle,
		"villagers.throttle": c.Villagers.Throttle,
		"villagers.debounce": c.Villagers.Debounce,
		"refresh.interval":   c.Refresh.Interval,
		"refresh.timeout":    c.Refresh.Timeout,
		"control.timeout":    c.Control.Timeout,
	}
	for key, v := range durations {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return boterrors.ConfigError(fmt.Sprintf("%s must be a non-negative duration, got %q", key, v), err)
		}
	}

	if d := mustDuration(c.Refresh.Interval, 0); d > 0 && d < time.Minute {
		return boterrors.ConfigError(fmt.Sprintf("refresh.interval must be at least 1m, got %s", d), nil)
	}
	if c.Bot.Prefix == "" {
		return boterrors.ConfigError("bot.prefix must not be empty", nil)
	}
	if c.Lookup.Limit < 1 {
		return boterrors.ConfigError(fmt.Sprintf("lookup.limit must be positive, got %d", c.Lookup.Limit), nil)
	}
	if c.Lookup.MinScore < 0 || c.Lookup.MinScore > 100 {
		return boterrors.ConfigError(fmt.Sprintf("lookup.min_score must be between 0 and 100, got %d", c.Lookup.MinScore), nil)
	}
	if c.Villagers.MaxNameLength < 0 {
		return boterrors.ConfigError("villagers.max_name_length must be non-negative", nil)
	}
	for _, owner := range c.Bot.Owners {
		if platform, id, ok := strings.Cut(owner, ":"); !ok || platform == "" || id == "" {
			return boterrors.ConfigError(fmt.Sprintf("bot.owners entries must look like platform:user, got %q", owner), nil)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return boterrors.ConfigError(fmt.Sprintf("logging.level must be debug, info, warn or error, got %s", c.Logging.Level), nil)
	}
	return nil
}

// RequireFor reports a fatal ConfigError listing every required key that
// is missing for running the given platforms.
func (c *Config) RequireFor(platforms ...string) error {
	var missing []string

	if !c.HasSources() {
		missing = append(missing, "WORKBOOK_NAME (or WORKBOOK_ID, VILLAGERS_ROOT, csv.dir)")
	}
	if c.HasWorkbook() && c.Sheets.CredentialsFile == "" {
		missing = append(missing, "sheets.credentials_file")
	}

	for _, p := range platforms {
		switch p {
		case PlatformTwitch:
			if c.Twitch.Token == "" {
				missing = append(missing, "TWITCH_TOKEN")
			}
			if c.Twitch.Channel == "" {
				missing = append(missing, "TWITCH_CHANNEL")
			}
		case PlatformDiscord:
			if c.Discord.Token == "" {
				missing = append(missing, "DISCORD_TOKEN")
			}
		default:
			return boterrors.ConfigError(fmt.Sprintf("unknown platform %q (supported: twitch, discord)", p), nil)
		}
	}

	if len(missing) > 0 {
		return boterrors.MissingConfig(missing...)
	}
	return nil
}

// HasWorkbook reports whether a Google Sheets workbook is configured.
func (c *Config) HasWorkbook() bool {
	return c.Sheets.WorkbookName != "" || c.Sheets.WorkbookID != ""
}

// HasSources reports whether any location source is configured.
func (c *Config) HasSources() bool {
	return c.HasWorkbook() || c.Villagers.Root != "" || c.CSV.Dir != ""
}

// IsOwner reports whether platform:user is listed in bot.owners.
// Comparison is case-insensitive because Twitch logins are.
func (c *Config) IsOwner(platform, user string) bool {
	want := platform + ":" + user
	for _, o := range c.Bot.Owners {
		if strings.EqualFold(o, want) {
			return true
		}
	}
	return false
}

// CooldownDuration returns bot.cooldown, defaulting to 3s.
func (c *Config) CooldownDuration() time.Duration {
	return mustDuration(c.Bot.Cooldown, 3*time.Second)
}

// RefreshInterval returns refresh.interval, defaulting to one hour.
func (c *Config) RefreshInterval() time.Duration {
	return mustDuration(c.Refresh.Interval, time.Hour)
}

// RefreshTimeout returns refresh.timeout. Zero means no per-build timeout.
func (c *Config) RefreshTimeout() time.Duration {
	return mustDuration(c.Refresh.Timeout, 0)
}

// SheetsThrottle returns the delay between worksheet fetches.
func (c *Config) SheetsThrottle() time.Duration {
	return mustDuration(c.Sheets.Throttle, time.Second)
}

// VillagersThrottle returns the delay between villager directory reads.
func (c *Config) VillagersThrottle() time.Duration {
	return mustDuration(c.Villagers.Throttle, 0)
}

// VillagersDebounce returns the quiet period before a watch-triggered refresh.
func (c *Config) VillagersDebounce() time.Duration {
	return mustDuration(c.Villagers.Debounce, 2*time.Second)
}

// ControlTimeout returns the control socket request deadline.
func (c *Config) ControlTimeout() time.Duration {
	return mustDuration(c.Control.Timeout, 30*time.Second)
}

// WriteYAML writes the configuration to path. An existing file is first
// copied to path.bak.
func (c *Config) WriteYAML(path string) error {
	if fileExists(path) {
		if err := BackupFile(path); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// BackupFile copies path to path.bak, replacing an older backup.
func BackupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config for backup: %w", err)
	}
	if err := os.WriteFile(path+".bak", data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// LoadDotEnv parses a KEY=VALUE file. Blank lines and # comments are
// skipped, an "export " prefix is allowed, and matching surrounding quotes
// are removed. A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("cannot open dotenv file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	out := make(map[string]string)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		k, v, ok := strings.Cut(line, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
			v = v[1 : len(v)-1]
		}
		out[k] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cannot read dotenv file %s: %w", path, err)
	}
	return out, nil
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
