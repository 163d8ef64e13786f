package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/treasurebot/internal/config"
	"github.com/Aman-CERP/treasurebot/internal/ui"
)

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
	// StatusSkip means the check does not apply to this configuration.
	StatusSkip
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	case StatusSkip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(s.String())), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker performs preflight validation checks.
type Checker struct {
	cfg       *config.Config
	platforms []string
	verbose   bool
	noColor   bool
	output    io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithPlatforms selects the chat platforms to check. Default: every
// platform with a token.
func WithPlatforms(platforms ...string) Option {
	return func(c *Checker) {
		c.platforms = platforms
	}
}

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithNoColor disables styling in PrintResults.
func WithNoColor(noColor bool) Option {
	return func(c *Checker) {
		c.noColor = noColor
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{
		cfg:    cfg,
		output: os.Stdout,
	}
	if cfg != nil {
		if cfg.Twitch.Token != "" {
			c.platforms = append(c.platforms, config.PlatformTwitch)
		}
		if cfg.Discord.Token != "" {
			c.platforms = append(c.platforms, config.PlatformDiscord)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check and returns the results in display order.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	dataDir := config.DataDir()
	if c.cfg != nil && c.cfg.Control.SocketPath != "" {
		dataDir = filepath.Dir(c.cfg.Control.SocketPath)
	}

	results := []CheckResult{
		c.CheckSources(),
		c.CheckCredentials(),
		c.CheckVillagerRoot(ctx),
		c.CheckCSVDir(ctx),
	}
	for _, p := range c.platforms {
		results = append(results, c.CheckPlatform(p))
	}
	results = append(results,
		c.CheckWritePermissions(dataDir),
		c.CheckDiskSpace(dataDir),
		c.CheckFileDescriptors(),
	)
	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	styles := ui.GetStyles(c.noColor)

	_, _ = fmt.Fprintln(c.output, styles.Header.Render("TreasureBot System Check"))
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", c.statusLabel(styles, r.Status), r.Name, r.Message)
		if r.Details != "" && (c.verbose || r.Status == StatusFail) {
			_, _ = fmt.Fprintf(c.output, "       %s\n", styles.Dim.Render(r.Details))
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status == StatusWarn || r.Status == StatusFail {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

func (c *Checker) statusLabel(styles ui.Styles, status CheckStatus) string {
	switch status {
	case StatusPass:
		return styles.Success.Render("PASS")
	case StatusWarn:
		return styles.Warning.Render("WARN")
	case StatusFail:
		return styles.Error.Render("FAIL")
	case StatusSkip:
		return styles.Dim.Render("SKIP")
	default:
		return "????"
	}
}

// CheckWritePermissions checks that the bot can create its socket, lock
// and log files in dir. A missing dir is created.
func (c *Checker) CheckWritePermissions(dir string) CheckResult {
	result := CheckResult{
		Name:     "write_permissions",
		Required: true,
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create %s: %v", dir, err)
		return result
	}

	testFile := filepath.Join(dir, ".treasurebot-preflight-test")
	f, err := os.Create(testFile)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(testFile)

	result.Status = StatusPass
	result.Message = dir
	return result
}
