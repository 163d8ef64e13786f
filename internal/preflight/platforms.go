package preflight

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/treasurebot/internal/config"
)

// CheckPlatform checks the settings one chat platform needs.
func (c *Checker) CheckPlatform(platform string) CheckResult {
	result := CheckResult{
		Name:     platform,
		Required: true,
	}
	if c.cfg == nil {
		result.Status = StatusFail
		result.Message = "configuration not loaded"
		return result
	}

	switch platform {
	case config.PlatformTwitch:
		return c.checkTwitch(result)
	case config.PlatformDiscord:
		return c.checkDiscord(result)
	default:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unknown platform %q", platform)
		return result
	}
}

func (c *Checker) checkTwitch(result CheckResult) CheckResult {
	tw := c.cfg.Twitch
	var missing []string
	if tw.Token == "" {
		missing = append(missing, "TWITCH_TOKEN")
	}
	if tw.Channel == "" {
		missing = append(missing, "TWITCH_CHANNEL")
	}
	if len(missing) > 0 {
		result.Status = StatusFail
		result.Message = "missing " + strings.Join(missing, ", ")
		return result
	}

	channel := strings.ToLower(strings.TrimPrefix(tw.Channel, "#"))
	result.Status = StatusPass
	result.Message = "#" + channel
	if tw.Nick == "" {
		result.Details = "Logging in as " + channel + " (TWITCH_NICK not set)"
	}
	return result
}

func (c *Checker) checkDiscord(result CheckResult) CheckResult {
	token := c.cfg.Discord.Token
	if token == "" {
		result.Status = StatusFail
		result.Message = "missing DISCORD_TOKEN"
		return result
	}
	if strings.HasPrefix(token, "Bot ") {
		result.Status = StatusWarn
		result.Message = `token starts with "Bot "`
		result.Details = "Set only the token itself; the prefix is added when connecting"
		return result
	}
	if strings.Count(token, ".") != 2 {
		result.Status = StatusWarn
		result.Message = "token does not look like a bot token"
		result.Details = "Copy it from the Bot page of the Discord developer portal"
		return result
	}

	result.Status = StatusPass
	result.Message = "token set"
	return result
}
