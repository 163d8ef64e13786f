package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// Embed colors.
const (
	ColorGreen  = 0x2ecc71
	ColorOrange = 0xe67e22
	ColorBlue   = 0x3498db
	ColorGold   = 0xf1c40f
)

// Render formats a reply the way the Discord bot always has: embeds for
// results, status and help, plain text for everything else.
func Render(r bot.Reply) *discordgo.MessageSend {
	p := r.Prefix
	switch r.Kind {
	case bot.ReplyResult:
		return renderResult(r.Result)
	case bot.ReplyUsage:
		return text(fmt.Sprintf("Usage: `%sfind <item name>`", p))
	case bot.ReplyLoading:
		return text("⚠️ Database is currently loading, please wait...")
	case bot.ReplyStatusLoading:
		return text("Database is initializing...")
	case bot.ReplyStatus:
		return embed(&discordgo.MessageEmbed{
			Title: "System Status",
			Color: ColorBlue,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Total Items", Value: fmt.Sprint(r.Items), Inline: true},
				{Name: "Last Update", Value: r.BuiltAt.Local().Format(time.TimeOnly), Inline: true},
			},
		})
	case bot.ReplyHelp:
		return embed(&discordgo.MessageEmbed{
			Title: "TreasureBot Help",
			Color: ColorGold,
			Fields: []*discordgo.MessageEmbedField{
				{Name: p + "find <item>", Value: fmt.Sprintf("Search for an item location. Aliases: %slocate, %swhere", p, p)},
				{Name: p + "status", Value: "Check database status"},
				{Name: p + "refresh", Value: "Reload the database (owner only)"},
			},
		})
	default:
		return text(r.Text())
	}
}

func renderResult(res resolve.Result) *discordgo.MessageSend {
	switch res.Kind {
	case resolve.ExactHit:
		return embed(&discordgo.MessageEmbed{
			Title:       "Item Found: " + strings.ToUpper(res.Name),
			Description: "**Locations:**\n" + strings.Join(res.Locations, "\n"),
			Color:       ColorGreen,
		})
	case resolve.Suggestions:
		lines := make([]string, len(res.Candidates))
		for i, c := range res.Candidates {
			lines[i] = "• " + c.Key
		}
		return embed(&discordgo.MessageEmbed{
			Title:       "Item Not Found",
			Description: "Did you mean one of these?\n\n" + strings.Join(lines, "\n"),
			Color:       ColorOrange,
		})
	default:
		return text(fmt.Sprintf("❌ I couldn't find \"%s\" or anything similar. Check your spelling!", res.Query))
	}
}

func text(s string) *discordgo.MessageSend {
	return &discordgo.MessageSend{Content: s}
}

func embed(e *discordgo.MessageEmbed) *discordgo.MessageSend {
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{e}}
}
