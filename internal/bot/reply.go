package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// ReplyKind identifies what a Reply says. Platforms render each kind in
// their own format.
type ReplyKind int

const (
	// ReplyResult carries a resolve.Result.
	ReplyResult ReplyKind = iota
	// ReplyUsage is sent for a find command without search text.
	ReplyUsage
	// ReplyLoading is sent for a find before the first build.
	ReplyLoading
	// ReplyStatus carries the item count and build time.
	ReplyStatus
	// ReplyStatusLoading is the status reply before the first build.
	ReplyStatusLoading
	// ReplyHelp lists the commands.
	ReplyHelp
	// ReplyCooldown carries the remaining wait.
	ReplyCooldown
	// ReplyRefreshStarted acknowledges a manual refresh.
	ReplyRefreshStarted
	// ReplyRefreshDone reports the outcome of a manual refresh.
	ReplyRefreshDone
	// ReplyNotOwner rejects a privileged command.
	ReplyNotOwner
)

// Reply is a structured answer to one command.
type Reply struct {
	Kind   ReplyKind
	Prefix string

	Result resolve.Result

	Items   int
	BuiltAt time.Time
	Wait    time.Duration
	Err     error
}

// Term returns the normalized search text a result was computed for.
func (r Reply) Term() string {
	return index.NormalizeKey(r.Result.Query)
}

// Text renders the reply as a single chat line, the format used on
// Twitch and in the console.
func (r Reply) Text() string {
	p := r.Prefix
	switch r.Kind {
	case ReplyResult:
		return resultText(r)
	case ReplyUsage:
		return fmt.Sprintf("Usage: %sfind <item name>", p)
	case ReplyLoading, ReplyStatusLoading:
		return "Database loading..."
	case ReplyStatus:
		return fmt.Sprintf("Items: %d | Last Update: %s", r.Items, r.BuiltAt.Local().Format(time.TimeOnly))
	case ReplyHelp:
		return fmt.Sprintf("Commands: %sfind <item> | %sstatus | Mods: %srefresh", p, p, p)
	case ReplyCooldown:
		return fmt.Sprintf("⏳ Please wait %.1fs before searching again.", r.Wait.Seconds())
	case ReplyRefreshStarted:
		return "🔄 Forcing manual cache refresh..."
	case ReplyRefreshDone:
		if r.Err != nil {
			return fmt.Sprintf("⚠️ Refresh failed. Still serving %d items.", r.Items)
		}
		return fmt.Sprintf("✅ Refresh complete. %d items loaded.", r.Items)
	case ReplyNotOwner:
		return "⛔ Only the bot owner can refresh the database."
	default:
		return ""
	}
}

func resultText(r Reply) string {
	res := r.Result
	switch res.Kind {
	case resolve.ExactHit:
		return fmt.Sprintf("Found %s on: %s", strings.ToUpper(res.Name), strings.Join(res.Locations, " | "))
	case resolve.Suggestions:
		return fmt.Sprintf("Couldn't find \"%s\" - Did you mean: %s?", r.Term(), strings.Join(res.CandidateNames(), ", "))
	default:
		return fmt.Sprintf("I couldn't find \"%s\" or anything similar. Check your spelling!", r.Term())
	}
}
