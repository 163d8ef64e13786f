package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// ToFindItemOutput converts a find result to the tool output schema.
func ToFindItemOutput(r *daemon.FindResult) FindItemOutput {
	return FindItemOutput{
		Kind:        r.Kind.String(),
		Query:       r.Query,
		Name:        r.Name,
		Locations:   r.Locations,
		Suggestions: r.Candidates,
		Text:        r.Text,
	}
}

// FormatFindResult renders a find result as markdown.
func FormatFindResult(r *daemon.FindResult) string {
	var sb strings.Builder
	switch r.Kind {
	case resolve.ExactHit:
		fmt.Fprintf(&sb, "## %s\n\n", r.Name)
		fmt.Fprintf(&sb, "Found in %d location", len(r.Locations))
		if len(r.Locations) != 1 {
			sb.WriteString("s")
		}
		sb.WriteString(":\n\n")
		for _, loc := range r.Locations {
			fmt.Fprintf(&sb, "- %s\n", loc)
		}
	case resolve.Suggestions:
		fmt.Fprintf(&sb, "No item named \"%s\". Did you mean:\n\n", r.Query)
		for _, c := range r.Candidates {
			fmt.Fprintf(&sb, "- %s (score: %d)\n", c.Key, c.Score)
		}
	default:
		fmt.Fprintf(&sb, "No item matches \"%s\" or anything similar.", r.Query)
	}
	return sb.String()
}

// ToIndexStatusOutput converts a status report to the tool output schema.
// The first index is the main item database and decides Ready.
func ToIndexStatusOutput(s *daemon.StatusResult) *IndexStatusOutput {
	out := &IndexStatusOutput{
		Uptime:    s.Uptime,
		Platforms: s.Platforms,
		Indexes:   make([]IndexDetail, 0, len(s.Indexes)),
	}
	for i, st := range s.Indexes {
		if i == 0 {
			out.Ready = st.HasData
		}
		out.Indexes = append(out.Indexes, toIndexDetail(st))
	}
	return out
}

func toIndexDetail(st refresh.Status) IndexDetail {
	d := IndexDetail{
		Name:       st.Name,
		State:      string(st.State),
		Items:      st.Items,
		Sources:    st.Sources,
		Skipped:    st.Skipped,
		LastError:  st.LastError,
		Refreshing: st.InProgress,
	}
	if !st.BuiltAt.IsZero() {
		d.LastUpdated = st.BuiltAt.Format(time.RFC3339)
	}
	return d
}

// FormatStatus renders a status report as markdown.
func FormatStatus(out *IndexStatusOutput) string {
	var sb strings.Builder
	sb.WriteString("## TreasureBot Status\n\n")
	if out.Ready {
		sb.WriteString("**Database:** ready\n")
	} else {
		sb.WriteString("**Database:** loading\n")
	}
	if out.Uptime != "" {
		fmt.Fprintf(&sb, "**Uptime:** %s\n", out.Uptime)
	}
	if len(out.Platforms) > 0 {
		fmt.Fprintf(&sb, "**Platforms:** %s\n", strings.Join(out.Platforms, ", "))
	}
	sb.WriteString("\n| Index | State | Items | Sources | Last update |\n|---|---|---|---|---|\n")
	for _, d := range out.Indexes {
		updated := d.LastUpdated
		if updated == "" {
			updated = "never"
		}
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %s |\n", d.Name, d.State, d.Items, d.Sources, updated)
	}
	return sb.String()
}
