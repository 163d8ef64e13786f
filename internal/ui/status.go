package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/refresh"
	"github.com/Aman-CERP/treasurebot/internal/telemetry"
)

// StatusRenderer displays bot status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
		now:    time.Now,
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(st *daemon.StatusResult) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("TreasureBot Status"))

	if st.Running {
		_, _ = fmt.Fprintf(r.out, "  Bot:       %s (pid %d, up %s)\n", r.styles.Success.Render("running"), st.PID, st.Uptime)
	} else {
		_, _ = fmt.Fprintf(r.out, "  Bot:       %s\n", r.styles.Warning.Render("not running"))
	}
	if len(st.Platforms) > 0 {
		_, _ = fmt.Fprintf(r.out, "  Platforms: %s\n", strings.Join(st.Platforms, ", "))
	}

	for _, idx := range st.Indexes {
		_, _ = fmt.Fprintln(r.out)
		r.renderIndex(idx)
	}
	if st.Lookups != nil && st.Lookups.Total > 0 {
		_, _ = fmt.Fprintln(r.out)
		r.renderLookups(st.Lookups)
	}
	return nil
}

func (r *StatusRenderer) renderLookups(s *telemetry.Snapshot) {
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Accent.Render("lookups"))
	_, _ = fmt.Fprintf(r.out, "    Total:       %d\n", s.Total)
	_, _ = fmt.Fprintf(r.out, "    Found:       %.0f%%\n", s.HitRate()*100)
	_, _ = fmt.Fprintf(r.out, "    Repeated:    %.0f%%\n", s.RepeatRate()*100)
	if len(s.TopMisses) > 0 {
		misses := make([]string, len(s.TopMisses))
		for i, m := range s.TopMisses {
			misses[i] = fmt.Sprintf("%s (%d)", m.Query, m.Count)
		}
		_, _ = fmt.Fprintf(r.out, "    Top misses:  %s\n", r.styles.Dim.Render(strings.Join(misses, ", ")))
	}
}

func (r *StatusRenderer) renderIndex(s refresh.Status) {
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Accent.Render(s.Name))
	_, _ = fmt.Fprintf(r.out, "    State:       %s\n", r.renderState(s))
	_, _ = fmt.Fprintf(r.out, "    Items:       %d\n", s.Items)
	_, _ = fmt.Fprintf(r.out, "    Sources:     %d", s.Sources)
	if s.Skipped > 0 {
		_, _ = fmt.Fprintf(r.out, " (%s)", r.styles.Warning.Render(fmt.Sprintf("%d skipped", s.Skipped)))
	}
	_, _ = fmt.Fprintln(r.out)
	if !s.BuiltAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "    Last update: %s\n", FormatAge(s.BuiltAt, r.now()))
	}
	if s.Interval != "" && s.Interval != "0s" {
		_, _ = fmt.Fprintf(r.out, "    Reload:      every %s\n", s.Interval)
	}
	if s.LastError != "" {
		_, _ = fmt.Fprintf(r.out, "    Last error:  %s\n", r.styles.Error.Render(s.LastError))
	}
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(st *daemon.StatusResult) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}

// renderState formats a state with color.
func (r *StatusRenderer) renderState(s refresh.Status) string {
	state := string(s.State)
	if s.InProgress {
		state += ", refreshing"
	}
	switch s.State {
	case refresh.StateReady:
		return r.styles.Success.Render(state)
	case refresh.StateLoading:
		if s.LastError != "" {
			return r.styles.Error.Render(state)
		}
		return r.styles.Warning.Render(state)
	default:
		return r.styles.Dim.Render(state)
	}
}
