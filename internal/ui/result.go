package ui

import (
	"fmt"
	"io"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

// ResultRenderer displays the answer to a find command.
type ResultRenderer struct {
	out    io.Writer
	styles Styles
}

// NewResultRenderer creates a result renderer.
func NewResultRenderer(out io.Writer, noColor bool) *ResultRenderer {
	return &ResultRenderer{out: out, styles: GetStyles(noColor)}
}

// Render writes one lookup result.
func (r *ResultRenderer) Render(res *daemon.FindResult) error {
	switch res.Kind {
	case resolve.ExactHit:
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Success.Render("✓"), r.styles.Header.Render(res.Name))
		for _, loc := range res.Locations {
			_, _ = fmt.Fprintf(r.out, "  • %s\n", loc)
		}
	case resolve.Suggestions:
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Warning.Render("?"),
			fmt.Sprintf("No item named %q. Did you mean:", res.Query))
		for _, c := range res.Candidates {
			_, _ = fmt.Fprintf(r.out, "  • %s %s\n", c.Key, r.styles.Label.Render(fmt.Sprintf("(%d)", c.Score)))
		}
	default:
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Error.Render("✗"),
			fmt.Sprintf("Nothing matches %q or anything similar.", res.Query))
	}
	return nil
}
