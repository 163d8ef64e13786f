package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/treasurebot/internal/daemon"
	"github.com/Aman-CERP/treasurebot/internal/index"
	"github.com/Aman-CERP/treasurebot/internal/resolve"
)

func TestResultRenderer_Render(t *testing.T) {
	tests := []struct {
		name   string
		result resolve.Result
		want   []string
	}{
		{
			name:   "exact hit",
			result: resolve.Result{Kind: resolve.ExactHit, Query: "Wand", Name: "wand", Locations: []string{"HARV'S ISLAND", "DOM'S ISLAND"}},
			want:   []string{"✓ wand", "  • HARV'S ISLAND", "  • DOM'S ISLAND"},
		},
		{
			name: "suggestions",
			result: resolve.Result{Kind: resolve.Suggestions, Query: "wnd",
				Candidates: []index.Suggestion{{Key: "wand", Score: 86}}},
			want: []string{`? No item named "wnd". Did you mean:`, "  • wand (86)"},
		},
		{
			name:   "no match",
			result: resolve.Result{Kind: resolve.NoMatch, Query: "zzz"},
			want:   []string{`✗ Nothing matches "zzz" or anything similar.`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}

			require.NoError(t, NewResultRenderer(buf, true).Render(&daemon.FindResult{Result: tt.result}))

			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}
