package index

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeKey returns the lookup form of an item name: trimmed, NFC
// composed and lowercased. Composing first makes "é" typed on one keyboard
// equal to "é" pasted from a spreadsheet.
func NormalizeKey(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}
