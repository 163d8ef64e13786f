package index

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// Default suggestion parameters.
const (
	DefaultSuggestLimit = 5
	DefaultMinScore     = 75
)

// Suggestion is a fuzzy candidate with its 0-100 score.
type Suggestion struct {
	Key   string `json:"key"`
	Score int    `json:"score"`
}

// Suggest ranks keys against query by TokenSetRatio. Only keys scoring
// strictly above minScore are returned, best first, at most limit of them.
// Equal scores keep the order in which keys were supplied, and repeated
// keys are reported once.
func Suggest(query string, keys []string, limit, minScore int) []Suggestion {
	if limit <= 0 {
		return nil
	}
	qt := tokenize(query)
	if len(qt) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(keys))
	var out []Suggestion
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if score := tokenSetRatio(qt, tokenize(key)); score > minScore {
			out = append(out, Suggestion{Key: key, Score: score})
		}
	}

	slices.SortStableFunc(out, func(a, b Suggestion) int {
		return b.Score - a.Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TokenSetRatio scores two strings 0-100 by comparing their word sets, so
// word order and repeated words do not matter and a string whose words are
// a subset of the other's scores 100. Non-alphanumeric characters separate
// words and case is ignored. A string with no words scores 0.
func TokenSetRatio(a, b string) int {
	return tokenSetRatio(tokenize(a), tokenize(b))
}

// tokenize lowercases s, splits it on non-alphanumerics and returns the
// sorted distinct words.
func tokenize(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	slices.Sort(words)
	return slices.Compact(words)
}

func tokenSetRatio(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	sect, onlyA, onlyB := partition(a, b)
	if len(sect) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	common := strings.Join(sect, " ")
	withA := joinNonEmpty(common, strings.Join(onlyA, " "))
	withB := joinNonEmpty(common, strings.Join(onlyB, " "))

	best := ratio(withA, withB)
	if common != "" {
		best = max(best, ratio(common, withA), ratio(common, withB))
	}
	return int(math.RoundToEven(best))
}

// partition splits two sorted word lists into their intersection and the
// words unique to each side. All three results stay sorted.
func partition(a, b []string) (sect, onlyA, onlyB []string) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			sect = append(sect, a[i])
			i++
			j++
		case a[i] < b[j]:
			onlyA = append(onlyA, a[i])
			i++
		default:
			onlyB = append(onlyB, b[j])
			j++
		}
	}
	onlyA = append(onlyA, a[i:]...)
	onlyB = append(onlyB, b[j:]...)
	return sect, onlyA, onlyB
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

// ratio is the normalized indel similarity of a and b in [0, 100]:
// twice the longest common subsequence over the combined length.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcs(ra, rb)) / float64(total)
}

func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
