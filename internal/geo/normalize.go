// Package geo resolves free-text place names to coordinates.
package geo

import "strings"

// vagueWords are qualifiers the model likes to append ("箱根エリア") that the
// address search cannot match.
var vagueWords = []string{"周辺", "エリア", "あたり"}

// Normalize turns a human-entered place name into a lookup key: text from the
// first opening parenthesis (half- or full-width) on is dropped, vague
// qualifiers are removed and surrounding whitespace is trimmed. An empty
// result means the name is not geocodable.
func Normalize(raw string) string {
	s := raw
	if i := strings.IndexAny(s, "(（"); i >= 0 {
		s = s[:i]
	}
	for _, w := range vagueWords {
		s = strings.ReplaceAll(s, w, "")
	}
	return strings.TrimSpace(s)
}
