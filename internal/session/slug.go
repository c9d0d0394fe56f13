package session

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slug lower-cases s, turns each run of whitespace into a single hyphen, and
// drops every character outside [a-z0-9-]. Surrounding whitespace is ignored.
func Slug(s string) string {
	// A Caser keeps state between calls, so each Slug builds its own.
	s = cases.Lower(language.Und).String(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
