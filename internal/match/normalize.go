package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum   = regexp.MustCompile(`[^a-z0-9\s]+`)
	reMultiSpace = regexp.MustCompile(`\s+`)
)

// stripDiacritics removes combining marks after NFD decomposition.
func stripDiacritics(s string) string {
	decomp := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomp))
	for _, r := range decomp {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize folds a title to a canonical comparison form: NFKC compatibility
// folding, diacritics stripped, lower-cased, punctuation removed, romaji
// particle variants collapsed.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = norm.NFKC.String(s)
	s = stripDiacritics(s)
	s = strings.ToLower(s)
	s = reNonAlnum.ReplaceAllString(s, " ")

	// 'wo' and 'o' romanize the same particle.
	padded := " " + s + " "
	padded = strings.ReplaceAll(padded, " wo ", " o ")
	s = strings.TrimSpace(padded)

	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
