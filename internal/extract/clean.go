package extract

import (
	"regexp"
	"strings"
)

var (
	leadingGroupRe   = regexp.MustCompile(`^\[[^\]]*\]\s*`)
	bracketTagRe     = regexp.MustCompile(`\s*\[[^\]]*\]\s*`)
	parenTagRe       = regexp.MustCompile(`\s*\([^)]*\)\s*`)
	seasonSuffixRe   = regexp.MustCompile(`(?i)\s*-?\s*S\d{1,2}E\d{1,4}.*$`)
	separatorCharsRe = regexp.MustCompile(`[_\.]+`)
	doubleDashRe     = regexp.MustCompile(`\s*--+\s*`)
	edgeDashRe       = regexp.MustCompile(`(?:^\s*-\s*)|(?:\s*-\s*$)`)
	spacesRe         = regexp.MustCompile(`\s+`)
)

// Suffixes attached by streaming sites and release pipelines that carry no
// title information.
var strippedSuffixes = []string{
	"(dub)", "(sub)", "(uncensored)",
	"dubbed", "subbed",
	"смотреть онлайн", "аниме",
}

// CleanTitle normalizes an extracted title: group tags, quality markers,
// parenthesized info, and separator noise are removed.
func CleanTitle(title string) string {
	title = leadingGroupRe.ReplaceAllString(title, "")
	title = separatorCharsRe.ReplaceAllString(title, " ")
	title = bracketTagRe.ReplaceAllString(title, " ")
	title = parenTagRe.ReplaceAllString(title, " ")
	title = seasonSuffixRe.ReplaceAllString(title, "")

	lowered := strings.ToLower(title)
	for _, suffix := range strippedSuffixes {
		if idx := strings.Index(lowered, suffix); idx >= 0 {
			title = title[:idx] + title[idx+len(suffix):]
			lowered = strings.ToLower(title)
		}
	}

	title = doubleDashRe.ReplaceAllString(title, " ")
	title = edgeDashRe.ReplaceAllString(title, "")
	title = spacesRe.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
