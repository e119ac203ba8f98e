package extract

import (
	"regexp"
	"strconv"
)

// rule maps one filename convention to title and episode capture groups.
// Rules are evaluated in declaration order; the first rule to yield a field
// wins that field.
type rule struct {
	name    string
	re      *regexp.Regexp
	title   int
	episode int
}

func (r rule) apply(text string) (string, int, bool) {
	match := r.re.FindStringSubmatch(text)
	if match == nil {
		return "", 0, false
	}
	title := ""
	if r.title > 0 && r.title < len(match) {
		title = match[r.title]
	}
	episode := 0
	if r.episode > 0 && r.episode < len(match) {
		parsed, err := strconv.Atoi(match[r.episode])
		if err != nil {
			return "", 0, false
		}
		episode = parsed
	}
	return title, episode, true
}

// Ordered most specific first. Season/episode markers are machine-readable
// and trusted over bare trailing numbers.
var rules = []rule{
	{
		name:    "season-episode-marker",
		re:      regexp.MustCompile(`(?i)^(?:\[[^\]]*\]\s*)?(.+?)[\s._-]*S(\d{1,2})[\s._-]*E(\d{1,4})`),
		title:   1,
		episode: 3,
	},
	{
		name:    "season-x-episode",
		re:      regexp.MustCompile(`(?i)^(.+?)[\s._-]+(\d{1,2})x(\d{1,4})(?:\D|$)`),
		title:   1,
		episode: 3,
	},
	{
		name:    "dual-language-page-title",
		re:      regexp.MustCompile(`(?i)^.+?\s*/\s*(.+?)\s*[-–]\s*\d+\s+(?:сезон|season)[\s,]+(\d{1,4})\s+(?:серия|episode)`),
		title:   1,
		episode: 2,
	},
	{
		name:    "bracketed-release",
		re:      regexp.MustCompile(`^\[[^\]]*\]\s*(.+?)\s*-\s*(\d{1,4})(?:\s*[\[(].*)?$`),
		title:   1,
		episode: 2,
	},
	{
		name:    "title-dash-episode",
		re:      regexp.MustCompile(`^(.+?)\s*-\s*(\d{1,4})(?:\s*[\[(].*)?$`),
		title:   1,
		episode: 2,
	},
	{
		name:    "title-ep-suffix",
		re:      regexp.MustCompile(`(?i)^(.+?)\s+ep?\.?\s*(\d{1,4})(?:\s*[\[(].*)?$`),
		title:   1,
		episode: 2,
	},
	{
		name:    "title-trailing-number",
		re:      regexp.MustCompile(`^(.+?)[\s._]+(\d{1,4})(?:\s*[\[(].*)?$`),
		title:   1,
		episode: 2,
	},
	{
		name:    "path-segment",
		re:      regexp.MustCompile(`^\d+[-_.](.+?)[-_.]s?(\d{1,2})[ex](\d{1,4})$`),
		title:   1,
		episode: 3,
	},
}
