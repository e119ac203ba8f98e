package extract

import (
	"path/filepath"
	"strings"
)

// Result is a parsed title and episode pair.
type Result struct {
	Title   string
	Episode int
	Rule    string
}

// Parse extracts a title and episode from raw text. It returns false when
// either field cannot be resolved.
func Parse(raw string) (Result, bool) {
	// Underscores stand in for spaces in release names and would otherwise
	// defeat the whitespace-based rules.
	text := strings.TrimSpace(strings.ReplaceAll(raw, "_", " "))
	if text == "" {
		return Result{}, false
	}

	var result Result
	for _, r := range rules {
		title, episode, ok := r.apply(text)
		if !ok {
			continue
		}
		if result.Title == "" && title != "" {
			result.Title = title
			result.Rule = r.name
		}
		if result.Episode == 0 && episode > 0 {
			result.Episode = episode
			if result.Rule == "" {
				result.Rule = r.name
			}
		}
		if result.Title != "" && result.Episode > 0 {
			break
		}
	}

	result.Title = CleanTitle(result.Title)
	if result.Title == "" || result.Episode <= 0 {
		return Result{}, false
	}
	return result, true
}

// ParsePath extracts from a filesystem path, dropping directories and the
// file extension before rule matching.
func ParsePath(path string) (Result, bool) {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" && len(ext) <= 5 {
		base = strings.TrimSuffix(base, ext)
	}
	return Parse(base)
}
