package match

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"shiori/internal/cache"
)

// Method records which ladder step produced a match.
type Method string

const (
	MethodExact      Method = "exact"
	MethodNormalized Method = "normalized"
	MethodFuzzy      Method = "fuzzy"
)

// Result is a confident match of a candidate title against one cached entry.
type Result struct {
	Entry  *cache.Entry
	Title  string
	Method Method
	Score  float64
}

// Matcher resolves candidate titles against a snapshot of list entries.
// Matching proceeds exact, then normalized, then fuzzy; each step accepts
// only unambiguous winners.
type Matcher struct {
	threshold float64
	margin    float64
}

// New builds a matcher. threshold is the minimum fuzzy similarity on a 0..1
// scale; margin is the required lead over the runner-up entry.
func New(threshold, margin float64) *Matcher {
	return &Matcher{threshold: threshold, margin: margin}
}

type indexedTitle struct {
	raw        string
	normalized string
	entry      *cache.Entry
}

// Match returns the entry the candidate title refers to, or false when no
// confident unambiguous match exists.
func (m *Matcher) Match(candidate string, entries []*cache.Entry) (*Result, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || len(entries) == 0 {
		return nil, false
	}

	index := buildIndex(entries)

	// Exact, case-insensitive.
	if result, ok := uniqueOwner(index, func(t indexedTitle) bool {
		return strings.EqualFold(t.raw, candidate)
	}); ok {
		result.Method = MethodExact
		result.Score = 1
		return result, true
	}

	// Normalized equality.
	normalized := Normalize(candidate)
	if normalized == "" {
		return nil, false
	}
	if result, ok := uniqueOwner(index, func(t indexedTitle) bool {
		return t.normalized == normalized
	}); ok {
		result.Method = MethodNormalized
		result.Score = 1
		return result, true
	}

	return m.fuzzyMatch(normalized, index)
}

// fuzzyMatch scores every indexed title and accepts the best entry only when
// it clears the threshold and leads the runner-up entry by the margin. Short
// titles share franchise tokens, so a bare top-1 threshold misfires without
// the relative margin.
func (m *Matcher) fuzzyMatch(normalized string, index []indexedTitle) (*Result, bool) {
	var (
		best       *indexedTitle
		bestScore  float64
		runnerUp   float64
		runnerSeen bool
	)

	// Length pre-filter: titles outside the edit window implied by the
	// threshold cannot reach it.
	maxDelta := int(float64(len(normalized))*(1-m.threshold)) + 2

	for i := range index {
		title := &index[i]
		if title.normalized == "" {
			continue
		}
		if delta := len(title.normalized) - len(normalized); delta > maxDelta || -delta > maxDelta {
			continue
		}
		score := similarity(normalized, title.normalized)
		switch {
		case best == nil || score > bestScore:
			if best != nil && best.entry.RemoteID != title.entry.RemoteID {
				runnerUp = bestScore
				runnerSeen = true
			}
			best = title
			bestScore = score
		case best.entry.RemoteID != title.entry.RemoteID && (!runnerSeen || score > runnerUp):
			runnerUp = score
			runnerSeen = true
		}
	}

	if best == nil || bestScore < m.threshold {
		return nil, false
	}
	if runnerSeen && bestScore-runnerUp < m.margin {
		return nil, false
	}
	return &Result{Entry: best.entry, Title: best.raw, Method: MethodFuzzy, Score: bestScore}, true
}

// similarity maps Levenshtein distance into a 0..1 scale against the longer
// string.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	distance := fuzzy.LevenshteinDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

func buildIndex(entries []*cache.Entry) []indexedTitle {
	index := make([]indexedTitle, 0, len(entries)*2)
	for _, entry := range entries {
		for _, title := range entry.Titles {
			if title == "" {
				continue
			}
			index = append(index, indexedTitle{
				raw:        title,
				normalized: Normalize(title),
				entry:      entry,
			})
		}
	}
	return index
}

// uniqueOwner applies a predicate across the index and returns a result only
// when every hit belongs to the same entry.
func uniqueOwner(index []indexedTitle, pred func(indexedTitle) bool) (*Result, bool) {
	var hit *indexedTitle
	for i := range index {
		title := &index[i]
		if !pred(*title) {
			continue
		}
		if hit != nil && hit.entry.RemoteID != title.entry.RemoteID {
			return nil, false
		}
		if hit == nil {
			hit = title
		}
	}
	if hit == nil {
		return nil, false
	}
	return &Result{Entry: hit.entry, Title: hit.raw}, true
}
