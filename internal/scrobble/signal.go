package scrobble

import "time"

// Signal sources.
const (
	SourcePlayer      = "player"
	SourcePageScraper = "page-scraper"
)

// Signal is one raw observation that the user may be watching something.
// Player signals carry RawText for the extractor; page-scraper signals
// arrive with Title and Episode already resolved.
type Signal struct {
	Source     string
	RawText    string
	Title      string
	Episode    int
	Manual     bool
	WatchedFor time.Duration
	ObservedAt time.Time
}

// Parsed reports whether the signal already carries a resolved title and
// episode and can skip filename extraction.
func (s Signal) Parsed() bool {
	return s.Title != "" && s.Episode > 0
}
