package cache

import "time"

// Status represents where an entry sits on the user's list.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusWatching   Status = "watching"
	StatusCompleted  Status = "completed"
	StatusOnHold     Status = "on_hold"
	StatusDropped    Status = "dropped"
	StatusRewatching Status = "rewatching"
)

var allStatuses = []Status{
	StatusPlanned,
	StatusWatching,
	StatusCompleted,
	StatusOnHold,
	StatusDropped,
	StatusRewatching,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether value names a known list status.
func ValidStatus(value Status) bool {
	_, ok := statusSet[value]
	return ok
}

// AutoUpdatable reports whether automatic scrobbles may advance entries in
// this status. Planned entries are included only when the matcher is
// configured to consider them.
func (s Status) AutoUpdatable(includePlanned bool) bool {
	switch s {
	case StatusWatching, StatusRewatching:
		return true
	case StatusPlanned:
		return includePlanned
	default:
		return false
	}
}

// MediaKind distinguishes anime entries from manga entries.
type MediaKind string

const (
	KindAnime MediaKind = "anime"
	KindManga MediaKind = "manga"
)

// Entry is one cached list row. Titles holds every known title for the
// media, primary title first. Score zero means unscored.
type Entry struct {
	RemoteID        int64
	MediaKind       MediaKind
	Titles          []string
	Status          Status
	Progress        int
	TotalUnits      int
	Score           int
	RewatchCount    int
	LastAutoEpisode int
	PendingSync     bool
	LastSyncedAt    *time.Time
	LocalVersion    int64
	UpdatedAt       time.Time
}

// Title returns the primary title, or an empty string for a titleless entry.
func (e *Entry) Title() string {
	if e == nil || len(e.Titles) == 0 {
		return ""
	}
	return e.Titles[0]
}

// Mutation is a locally applied change awaiting remote acknowledgement. It
// stores the intended end state of the entry so replays are idempotent.
type Mutation struct {
	ID           int64
	RemoteID     int64
	Progress     int
	Status       Status
	Score        int
	RewatchCount int
	LocalVersion int64
	Attempts     int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Stats summarizes the cache contents for status displays.
type Stats struct {
	Total      int
	ByStatus   map[Status]int
	Pending    int
	LastSynced *time.Time
}
