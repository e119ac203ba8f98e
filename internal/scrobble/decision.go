package scrobble

import (
	"shiori/internal/cache"
	"shiori/internal/config"
)

// CompletePolicy decides whether a final-episode advance may flip the entry
// to completed.
type CompletePolicy func(*cache.Entry) bool

// PolicyFromConfig maps the configured policy name to its predicate. The
// default gates completion on an existing score so unscored entries stay in
// watching pending user judgment.
func PolicyFromConfig(name string) CompletePolicy {
	switch name {
	case config.AutoCompleteAlways:
		return func(*cache.Entry) bool { return true }
	case config.AutoCompleteNever:
		return func(*cache.Entry) bool { return false }
	default:
		return func(entry *cache.Entry) bool { return entry.Score > 0 }
	}
}

// RejectReason explains why a validated signal did not mutate state.
type RejectReason string

const (
	RejectAlreadyApplied RejectReason = "already_applied"
	RejectNotSequential  RejectReason = "not_sequential"
	RejectBeyondTotal    RejectReason = "beyond_total"
	RejectStatus         RejectReason = "status_not_updatable"
)

// Decision is the computed end state for an accepted episode advance.
type Decision struct {
	Status       cache.Status
	Progress     int
	RewatchCount int
	Completed    bool
}

// Decide applies the sequential-progress rule to one entry and episode.
// Exactly progress+1 is accepted; anything else is rejected without
// mutation, which filters out mis-matches and replays of old episodes.
// Rewatching entries that reach the final episode complete with a rewatch
// count bump; first watches complete only when the policy allows it.
func Decide(entry *cache.Entry, episode int, policy CompletePolicy, includePlanned bool) (Decision, RejectReason) {
	if !entry.Status.AutoUpdatable(includePlanned) {
		return Decision{}, RejectStatus
	}
	if episode <= entry.LastAutoEpisode {
		return Decision{}, RejectAlreadyApplied
	}
	if episode != entry.Progress+1 {
		return Decision{}, RejectNotSequential
	}
	// At progress == total the next sequential episode would overshoot the
	// series; progress never exceeds the known total.
	if entry.TotalUnits > 0 && episode > entry.TotalUnits {
		return Decision{}, RejectBeyondTotal
	}

	decision := Decision{
		Status:       entry.Status,
		Progress:     episode,
		RewatchCount: entry.RewatchCount,
	}
	if decision.Status == cache.StatusPlanned {
		decision.Status = cache.StatusWatching
	}

	finished := entry.TotalUnits > 0 && episode == entry.TotalUnits
	if finished {
		if entry.Status == cache.StatusRewatching {
			decision.Status = cache.StatusCompleted
			decision.RewatchCount = entry.RewatchCount + 1
			decision.Completed = true
		} else if policy(entry) {
			decision.Status = cache.StatusCompleted
			decision.Completed = true
		}
	}
	return decision, ""
}
