package scrobble_test

import (
	"testing"

	"shiori/internal/cache"
	"shiori/internal/config"
	"shiori/internal/scrobble"
)

func scorePolicy() scrobble.CompletePolicy {
	return scrobble.PolicyFromConfig(config.AutoCompleteScore)
}

func TestDecideAcceptsNextEpisode(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 4, TotalUnits: 12}
	decision, reason := scrobble.Decide(entry, 5, scorePolicy(), false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Progress != 5 || decision.Status != cache.StatusWatching || decision.Completed {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestDecideRejectsNonSequential(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 4, TotalUnits: 12}
	for _, episode := range []int{4, 3, 6, 12} {
		if _, reason := scrobble.Decide(entry, episode, scorePolicy(), false); reason != scrobble.RejectNotSequential {
			t.Fatalf("episode %d: expected not_sequential, got %q", episode, reason)
		}
	}
}

func TestDecideRejectsEpisodeBeyondTotal(t *testing.T) {
	// An unscored finale leaves the entry at 12/12 watching; a stray
	// "episode 13" sighting must not push progress past the total.
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 12, TotalUnits: 12}
	if _, reason := scrobble.Decide(entry, 13, scorePolicy(), false); reason != scrobble.RejectBeyondTotal {
		t.Fatalf("expected beyond_total, got %q", reason)
	}
}

func TestDecideIdempotentViaMarker(t *testing.T) {
	// A manual progress edit back to 4 does not re-enable episode 5 once it
	// was auto-applied.
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 4, TotalUnits: 12, LastAutoEpisode: 5}
	if _, reason := scrobble.Decide(entry, 5, scorePolicy(), false); reason != scrobble.RejectAlreadyApplied {
		t.Fatalf("expected already_applied, got %q", reason)
	}
}

func TestDecideScoredFinalEpisodeCompletes(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 11, TotalUnits: 12, Score: 8}
	decision, reason := scrobble.Decide(entry, 12, scorePolicy(), false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusCompleted || decision.Progress != 12 || !decision.Completed {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestDecideUnscoredFinalEpisodeStaysWatching(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 11, TotalUnits: 12}
	decision, reason := scrobble.Decide(entry, 12, scorePolicy(), false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusWatching || decision.Progress != 12 || decision.Completed {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestDecideAlwaysPolicyCompletesUnscored(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 11, TotalUnits: 12}
	policy := scrobble.PolicyFromConfig(config.AutoCompleteAlways)
	decision, reason := scrobble.Decide(entry, 12, policy, false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusCompleted {
		t.Fatalf("expected completion, got %+v", decision)
	}
}

func TestDecideNeverPolicyLeavesStatus(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 11, TotalUnits: 12, Score: 10}
	policy := scrobble.PolicyFromConfig(config.AutoCompleteNever)
	decision, reason := scrobble.Decide(entry, 12, policy, false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusWatching {
		t.Fatalf("expected watching, got %+v", decision)
	}
}

func TestDecidePlannedPromotesToWatching(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusPlanned, Progress: 0, TotalUnits: 12}
	decision, reason := scrobble.Decide(entry, 1, scorePolicy(), true)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusWatching || decision.Progress != 1 {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestDecidePlannedExcludedByDefault(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusPlanned, Progress: 0, TotalUnits: 12}
	if _, reason := scrobble.Decide(entry, 1, scorePolicy(), false); reason != scrobble.RejectStatus {
		t.Fatalf("expected status rejection, got %q", reason)
	}
}

func TestDecideRewatchCompletionBumpsCount(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusRewatching, Progress: 11, TotalUnits: 12, RewatchCount: 1}
	decision, reason := scrobble.Decide(entry, 12, scorePolicy(), false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusCompleted || decision.RewatchCount != 2 || !decision.Completed {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}

func TestDecideCompletedAndDroppedNeverUpdate(t *testing.T) {
	for _, status := range []cache.Status{cache.StatusCompleted, cache.StatusDropped, cache.StatusOnHold} {
		entry := &cache.Entry{Status: status, Progress: 4, TotalUnits: 12}
		if _, reason := scrobble.Decide(entry, 5, scorePolicy(), true); reason != scrobble.RejectStatus {
			t.Fatalf("status %s: expected status rejection, got %q", status, reason)
		}
	}
}

func TestDecideUnknownTotalNeverCompletes(t *testing.T) {
	entry := &cache.Entry{Status: cache.StatusWatching, Progress: 99, TotalUnits: 0, Score: 9}
	decision, reason := scrobble.Decide(entry, 100, scorePolicy(), false)
	if reason != "" {
		t.Fatalf("unexpected rejection: %s", reason)
	}
	if decision.Status != cache.StatusWatching || decision.Progress != 100 {
		t.Fatalf("unexpected decision: %+v", decision)
	}
}
