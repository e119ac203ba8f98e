// Package scrobble turns player and page-scraper observations into list
// mutations. Signals flow through a single-consumer pipeline: dwell gating,
// title extraction, matching against the cached list, sequential-episode
// validation, and handoff to the sync coordinator. Rejections are expected
// noise and never propagate as errors.
package scrobble
