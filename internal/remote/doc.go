// Package remote talks to the Shikimori list API: paginated list fetches,
// user-rate updates, and OAuth token refresh. Requests are rate limited and
// failures are tagged with sentinel errors so the sync coordinator can
// distinguish retryable trouble from terminal rejections.
package remote
