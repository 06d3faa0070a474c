// Package ratelimit implements Zendesk API rate limit tracking and request
// pacing. It monitors the X-Rate-Limit and X-Rate-Limit-Remaining headers to
// slow the client down before the API starts returning 429 responses.
package ratelimit

import (
	"time"
)

// Thresholds for rate limit decisions.
const (
	// RemainingThresholdWarning applies throttling when the remaining request
	// budget in the current minute window falls below this value.
	RemainingThresholdWarning = 20

	// RemainingThresholdHealthy indicates normal operation.
	// At or above this value no restrictions apply.
	RemainingThresholdHealthy = 50
)

// State represents the most recently observed Zendesk rate limit window.
// The window is per-account and per-minute; the API reports it on every
// response, so the state is only as old as the last request.
type State struct {
	// Limit is the total request budget of the current window.
	// Extracted from the X-Rate-Limit header.
	Limit int

	// Remaining is the number of requests left in the current window.
	// Extracted from the X-Rate-Limit-Remaining header.
	Remaining int

	// LastUpdate is the timestamp when this state was last updated.
	LastUpdate time.Time

	// IsHealthy indicates whether the remaining budget is comfortable.
	// True when Remaining >= RemainingThresholdHealthy.
	IsHealthy bool
}

// IsStale returns true if the state data is older than the given duration.
// Zendesk windows are one minute, so stale state should not gate requests.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsThrottling returns true if requests should be paused to let the
// window budget recover.
func (s *State) NeedsThrottling() bool {
	return !s.LastUpdate.IsZero() && s.Remaining < RemainingThresholdWarning
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *State) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}
