// Package ratelimit tracks the clinic API's request throttle and gates
// outgoing requests. It reads the X-RateLimit-Remaining, X-RateLimit-Limit,
// X-RateLimit-Reset and Retry-After headers so that clients sharing one
// Redis stop before the backend starts answering 429 Too Many Requests.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining      = "clinic:rate_limit:remaining"
	RedisKeyLimit          = "clinic:rate_limit:limit"
	RedisKeyResetTimestamp = "clinic:rate_limit:reset_timestamp"
	RedisKeyLastUpdate     = "clinic:rate_limit:last_update"
)

// Thresholds for rate limit decisions, in requests left in the window.
const (
	// RemainingThresholdCritical blocks requests while fewer remain and the
	// window has not reset yet.
	RemainingThresholdCritical = 3

	// RemainingThresholdWarning throttles requests below this value.
	RemainingThresholdWarning = 10

	// RemainingThresholdHealthy marks the state healthy at or above this value.
	RemainingThresholdHealthy = 30
)

// DefaultWindow is assumed when the backend reports neither Retry-After nor
// X-RateLimit-Reset (the API throttles per minute).
const DefaultWindow = 60 * time.Second

// RateLimitState represents the current API throttle state.
// This state is shared across all client instances via Redis.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	Remaining int `json:"remaining"`

	// Limit is the window size from X-RateLimit-Limit, 0 when unknown.
	Limit int `json:"limit"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= RemainingThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked until the
// window resets.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < RemainingThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < RemainingThresholdWarning &&
		s.TimeUntilReset() > 0 &&
		!s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= RemainingThresholdHealthy
}
