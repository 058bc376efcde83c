package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clinic_rate_limit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to critical rate limit",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to warning rate limit",
	})
)

const (
	// DefaultThrottleDelay is the pause applied in the warning band.
	DefaultThrottleDelay = 1 * time.Second

	// stateRetention keeps state in Redis past the window reset so late
	// readers still see the last reported numbers.
	stateRetention = 5 * time.Minute
)

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithThrottleDelay overrides DefaultThrottleDelay.
func WithThrottleDelay(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		if d >= 0 {
			t.throttleDelay = d
		}
	}
}

// Tracker monitors the API rate limit and gates requests.
type Tracker struct {
	redis         redis.UniversalClient
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient redis.UniversalClient, logger zerolog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	values, err := t.redis.MGet(ctx,
		RedisKeyRemaining,
		RedisKeyLimit,
		RedisKeyResetTimestamp,
		RedisKeyLastUpdate,
	).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}

	// Remaining is the only mandatory field
	if values[0] == nil {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		now := time.Now()
		return &RateLimitState{
			Remaining:  100, // Assume healthy until we get real data
			ResetAt:    now,
			LastUpdate: now,
			IsHealthy:  true,
		}, nil
	}

	remaining, err := redisInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	limit, err := redisInt(values[1])
	if err != nil {
		return nil, fmt.Errorf("parse limit: %w", err)
	}
	resetUnix, err := redisInt(values[2])
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	lastUpdateUnix, err := redisInt(values[3])
	if err != nil {
		return nil, fmt.Errorf("parse last update: %w", err)
	}

	state := &RateLimitState{
		Remaining:  remaining,
		Limit:      limit,
		ResetAt:    time.Unix(int64(resetUnix), 0),
		LastUpdate: time.UnixMilli(int64(lastUpdateUnix)),
	}
	state.UpdateHealth()

	return state, nil
}

// redisInt converts an MGET value; missing keys read as 0.
func redisInt(v any) (int, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.Atoi(val)
	default:
		return 0, fmt.Errorf("unexpected redis value type %T", v)
	}
}

// ParseHeaders extracts the rate limit state from response headers.
// It returns nil without error when the response carries no rate limit
// information.
func ParseHeaders(headers http.Header, now time.Time) (*RateLimitState, error) {
	remainStr := headers.Get("X-RateLimit-Remaining")
	retryAfterStr := headers.Get("Retry-After")
	if remainStr == "" && retryAfterStr == "" {
		return nil, nil
	}

	state := &RateLimitState{LastUpdate: now}

	if remainStr != "" {
		remain, err := strconv.Atoi(remainStr)
		if err != nil {
			return nil, fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
		state.Remaining = remain
	}

	if limitStr := headers.Get("X-RateLimit-Limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
		}
		state.Limit = limit
	}

	switch {
	case retryAfterStr != "":
		resetAt, err := parseRetryAfter(retryAfterStr, now)
		if err != nil {
			return nil, err
		}
		state.ResetAt = resetAt
		// Retry-After without a counter means the window is exhausted
		if remainStr == "" {
			state.Remaining = 0
		}
	case headers.Get("X-RateLimit-Reset") != "":
		resetUnix, err := strconv.ParseInt(headers.Get("X-RateLimit-Reset"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
		}
		state.ResetAt = time.Unix(resetUnix, 0)
	default:
		state.ResetAt = now.Add(DefaultWindow)
	}

	state.UpdateHealth()
	return state, nil
}

// parseRetryAfter accepts both delay-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) (time.Time, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return time.Time{}, fmt.Errorf("negative Retry-After header: %d", seconds)
		}
		return now.Add(time.Duration(seconds) * time.Second), nil
	}
	at, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse Retry-After header: %w", err)
	}
	return at, nil
}

// UpdateFromHeaders parses rate limit headers and updates Redis state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, err := ParseHeaders(headers, time.Now())
	if err != nil {
		return err
	}
	if state == nil {
		// Header not present - this is OK for cached or error responses
		return nil
	}
	if t.redis == nil {
		return errors.New("rate limit tracker has no redis client")
	}

	ttl := state.TimeUntilReset() + stateRetention

	// Store in Redis atomically
	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, ttl)
	pipe.Set(ctx, RedisKeyLimit, state.Limit, ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.UnixMilli(), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	rateLimitRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("API rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Int("limit", state.Limit).
			Bool("is_healthy", state.IsHealthy).
			Msg("API rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current rate limit state.
// Returns false if the request should be blocked due to critical rate limit.
// Returns true but may wait for throttling if in warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("API rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.throttleDelay).
			Msg("API rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(t.throttleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
