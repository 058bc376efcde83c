// Package client provides the clinic REST API HTTP client with rate
// limiting, response caching and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/globalmed/clinic-catalog/pkg/cache"
	"github.com/globalmed/clinic-catalog/pkg/logging"
	"github.com/globalmed/clinic-catalog/pkg/ratelimit"
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_api_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clinic_api_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinic_api_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// Client is the clinic API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retry       RetryConfig
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com/api/v1" (REQUIRED)
	BaseURL string

	// UserAgent header (REQUIRED)
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// Locale is sent as Accept-Language unless the request context carries
	// one (see WithLocale).
	Locale string

	// Redis enables the response cache and the shared rate limit gate.
	// Without it every request goes to the API.
	Redis redis.UniversalClient

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the number of repeats after a retriable failure.
	// 0 disables automatic retries.
	MaxRetries int

	// InitialBackoff overrides the per-class first backoff when > 0.
	InitialBackoff time.Duration

	// HTTPClient replaces the default transport (tests, proxies).
	HTTPClient *http.Client

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		Locale:    "ru",
		Timeout:   15 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := logging.NewLogger("clinic-client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		retry: RetryConfig{
			MaxAttempts:    cfg.MaxRetries + 1,
			InitialBackoff: cfg.InitialBackoff,
		},
		config: cfg,
		logger: logger,
	}

	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

type localeKey struct{}

// WithLocale returns a context whose requests ask for locale instead of
// Config.Locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	if locale == "" {
		return ctx
	}
	return context.WithValue(ctx, localeKey{}, locale)
}

// localeFor returns the effective locale of a request.
func (c *Client) localeFor(ctx context.Context) string {
	if locale, ok := ctx.Value(localeKey{}).(string); ok {
		return locale
	}
	return c.config.Locale
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// This is the core request method that orchestrates all client features.
//
// Fresh cache entries are served without contacting the API. Stale ones are
// revalidated with a conditional request. Retriable failures (5xx, 429,
// transport) are returned as errors wrapping *APIError once retries are
// exhausted; other 4xx responses are returned for the caller to inspect.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path
	locale := c.localeFor(ctx)

	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := c.logger.With().
		Str("endpoint", endpoint).
		Str("request_id", requestID).
		Logger()

	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("rate limit wait: %w", err)
		case err != nil:
			// Redis trouble must not take the catalog down
			logger.Warn().Err(err).Msg("Rate limit check failed, allowing request")
		case !allowed:
			logger.Warn().Msg("Request blocked by rate limiter")
			apiRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			apiErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return nil, &APIError{
				StatusCode: http.StatusTooManyRequests,
				ErrorClass: ErrorClassRateLimit,
				Endpoint:   endpoint,
				Message:    "rate limit window exhausted",
				Err:        ErrRateLimited,
			}
		}
	}

	// Step 2: Check Cache
	useCache := c.cache != nil && req.Method == http.MethodGet
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
		Locale:      locale,
	}

	var cachedEntry *cache.CacheEntry
	if useCache {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	if cachedEntry != nil && !cachedEntry.IsExpired() {
		logger.Debug().Dur("ttl", cachedEntry.TTL()).Msg("Serving fresh cache entry")
		apiRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 3: Make Conditional Request for a stale entry
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		logger.Debug().
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Set request headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if locale != "" {
		req.Header.Set("Accept-Language", locale)
	}

	logger.Debug().
		Str("method", req.Method).
		Str("locale", locale).
		Msg("Executing API request")

	// Step 5: Execute HTTP Request with Retry Logic
	var resp *http.Response
	retryErr := retryWithBackoff(ctx, logger, c.retry, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			logger.Error().Err(reqErr).Msg("HTTP request failed")
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			resp = nil
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Endpoint:   endpoint,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
				logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

			logger.Warn().
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			if shouldRetry(errClass) {
				apiErr := newAPIError(endpoint, resp)
				resp = nil
				return apiErr
			}

			// Client errors are left to the caller
			return nil
		}

		apiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		logger.Debug().Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()
		resp.Body.Close()

		cachedEntry.Expires = cache.ParseExpires(resp.Header, time.Now())
		if err := c.cache.Set(ctx, cacheKey, cachedEntry); err != nil {
			logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}

		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update Cache on success
	if useCache && resp.StatusCode == http.StatusOK && cache.IsCacheable(resp.Header) {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			logger.Debug().
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return resp, nil
}

// URL resolves an API path against the base URL.
func (c *Client) URL(path string, query url.Values) *url.URL {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u
}

// Get performs a GET request to an API path.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path, query).String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// GetJSON performs a GET request and decodes the JSON body into out.
// Responses with status >= 400 are returned as *APIError.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return newAPIError(path, resp)
	}
	if resp.StatusCode == http.StatusNotModified {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassServer,
			Endpoint:   path,
			Message:    "not modified without a cached entry",
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w %s: %w", ErrDecode, path, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
