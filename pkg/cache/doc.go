// Package cache provides a Redis-backed HTTP response cache for the clinic
// catalog API.
//
// The cache manager stores successful GET responses keyed by endpoint, query
// and locale, and supports revalidation:
//
// - TTL taken from the Expires header or Cache-Control max-age (DefaultTTL otherwise)
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/doctors",
//		QueryParams: url.Values{"page": []string{"2"}},
//		Locale:      "ru",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// a 304 answer is served with cache.EntryToResponse(entry)
//	}
//
// # Metrics
//
//   - clinic_cache_hits_total{layer="redis"} - Cache hits
//   - clinic_cache_misses_total - Cache misses
//   - clinic_cache_stored_bytes_total{layer="redis"} - Bytes written to the cache
//   - clinic_304_responses_total - Conditional request successes
//   - clinic_conditional_requests_total - Conditional requests sent
//   - clinic_cache_errors_total{operation} - Cache operation errors
package cache
