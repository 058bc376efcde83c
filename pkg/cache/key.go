package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every key the cache writes.
const KeyPrefix = "clinic"

// CacheKey represents a unique identifier for a cached API response.
type CacheKey struct {
	// Endpoint is the API path (e.g., "/doctors")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2"})
	QueryParams url.Values

	// Locale is the Accept-Language the response was produced for
	Locale string
}

// String generates a deterministic cache key string.
// Format: clinic:endpoint:query1=val1,val2:query2=val:lang=ru
//
// Example:
//
//	clinic:doctors:page=2:search=ivanov:lang=ru
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, key+"="+strings.Join(k.QueryParams[key], ","))
		}
	}

	if k.Locale != "" {
		parts = append(parts, "lang="+k.Locale)
	}

	return strings.Join(parts, ":")
}
