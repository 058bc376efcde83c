// Package pagination fetches every page of a paginated clinic collection.
//
// The list controller in pkg/pager loads pages one at a time as the user asks
// for more. Exports and warm-up jobs instead need the whole collection. This
// package fetches page 1 to learn the page count, then the remaining pages in
// parallel with a bounded number of in-flight requests, and merges them in
// page order with the same key dedupe the controller applies.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(svc.Doctors(), pagination.DefaultConfig())
//	result, err := fetcher.FetchAll(ctx, filters.Filters())
//
// The batch fetcher:
//   - Fetches first page to determine total pages
//   - Runs pages 2..N through an errgroup limited to MaxConcurrency
//   - Merges pages in page order, dropping repeated keys
//   - Returns partial results plus an error when some pages failed
package pagination
