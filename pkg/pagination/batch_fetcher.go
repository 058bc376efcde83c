package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/globalmed/clinic-catalog/pkg/logging"
	"github.com/globalmed/clinic-catalog/pkg/pager"
)

var batchPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "batch_pages_fetched_total",
	Help: "Pages fetched by the batch fetcher by outcome",
}, []string{"outcome"})

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	// Keep it low: the API throttles per client at 60 requests per minute.
	MaxConcurrency int

	// Timeout per page fetch
	Timeout time.Duration

	// MaxPages caps how many pages are fetched (0 = no cap)
	MaxPages int
}

// DefaultConfig returns safe default configuration for the clinic API
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		MaxPages:       500,
	}
}

// Result is the merged outcome of a batch fetch.
type Result[T any] struct {
	// Items are the deduplicated items in page order.
	Items []T

	// TotalPages is the page count reported by page 1.
	TotalPages int

	// FetchedPages counts successfully fetched pages.
	FetchedPages int

	// FailedPages lists pages that could not be fetched, ascending.
	FailedPages []int

	// Duplicates counts items dropped because their key was already seen.
	Duplicates int
}

// Complete reports whether every page was fetched.
func (r *Result[T]) Complete() bool {
	return len(r.FailedPages) == 0
}

// BatchFetcher handles parallel fetching of all pages of a collection
type BatchFetcher[T pager.Keyed] struct {
	fetcher pager.Fetcher[T]
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T pager.Keyed](fetcher pager.Fetcher[T], config Config) *BatchFetcher[T] {
	defaults := DefaultConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("batch-fetcher"),
	}
}

// FetchAll fetches every page of the collection under filters.
//
// A failing first page is returned as the error with a nil result. Failures
// of later pages do not stop the others: the result holds everything that
// was fetched and the error reports the first failure.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, filters pager.Filters) (*Result[T], error) {
	start := time.Now()

	first, err := bf.fetchPage(ctx, filters, 1)
	if err != nil {
		batchPagesFetchedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	batchPagesFetchedTotal.WithLabelValues("success").Inc()

	totalPages := first.TotalPages
	lastPage := totalPages
	if bf.config.MaxPages > 0 && lastPage > bf.config.MaxPages {
		bf.logger.Warn().
			Int("total_pages", totalPages).
			Int("max_pages", bf.config.MaxPages).
			Msg("Page count exceeds cap, truncating")
		lastPage = bf.config.MaxPages
	}

	bf.logger.Info().
		Str("filters", filters.Encode()).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	// Index by page number so merge order does not depend on completion order
	pages := make([][]T, lastPage+1)
	failed := make([]bool, lastPage+1)
	pages[1] = first.Items

	g := new(errgroup.Group)
	g.SetLimit(bf.config.MaxConcurrency)

	for page := 2; page <= lastPage; page++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				failed[page] = true
				return err
			}

			res, err := bf.fetchPage(ctx, filters, page)
			if err != nil {
				failed[page] = true
				batchPagesFetchedTotal.WithLabelValues("error").Inc()
				bf.logger.Warn().
					Err(err).
					Int("page", page).
					Msg("Page fetch failed")
				return fmt.Errorf("page %d: %w", page, err)
			}

			pages[page] = res.Items
			batchPagesFetchedTotal.WithLabelValues("success").Inc()
			return nil
		})
	}

	groupErr := g.Wait()

	result := &Result[T]{TotalPages: totalPages}
	seen := make(map[string]struct{})
	for page := 1; page <= lastPage; page++ {
		if failed[page] {
			result.FailedPages = append(result.FailedPages, page)
			continue
		}
		var skipped int
		result.Items, skipped = pager.Merge(result.Items, seen, pages[page])
		result.Duplicates += skipped
		result.FetchedPages++
	}

	if groupErr != nil {
		bf.logger.Warn().
			Err(groupErr).
			Int("fetched_pages", result.FetchedPages).
			Int("total_pages", lastPage).
			Msg("Returning partial results")
		return result, fmt.Errorf("partial data (%d/%d pages): %w", result.FetchedPages, lastPage, groupErr)
	}

	bf.logger.Info().
		Int("pages", result.FetchedPages).
		Int("items", len(result.Items)).
		Int("duplicates", result.Duplicates).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}

// fetchPage fetches and validates one page under the per-page timeout.
func (bf *BatchFetcher[T]) fetchPage(ctx context.Context, filters pager.Filters, page int) (pager.PageResult[T], error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	res, err := bf.fetcher.Fetch(pageCtx, filters, page)
	if err != nil {
		return res, err
	}
	if err := res.Validate(); err != nil {
		return res, err
	}
	return res, nil
}
