package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/globalmed/clinic-catalog/pkg/logging"
)

const (
	// DefaultInitialReveal is the visible count right after a reset.
	DefaultInitialReveal = 8

	// DefaultRevealStep is how much the visible count grows per LoadMore.
	DefaultRevealStep = 8
)

// Options configures a Controller.
type Options struct {
	// InitialReveal is the visible count after Reset.
	InitialReveal int

	// RevealStep is the visible count increment per LoadMore.
	RevealStep int

	// Name labels logs and metrics (e.g. "doctors").
	Name string

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultOptions returns the reveal sizes used by the clinic listings.
func DefaultOptions() Options {
	return Options{
		InitialReveal: DefaultInitialReveal,
		RevealStep:    DefaultRevealStep,
		Name:          "default",
	}
}

// Controller accumulates a deduplicated list from a paginated source and
// exposes a growing prefix of it.
//
// All methods are safe for concurrent use. Reset, LoadMore and Retry block
// until their fetch (if any) completes; the internal lock is never held while
// fetching.
type Controller[T Keyed] struct {
	fetcher Fetcher[T]
	opts    Options
	logger  zerolog.Logger

	mu          sync.Mutex
	started     bool
	filters     Filters
	items       []T
	seen        map[string]struct{}
	visible     int
	currentPage int
	totalPages  int
	loading     bool
	lastErr     error
	generation  uint64
	cancel      context.CancelFunc
}

// fetchToken identifies the context a fetch was issued in.
type fetchToken struct {
	generation uint64
	page       int
	filters    Filters
	cancel     context.CancelFunc
}

// New creates a controller. No fetch is issued until Reset or OnFilterChange.
func New[T Keyed](fetcher Fetcher[T], opts Options) (*Controller[T], error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if opts.InitialReveal <= 0 {
		return nil, fmt.Errorf("initial reveal must be > 0 (got %d)", opts.InitialReveal)
	}
	if opts.RevealStep <= 0 {
		return nil, fmt.Errorf("reveal step must be > 0 (got %d)", opts.RevealStep)
	}
	if opts.Name == "" {
		opts.Name = "default"
	}

	logger := logging.NewLogger("pager").With().Str("list", opts.Name).Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Controller[T]{
		fetcher:     fetcher,
		opts:        opts,
		logger:      logger,
		seen:        make(map[string]struct{}),
		visible:     opts.InitialReveal,
		currentPage: 1,
		totalPages:  1,
	}, nil
}

// Reset discards everything accumulated, restarts pagination at page 1 under
// filters and fetches that page. Any fetch still in flight is cancelled and
// its completion ignored.
//
// The returned error is also recorded as LastError, except ErrStale which
// means a newer Reset superseded this one.
func (c *Controller[T]) Reset(ctx context.Context, filters Filters) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.started = true
	c.filters = filters.Clone()
	c.items = nil
	c.seen = make(map[string]struct{})
	c.visible = c.opts.InitialReveal
	c.currentPage = 1
	c.totalPages = 1
	c.lastErr = nil
	fetchCtx, tok := c.beginLocked(ctx, 1)
	c.mu.Unlock()

	c.logger.Debug().
		Str("filters", filters.Encode()).
		Uint64("generation", tok.generation).
		Msg("List reset")

	return c.run(fetchCtx, tok)
}

// OnFilterChange resets the controller when filters differ from the ones
// of the last Reset. The first call always resets. It reports whether a
// reset happened.
func (c *Controller[T]) OnFilterChange(ctx context.Context, filters Filters) (bool, error) {
	c.mu.Lock()
	unchanged := c.started && c.filters.Equal(filters)
	c.mu.Unlock()

	if unchanged {
		return false, nil
	}
	return true, c.Reset(ctx, filters)
}

// LoadMore is the "show more" action. It reveals already accumulated items
// when there are any hidden, otherwise fetches the next server page. It does
// nothing while a fetch is in flight or when everything is loaded and visible.
func (c *Controller[T]) LoadMore(ctx context.Context) error {
	c.mu.Lock()

	if c.loading {
		c.mu.Unlock()
		c.logger.Debug().Msg("Load more ignored: fetch in flight")
		return nil
	}

	if c.visible < len(c.items) {
		c.visible = min(c.visible+c.opts.RevealStep, len(c.items))
		visible, total := c.visible, len(c.items)
		c.mu.Unlock()

		pagerLocalRevealsTotal.WithLabelValues(c.opts.Name).Inc()
		c.logger.Debug().
			Int("visible", visible).
			Int("accumulated", total).
			Msg("Revealed accumulated items")
		return nil
	}

	if c.currentPage >= c.totalPages {
		c.mu.Unlock()
		return nil
	}

	fetchCtx, tok := c.beginLocked(ctx, c.currentPage+1)
	c.mu.Unlock()

	return c.run(fetchCtx, tok)
}

// Retry repeats the failed step: the initial fetch when nothing is
// accumulated, otherwise LoadMore.
func (c *Controller[T]) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return nil
	}
	empty := len(c.items) == 0
	filters := c.filters
	c.mu.Unlock()

	if empty {
		return c.Reset(ctx, filters)
	}
	return c.LoadMore(ctx)
}

// Filters returns a copy of the filters of the last Reset.
func (c *Controller[T]) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Clone()
}

// beginLocked marks a fetch for page as in flight. Callers hold c.mu.
func (c *Controller[T]) beginLocked(ctx context.Context, page int) (context.Context, fetchToken) {
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.loading = true
	return fetchCtx, fetchToken{
		generation: c.generation,
		page:       page,
		filters:    c.filters,
		cancel:     cancel,
	}
}

// run performs the fetch described by tok and applies its completion unless
// a Reset happened in the meantime.
func (c *Controller[T]) run(ctx context.Context, tok fetchToken) error {
	defer tok.cancel()

	c.logger.Debug().Int("page", tok.page).Msg("Fetching page")

	start := time.Now()
	res, err := c.fetcher.Fetch(ctx, tok.filters, tok.page)
	pagerFetchDuration.WithLabelValues(c.opts.Name).Observe(time.Since(start).Seconds())
	if err == nil {
		err = res.Validate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tok.generation != c.generation {
		pagerFetchesTotal.WithLabelValues(c.opts.Name, "stale").Inc()
		c.logger.Debug().
			Int("page", tok.page).
			Uint64("generation", tok.generation).
			Uint64("current_generation", c.generation).
			Msg("Discarded stale fetch completion")
		return ErrStale
	}

	c.loading = false
	c.cancel = nil

	if err != nil {
		fetchErr := newFetchError(tok.page, err)
		c.lastErr = fetchErr
		pagerFetchesTotal.WithLabelValues(c.opts.Name, "error").Inc()
		c.logger.Warn().
			Err(err).
			Int("page", tok.page).
			Str("error_class", fetchErr.Kind.String()).
			Msg("Page fetch failed")
		return fetchErr
	}

	c.lastErr = nil
	c.applyLocked(res)
	pagerFetchesTotal.WithLabelValues(c.opts.Name, "success").Inc()

	c.logger.Debug().
		Int("page", res.CurrentPage).
		Int("total_pages", res.TotalPages).
		Int("accumulated", len(c.items)).
		Int("visible", c.visible).
		Msg("Page applied")

	return nil
}

// applyLocked folds a successful page into the state. Callers hold c.mu.
func (c *Controller[T]) applyLocked(res PageResult[T]) {
	var skipped int
	if res.CurrentPage == 1 {
		c.seen = make(map[string]struct{}, len(res.Items))
		c.items, skipped = Merge(make([]T, 0, len(res.Items)), c.seen, res.Items)
		c.visible = min(c.visible, len(c.items))
	} else {
		c.items, skipped = Merge(c.items, c.seen, res.Items)
		c.visible = min(c.visible+c.opts.RevealStep, len(c.items))
	}

	if skipped > 0 {
		pagerDuplicatesSkippedTotal.WithLabelValues(c.opts.Name).Add(float64(skipped))
	}

	if res.CurrentPage > c.currentPage {
		c.currentPage = res.CurrentPage
	}
	c.totalPages = res.TotalPages
}

// IsStale reports whether err means the operation was superseded by a reset.
func IsStale(err error) bool {
	return errors.Is(err, ErrStale)
}
