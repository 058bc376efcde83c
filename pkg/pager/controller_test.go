package pager

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	id int
}

func (i item) Key() string { return strconv.Itoa(i.id) }

func items(from, to int) []item {
	out := make([]item, 0, to-from+1)
	for id := from; id <= to; id++ {
		out = append(out, item{id: id})
	}
	return out
}

func page(from, to, current, total int) PageResult[item] {
	return PageResult[item]{Items: items(from, to), CurrentPage: current, TotalPages: total}
}

func ids(list []item) []int {
	out := make([]int, len(list))
	for i, it := range list {
		out[i] = it.id
	}
	return out
}

// countingFetcher wraps fn and records the requested pages.
type countingFetcher struct {
	mu    sync.Mutex
	pages []int
	fn    func(ctx context.Context, filters Filters, page int) (PageResult[item], error)
}

func (f *countingFetcher) Fetch(ctx context.Context, filters Filters, page int) (PageResult[item], error) {
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	return f.fn(ctx, filters, page)
}

func (f *countingFetcher) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.pages...)
}

func newTestController(t *testing.T, f Fetcher[item]) *Controller[item] {
	t.Helper()
	nop := zerolog.Nop()
	opts := DefaultOptions()
	opts.Name = "test"
	opts.Logger = &nop
	c, err := New[item](f, opts)
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	f := FetchFunc[item](func(context.Context, Filters, int) (PageResult[item], error) {
		return PageResult[item]{}, nil
	})

	tests := []struct {
		name    string
		fetcher Fetcher[item]
		opts    Options
		errMsg  string
	}{
		{name: "valid", fetcher: f, opts: DefaultOptions()},
		{name: "nil fetcher", opts: DefaultOptions(), errMsg: "fetcher is required"},
		{name: "zero initial reveal", fetcher: f, opts: Options{RevealStep: 8}, errMsg: "initial reveal must be > 0 (got 0)"},
		{name: "negative reveal step", fetcher: f, opts: Options{InitialReveal: 8, RevealStep: -1}, errMsg: "reveal step must be > 0 (got -1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New[item](tt.fetcher, tt.opts)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Nil(t, c)
				assert.Equal(t, tt.errMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.False(t, c.View().HasMore)
		})
	}
}

func TestController_LoadMoreScenario(t *testing.T) {
	f := &countingFetcher{fn: func(_ context.Context, _ Filters, p int) (PageResult[item], error) {
		switch p {
		case 1:
			return page(1, 8, 1, 3), nil
		case 2:
			return page(9, 16, 2, 3), nil
		default:
			// id 16 is repeated by the server alongside 17..24
			return page(16, 24, 3, 3), nil
		}
	}}
	c := newTestController(t, f)
	ctx := context.Background()

	require.NoError(t, c.Reset(ctx, Filters{}))
	s := c.State()
	assert.Len(t, s.Items, 8)
	assert.Equal(t, 8, s.VisibleCount)
	assert.True(t, s.HasMore())

	require.NoError(t, c.LoadMore(ctx))
	s = c.State()
	assert.Len(t, s.Items, 16)
	assert.Equal(t, 16, s.VisibleCount)
	assert.Equal(t, 2, s.CurrentPage)

	require.NoError(t, c.LoadMore(ctx))
	s = c.State()
	assert.Len(t, s.Items, 24)
	assert.Equal(t, 24, s.VisibleCount)
	assert.Equal(t, ids(items(1, 24)), ids(s.Items))
	assert.False(t, s.HasMore())

	// Everything loaded and visible: no further fetch.
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []int{1, 2, 3}, f.calls())
}

func TestController_ResetClearsStateBeforeFetchResolves(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	f := FetchFunc[item](func(_ context.Context, filters Filters, p int) (PageResult[item], error) {
		if filters.Get("specialization") == "cardiology" {
			close(entered)
			<-gate
			return page(50, 52, 1, 1), nil
		}
		return page(1, 12, p, 3), nil
	})
	c := newTestController(t, f)
	ctx := context.Background()

	require.NoError(t, c.Reset(ctx, nil))
	require.NoError(t, c.LoadMore(ctx))
	require.Equal(t, 12, c.State().VisibleCount)

	done := make(chan error, 1)
	go func() {
		done <- c.Reset(ctx, Filters{"specialization": {"cardiology"}})
	}()

	<-entered
	s := c.State()
	assert.Empty(t, s.Items)
	assert.Equal(t, DefaultInitialReveal, s.VisibleCount)
	assert.Equal(t, 1, s.CurrentPage)
	assert.True(t, s.IsLoading)
	assert.Equal(t, DisplayLoading, c.View().Display)

	close(gate)
	require.NoError(t, <-done)

	s = c.State()
	assert.Equal(t, []int{50, 51, 52}, ids(s.Items))
	assert.Equal(t, 3, s.VisibleCount)
	assert.False(t, s.IsLoading)
}

func TestController_LocalRevealDoesNotFetch(t *testing.T) {
	f := &countingFetcher{fn: func(_ context.Context, _ Filters, p int) (PageResult[item], error) {
		if p == 1 {
			return page(1, 20, 1, 2), nil
		}
		return page(21, 40, 2, 2), nil
	}}
	c := newTestController(t, f)
	ctx := context.Background()

	require.NoError(t, c.Reset(ctx, nil))
	assert.Equal(t, 8, c.State().VisibleCount)

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, 16, c.State().VisibleCount)

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, 20, c.State().VisibleCount, "reveal is capped at accumulated length")
	assert.Equal(t, []int{1}, f.calls())

	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, []int{1, 2}, f.calls())
	assert.Equal(t, 28, c.State().VisibleCount)
}

func TestController_LoadMoreWhileLoadingIsNoop(t *testing.T) {
	entered := make(chan struct{})
	gate := make(chan struct{})
	f := &countingFetcher{fn: func(_ context.Context, _ Filters, p int) (PageResult[item], error) {
		if p == 2 {
			close(entered)
			<-gate
		}
		return page(p*8-7, p*8, p, 3), nil
	}}
	c := newTestController(t, f)
	ctx := context.Background()
	require.NoError(t, c.Reset(ctx, nil))

	done := make(chan error, 1)
	go func() { done <- c.LoadMore(ctx) }()
	<-entered

	v := c.View()
	assert.True(t, v.IsLoading)
	assert.True(t, v.HasMore)
	assert.False(t, v.LoadMoreEnabled)

	// Double click while page 2 is in flight.
	require.NoError(t, c.LoadMore(ctx))
	require.NoError(t, c.Retry(ctx))

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, []int{1, 2}, f.calls())
	assert.Equal(t, 16, c.State().VisibleCount)
}

func TestController_StaleCompletionIgnored(t *testing.T) {
	tests := []struct {
		name        string
		honourCtx   bool
		staleResult error
	}{
		{name: "fetcher ignores cancellation, succeeds", honourCtx: false},
		{name: "fetcher ignores cancellation, fails", honourCtx: false, staleResult: errors.New("boom")},
		{name: "fetcher aborts on cancellation", honourCtx: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entered := make(chan struct{})
			release := make(chan struct{})
			f := FetchFunc[item](func(ctx context.Context, filters Filters, p int) (PageResult[item], error) {
				if filters.Get("q") != "old" {
					return page(100, 103, 1, 1), nil
				}
				if p == 1 {
					return page(1, 8, 1, 3), nil
				}
				close(entered)
				if tt.honourCtx {
					<-ctx.Done()
					return PageResult[item]{}, ctx.Err()
				}
				<-release
				if tt.staleResult != nil {
					return PageResult[item]{}, tt.staleResult
				}
				return page(9, 16, 2, 3), nil
			})
			c := newTestController(t, f)
			ctx := context.Background()
			require.NoError(t, c.Reset(ctx, Filters{"q": {"old"}}))

			done := make(chan error, 1)
			go func() { done <- c.LoadMore(ctx) }()
			<-entered

			require.NoError(t, c.Reset(ctx, Filters{"q": {"new"}}))
			close(release)

			err := <-done
			assert.ErrorIs(t, err, ErrStale)
			assert.True(t, IsStale(err))

			s := c.State()
			assert.Equal(t, []int{100, 101, 102, 103}, ids(s.Items))
			assert.Equal(t, 1, s.CurrentPage)
			assert.Equal(t, 1, s.TotalPages)
			assert.Equal(t, 4, s.VisibleCount)
			assert.False(t, s.IsLoading)
			assert.NoError(t, s.LastError)
		})
	}
}

func TestController_FailedFetchDoesNotMutate(t *testing.T) {
	fail := atomic.Bool{}
	f := FetchFunc[item](func(_ context.Context, _ Filters, p int) (PageResult[item], error) {
		if fail.Load() {
			return PageResult[item]{}, &testKindError{kind: KindServer}
		}
		return page(p*8-7, p*8, p, 3), nil
	})
	c := newTestController(t, f)
	ctx := context.Background()
	require.NoError(t, c.Reset(ctx, nil))

	fail.Store(true)
	err := c.LoadMore(ctx)
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, KindServer, fetchErr.Kind)
	assert.Equal(t, 2, fetchErr.Page)

	s := c.State()
	assert.Len(t, s.Items, 8)
	assert.Equal(t, 8, s.VisibleCount)
	assert.Equal(t, 1, s.CurrentPage)
	assert.False(t, s.IsLoading)
	assert.Equal(t, err, s.LastError)

	v := c.View()
	assert.Equal(t, DisplayItems, v.Display)
	assert.True(t, v.LoadMoreEnabled)

	fail.Store(false)
	require.NoError(t, c.Retry(ctx))
	s = c.State()
	assert.Len(t, s.Items, 16)
	assert.NoError(t, s.LastError)
}

func TestController_InitialFailureShowsError(t *testing.T) {
	calls := atomic.Int32{}
	f := FetchFunc[item](func(_ context.Context, _ Filters, _ int) (PageResult[item], error) {
		if calls.Add(1) == 1 {
			return PageResult[item]{}, context.DeadlineExceeded
		}
		return PageResult[item]{Items: nil, CurrentPage: 1, TotalPages: 1}, nil
	})
	c := newTestController(t, f)
	ctx := context.Background()

	err := c.Reset(ctx, nil)
	require.Error(t, err)

	v := c.View()
	assert.Equal(t, DisplayError, v.Display)
	assert.Empty(t, v.VisibleItems)
	assert.False(t, v.HasMore)

	var fetchErr *FetchError
	require.ErrorAs(t, v.LastError, &fetchErr)
	assert.Equal(t, KindNetwork, fetchErr.Kind)
	assert.Equal(t, "The service could not be reached", fetchErr.Description())

	// LoadMore has nothing to do after a failed first page; Retry refetches it.
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, int32(1), calls.Load())

	require.NoError(t, c.Retry(ctx))
	assert.Equal(t, DisplayEmpty, c.View().Display)
}

func TestController_MalformedResult(t *testing.T) {
	f := FetchFunc[item](func(_ context.Context, _ Filters, _ int) (PageResult[item], error) {
		return PageResult[item]{Items: items(1, 3), CurrentPage: 0, TotalPages: 1}, nil
	})
	c := newTestController(t, f)

	err := c.Reset(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Empty(t, c.State().Items)
	assert.Equal(t, KindMalformed, Classify(err))
}

func TestController_MonotonicPage(t *testing.T) {
	f := FetchFunc[item](func(_ context.Context, _ Filters, p int) (PageResult[item], error) {
		switch p {
		case 1:
			return page(1, 8, 1, 5), nil
		case 2:
			// Server skipped ahead.
			return page(9, 16, 3, 5), nil
		default:
			// A late answer for an earlier page.
			return page(12, 20, 2, 5), nil
		}
	})
	c := newTestController(t, f)
	ctx := context.Background()

	require.NoError(t, c.Reset(ctx, nil))
	require.NoError(t, c.LoadMore(ctx))
	assert.Equal(t, 3, c.State().CurrentPage)

	require.NoError(t, c.LoadMore(ctx))
	s := c.State()
	assert.Equal(t, 3, s.CurrentPage, "page number never moves backwards")
	assert.Equal(t, ids(items(1, 20)), ids(s.Items), "stale page is still merged")
}

func TestController_OnFilterChange(t *testing.T) {
	f := &countingFetcher{fn: func(_ context.Context, filters Filters, _ int) (PageResult[item], error) {
		if filters.Get("search") == "" {
			return page(1, 8, 1, 1), nil
		}
		return page(1, 2, 1, 1), nil
	}}
	c := newTestController(t, f)
	ctx := context.Background()

	reset, err := c.OnFilterChange(ctx, nil)
	require.NoError(t, err)
	assert.True(t, reset, "first observation always resets")

	reset, err = c.OnFilterChange(ctx, Filters{})
	require.NoError(t, err)
	assert.False(t, reset, "nil and empty filters are equal")

	reset, err = c.OnFilterChange(ctx, Filters{"search": {"ivanov"}})
	require.NoError(t, err)
	assert.True(t, reset)
	assert.Len(t, c.State().Items, 2)

	reset, err = c.OnFilterChange(ctx, Filters{"search": {"ivanov"}})
	require.NoError(t, err)
	assert.False(t, reset)

	assert.Len(t, f.calls(), 2)
	assert.Equal(t, Filters{"search": {"ivanov"}}, c.Filters())
}

func TestController_HasMore(t *testing.T) {
	tests := []struct {
		name     string
		first    PageResult[item]
		loadMore int
		want     bool
	}{
		{name: "single full page", first: page(1, 8, 1, 1), want: false},
		{name: "hidden local items", first: page(1, 10, 1, 1), want: true},
		{name: "hidden items revealed", first: page(1, 10, 1, 1), loadMore: 1, want: false},
		{name: "more server pages", first: page(1, 8, 1, 2), want: true},
		{name: "empty collection", first: PageResult[item]{CurrentPage: 1, TotalPages: 1}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FetchFunc[item](func(context.Context, Filters, int) (PageResult[item], error) {
				return tt.first, nil
			})
			c := newTestController(t, f)
			ctx := context.Background()
			require.NoError(t, c.Reset(ctx, nil))
			for i := 0; i < tt.loadMore; i++ {
				require.NoError(t, c.LoadMore(ctx))
			}

			s := c.State()
			assert.Equal(t, tt.want, c.View().HasMore)
			assert.Equal(t, tt.want, s.HasMore())
			assert.Equal(t, !tt.want, s.VisibleCount == len(s.Items) && s.CurrentPage == s.TotalPages)
		})
	}
}

func TestController_DedupInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		t.Run(fmt.Sprintf("run_%d", run), func(t *testing.T) {
			total := 2 + rng.Intn(6)
			f := FetchFunc[item](func(_ context.Context, _ Filters, p int) (PageResult[item], error) {
				// Overlapping windows, sometimes mislabelled pages.
				from := (p-1)*8 - rng.Intn(5)
				if from < 1 {
					from = 1
				}
				label := p
				if rng.Intn(4) == 0 && p > 2 {
					label = p - 1
				}
				res := page(from, from+7+rng.Intn(4), label, total)
				res.Items = append(res.Items, res.Items[rng.Intn(len(res.Items))])
				return res, nil
			})
			c := newTestController(t, f)
			ctx := context.Background()
			require.NoError(t, c.Reset(ctx, nil))
			for i := 0; i < 3*total; i++ {
				require.NoError(t, c.LoadMore(ctx))

				s := c.State()
				seen := make(map[int]bool)
				for _, it := range s.Items {
					require.False(t, seen[it.id], "duplicate id %d", it.id)
					seen[it.id] = true
				}
				require.LessOrEqual(t, s.VisibleCount, len(s.Items))
				require.GreaterOrEqual(t, s.VisibleCount, 0)
			}
		})
	}
}

type testKindError struct {
	kind ErrorKind
}

func (e *testKindError) Error() string             { return "test " + e.kind.String() }
func (e *testKindError) FetchErrorKind() ErrorKind { return e.kind }
