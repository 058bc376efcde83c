package pager

import "slices"

// Display is what the presentation layer should show for a list.
type Display int

const (
	// DisplayItems means at least one item is accumulated.
	DisplayItems Display = iota

	// DisplayLoading means the first page is loading.
	DisplayLoading

	// DisplayError means the first page failed; a retry affordance is expected.
	DisplayError

	// DisplayEmpty means the collection has no items under the current filters.
	DisplayEmpty
)

// String returns a lowercase name for the display state.
func (d Display) String() string {
	switch d {
	case DisplayLoading:
		return "loading"
	case DisplayError:
		return "error"
	case DisplayEmpty:
		return "empty"
	default:
		return "items"
	}
}

// View is the presentation boundary of a Controller.
type View[T any] struct {
	// VisibleItems is the visible prefix of the accumulated list.
	VisibleItems []T

	// HasMore reports whether a show-more affordance should be rendered.
	HasMore bool

	// LoadMoreEnabled is HasMore without a fetch in flight.
	LoadMoreEnabled bool

	IsLoading bool
	LastError error
	Display   Display

	// Accumulated is the number of items held locally.
	Accumulated int
}

// State is a full snapshot of the controller, mostly useful in tests and
// diagnostics.
type State[T any] struct {
	Items        []T
	VisibleCount int
	CurrentPage  int
	TotalPages   int
	IsLoading    bool
	LastError    error
	Filters      Filters
	Generation   uint64
}

// HasMore reports whether hidden or unfetched items remain.
func (s State[T]) HasMore() bool {
	return s.VisibleCount < len(s.Items) || s.CurrentPage < s.TotalPages
}

// State returns a copy of the controller state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State[T]{
		Items:        slices.Clone(c.items),
		VisibleCount: c.visible,
		CurrentPage:  c.currentPage,
		TotalPages:   c.totalPages,
		IsLoading:    c.loading,
		LastError:    c.lastErr,
		Filters:      c.filters.Clone(),
		Generation:   c.generation,
	}
}

// View returns what the presentation layer needs to render the list.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	visible := min(c.visible, len(c.items))
	hasMore := c.visible < len(c.items) || c.currentPage < c.totalPages

	return View[T]{
		VisibleItems:    slices.Clone(c.items[:visible]),
		HasMore:         hasMore,
		LoadMoreEnabled: hasMore && !c.loading,
		IsLoading:       c.loading,
		LastError:       c.lastErr,
		Display:         displayFor(c.loading, c.lastErr, len(c.items)),
		Accumulated:     len(c.items),
	}
}

func displayFor(loading bool, lastErr error, accumulated int) Display {
	switch {
	case accumulated > 0:
		return DisplayItems
	case loading:
		return DisplayLoading
	case lastErr != nil:
		return DisplayError
	default:
		return DisplayEmpty
	}
}
