package pager

import (
	"context"
	"fmt"
)

// Keyed is implemented by list items. Two items are the same item iff their
// keys are equal.
type Keyed interface {
	Key() string
}

// PageResult is one server page plus its pagination metadata.
type PageResult[T any] struct {
	Items       []T
	CurrentPage int
	TotalPages  int
}

// Validate reports ErrMalformed when the pagination metadata is missing or
// out of range.
func (r PageResult[T]) Validate() error {
	if r.CurrentPage < 1 {
		return fmt.Errorf("%w: current page %d", ErrMalformed, r.CurrentPage)
	}
	if r.TotalPages < 1 {
		return fmt.Errorf("%w: total pages %d", ErrMalformed, r.TotalPages)
	}
	return nil
}

// Fetcher loads a single page of a collection under the given filters.
// Pages are 1-based. Repeating a call with the same arguments must be safe.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, filters Filters, page int) (PageResult[T], error)
}

// FetchFunc adapts a plain function to the Fetcher interface.
type FetchFunc[T any] func(ctx context.Context, filters Filters, page int) (PageResult[T], error)

// Fetch implements Fetcher.
func (f FetchFunc[T]) Fetch(ctx context.Context, filters Filters, page int) (PageResult[T], error) {
	return f(ctx, filters, page)
}

// Merge appends the items of incoming whose keys are not yet in seen to acc,
// preserving the order of both. seen is updated in place. It returns the new
// slice and the number of skipped duplicates (including duplicates within
// incoming itself).
func Merge[T Keyed](acc []T, seen map[string]struct{}, incoming []T) ([]T, int) {
	skipped := 0
	for _, item := range incoming {
		key := item.Key()
		if _, ok := seen[key]; ok {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		acc = append(acc, item)
	}
	return acc, skipped
}
