// Package pager provides an incremental, deduplicating list controller over
// server-paginated collections.
//
// The controller keeps a locally accumulated list built by merging successive
// server pages and exposes only a prefix of it (the visible count). The visible
// count grows in reveal steps that are independent of the server's page size,
// so a "show more" action first reveals items already held locally and only
// fetches the next server page once everything accumulated is visible.
//
// # Basic Usage
//
//	fetcher := pager.FetchFunc[Doctor](func(ctx context.Context, f pager.Filters, page int) (pager.PageResult[Doctor], error) {
//		return api.ListDoctors(ctx, f, page)
//	})
//
//	ctrl, err := pager.New[Doctor](fetcher, pager.DefaultOptions())
//	if err != nil {
//		return err
//	}
//
//	// Mount / filter change
//	if _, err := ctrl.OnFilterChange(ctx, pager.Filters{"search": {"cardio"}}); err != nil {
//		// err is also recorded in ctrl.View().LastError
//	}
//
//	// "Show more"
//	_ = ctrl.LoadMore(ctx)
//
//	view := ctrl.View()
//	render(view.VisibleItems, view.HasMore, view.LoadMoreEnabled)
//
// # Fetch Ordering
//
// At most one fetch is trusted at a time. LoadMore is a no-op while a fetch is
// in flight. Reset starts a new generation: the context of any in-flight fetch
// is cancelled and its completion, successful or not, is discarded.
//
// # Metrics
//
//   - pager_fetches_total{list, outcome} - Completed fetches (success, error, stale)
//   - pager_fetch_duration_seconds{list} - Fetch latency
//   - pager_local_reveals_total{list} - Show-more actions served without a fetch
//   - pager_duplicates_skipped_total{list} - Items dropped by id dedupe
package pager
