package pager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for list controllers.
var (
	pagerFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pager_fetches_total",
		Help: "Completed page fetches by list and outcome",
	}, []string{"list", "outcome"})

	pagerFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pager_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds by list",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"list"})

	pagerLocalRevealsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pager_local_reveals_total",
		Help: "Show-more actions served from already accumulated items",
	}, []string{"list"})

	pagerDuplicatesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pager_duplicates_skipped_total",
		Help: "Items dropped because their key was already accumulated",
	}, []string{"list"})
)
