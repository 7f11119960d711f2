// Package metrics holds the daemon's prometheus collectors and the HTTP
// listener that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SearchesStarted counts search invocations.
	SearchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvs_search_started_total",
		Help: "Total search invocations",
	})

	// CategoryEmissions counts result lists delivered per category.
	CategoryEmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_search_category_emissions_total",
		Help: "Result lists delivered by category",
	}, []string{"category"})

	// CategoryFailures counts provider errors and panics per category.
	CategoryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_search_category_failures_total",
		Help: "Provider failures by category and kind",
	}, []string{"category", "kind"})

	// FirstResultLatency tracks time from search start to a category's first list.
	FirstResultLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvs_search_first_result_seconds",
		Help:    "Time until a category delivers its first result list",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"category"})

	// RemoteRequests counts outbound HTTP requests by host and outcome.
	RemoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_remote_requests_total",
		Help: "Outbound requests by host and result",
	}, []string{"host", "result"})

	// CatalogReloads counts catalog imports by result.
	CatalogReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_catalog_reloads_total",
		Help: "Catalog imports by result",
	}, []string{"result"})

	// RateRefreshes counts currency rate refreshes by result.
	RateRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvs_rates_refresh_total",
		Help: "Currency rate refreshes by result",
	}, []string{"result"})
)
