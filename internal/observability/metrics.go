package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dealmungchi/bestdeal/logger"
)

var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bestdeal_searches_total",
			Help: "Source searches by outcome (ok, empty, failed)",
		},
		[]string{"source", "outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bestdeal_search_duration_seconds",
			Help:    "Duration of one source search including the delegate run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"source"},
	)

	ItemsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bestdeal_items_received_total",
			Help: "Raw items returned by scraping delegates",
		},
		[]string{"source"},
	)

	ItemsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bestdeal_items_dropped_total",
			Help: "Raw items that could not be normalized into a product",
		},
		[]string{"source"},
	)

	ReportsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bestdeal_reports_published_total",
			Help: "Search reports published by status",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(SearchesTotal, SearchDuration, ItemsReceived, ItemsDropped, ReportsPublished)
	})
}

// Start registers the collectors and serves /metrics on port
func Start(port string) {
	Register()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil && err != http.ErrServerClosed {
			logger.LogError("metrics", err, "metrics endpoint stopped")
		}
	}()
}
