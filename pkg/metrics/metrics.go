package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	JobsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrape_jobs_in_queue",
			Help: "Current number of scrape jobs waiting in the queue.",
		},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of scrape runs.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Duration of scrape runs.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"status"},
	)

	// CardsTotal counts result cards by what happened to them.
	CardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_cards_total",
			Help: "Result cards processed, by outcome.",
		},
		[]string{"outcome"}, // captured, filtered, stale, click_failed, detail_timeout
	)

	RecordsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scrape_records_accepted_total",
			Help: "Records accepted into a run before final dedup.",
		},
	)
)
