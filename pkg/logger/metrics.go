package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks API latency
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "flip_finder_http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_finder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// ExpressionCacheLookups counts compile cache lookups by result (hit, miss)
	ExpressionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_finder_expression_cache_lookups_total",
			Help: "Compiled expression cache lookups by result",
		},
		[]string{"result"},
	)

	// ColumnEvaluationErrors counts column values that degraded to null, by
	// error kind (syntax, runtime, cycle)
	ColumnEvaluationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_finder_column_evaluation_errors_total",
			Help: "Column evaluations that produced null because of an error",
		},
		[]string{"kind"},
	)

	// FilterFailures counts filter rules that failed closed
	FilterFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flip_finder_filter_failures_total",
			Help: "Filter rule evaluations that raised an error and counted as false",
		},
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flip_finder_scan_duration_seconds",
			Help:    "Time to evaluate filters and columns over one snapshot",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	ScanItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flip_finder_scan_items",
			Help: "Items in the last evaluated snapshot, total and after filtering",
		},
		[]string{"stage"},
	)

	// PriceFetchErrors counts failed price API calls by endpoint
	PriceFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flip_finder_price_fetch_errors_total",
			Help: "Failed price API requests by endpoint",
		},
		[]string{"endpoint"},
	)
)
