package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tcg_scanner"

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Scan pipeline
var (
	ScanRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_requests_total",
		Help:      "Scans by outcome (success, input_error, ocr_error, busy, error, canceled).",
	}, []string{"outcome"})

	ScanStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_stage_duration_seconds",
		Help:      "Time spent in each scan pipeline stage.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"stage"})

	ScanDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scan_degraded_total",
		Help:      "Non-fatal stage failures that left a result field empty.",
	}, []string{"stage"})

	OCRLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ocr_latency_seconds",
		Help:      "Text extraction latency by provider.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"provider"})

	OCRErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ocr_errors_total",
		Help:      "Text extraction failures by provider and reason.",
	}, []string{"provider", "reason"})
)

// Card database and pricing
var (
	CardLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "card_lookups_total",
		Help:      "Card database lookups by result (found, not_found, error).",
	}, []string{"result"})

	PriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_cache_hits_total",
		Help:      "Price lookups answered from a fresh cache entry.",
	})

	PriceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_cache_misses_total",
		Help:      "Price lookups that went to the providers.",
	})

	PriceStaleServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_stale_served_total",
		Help:      "Price lookups answered from a stale cache entry after every provider failed.",
	})

	PriceSourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_source_errors_total",
		Help:      "Price provider failures by source.",
	}, []string{"source"})

	PriceRefreshesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_worker_refreshes_total",
		Help:      "Cached prices refreshed by the background worker.",
	})
)

// Scan history, recomputed from the database by UpdateScanMetrics
var (
	ScansStoredTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scans_stored",
		Help:      "Scan records in the history table.",
	})

	ScansByAuthenticity = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scans_by_authenticity",
		Help:      "Stored scans split by authenticity verdict.",
	}, []string{"authentic"})

	ScannedValueUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scanned_value_usd",
		Help:      "Sum of market prices across stored scans.",
	})

	CachedPricesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cached_prices",
		Help:      "Rows in the price cache.",
	})
)
