package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "censor_requests_total",
		Help: "Total HTTP requests by route and status code.",
	}, []string{"route", "code"})

	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "censor_matches_total",
		Help: "Total distinct banned fragments found in censored texts.",
	})

	ScanSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "censor_scan_seconds",
		Help:    "Time spent censoring a single text.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	CompileErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "censor_compile_errors_total",
		Help: "Total term updates rejected because a pattern failed to compile.",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "censor_cache_hits_total",
		Help: "Total censor results served from the cache.",
	})
)
