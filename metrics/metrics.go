// Package metrics has prometheus collectors for studies.
// They're registered with the default registry on package load.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusOK     = "ok"
	StatusError  = "error"
	StatusCached = "cached"
)

var (
	// evaluated cases by driver and status (ok, error, cached)
	CasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modelrun_cases_total",
			Help: "Total number of cases evaluated by a study",
		},
		[]string{"driver", "status"},
	)

	// time spent in a model evaluation, cache hits not included
	CaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "modelrun_case_duration_seconds",
			Help: "Duration of a single model evaluation in seconds",
			// from in-process models (microseconds) to remote ones (minutes)
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"driver"},
	)

	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modelrun_cache_hits_total",
			Help: "Total number of cases answered from the evaluation cache",
		},
	)
)

// ObserveCase records a finished evaluation
func ObserveCase(driver string, dur time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	CasesTotal.WithLabelValues(driver, status).Inc()
	CaseDuration.WithLabelValues(driver).Observe(dur.Seconds())
}

// ObserveCacheHit records a case answered from cache
func ObserveCacheHit(driver string) {
	CasesTotal.WithLabelValues(driver, StatusCached).Inc()
	CacheHitsTotal.Inc()
}
