package symbolizer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/pdbresolve/pkg/util"
)

const (
	statusSuccess  = "success"
	statusNotFound = "not_found"
	statusError    = "error"

	frameResolved   = "resolved"
	frameUnresolved = "unresolved"
	frameInvalid    = "invalid"
)

type metrics struct {
	cacheOperations   *prometheus.CounterVec
	cacheEvictions    prometheus.Counter
	loadDuration      *prometheus.HistogramVec
	frames            *prometheus.CounterVec
	symbolizeDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		cacheOperations: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdbresolve_symbolizer_cache_operations_total",
			Help: "Total number of symbol index cache operations by operation and status",
		}, []string{"operation", "status"})),
		cacheEvictions: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdbresolve_symbolizer_cache_evictions_total",
			Help: "Total number of symbol indexes evicted from the cache",
		})),
		loadDuration: util.RegisterOrGet(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdbresolve_symbolizer_load_duration_seconds",
			Help:    "Time spent fetching and indexing symbol files by status",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		}, []string{"status"})),
		frames: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdbresolve_symbolizer_frames_total",
			Help: "Total number of symbolized frames by result",
		}, []string{"result"})),
		symbolizeDuration: util.RegisterOrGet(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdbresolve_symbolizer_symbolize_duration_seconds",
			Help:    "Time spent symbolizing batches of frames",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 10, 30},
		})),
	}
}
