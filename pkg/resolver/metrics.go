package resolver

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grafana/pdbresolve/pkg/util"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultInvalid = "invalid"
)

type metrics struct {
	lookups       *prometheus.CounterVec
	methods       prometheus.Counter
	duplicates    prometheus.Counter
	buildDuration prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		lookups: util.RegisterOrGet(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdbresolve_resolver_lookups_total",
			Help: "Total number of location lookups by result",
		}, []string{"result"})),
		methods: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdbresolve_resolver_indexed_methods_total",
			Help: "Total number of methods added to symbol indexes",
		})),
		duplicates: util.RegisterOrGet(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdbresolve_resolver_duplicate_methods_total",
			Help: "Total number of methods overwritten by a later definition with the same class and name",
		})),
		buildDuration: util.RegisterOrGet(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pdbresolve_resolver_build_duration_seconds",
			Help:    "Time spent building symbol indexes",
			Buckets: []float64{.0001, .001, .005, .01, .05, .1, .5, 1, 5},
		})),
	}
}
