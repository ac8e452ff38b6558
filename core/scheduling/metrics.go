package scheduling

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	placementsTotal *prometheus.CounterVec
	shuntsTotal     *prometheus.CounterVec
	splitSegments   prometheus.Histogram
	shuntAffected   prometheus.Histogram
	cascadeDepth    prometheus.Histogram
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Histogram, prometheus.Histogram, prometheus.Histogram) {
	placements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduling_placements_total",
			Help: "Placement attempts by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)
	shunts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduling_shunts_total",
			Help: "Shunt resolutions by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)
	split := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduling_split_segments",
			Help:    "Number of segments a committed placement was split into",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
		},
	)
	affected := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduling_shunt_affected_tasks",
			Help:    "Number of tasks displaced by a successful shunt",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
		},
	)
	depth := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduling_shunt_cascade_depth",
			Help:    "Cascade depth reached while resolving a shunt",
			Buckets: []float64{0, 1, 2, 3},
		},
	)
	return placements, shunts, split, affected, depth
}

func init() {
	placementsTotal, shuntsTotal, splitSegments, shuntAffected, cascadeDepth = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers scheduling metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(placementsTotal, shuntsTotal, splitSegments, shuntAffected, cascadeDepth)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	placementsTotal, shuntsTotal, splitSegments, shuntAffected, cascadeDepth = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
