//go:build prometheus
// +build prometheus

package vpphttp

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Opt-in instrumentation, built the same way the teacher gates its own
// buffer-pool counters (pkg/shockwave/buffer_pool_prometheus.go):
// parse error counts, timer expirations, and per-worker connection
// pool occupancy, selected by the "prometheus" build tag.
var (
	parseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vpphttp",
			Subsystem: "parser",
			Name:      "errors_total",
			Help:      "Total wire parse errors by kind.",
		},
		[]string{"kind"},
	)

	timerExpiriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vpphttp",
			Subsystem: "timer",
			Name:      "expiries_total",
			Help:      "Total inactivity timer expirations acted on.",
		},
	)

	poolOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "vpphttp",
			Subsystem: "pool",
			Name:      "occupancy",
			Help:      "Live connection slots per worker pool.",
		},
		[]string{"worker"},
	)
)

type engineMetrics struct{}

func newEngineMetrics() *engineMetrics { return &engineMetrics{} }

func (m *engineMetrics) incParseError(kind string) {
	parseErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *engineMetrics) incTimerExpiry() {
	timerExpiriesTotal.Inc()
}

func (m *engineMetrics) setPoolOccupancy(worker int, n int) {
	poolOccupancy.WithLabelValues(strconv.Itoa(worker)).Set(float64(n))
}
