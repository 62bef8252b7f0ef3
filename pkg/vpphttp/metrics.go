//go:build !prometheus
// +build !prometheus

package vpphttp

// engineMetrics is the no-op instrumentation used in default builds.
// Build with -tags prometheus to get the counters defined in
// metrics_prometheus.go instead, mirroring the teacher's own
// //go:build prometheus gating (buffer_pool_prometheus.go) for
// connection-pool and parser instrumentation.
type engineMetrics struct{}

func newEngineMetrics() *engineMetrics { return &engineMetrics{} }

func (m *engineMetrics) incParseError(kind string)      {}
func (m *engineMetrics) incTimerExpiry()                {}
func (m *engineMetrics) setPoolOccupancy(worker int, n int) {}
