package kgraph

import "github.com/arborgraph/kgraph/pkg/metrics"

// NewPrometheusCollector returns a metrics.Collector backed by
// prometheus/client_golang, ready to pass as Config.Collector. The
// counters/histogram/gauges themselves live in pkg/metrics, shared
// infrastructure the way pkg/metrics.go instruments the teacher's gognee
// package; this is just the entry point an adapter wiring kgraph reaches
// for.
func NewPrometheusCollector() *metrics.PrometheusCollector {
	return metrics.NewCollector()
}
