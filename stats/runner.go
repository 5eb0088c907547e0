// Package stats tracks chronomesh's internal counters and exposes them as
// Prometheus collectors, in the naming convention the teacher's stats
// package documents: "*.n" counters, "*.ns" latencies, "*.size" sizes.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Naming Convention (teacher's stats/target_stats.go comment, adapted):
//
//	-> "*.n"  - counter
//	-> "*.ns" - latency (nanoseconds, as a histogram bucket)
const (
	SendCount      = "send.n"
	AppliedCount   = "applied.n"
	RejectedCount  = "rejected.n"
	DriftCount     = "anomaly.drift.n"
	OutOfOrderCont = "anomaly.outoforder.n"
	IOErrCount     = "err.io.n"
	ListenerErr    = "err.listener.n"
	SendLatency    = "send.ns"
)

// Runner is the per-orchestrator metrics bundle; one Runner is shared by
// the orchestrator and its detector.
type Runner struct {
	reg *prometheus.Registry

	sendTotal     prometheus.Counter
	appliedTotal  prometheus.Counter
	rejectedTotal prometheus.Counter
	driftTotal    *prometheus.CounterVec // by node
	oooTotal      prometheus.Counter
	ioErrTotal    prometheus.Counter
	listenerErr   prometheus.Counter
	sendLatency   prometheus.Histogram
}

func NewRunner() *Runner {
	r := &Runner{reg: prometheus.NewRegistry()}

	r.sendTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronomesh_send_total", Help: "Deliveries attempted.",
	})
	r.appliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronomesh_applied_total", Help: "Deliveries applied at destination.",
	})
	r.rejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronomesh_rejected_total", Help: "Deliveries rejected as stale (out-of-order).",
	})
	r.driftTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chronomesh_drift_anomalies_total", Help: "Drift anomalies by node.",
	}, []string{"node"})
	r.oooTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronomesh_out_of_order_anomalies_total", Help: "Out-of-order anomalies detected.",
	})
	r.ioErrTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronomesh_journal_io_errors_total", Help: "Best-effort journal append/persist failures.",
	})
	r.listenerErr = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chronomesh_listener_errors_total", Help: "Listener callback failures, isolated and dropped.",
	})
	r.sendLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "chronomesh_send_latency_ms", Help: "Simulated delivery latency.",
		Buckets: prometheus.LinearBuckets(10, 20, 10),
	})

	r.reg.MustRegister(r.sendTotal, r.appliedTotal, r.rejectedTotal, r.driftTotal,
		r.oooTotal, r.ioErrTotal, r.listenerErr, r.sendLatency)
	return r
}

func (r *Runner) IncSend()                     { r.sendTotal.Inc() }
func (r *Runner) IncApplied()                  { r.appliedTotal.Inc() }
func (r *Runner) IncRejected()                 { r.rejectedTotal.Inc() }
func (r *Runner) IncDrift(node string)         { r.driftTotal.WithLabelValues(node).Inc() }
func (r *Runner) IncOutOfOrder()               { r.oooTotal.Inc() }
func (r *Runner) IncIOErr()                    { r.ioErrTotal.Inc() }
func (r *Runner) IncListenerErr()              { r.listenerErr.Inc() }
func (r *Runner) ObserveSendLatencyMs(ms float64) { r.sendLatency.Observe(ms) }

// Handler returns the /metrics http.Handler for this Runner's registry.
// Binding it to a listener is left to the CLI's metrics-serve subcommand --
// the registry itself has no ambient HTTP dependency.
func (r *Runner) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
