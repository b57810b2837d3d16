// Package metrics records per-invocation counters and can dump them in the
// node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeDryRun = "dry_run"
)

// Recorder holds the collectors for one invocation on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	chars       *prometheus.CounterVec
}

// New builds a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roastcheck",
				Name:      "invocations_total",
				Help:      "Total number of filter invocations",
			},
			[]string{"task", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "roastcheck",
				Subsystem: "generate",
				Name:      "duration_seconds",
				Help:      "Duration of model generation in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"task", "backend"},
		),
		chars: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "roastcheck",
				Subsystem: "generate",
				Name:      "completion_chars_total",
				Help:      "Characters of completion text written to stdout",
			},
			[]string{"task"},
		),
	}
	r.reg.MustRegister(r.invocations, r.duration, r.chars)
	return r
}

// ObserveInvocation counts one run with its outcome.
func (r *Recorder) ObserveInvocation(task, outcome string) {
	r.invocations.WithLabelValues(task, outcome).Inc()
}

// ObserveGeneration records generation latency and output size.
func (r *Recorder) ObserveGeneration(task, backend string, d time.Duration, chars int) {
	r.duration.WithLabelValues(task, backend).Observe(d.Seconds())
	r.chars.WithLabelValues(task).Add(float64(chars))
}

// WriteTextfile writes the registry to path atomically. Empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}
