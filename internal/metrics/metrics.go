// Package metrics exposes Prometheus collectors for bridge and daemon calls.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics counts and times operations for one subsystem ("bridge", "daemon").
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ops      *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates the collectors for subsystem and registers them on reg.
// Collectors already registered on reg are reused.
func New(reg prometheus.Registerer, subsystem string) (*Metrics, error) {
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corebridge",
		Subsystem: subsystem,
		Name:      "operations_total",
		Help:      "Operations handled, by operation and outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "corebridge",
		Subsystem: subsystem,
		Name:      "operation_duration_seconds",
		Help:      "Time spent in the core per operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	var err error
	if ops, err = register(reg, ops); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	return &Metrics{ops: ops, duration: duration}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe records one finished operation.
func (m *Metrics) Observe(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.ops.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Count returns the counter for op and outcome, for tests and status output.
func (m *Metrics) Count(op, outcome string) prometheus.Counter {
	return m.ops.WithLabelValues(op, outcome)
}
