// Package metrics counts ledgerkey operations and writes them in the
// Prometheus text format for the node exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds the operation metrics of one process
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// New creates a Recorder with its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerkey",
			Name:      "operations_total",
			Help:      "Key store and proof operations by command and result.",
		}, []string{"command", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledgerkey",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of key store and proof operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"command"}),
	}
	r.registry.MustRegister(r.operations, r.duration)
	return r
}

// Observe records one run of command
func (r *Recorder) Observe(command string, started time.Time, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.operations.WithLabelValues(command, result).Inc()
	r.duration.WithLabelValues(command).Observe(time.Since(started).Seconds())
}

// Gatherer exposes the registry
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteFile writes the metrics to filename. An empty filename is a no-op.
func (r *Recorder) WriteFile(filename string) error {
	if filename == "" {
		return nil
	}
	return prometheus.WriteToTextfile(filename, r.registry)
}
