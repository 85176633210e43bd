// Package metrics owns the Prometheus registry of a scraper run and writes it
// out as a node_exporter textfile when the run ends.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// TextfileName is the run artifact holding the final metric values.
const TextfileName = "metrics.prom"

// Export result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// NewRegistry returns a fresh registry for one CLI invocation. A private
// registry keeps repeated runs in one process (and tests) independent.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Exports tracks exporter activity.
type Exports struct {
	total *prometheus.CounterVec
	bytes *prometheus.CounterVec
}

// NewExports registers the export collectors against reg.
func NewExports(reg prometheus.Registerer) (*Exports, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	e := &Exports{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_exports_total",
			Help: "Artifacts exported partitioned by format and result.",
		}, []string{"format", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_export_bytes_total",
			Help: "Bytes written per export format.",
		}, []string{"format"}),
	}
	for _, c := range []prometheus.Collector{e.total, e.bytes} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register export metrics: %w", err)
		}
	}
	return e, nil
}

// Observe records one export attempt of the given format.
func (e *Exports) Observe(format string, size int, err error) {
	if e == nil {
		return
	}
	if err != nil {
		e.total.WithLabelValues(format, ResultError).Inc()
		return
	}
	e.total.WithLabelValues(format, ResultOK).Inc()
	e.bytes.WithLabelValues(format).Add(float64(size))
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
