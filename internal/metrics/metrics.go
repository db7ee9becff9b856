// Package metrics exports compile and execution counters to Prometheus.
package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/nlq/internal/engine"
	"github.com/roach88/nlq/internal/errors"
)

// Collector implements engine.Observer. Each Collector owns its registry so
// several can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	compiles       *prometheus.CounterVec
	compileSeconds *prometheus.HistogramVec
	executions     *prometheus.CounterVec
	executeSeconds prometheus.Histogram
}

var _ engine.Observer = (*Collector)(nil)

// New creates a collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		compiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlq_compile_total",
				Help: "Compilations by domain and outcome code.",
			},
			[]string{"domain", "code"},
		),
		compileSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nlq_compile_duration_seconds",
				Help:    "Compilation latency by domain.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"domain"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nlq_execute_total",
				Help: "Statement executions by result.",
			},
			[]string{"result"},
		),
		executeSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nlq_execute_duration_seconds",
				Help:    "Statement execution latency.",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	c.registry.MustRegister(c.compiles, c.compileSeconds, c.executions, c.executeSeconds)
	return c
}

// Registry exposes the registry for handlers and tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveCompile records one compilation.
func (c *Collector) ObserveCompile(o engine.Outcome) {
	domain := string(o.Domain)
	if domain == "" {
		domain = "none"
	}
	c.compiles.WithLabelValues(domain, o.Code).Inc()
	c.compileSeconds.WithLabelValues(domain).Observe(o.Duration.Seconds())
}

// ObserveExecute records one statement execution.
func (c *Collector) ObserveExecute(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.executions.WithLabelValues(result).Inc()
	c.executeSeconds.Observe(d.Seconds())
}

// WriteText writes all metrics in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	mfs, err := c.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrap(err, "encode metrics")
		}
	}
	return nil
}
