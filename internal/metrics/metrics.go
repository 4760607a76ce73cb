// Package metrics exports the outcome of a clean run as Prometheus metrics.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/imamik/osclean/internal/cleanup"
	"github.com/imamik/osclean/internal/resource"
)

const (
	namespace = "osclean"
	jobName   = "osclean"
)

// Collector records per-resource outcomes and run totals in its own registry.
// It implements cleanup.Reporter.
type Collector struct {
	registry *prometheus.Registry

	resourcesTotal   *prometheus.CounterVec
	resourceDuration *prometheus.HistogramVec
	categoryDuration *prometheus.GaugeVec
	problems         prometheus.Gauge
	lastRun          prometheus.Gauge
	dryRun           prometheus.Gauge
}

// NewCollector returns a collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		resourcesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "resources_total",
				Help:      "Resources processed by kind and final status",
			},
			[]string{"kind", "status"},
		),
		resourceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "resource_duration_seconds",
				Help:      "Time spent on one resource, including retries and verification",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
			[]string{"kind"},
		),
		categoryDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "category_duration_seconds",
				Help:      "Duration of each cleanup category in the last run",
			},
			[]string{"category"},
		),
		problems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "problems",
			Help:      "Resources that failed or timed out in the last run",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_completion_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		dryRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "dry_run",
			Help:      "Whether the last run was a dry run (1) or not (0)",
		}),
	}
	c.registry.MustRegister(
		c.resourcesTotal,
		c.resourceDuration,
		c.categoryDuration,
		c.problems,
		c.lastRun,
		c.dryRun,
	)
	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Report counts one outcome.
func (c *Collector) Report(o resource.Outcome) {
	kind := o.Kind.String()
	c.resourcesTotal.WithLabelValues(kind, string(o.Status)).Inc()
	if o.Duration > 0 {
		c.resourceDuration.WithLabelValues(kind).Observe(o.Duration.Seconds())
	}
}

// ObserveSummary records run-level values once the run is over.
func (c *Collector) ObserveSummary(s cleanup.Summary, finished time.Time) {
	for _, t := range s.Timings {
		c.categoryDuration.WithLabelValues(t.Category.String()).Set(t.Duration.Seconds())
	}
	c.problems.Set(float64(s.Problems()))
	c.lastRun.Set(float64(finished.Unix()))
	if s.DryRun {
		c.dryRun.Set(1)
	} else {
		c.dryRun.Set(0)
	}
}

// WriteTextfile writes the registry in text exposition format, for the node
// exporter textfile collector. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Push sends the registry to a Prometheus pushgateway, replacing the
// previous push of the same job and instance grouping.
func (c *Collector) Push(ctx context.Context, url, instance string) error {
	p := push.New(url, jobName).Gatherer(c.registry)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
