// Package prometheus exports graphdig metrics to Prometheus.
//
//	c := prometheus.NewCollector(prom.DefaultRegisterer)
//	d := graphdig.New(doc, nil, graphdig.WithMetricsCollector(c))
package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/graphdig/model"
)

// Collector implements graphdig.MetricsCollector with Prometheus metrics.
type Collector struct {
	runs          *prom.CounterVec
	runDuration   prom.Histogram
	matches       prom.Counter
	batches       *prom.CounterVec
	queueReduced  prom.Counter
	queueDropped  prom.Counter
	expands       *prom.CounterVec
	expandLatency prom.Histogram
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prom.Registerer) *Collector {
	c := &Collector{
		runs: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphdig_runs_total",
			Help: "Search and explore runs by terminal reason",
		}, []string{"reason"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Name:    "graphdig_run_duration_seconds",
			Help:    "Wall-clock duration of runs",
			Buckets: prom.DefBuckets,
		}),
		matches: prom.NewCounter(prom.CounterOpts{
			Name: "graphdig_matches_total",
			Help: "Matches emitted by runs",
		}),
		batches: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphdig_batches_total",
			Help: "Emitted batches",
		}, []string{"final"}),
		queueReduced: prom.NewCounter(prom.CounterOpts{
			Name: "graphdig_frontier_reductions_total",
			Help: "Back-pressure events",
		}),
		queueDropped: prom.NewCounter(prom.CounterOpts{
			Name: "graphdig_frontier_dropped_total",
			Help: "Frontier entries dropped by back-pressure",
		}),
		expands: prom.NewCounterVec(prom.CounterOpts{
			Name: "graphdig_expands_total",
			Help: "Property expansions by outcome",
		}, []string{"status"}),
		expandLatency: prom.NewHistogram(prom.HistogramOpts{
			Name:    "graphdig_expand_duration_seconds",
			Help:    "Latency of property expansions",
			Buckets: prom.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(c.Collectors()...)
	}
	return c
}

// Collectors returns every metric, for custom registration.
func (c *Collector) Collectors() []prom.Collector {
	return []prom.Collector{
		c.runs, c.runDuration, c.matches, c.batches,
		c.queueReduced, c.queueDropped, c.expands, c.expandLatency,
	}
}

// RecordSearch implements graphdig.MetricsCollector.
func (c *Collector) RecordSearch(reason model.TerminalReason, matches int, duration time.Duration) {
	c.runs.WithLabelValues(string(reason)).Inc()
	c.runDuration.Observe(duration.Seconds())
	c.matches.Add(float64(matches))
}

// RecordBatch implements graphdig.MetricsCollector.
func (c *Collector) RecordBatch(matches int, final bool) {
	label := "false"
	if final {
		label = "true"
	}
	c.batches.WithLabelValues(label).Inc()
}

// RecordQueueReduced implements graphdig.MetricsCollector.
func (c *Collector) RecordQueueReduced(dropped int) {
	c.queueReduced.Inc()
	c.queueDropped.Add(float64(dropped))
}

// RecordExpand implements graphdig.MetricsCollector.
func (c *Collector) RecordExpand(properties int, notFound bool, duration time.Duration) {
	status := "ok"
	if notFound {
		status = "not_found"
	}
	c.expands.WithLabelValues(status).Inc()
	c.expandLatency.Observe(duration.Seconds())
}
