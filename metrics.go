package graphdig

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/graphdig/model"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordSearch is called once per run, after its terminal batch.
	// matches counts every match the run emitted.
	RecordSearch(reason model.TerminalReason, matches int, duration time.Duration)

	// RecordBatch is called for every emitted batch.
	RecordBatch(matches int, final bool)

	// RecordQueueReduced is called when back-pressure drops frontier entries.
	RecordQueueReduced(dropped int)

	// RecordExpand is called after each property expansion.
	RecordExpand(properties int, notFound bool, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(model.TerminalReason, int, time.Duration) {}
func (NoopMetricsCollector) RecordBatch(int, bool)                                 {}
func (NoopMetricsCollector) RecordQueueReduced(int)                                {}
func (NoopMetricsCollector) RecordExpand(int, bool, time.Duration)                 {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchCompleted  atomic.Int64
	SearchCancelled  atomic.Int64
	SearchExhausted  atomic.Int64
	SearchMatches    atomic.Int64
	SearchTotalNanos atomic.Int64
	BatchCount       atomic.Int64
	BatchMatches     atomic.Int64
	QueueReductions  atomic.Int64
	QueueDropped     atomic.Int64
	ExpandCount      atomic.Int64
	ExpandNotFound   atomic.Int64
	ExpandProperties atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(reason model.TerminalReason, matches int, duration time.Duration) {
	b.SearchCount.Add(1)
	b.SearchMatches.Add(int64(matches))
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	switch reason {
	case model.Cancelled:
		b.SearchCancelled.Add(1)
	case model.BudgetExhausted:
		b.SearchExhausted.Add(1)
	default:
		b.SearchCompleted.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(matches int, final bool) {
	b.BatchCount.Add(1)
	b.BatchMatches.Add(int64(matches))
}

// RecordQueueReduced implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQueueReduced(dropped int) {
	b.QueueReductions.Add(1)
	b.QueueDropped.Add(int64(dropped))
}

// RecordExpand implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExpand(properties int, notFound bool, duration time.Duration) {
	b.ExpandCount.Add(1)
	b.ExpandProperties.Add(int64(properties))
	if notFound {
		b.ExpandNotFound.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SearchCount:      b.SearchCount.Load(),
		SearchCompleted:  b.SearchCompleted.Load(),
		SearchCancelled:  b.SearchCancelled.Load(),
		SearchExhausted:  b.SearchExhausted.Load(),
		SearchMatches:    b.SearchMatches.Load(),
		SearchAvgNanos:   b.getAvgSearchNanos(),
		BatchCount:       b.BatchCount.Load(),
		BatchMatches:     b.BatchMatches.Load(),
		QueueReductions:  b.QueueReductions.Load(),
		QueueDropped:     b.QueueDropped.Load(),
		ExpandCount:      b.ExpandCount.Load(),
		ExpandNotFound:   b.ExpandNotFound.Load(),
		ExpandProperties: b.ExpandProperties.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SearchCount      int64
	SearchCompleted  int64
	SearchCancelled  int64
	SearchExhausted  int64
	SearchMatches    int64
	SearchAvgNanos   int64
	BatchCount       int64
	BatchMatches     int64
	QueueReductions  int64
	QueueDropped     int64
	ExpandCount      int64
	ExpandNotFound   int64
	ExpandProperties int64
}

// runObserver forwards engine telemetry to the collector. The engine logs
// the same events itself.
type runObserver struct {
	metrics MetricsCollector
}

func (o *runObserver) ObserveBatch(b model.Batch) {
	o.metrics.RecordBatch(len(b.Matches), b.IsFinal)
}

func (o *runObserver) ObserveQueueReduced(dropped int) {
	o.metrics.RecordQueueReduced(dropped)
}

func (o *runObserver) ObserveRunEnd(reason model.TerminalReason, matches int, elapsed time.Duration) {
	o.metrics.RecordSearch(reason, matches, elapsed)
}
