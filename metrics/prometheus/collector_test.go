package prometheus

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/graphdig"
	"github.com/hupe1980/graphdig/model"
)

var _ graphdig.MetricsCollector = (*Collector)(nil)

func TestCollector(t *testing.T) {
	reg := prom.NewRegistry()
	c := NewCollector(reg)

	c.RecordSearch(model.Completed, 7, 20*time.Millisecond)
	c.RecordSearch(model.Cancelled, 1, time.Millisecond)
	c.RecordBatch(5, false)
	c.RecordBatch(2, true)
	c.RecordQueueReduced(40)
	c.RecordExpand(3, false, time.Millisecond)
	c.RecordExpand(0, true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.runs.WithLabelValues("cancelled")))
	assert.Equal(t, 8.0, testutil.ToFloat64(c.matches))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.batches.WithLabelValues("true")))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.queueDropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.expands.WithLabelValues("not_found")))

	n, err := testutil.GatherAndCount(reg, "graphdig_runs_total", "graphdig_expands_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCollector_Unregistered(t *testing.T) {
	c := NewCollector(nil)
	c.RecordBatch(1, false)

	reg := prom.NewRegistry()
	require.NoError(t, reg.Register(c.Collectors()[0]))
}
