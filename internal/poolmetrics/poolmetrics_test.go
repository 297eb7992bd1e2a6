package poolmetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorRecordsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubmit()
	c.RecordCompleted(0.01)
	c.RecordTimedOut(0.02)
	c.RecordCrashed(0.03)
	c.UpdateWorkerStats(3, 1, 2, 5)
	c.UpdateMemoryUsed(42.5)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksSubmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksCompleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksTimedOut))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.tasksCrashed))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.workersLive))
	assert.Equal(t, float64(5), testutil.ToFloat64(c.queueDepth))
	assert.Equal(t, float64(42.5), testutil.ToFloat64(c.memoryUsed))
}
