// Package poolmetrics exposes the pool's counters and gauges to
// Prometheus, the same RED/USE-style collector the teacher's
// internal/metrics.Collector used for its job queue, renamed here to the
// task-pool vocabulary (spec §4.1 Stats/Health).
package poolmetrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects Prometheus metrics for one Pool.
type Collector struct {
	tasksSubmitted prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksFailed    prometheus.Counter
	tasksTimedOut  prometheus.Counter
	tasksCrashed   prometheus.Counter

	taskLatency prometheus.Histogram

	workersLive prometheus.Gauge
	workersBusy prometheus.Gauge
	workersIdle prometheus.Gauge
	queueDepth  prometheus.Gauge
	memoryUsed  prometheus.Gauge
}

// NewCollector builds and registers a Collector against reg. Callers
// that only ever run one Pool per process may pass
// prometheus.DefaultRegisterer; tests should pass a fresh
// prometheus.NewRegistry() to avoid cross-test collisions.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		tasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklets_tasks_submitted_total",
			Help: "Total number of tasks submitted to the pool",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklets_tasks_completed_total",
			Help: "Total number of tasks completed successfully",
		}),
		tasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklets_tasks_failed_total",
			Help: "Total number of tasks settled with a non-timeout, non-crash error",
		}),
		tasksTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklets_tasks_timed_out_total",
			Help: "Total number of tasks settled with Timeout",
		}),
		tasksCrashed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasklets_tasks_crashed_total",
			Help: "Total number of tasks settled with WorkerCrashed",
		}),
		taskLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tasklets_task_latency_seconds",
			Help:    "Task submit-to-settle latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		workersLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklets_workers_live",
			Help: "Current number of live workers",
		}),
		workersBusy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklets_workers_busy",
			Help: "Current number of busy workers",
		}),
		workersIdle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklets_workers_idle",
			Help: "Current number of idle workers",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklets_queue_depth",
			Help: "Current number of tasks waiting in the queue",
		}),
		memoryUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasklets_memory_used_percent",
			Help: "Last-sampled system memory usage percentage",
		}),
	}

	reg.MustRegister(
		c.tasksSubmitted, c.tasksCompleted, c.tasksFailed, c.tasksTimedOut,
		c.tasksCrashed, c.taskLatency, c.workersLive, c.workersBusy,
		c.workersIdle, c.queueDepth, c.memoryUsed,
	)
	return c
}

// RecordSubmit records a task admission.
func (c *Collector) RecordSubmit() { c.tasksSubmitted.Inc() }

// RecordCompleted records a successful settlement, with its latency.
func (c *Collector) RecordCompleted(latencySeconds float64) {
	c.tasksCompleted.Inc()
	c.taskLatency.Observe(latencySeconds)
}

// RecordFailed records an InvalidPayload/EncodingError settlement.
func (c *Collector) RecordFailed(latencySeconds float64) {
	c.tasksFailed.Inc()
	c.taskLatency.Observe(latencySeconds)
}

// RecordTimedOut records a Timeout settlement.
func (c *Collector) RecordTimedOut(latencySeconds float64) {
	c.tasksTimedOut.Inc()
	c.taskLatency.Observe(latencySeconds)
}

// RecordCrashed records a WorkerCrashed settlement.
func (c *Collector) RecordCrashed(latencySeconds float64) {
	c.tasksCrashed.Inc()
	c.taskLatency.Observe(latencySeconds)
}

// UpdateWorkerStats updates the worker/queue gauges from a Stats snapshot.
func (c *Collector) UpdateWorkerStats(live, busy, idle, queueDepth int) {
	c.workersLive.Set(float64(live))
	c.workersBusy.Set(float64(busy))
	c.workersIdle.Set(float64(idle))
	c.queueDepth.Set(float64(queueDepth))
}

// UpdateMemoryUsed records the last memory-usage percentage sampled by
// the AdaptiveController.
func (c *Collector) UpdateMemoryUsed(percent float64) {
	c.memoryUsed.Set(percent)
}

// StartServer starts a dedicated metrics HTTP server exposing /metrics
// via the given registry's gatherer.
func StartServer(port int, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
