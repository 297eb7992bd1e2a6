// Package pool implements the Pool façade: submit, configure, stats,
// health, shutdown (spec §4.1). It wires together every other component
// — Clock, MemoryProbe, Worker, WorkerRegistry, TaskQueue, TaskTable,
// Dispatcher, AdaptiveController, MaintenanceLoop — the way the
// teacher's internal/controller.Controller wired WAL, snapshot,
// WorkerPool and JobManager into one coordinating type, generalized here
// to an in-memory, non-durable task pool.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wendelmax/tasklets-go/internal/adaptive"
	"github.com/wendelmax/tasklets-go/internal/applog"
	"github.com/wendelmax/tasklets-go/internal/clock"
	"github.com/wendelmax/tasklets-go/internal/config"
	"github.com/wendelmax/tasklets-go/internal/dispatcher"
	"github.com/wendelmax/tasklets-go/internal/maintenance"
	"github.com/wendelmax/tasklets-go/internal/memprobe"
	"github.com/wendelmax/tasklets-go/internal/poolmetrics"
	"github.com/wendelmax/tasklets-go/internal/queue"
	"github.com/wendelmax/tasklets-go/internal/registry"
	"github.com/wendelmax/tasklets-go/internal/ringstat"
	"github.com/wendelmax/tasklets-go/internal/tasktable"
	"github.com/wendelmax/tasklets-go/internal/worker"
	"github.com/wendelmax/tasklets-go/pkg/task"
)

// HealthStatus is the coarse health signal from Health() (spec §4.1).
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthPressured HealthStatus = "pressured"
)

// pressureFloorPercent is the free-memory percentage below which
// Health() reports HealthPressured — the outer edge of the safety-floor
// band defined in spec §4.4/§4.6.
const pressureFloorPercent = 15

// Stats is the snapshot returned by Stats() (spec §4.1).
type Stats struct {
	LiveWorkers     int
	BusyWorkers     int
	IdleWorkers     int
	QueueLength     int
	Completed       uint64
	Failed          uint64
	ThroughputPerS  int
	AvgTaskDuration time.Duration
}

// Health is the snapshot returned by Health() (spec §4.1).
type Health struct {
	Status             HealthStatus
	LiveWorkers        int
	MemoryUsagePercent float64
}

// SubmitOptions carries the optional per-call timeout override (spec
// §4.1 submit).
type SubmitOptions struct {
	// TimeoutOverride, if non-zero, replaces the pool's configured
	// task_timeout_ms for this one task.
	TimeoutOverride time.Duration
}

type poolState int

const (
	statePoolRunning poolState = iota
	statePoolClosing
	statePoolClosed
)

// Pool is the cooperative worker-pool runtime's public entry point.
type Pool struct {
	mu sync.Mutex

	cfg       config.Config
	clk       clock.Clock
	probe     memprobe.Probe
	log       *slog.Logger
	metrics   *poolmetrics.Collector
	encoder   task.Encoder
	authToken [32]byte
	exec      worker.ExecFunc

	reg  *registry.Registry
	q    *queue.Queue
	tbl  *tasktable.Table
	disp *dispatcher.Dispatcher

	nextWorkerID uint64
	effectiveMax int
	state        poolState

	completed  uint64
	failed     uint64
	throughput *ringstat.Throughput
	durations  *ringstat.DurationWindow

	settleCh chan struct{}

	maint      *maintenance.Loop
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// Option customizes a Pool at construction, primarily so tests can
// inject a fake Clock/MemoryProbe/metrics registry.
type Option func(*Pool)

func WithClock(c clock.Clock) Option { return func(p *Pool) { p.clk = c } }

func WithMemProbe(m memprobe.Probe) Option { return func(p *Pool) { p.probe = m } }

func WithLogger(l *slog.Logger) Option { return func(p *Pool) { p.log = l } }

// WithEncoder configures the task.Encoder SubmitValue uses to validate
// and encode values before handing them to Submit (spec §4.1, §6). A
// Pool built without one can still use Submit directly; SubmitValue
// returns an error if called on such a Pool.
func WithEncoder(enc task.Encoder) Option { return func(p *Pool) { p.encoder = enc } }

// WithMetrics registers a poolmetrics.Collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid cross-test collisions on
// the default registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Pool) { p.metrics = poolmetrics.NewCollector(reg) }
}

// New constructs a Pool, validates cfg, generates the pool-wide worker
// auth token (spec §4.7), and spawns min_workers warm workers before
// returning. exec is the pluggable worker execution environment (spec
// §1's out-of-scope collaborator) — production callers supply the
// function that decodes a payload, runs user code, and re-encodes the
// result.
func New(cfg config.Config, exec worker.ExecFunc, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	token, err := worker.NewAuthToken()
	if err != nil {
		return nil, fmt.Errorf("pool: generating auth token: %w", err)
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:          cfg,
		clk:          clock.Real{},
		probe:        memprobe.System{},
		authToken:    token,
		exec:         exec,
		reg:          registry.New(),
		q:            queue.New(),
		tbl:          tasktable.New(),
		effectiveMax: cfg.MaxWorkers.Resolved(),
		throughput:   ringstat.NewThroughput(time.Second),
		durations:    ringstat.NewDurationWindow(100),
		settleCh:     make(chan struct{}, 1),
		rootCtx:      rootCtx,
		rootCancel:   rootCancel,
	}
	for _, o := range opts {
		o(p)
	}
	if p.log == nil {
		p.log = applog.New(cfg.LogLevel, "default")
	}
	p.disp = dispatcher.New(p.reg, p.q, p.tbl, p.authToken, p.spawnWorker)

	now := p.clk.Now()
	for i := 0; i < cfg.MinWorkers; i++ {
		w, spawnErr := p.spawnWorker()
		if spawnErr != nil {
			rootCancel()
			return nil, spawnErr
		}
		p.reg.Add(w, now)
	}

	p.maint = maintenance.New(p.clk, func() time.Duration { return maintenance.DefaultInterval }, p.onTick)
	go p.maint.Run(rootCtx)

	return p, nil
}

func (p *Pool) spawnWorker() (*worker.Worker, error) {
	p.nextWorkerID++
	id := p.nextWorkerID
	w := worker.New(id, p.authToken, p.exec)
	w.Start(p.rootCtx)
	go p.watchWorker(w)
	return w, nil
}

// watchWorker forwards one worker's completions to the pool and detects
// a simulated crash (spec §4.5 "worker's inbound stream closes
// abnormally"). It runs for the worker's whole lifetime; it returns
// once the worker's Results channel closes or Done fires.
func (p *Pool) watchWorker(w *worker.Worker) {
	for {
		select {
		case completion, ok := <-w.Results():
			if !ok {
				return
			}
			p.onCompletion(w.ID, completion)
		case <-w.Done():
			if w.Crashed() {
				p.onCrash(w.ID)
			}
			return
		}
	}
}

func (p *Pool) deadlineFor(now time.Time, opts SubmitOptions) time.Time {
	switch {
	case opts.TimeoutOverride > 0:
		return now.Add(opts.TimeoutOverride)
	case p.cfg.TaskTimeout() > 0:
		return now.Add(p.cfg.TaskTimeout())
	default:
		return time.Time{}
	}
}

// Submit admits one task (spec §4.1). It never blocks on worker
// capacity — at worst the task is enqueued and a *Future is still
// returned immediately.
func (p *Pool) Submit(payload []byte, opts SubmitOptions) (*Future, error) {
	p.mu.Lock()
	if p.state != statePoolRunning {
		p.mu.Unlock()
		return nil, task.NewTaskError(task.KindPoolClosed, "pool is closed")
	}
	now := p.clk.Now()
	deadline := p.deadlineFor(now, opts)
	blocked := adaptive.MemoryBlocked(p.probe, p.cfg.MaxMemoryPercent)
	_, sink := p.disp.Submit(now, payload, deadline, p.effectiveMax, blocked)
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordSubmit()
	}
	return &Future{sink: sink}, nil
}

// SubmitValue encodes v through the Pool's configured task.Encoder and
// submits the result (spec §4.1: "fails with InvalidPayload if payload
// bytes are rejected by the declared encodable predicate"). It fails
// synchronously — before any task is ever admitted to the TaskTable —
// with KindInvalidPayload if v is rejected by Encodable, or
// KindEncodingError if Encode itself errors. Callers that only ever deal
// in raw bytes can use Submit directly and never need an encoder at all.
func (p *Pool) SubmitValue(v any, opts SubmitOptions) (*Future, error) {
	if p.encoder == nil {
		return nil, fmt.Errorf("pool: SubmitValue requires a Pool built with WithEncoder")
	}
	if !p.encoder.Encodable(v) {
		return nil, task.NewTaskError(task.KindInvalidPayload, "value of type %T is not encodable", v)
	}
	payload, err := p.encoder.Encode(v)
	if err != nil {
		return nil, task.NewTaskError(task.KindEncodingError, "%v", err)
	}
	return p.Submit(payload, opts)
}

// SubmitMany submits a batch of payloads as one call, preserving order
// (spec §6 submit_many). It also applies the batch-size idle-timeout
// heuristic from spec §4.6 point 4, exactly once for the whole batch.
func (p *Pool) SubmitMany(payloads [][]byte, opts SubmitOptions) (*BatchFuture, error) {
	p.mu.Lock()
	if p.state != statePoolRunning {
		p.mu.Unlock()
		return nil, task.NewTaskError(task.KindPoolClosed, "pool is closed")
	}
	p.cfg.IdleTimeoutMs = adaptive.AdjustIdleTimeoutForBatch(p.cfg.IdleTimeoutMs, len(payloads))
	p.mu.Unlock()

	futures := make([]*Future, 0, len(payloads))
	for _, payload := range payloads {
		f, err := p.Submit(payload, opts)
		if err != nil {
			return nil, err
		}
		futures = append(futures, f)
	}
	return &BatchFuture{futures: futures}, nil
}

// ConfigureOptions mutates only the fields explicitly set (non-nil); any
// left nil keep their current value (spec §4.1 configure).
type ConfigureOptions struct {
	MaxWorkers       *config.MaxWorkers
	MinWorkers       *int
	IdleTimeoutMs    *int
	TaskTimeoutMs    *int
	MaxMemoryPercent *int
	Workload         *config.Workload
	Adaptive         *bool
	LogLevel         *config.LogLevel
}

// Configure mutates the pool configuration atomically (spec §4.1).
// Lowering max_workers never kills existing workers immediately — they
// drain naturally via idle reclamation. Changing workload rewrites
// idle_timeout unless this same call also set IdleTimeoutMs explicitly.
func (p *Pool) Configure(opts ConfigureOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if opts.MaxWorkers != nil {
		p.cfg.MaxWorkers = *opts.MaxWorkers
	}
	if opts.MinWorkers != nil {
		p.cfg.MinWorkers = *opts.MinWorkers
	}
	if opts.TaskTimeoutMs != nil {
		p.cfg.TaskTimeoutMs = *opts.TaskTimeoutMs
	}
	if opts.MaxMemoryPercent != nil {
		p.cfg.MaxMemoryPercent = *opts.MaxMemoryPercent
	}
	if opts.Adaptive != nil {
		p.cfg.Adaptive = *opts.Adaptive
	}
	if opts.LogLevel != nil {
		p.cfg.LogLevel = *opts.LogLevel
	}
	if opts.Workload != nil {
		p.cfg.Workload = *opts.Workload
		if opts.IdleTimeoutMs == nil {
			if ms, ok := config.WorkloadIdleDefaultMs(p.cfg.Workload); ok {
				p.cfg.IdleTimeoutMs = ms
			}
		}
	}
	if opts.IdleTimeoutMs != nil {
		p.cfg.IdleTimeoutMs = *opts.IdleTimeoutMs
	}

	if err := p.cfg.Validate(); err != nil {
		return err
	}
	p.effectiveMax = p.cfg.MaxWorkers.Resolved()
	return nil
}

// Stats returns a snapshot of pool counters (spec §4.1).
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle, busy, terminating := p.reg.Counts()
	queueLen := p.q.Len()
	completed := p.completed
	failed := p.failed
	now := p.clk.Now()
	throughput := p.throughput.Rate(now)
	avg := p.durations.Average()
	p.mu.Unlock()

	return Stats{
		LiveWorkers:    idle + busy + terminating,
		BusyWorkers:    busy,
		IdleWorkers:    idle,
		QueueLength:    queueLen,
		Completed:      completed,
		Failed:         failed,
		ThroughputPerS: throughput,
		AvgTaskDuration: avg,
	}
}

// Health reports pool health (spec §4.1).
func (p *Pool) Health() Health {
	p.mu.Lock()
	live := p.reg.Len()
	p.mu.Unlock()

	used, _ := p.probe.UsedPercent()
	free := 100 - used
	status := HealthHealthy
	if free < pressureFloorPercent {
		status = HealthPressured
	}
	return Health{Status: status, LiveWorkers: live, MemoryUsagePercent: used}
}

// Shutdown transitions the pool to closing, waits up to timeout for
// in-flight tasks to settle naturally, then force-settles whatever
// remains with PoolClosed and terminates every worker (spec §4.1,
// §8 property 7). It uses wall-clock time for the deadline: the bound a
// caller observes is real time, not whatever a test's fake Clock reads.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.state == statePoolClosed {
		p.mu.Unlock()
		return nil
	}
	p.state = statePoolClosing
	p.mu.Unlock()

	if p.maint != nil {
		p.maint.Stop()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
waitLoop:
	for {
		p.mu.Lock()
		remaining := p.tbl.Len()
		p.mu.Unlock()
		if remaining == 0 {
			break waitLoop
		}
		select {
		case <-p.settleCh:
		case <-timer.C:
			break waitLoop
		}
	}

	p.mu.Lock()
	drained := p.tbl.DrainAll()
	for {
		if _, ok := p.q.Pop(); !ok {
			break
		}
	}
	for _, entry := range drained {
		entry.Sink.Settle(task.Outcome{Err: task.NewTaskError(task.KindPoolClosed, "pool is shutting down")})
	}
	for _, entry := range p.reg.All() {
		entry.Worker.Terminate()
	}
	p.state = statePoolClosed
	p.mu.Unlock()

	p.rootCancel()
	return nil
}

func (p *Pool) notifySettled() {
	select {
	case p.settleCh <- struct{}{}:
	default:
	}
}

// onCompletion implements `on worker_result` (spec §4.4): it frees the
// worker, settles the sink, and drains the queue.
func (p *Pool) onCompletion(workerID uint64, completion worker.Completion) {
	p.mu.Lock()
	var submitTime time.Time
	if entry := p.tbl.Get(completion.TaskID); entry != nil {
		submitTime = entry.SubmitTime
	}
	now := p.clk.Now()
	sink := p.disp.HandleResult(now, workerID, completion.TaskID, completion.Outcome)
	p.disp.DrainQueue()
	p.mu.Unlock()

	if sink == nil {
		// Already removed — e.g. a timeout beat this completion to the
		// TaskTable entry. Nothing left to record.
		return
	}
	p.notifySettled()
	p.recordSettlement(completion.Outcome, now.Sub(submitTime), now)
}

// onCrash implements the crash-handling path (spec §4.5): every task
// carried by workerID is settled with WorkerCrashed.
func (p *Pool) onCrash(workerID uint64) {
	p.mu.Lock()
	now := p.clk.Now()
	crashed := p.disp.HandleCrash(workerID)
	p.disp.DrainQueue()
	p.mu.Unlock()

	if p.log != nil {
		p.log.Warn("worker crashed", "worker_id", workerID, "tasks_affected", len(crashed))
	}
	for _, c := range crashed {
		p.notifySettled()
		outcome := task.Outcome{Err: task.NewTaskError(task.KindWorkerCrashed, "worker crashed")}
		p.recordSettlement(outcome, now.Sub(c.SubmitTime), now)
	}
}

func (p *Pool) recordSettlement(outcome task.Outcome, latency time.Duration, now time.Time) {
	p.mu.Lock()
	if outcome.OK() {
		p.completed++
	} else {
		p.failed++
	}
	p.throughput.Record(now)
	p.durations.Record(latency)
	p.mu.Unlock()

	if p.metrics == nil {
		return
	}
	seconds := latency.Seconds()
	switch {
	case outcome.OK():
		p.metrics.RecordCompleted(seconds)
	case errors.Is(outcome.Err, task.ErrTimeout):
		p.metrics.RecordTimedOut(seconds)
	case errors.Is(outcome.Err, task.ErrWorkerCrashed):
		p.metrics.RecordCrashed(seconds)
	default:
		p.metrics.RecordFailed(seconds)
	}
}

// onTick implements one MaintenanceLoop iteration: AdaptiveController
// recomputation, idle reclamation, timeout enforcement, and proactive
// spawning (spec §4.5, §4.6).
func (p *Pool) onTick() {
	p.mu.Lock()
	now := p.clk.Now()
	freePercent, probeErr := memprobe.FreePercent(p.probe)
	if probeErr != nil {
		freePercent = 100 // a failed read never falsely triggers the safety floor
	}
	p.effectiveMax = adaptive.EffectiveMax(freePercent, p.cfg.MaxWorkers.Resolved(), p.cfg.MaxMemoryPercent)
	if p.metrics != nil {
		if used, err := p.probe.UsedPercent(); err == nil {
			p.metrics.UpdateMemoryUsed(used)
		}
	}

	p.reclaimIdleLocked(now)
	timedOut := p.enforceTimeoutsLocked(now)

	queueLen := p.q.Len()
	liveWorkers := p.reg.Len()
	if adaptive.ShouldProactivelySpawn(p.cfg.Adaptive, queueLen, liveWorkers, p.effectiveMax) {
		if w, err := p.spawnWorker(); err == nil {
			p.reg.Add(w, now)
		}
	}
	p.disp.DrainQueue()

	idle, busy, _ := p.reg.Counts()
	if p.metrics != nil {
		p.metrics.UpdateWorkerStats(p.reg.Len(), busy, idle, p.q.Len())
	}
	p.mu.Unlock()

	for _, s := range timedOut {
		p.notifySettled()
		outcome := task.Outcome{Err: task.NewTaskError(task.KindTimeout, "task timeout")}
		p.recordSettlement(outcome, now.Sub(s.submitTime), now)
	}
}

// reclaimIdleLocked terminates idle workers older than idle_timeout
// while live_workers stays above min_workers (spec §4.5 reclamation).
// Callers must hold p.mu.
func (p *Pool) reclaimIdleLocked(now time.Time) {
	cutoff := now.Add(-p.cfg.IdleTimeout())
	for p.reg.Len() > p.cfg.MinWorkers {
		stale := p.reg.IdleOlderThan(cutoff)
		if len(stale) == 0 {
			return
		}
		for _, id := range stale {
			if p.reg.Len() <= p.cfg.MinWorkers {
				return
			}
			if entry := p.reg.Get(id); entry != nil {
				entry.Worker.Terminate()
			}
			p.reg.Remove(id)
		}
	}
}

type timeoutSettlement struct {
	submitTime time.Time
}

// enforceTimeoutsLocked settles every TaskTable entry past its deadline
// with Timeout and terminates its carrier worker, if any (spec §4.5
// timeout enforcement). Callers must hold p.mu.
func (p *Pool) enforceTimeoutsLocked(now time.Time) []timeoutSettlement {
	expired := p.tbl.ExpiredBefore(now)
	out := make([]timeoutSettlement, 0, len(expired))
	for _, id := range expired {
		entry, ok := p.tbl.Remove(id)
		if !ok {
			continue
		}
		entry.Sink.Settle(task.Outcome{Err: task.NewTaskError(task.KindTimeout, "task timeout")})
		if entry.Assigned {
			if workerEntry := p.reg.Get(entry.WorkerID); workerEntry != nil {
				workerEntry.Worker.Terminate()
			}
			p.reg.Remove(entry.WorkerID)
		}
		out = append(out, timeoutSettlement{submitTime: entry.SubmitTime})
	}
	return out
}
