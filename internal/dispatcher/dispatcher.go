// Package dispatcher implements the Dispatcher: pairing a ready worker
// with a pending task, draining the queue whenever a worker frees up,
// and settling every task carried by a worker that crashes (spec §4.4,
// §4.5). Every exported method here assumes the caller already holds
// the pool's single shared mutex (spec §5) — this package, like
// registry/queue/tasktable, carries no lock of its own.
package dispatcher

import (
	"time"

	"github.com/wendelmax/tasklets-go/internal/queue"
	"github.com/wendelmax/tasklets-go/internal/registry"
	"github.com/wendelmax/tasklets-go/internal/tasktable"
	"github.com/wendelmax/tasklets-go/internal/worker"
	"github.com/wendelmax/tasklets-go/pkg/task"
)

// SpawnFunc creates and starts a brand new worker. The Dispatcher never
// decides *how* a worker is built; Pool supplies this as the one
// collaboration point with the execution-environment contract (spec §1
// "out of scope").
type SpawnFunc func() (*worker.Worker, error)

// Dispatcher is the Dispatcher component (spec §4.4).
type Dispatcher struct {
	Registry  *registry.Registry
	Queue     *queue.Queue
	Table     *tasktable.Table
	AuthToken [32]byte
	Spawn     SpawnFunc

	nextID uint64
}

// New builds a Dispatcher over the given shared components.
func New(reg *registry.Registry, q *queue.Queue, tbl *tasktable.Table, authToken [32]byte, spawn SpawnFunc) *Dispatcher {
	return &Dispatcher{Registry: reg, Queue: q, Table: tbl, AuthToken: authToken, Spawn: spawn}
}

// NextID allocates the next monotonically increasing task id.
func (d *Dispatcher) NextID() task.ID {
	d.nextID++
	return task.ID(d.nextID)
}

// Submit runs the fast-path/slow-path submission algorithm of spec
// §4.4. effectiveMax and memoryBlocked are supplied by the caller
// (derived from the AdaptiveController's last tick and a live
// MemoryProbe read respectively), keeping this package free of any
// memory-pressure policy of its own.
func (d *Dispatcher) Submit(now time.Time, payload []byte, deadline time.Time, effectiveMax int, memoryBlocked bool) (task.ID, *task.ResultSink) {
	id := d.NextID()
	sink := task.NewResultSink()
	d.Table.Insert(id, sink, now, deadline)

	if e := d.Registry.PopIdle(); e != nil {
		d.assign(e.Worker, id, payload)
		return id, sink
	}

	if d.Registry.Len() < effectiveMax && !memoryBlocked {
		if w, err := d.Spawn(); err == nil {
			d.Registry.Add(w, now)
			d.assign(w, id, payload)
			return id, sink
		}
	}

	d.Queue.Push(queue.Item{TaskID: id, Payload: payload})
	return id, sink
}

// assign transitions w to busy(id), records the assignment in the
// TaskTable, and posts the task over the worker's authenticated inbound
// channel.
func (d *Dispatcher) assign(w *worker.Worker, id task.ID, payload []byte) {
	d.Registry.MarkBusy(w.ID, id)
	d.Table.AssignWorker(id, w.ID)
	w.Post(worker.Message{TaskID: id, Payload: payload, AuthToken: d.AuthToken})
}

// HandleResult implements `on worker_result` from spec §4.4: it removes
// the task from the TaskTable, returns the worker to idle, settles the
// sink with outcome, and returns that sink (or nil if the task was
// already removed, e.g. by a timeout that raced ahead of this
// completion) so the caller can record the settlement outside the lock.
func (d *Dispatcher) HandleResult(now time.Time, workerID uint64, id task.ID, outcome task.Outcome) *task.ResultSink {
	entry, ok := d.Table.Remove(id)
	d.Registry.MarkIdle(workerID, now)
	if !ok {
		return nil
	}
	entry.Sink.Settle(outcome)
	return entry.Sink
}

// DrainQueue implements `drain_queue` from spec §4.4: while a worker is
// idle and the queue is non-empty, pop and assign.
func (d *Dispatcher) DrainQueue() {
	for {
		e := d.Registry.PopIdle()
		if e == nil {
			return
		}
		item, ok := d.Queue.Pop()
		if !ok {
			// Nothing to hand it; put the worker back onto the idle
			// stack rather than leaking it out of dispatch rotation.
			d.Registry.MarkIdle(e.Worker.ID, e.LastUsed)
			return
		}
		d.assign(e.Worker, item.TaskID, item.Payload)
	}
}

// CrashedTask describes one task settled by HandleCrash, carrying enough
// bookkeeping (SubmitTime) for the caller to record latency metrics
// without a second TaskTable lookup.
type CrashedTask struct {
	ID         task.ID
	Sink       *task.ResultSink
	SubmitTime time.Time
}

// HandleCrash implements the crash-handling path of spec §4.5: every
// task assigned to workerID is settled with WorkerCrashed and the
// worker is removed from the registry. Settlement itself is lock-free
// per spec §5, so the caller may notify/log outside the lock using the
// returned slice.
func (d *Dispatcher) HandleCrash(workerID uint64) []CrashedTask {
	ids := d.Table.AssignedToWorker(workerID)
	out := make([]CrashedTask, 0, len(ids))
	for _, id := range ids {
		entry, ok := d.Table.Remove(id)
		if !ok {
			continue
		}
		entry.Sink.Settle(task.Outcome{Err: task.NewTaskError(task.KindWorkerCrashed, "worker crashed")})
		out = append(out, CrashedTask{ID: id, Sink: entry.Sink, SubmitTime: entry.SubmitTime})
	}
	d.Registry.Remove(workerID)
	return out
}
