// Package tasktable implements the TaskTable: the map from task id to a
// pending ResultSink plus metadata (submit time, assigned worker,
// deadline) (spec §2, §3). It is the single source of truth the
// Dispatcher, MaintenanceLoop, and Pool.Shutdown all consult, the same
// "one unified map + status" discipline the teacher's JobManager used
// for its job state machine, trimmed to this spec's simpler
// queued/assigned/settled lifecycle (no retry/dead-letter states — the
// core settles a task exactly once and never requeues it itself).
package tasktable

import (
	"time"

	"github.com/wendelmax/tasklets-go/pkg/task"
)

// Entry is the TaskTable's per-task bookkeeping.
type Entry struct {
	Sink       *task.ResultSink
	SubmitTime time.Time
	Deadline   time.Time // zero means "no deadline"
	Assigned   bool
	WorkerID   uint64
}

// Table is the TaskTable. As with Registry and Queue, it carries no
// internal lock: the Pool holds one mutex across all three (spec §5).
type Table struct {
	entries map[task.ID]*Entry
}

func New() *Table {
	return &Table{entries: make(map[task.ID]*Entry)}
}

// Insert records a newly admitted task, not yet assigned to any worker.
func (t *Table) Insert(id task.ID, sink *task.ResultSink, submitTime, deadline time.Time) {
	t.entries[id] = &Entry{Sink: sink, SubmitTime: submitTime, Deadline: deadline}
}

// AssignWorker marks a tracked task as handed to a specific worker.
func (t *Table) AssignWorker(id task.ID, workerID uint64) {
	if e, ok := t.entries[id]; ok {
		e.Assigned = true
		e.WorkerID = workerID
	}
}

// Get returns the entry for id, or nil.
func (t *Table) Get(id task.ID) *Entry {
	return t.entries[id]
}

// Remove deletes and returns the entry for id, analogous to
// "TaskTable.remove(id)" in spec §4.4's dispatcher pseudocode.
func (t *Table) Remove(id task.ID) (*Entry, bool) {
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	return e, ok
}

// Len reports how many tasks are currently tracked (queued or assigned).
func (t *Table) Len() int {
	return len(t.entries)
}

// ExpiredBefore returns the ids of entries whose deadline has passed as
// of `now`, used by MaintenanceLoop's timeout scan (spec §4.5).
func (t *Table) ExpiredBefore(now time.Time) []task.ID {
	var ids []task.ID
	for id, e := range t.entries {
		if !e.Deadline.IsZero() && !e.Deadline.After(now) {
			ids = append(ids, id)
		}
	}
	return ids
}

// AssignedToWorker returns the ids of every task currently assigned to
// workerID, used to settle them all with WorkerCrashed when that
// worker's inbound stream closes abnormally (spec §4.5).
func (t *Table) AssignedToWorker(workerID uint64) []task.ID {
	var ids []task.ID
	for id, e := range t.entries {
		if e.Assigned && e.WorkerID == workerID {
			ids = append(ids, id)
		}
	}
	return ids
}

// DrainAll removes and returns every remaining entry, used by
// Pool.Shutdown to settle whatever is left with PoolClosed (spec §4.1,
// §8 property 2: "after shutdown completes, TaskTable ... are empty").
func (t *Table) DrainAll() map[task.ID]*Entry {
	drained := t.entries
	t.entries = make(map[task.ID]*Entry)
	return drained
}
