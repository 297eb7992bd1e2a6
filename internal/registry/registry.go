// Package registry is the WorkerRegistry: the set of live workers and
// their {idle,busy,terminating} state (spec §2, §4.5). It is the only
// place worker state transitions happen; the Dispatcher and
// MaintenanceLoop both mutate it under the pool's single mutex (spec §5).
package registry

import (
	"time"

	"github.com/wendelmax/tasklets-go/internal/worker"
	"github.com/wendelmax/tasklets-go/pkg/task"
)

// State is a WorkerEntry's lifecycle state (spec §3).
type State int

const (
	Idle State = iota
	Busy
	Terminating
)

// Entry is one WorkerEntry (spec §3).
type Entry struct {
	Worker       *worker.Worker
	State        State
	LastUsed     time.Time
	AssignedTask task.ID // valid only when State == Busy
}

// Registry is the WorkerRegistry. It is not safe for concurrent use on
// its own — callers (the Dispatcher/Pool) hold the shared pool mutex
// around every call, matching spec §5's "single mutex guards
// WorkerRegistry + TaskTable + TaskQueue's shape-critical pointers".
type Registry struct {
	entries map[uint64]*Entry
	// idleStack holds idle worker ids in LIFO order: the most recently
	// idled worker is preferred for the next dispatch, which maximizes
	// the chance that older, less-recently-used workers become eligible
	// for idle reclamation (spec §4.4 tie-break note).
	idleStack []uint64
}

func New() *Registry {
	return &Registry{entries: make(map[uint64]*Entry)}
}

// Add registers a freshly spawned worker as idle.
func (r *Registry) Add(w *worker.Worker, now time.Time) {
	r.entries[w.ID] = &Entry{Worker: w, State: Idle, LastUsed: now}
	r.idleStack = append(r.idleStack, w.ID)
}

// PopIdle removes and returns the most-recently-idled worker, or nil if
// none are idle.
func (r *Registry) PopIdle() *Entry {
	for len(r.idleStack) > 0 {
		id := r.idleStack[len(r.idleStack)-1]
		r.idleStack = r.idleStack[:len(r.idleStack)-1]
		e, ok := r.entries[id]
		if !ok || e.State != Idle {
			continue // stale entry (e.g. reclaimed concurrently); skip
		}
		return e
	}
	return nil
}

// MarkBusy transitions a worker (previously popped idle or freshly
// spawned) to busy(taskID).
func (r *Registry) MarkBusy(id uint64, taskID task.ID) {
	if e, ok := r.entries[id]; ok {
		e.State = Busy
		e.AssignedTask = taskID
	}
}

// MarkIdle transitions a worker back to idle and pushes it onto the
// idle stack for future LIFO selection.
func (r *Registry) MarkIdle(id uint64, now time.Time) {
	e, ok := r.entries[id]
	if !ok || e.State == Terminating {
		return
	}
	e.State = Idle
	e.LastUsed = now
	e.AssignedTask = 0
	r.idleStack = append(r.idleStack, id)
}

// MarkTerminating transitions a worker out of the dispatchable set
// immediately, so it cannot be concurrently selected by PopIdle or
// counted as idle. It still counts toward Len until Remove.
func (r *Registry) MarkTerminating(id uint64) {
	if e, ok := r.entries[id]; ok {
		e.State = Terminating
	}
}

// Remove deletes a terminated worker from the registry entirely.
func (r *Registry) Remove(id uint64) {
	delete(r.entries, id)
}

// Get returns the entry for id, or nil.
func (r *Registry) Get(id uint64) *Entry {
	return r.entries[id]
}

// Len returns the number of live (non-removed) workers, regardless of
// state — this is spec §3's `live_workers`.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Counts returns the current {idle, busy, terminating} tallies, used for
// both Stats() and the invariant `live_workers = |idle|+|busy|+|terminating|`.
func (r *Registry) Counts() (idle, busy, terminating int) {
	for _, e := range r.entries {
		switch e.State {
		case Idle:
			idle++
		case Busy:
			busy++
		case Terminating:
			terminating++
		}
	}
	return
}

// IdleOlderThan returns the ids of idle workers whose LastUsed predates
// the cutoff, used by MaintenanceLoop's reclamation pass (spec §4.5).
func (r *Registry) IdleOlderThan(cutoff time.Time) []uint64 {
	var ids []uint64
	for id, e := range r.entries {
		if e.State == Idle && e.LastUsed.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}

// All returns every live entry, for diagnostics/testing.
func (r *Registry) All() map[uint64]*Entry {
	return r.entries
}
