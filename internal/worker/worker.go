// Package worker implements the isolated execution unit the core
// dispatches tasks to (spec §4.2). Each Worker owns an exclusive
// goroutine and an authenticated inbound/outbound channel pair; the core
// never reaches into a Worker's internals beyond this contract.
package worker

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync/atomic"

	"github.com/wendelmax/tasklets-go/pkg/task"
)

// ErrCrash is a sentinel an ExecFunc can return to simulate the
// underlying execution thread dying mid-task (spec §4.5 "worker's
// inbound stream closes abnormally"). Production exec functions never
// return it on purpose; test harnesses use it to exercise the
// WorkerCrashed path deterministically. On seeing it, the worker exits
// its run loop without ever posting a Completion for the task — exactly
// what the core would observe from a genuinely dead thread.
var ErrCrash = errors.New("worker: simulated crash")

// ExecFunc is the pluggable "worker execution environment" (spec §1's
// out-of-scope collaborator). Production callers supply the function
// that actually decodes the payload, runs user code, and re-encodes the
// result; tests supply deterministic stand-ins.
type ExecFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Message is what the dispatcher posts to a worker's inbound channel.
type Message struct {
	TaskID    task.ID
	Payload   []byte
	AuthToken [32]byte
}

// Completion is what a worker posts to its outbound/result channel.
type Completion struct {
	TaskID  task.ID
	Outcome task.Outcome
}

// ErrAuthMismatch describes a message whose auth token does not match the
// token the worker was started with (spec §4.7). The run loop drops such
// a message without executing it; it does not return or report this
// error.
type ErrAuthMismatch struct{}

func (ErrAuthMismatch) Error() string { return "worker: auth token mismatch" }

// Worker is one goroutine-backed execution unit.
type Worker struct {
	ID        uint64
	authToken [32]byte
	exec      ExecFunc

	inbound  chan Message    // dispatcher -> worker
	outbound chan Completion // worker -> dispatcher
	done     chan struct{}   // closed when the worker goroutine exits
	cancel   context.CancelFunc
	crashed  atomic.Bool
}

// New constructs a Worker but does not start its goroutine; call Start.
func New(id uint64, authToken [32]byte, exec ExecFunc) *Worker {
	return &Worker{
		ID:        id,
		authToken: authToken,
		exec:      exec,
		inbound:   make(chan Message, 1),
		outbound:  make(chan Completion, 1),
		done:      make(chan struct{}),
	}
}

// Start launches the worker's run loop on its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-w.inbound:
			if !ok {
				return
			}
			if subtle.ConstantTimeCompare(msg.AuthToken[:], w.authToken[:]) != 1 {
				// A message with a bad token is dropped, not executed;
				// the core never learns of it (it simply never posts
				// one carrying a task id it's tracking).
				continue
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg Message) {
	result, err := w.exec(ctx, msg.Payload)
	if errors.Is(err, ErrCrash) {
		w.crashed.Store(true)
		w.cancel()
		return
	}
	var outcome task.Outcome
	switch {
	case err != nil:
		outcome = task.Outcome{Err: task.NewTaskError(task.KindEncodingError, "%v", err)}
	default:
		outcome = task.Outcome{Result: result}
	}
	select {
	case w.outbound <- Completion{TaskID: msg.TaskID, Outcome: outcome}:
	case <-ctx.Done():
	}
}

// Crashed reports whether this worker's goroutine exited because its
// ExecFunc returned ErrCrash, as opposed to an orderly Terminate call.
func (w *Worker) Crashed() bool {
	return w.crashed.Load()
}

// Post delivers one task to the worker. It is the core's only write path
// into a worker; the core guarantees (via the registry's busy/idle state)
// that a worker is never posted two tasks concurrently.
func (w *Worker) Post(msg Message) {
	w.inbound <- msg
}

// Results exposes the worker's completion stream.
func (w *Worker) Results() <-chan Completion {
	return w.outbound
}

// Done signals, by closing, that the worker's goroutine has exited —
// the analogue of "the results stream signals closure" for a crashed
// worker (spec §4.2). The goroutine exits after Terminate, when the
// context passed to Start is cancelled, or when ExecFunc returns
// ErrCrash; the pool checks Crashed once Done closes to tell a crash
// from an orderly stop.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Terminate asynchronously stops the worker; safe to call in any state,
// including concurrently with an in-flight task (spec §4.2).
func (w *Worker) Terminate() {
	if w.cancel != nil {
		w.cancel()
	}
}
