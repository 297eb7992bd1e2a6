// Package task defines the wire-level vocabulary shared by the worker-pool
// core: the unit of work (Task), its result (Outcome), and the typed
// failure (TaskError) a caller can observe.
//
// The core never inspects Payload or Result; they are opaque byte
// sequences produced and consumed by an external encoder (see Encoder).
package task

import (
	"errors"
	"fmt"
	"time"
)

// ID uniquely identifies a task within the lifetime of a single Pool.
type ID uint64

// Task is a submitted unit of work.
type Task struct {
	ID         ID
	Payload    []byte
	SubmitTime time.Time
	Deadline   time.Time // zero value means "no deadline"
}

// HasDeadline reports whether the task carries a per-task timeout.
func (t Task) HasDeadline() bool {
	return !t.Deadline.IsZero()
}

// Kind enumerates the taxonomy of user-visible task failures (spec §7).
type Kind string

const (
	KindInvalidPayload Kind = "invalid_payload"
	KindTimeout        Kind = "timeout"
	KindWorkerCrashed  Kind = "worker_crashed"
	KindEncodingError  Kind = "encoding_error"
	KindPoolClosed     Kind = "pool_closed"
)

// Sentinel errors one level up from Kind, so callers can use errors.Is
// against a stable value instead of comparing strings.
var (
	ErrInvalidPayload = errors.New("tasklets: invalid payload")
	ErrTimeout        = errors.New("tasklets: task timeout")
	ErrWorkerCrashed  = errors.New("tasklets: worker crashed")
	ErrEncodingError  = errors.New("tasklets: encoding error")
	ErrPoolClosed     = errors.New("tasklets: pool closed")
)

var kindSentinel = map[Kind]error{
	KindInvalidPayload: ErrInvalidPayload,
	KindTimeout:        ErrTimeout,
	KindWorkerCrashed:  ErrWorkerCrashed,
	KindEncodingError:  ErrEncodingError,
	KindPoolClosed:     ErrPoolClosed,
}

// TaskError is the typed failure surfaced to a caller for a settled task.
type TaskError struct {
	Kind    Kind
	Message string
}

func NewTaskError(kind Kind, format string, args ...any) *TaskError {
	return &TaskError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *TaskError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets callers use errors.Is(err, task.ErrTimeout) and similar.
func (e *TaskError) Unwrap() error {
	if e == nil {
		return nil
	}
	return kindSentinel[e.Kind]
}

// Outcome is exactly one of Ok(result bytes) or Err(*TaskError).
type Outcome struct {
	Result []byte
	Err    *TaskError
}

// OK reports whether the outcome represents success.
func (o Outcome) OK() bool { return o.Err == nil }
