package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wendelmax/tasklets-go/internal/queue"
	"github.com/wendelmax/tasklets-go/internal/registry"
	"github.com/wendelmax/tasklets-go/internal/tasktable"
	"github.com/wendelmax/tasklets-go/internal/worker"
	"github.com/wendelmax/tasklets-go/pkg/task"
)

func echoWorker(t *testing.T, id uint64) *worker.Worker {
	t.Helper()
	token, err := worker.NewAuthToken()
	require.NoError(t, err)
	w := worker.New(id, token, func(ctx context.Context, p []byte) ([]byte, error) { return p, nil })
	w.Start(context.Background())
	t.Cleanup(w.Terminate)
	return w
}

func newDispatcher(t *testing.T, spawnIDs ...uint64) (*Dispatcher, [32]byte) {
	t.Helper()
	var token [32]byte
	copy(token[:], "01234567890123456789012345678901")
	reg := registry.New()
	q := queue.New()
	tbl := tasktable.New()
	next := 0
	spawn := func() (*worker.Worker, error) {
		if next >= len(spawnIDs) {
			return nil, errors.New("no more workers to spawn")
		}
		id := spawnIDs[next]
		next++
		return echoWorker(t, id), nil
	}
	return New(reg, q, tbl, token, spawn), token
}

func TestSubmitFastPathUsesIdleWorker(t *testing.T) {
	d, _ := newDispatcher(t)
	w := echoWorker(t, 1)
	d.Registry.Add(w, time.Now())

	id, sink := d.Submit(time.Now(), []byte("x"), time.Time{}, 4, false)
	assert.EqualValues(t, 1, id)
	e := d.Registry.Get(1)
	require.NotNil(t, e)
	assert.Equal(t, registry.Busy, e.State)
	require.NotNil(t, sink)
}

func TestSubmitSpawnsWhenNoIdleWorker(t *testing.T) {
	d, _ := newDispatcher(t, 9)
	_, _ = d.Submit(time.Now(), []byte("x"), time.Time{}, 4, false)
	assert.Equal(t, 1, d.Registry.Len())
	e := d.Registry.Get(9)
	require.NotNil(t, e)
	assert.Equal(t, registry.Busy, e.State)
}

func TestSubmitQueuesWhenAtCapacity(t *testing.T) {
	d, _ := newDispatcher(t) // no spawnable workers
	_, _ = d.Submit(time.Now(), []byte("x"), time.Time{}, 0, false)
	assert.Equal(t, 0, d.Registry.Len())
	assert.Equal(t, 1, d.Queue.Len())
}

func TestSubmitQueuesWhenMemoryBlocked(t *testing.T) {
	d, _ := newDispatcher(t, 1)
	_, _ = d.Submit(time.Now(), []byte("x"), time.Time{}, 4, true)
	assert.Equal(t, 0, d.Registry.Len())
	assert.Equal(t, 1, d.Queue.Len())
}

func TestDrainQueueAssignsPendingTask(t *testing.T) {
	d, _ := newDispatcher(t)
	d.Queue.Push(queue.Item{TaskID: 5, Payload: []byte("p")})
	w := echoWorker(t, 2)
	d.Registry.Add(w, time.Now())

	d.DrainQueue()
	assert.Equal(t, 0, d.Queue.Len())
	e := d.Registry.Get(2)
	require.NotNil(t, e)
	assert.Equal(t, registry.Busy, e.State)
	assert.EqualValues(t, 5, e.AssignedTask)
}

func TestHandleResultSettlesAndFreesWorker(t *testing.T) {
	d, _ := newDispatcher(t)
	w := echoWorker(t, 3)
	d.Registry.Add(w, time.Now())
	id, sink := d.Submit(time.Now(), []byte("hi"), time.Time{}, 4, false)

	settled := d.HandleResult(time.Now(), 3, id, task.Outcome{Result: []byte("ok")})
	require.NotNil(t, settled)
	assert.Same(t, sink, settled)
	e := d.Registry.Get(3)
	require.NotNil(t, e)
	assert.Equal(t, registry.Idle, e.State)
}

func TestHandleCrashSettlesAllAssignedTasks(t *testing.T) {
	d, _ := newDispatcher(t)
	w := echoWorker(t, 4)
	d.Registry.Add(w, time.Now())
	id, sink := d.Submit(time.Now(), []byte("hi"), time.Time{}, 4, false)

	crashed := d.HandleCrash(4)
	require.Len(t, crashed, 1)
	assert.Same(t, sink, crashed[0].Sink)
	outcome := <-sink.Chan()
	assert.False(t, outcome.OK())
	assert.Equal(t, "worker_crashed", string(outcome.Err.Kind))
	assert.Nil(t, d.Registry.Get(4))
	_ = id
}
