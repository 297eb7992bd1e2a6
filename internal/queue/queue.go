// Package queue implements the TaskQueue: a bounded-only-by-memory FIFO
// of pending submissions with O(1) push/pop and remove-by-id for the
// rare cancel/timeout path (spec §4.3).
package queue

import (
	"container/list"

	"github.com/wendelmax/tasklets-go/pkg/task"
)

// Item is one pending submission sitting in the queue.
type Item struct {
	TaskID  task.ID
	Payload []byte
}

// Queue is the TaskQueue. Like Registry, it is not internally
// synchronized — callers hold the pool's shared mutex around every call
// (spec §5).
type Queue struct {
	l        *list.List
	elements map[task.ID]*list.Element
}

func New() *Queue {
	return &Queue{l: list.New(), elements: make(map[task.ID]*list.Element)}
}

// Push enqueues an item at the tail in O(1).
func (q *Queue) Push(item Item) {
	e := q.l.PushBack(item)
	q.elements[item.TaskID] = e
}

// Pop dequeues the head item in O(1), or reports ok=false if empty.
func (q *Queue) Pop() (Item, bool) {
	front := q.l.Front()
	if front == nil {
		return Item{}, false
	}
	q.l.Remove(front)
	item := front.Value.(Item)
	delete(q.elements, item.TaskID)
	return item, true
}

// RemoveByID removes a specific pending task (e.g. it timed out before
// ever being dispatched). O(1) via the element index, which is tighter
// than the O(n) worst case spec §4.3 allows for an adversarial id
// distribution — both are compatible with the documented bound.
func (q *Queue) RemoveByID(id task.ID) bool {
	e, ok := q.elements[id]
	if !ok {
		return false
	}
	q.l.Remove(e)
	delete(q.elements, id)
	return true
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	return q.l.Len()
}

// Items returns a snapshot slice of all pending items, head first, for
// diagnostics/shutdown draining.
func (q *Queue) Items() []Item {
	items := make([]Item, 0, q.l.Len())
	for e := q.l.Front(); e != nil; e = e.Next() {
		items = append(items, e.Value.(Item))
	}
	return items
}
