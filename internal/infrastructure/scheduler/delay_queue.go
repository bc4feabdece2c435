package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DelayedTask is a pending retry waiting for its due time
type DelayedTask struct {
	RunID      uuid.UUID
	ScheduleID uuid.UUID
	FireAt     time.Time
}

// DelayQueue is a priority queue of delayed tasks ordered by due time.
// A run appears at most once; pushing it again replaces its due time.
type DelayQueue struct {
	mu    sync.Mutex
	items taskHeap
	index map[uuid.UUID]*queuedTask
	seq   uint64
}

// NewDelayQueue creates an empty queue
func NewDelayQueue() *DelayQueue {
	return &DelayQueue{index: make(map[uuid.UUID]*queuedTask)}
}

// Push adds or re-arms a task
func (q *DelayQueue) Push(task DelayedTask) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	if existing, ok := q.index[task.RunID]; ok {
		existing.task = task
		existing.seq = q.seq
		heap.Fix(&q.items, existing.pos)
		return
	}
	item := &queuedTask{task: task, seq: q.seq}
	heap.Push(&q.items, item)
	q.index[task.RunID] = item
}

// PopDue removes and returns every task due at or before now, earliest first
func (q *DelayQueue) PopDue(now time.Time) []DelayedTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []DelayedTask
	for len(q.items) > 0 && !q.items[0].task.FireAt.After(now) {
		item := heap.Pop(&q.items).(*queuedTask)
		delete(q.index, item.task.RunID)
		due = append(due, item.task)
	}
	return due
}

// Peek returns the earliest task without removing it
func (q *DelayQueue) Peek() (DelayedTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return DelayedTask{}, false
	}
	return q.items[0].task, true
}

// Len returns the number of queued tasks
func (q *DelayQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

type queuedTask struct {
	task DelayedTask
	seq  uint64
	pos  int
}

// taskHeap implements heap.Interface; ties on FireAt keep push order
type taskHeap []*queuedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].task.FireAt.Equal(h[j].task.FireAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].task.FireAt.Before(h[j].task.FireAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *taskHeap) Push(x any) {
	item := x.(*queuedTask)
	item.pos = len(*h)
	*h = append(*h, item)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.pos = -1
	*h = old[:n-1]
	return item
}
