package kernel

import "container/heap"

// Timer is a kernel-scheduled resume at a future time for a suspended task
// (component B). task is the task to wake when the timer fires; guard and
// peerKey, when set, let the kernel coordinate with a paired event-keyed
// await registered via WaitForEventFor so whichever side fires first wins
// and the other is cancelled.
type Timer struct {
	ID         uint64
	Owner      ID
	Time       float64
	task       *Task
	guard      *awaitGuard
	peerKey    AwaitKey
	hasPeerKey bool
}

func (t Timer) less(o Timer) bool {
	if t.Time != o.Time {
		return t.Time < o.Time
	}
	return t.ID < o.ID
}

type timerHeap []Timer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].less(h[j]) }
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)        { *h = append(*h, x.(Timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// TimerQueue is a min-heap of pending timers keyed by (time asc, id asc).
type TimerQueue struct {
	h timerHeap
}

// NewTimerQueue returns an empty TimerQueue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

// Push inserts a timer. O(log n).
func (q *TimerQueue) Push(t Timer) {
	heap.Push(&q.h, t)
}

// Peek returns the earliest pending timer without removing it.
func (q *TimerQueue) Peek() (Timer, bool) {
	if len(q.h) == 0 {
		return Timer{}, false
	}
	return q.h[0], true
}

// Pop removes and returns the earliest pending timer.
func (q *TimerQueue) Pop() (Timer, bool) {
	if len(q.h) == 0 {
		return Timer{}, false
	}
	return heap.Pop(&q.h).(Timer), true
}

// CancelOwnedBy removes every pending timer owned by the given component,
// used when a component's handler is deregistered.
func (q *TimerQueue) CancelOwnedBy(owner ID) {
	kept := q.h[:0]
	for _, t := range q.h {
		if t.Owner != owner {
			kept = append(kept, t)
		}
	}
	q.h = kept
	heap.Init(&q.h)
}

// Len reports the number of pending timers.
func (q *TimerQueue) Len() int { return len(q.h) }
