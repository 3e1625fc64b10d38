package kernel

import "container/heap"

// Event is a timestamped message from one component to another, delivered
// either to a registered promise (see AwaitKey) or to the destination's
// handler.
type Event struct {
	ID      uint64
	Time    float64
	Src     ID
	Dst     ID
	Payload any
}

// less implements the (time asc, id asc) total order events and timers
// share.
func (e Event) less(o Event) bool {
	if e.Time != o.Time {
		return e.Time < o.Time
	}
	return e.ID < o.ID
}

// eventHeap is a container/heap.Interface over pending events, ordered by
// (time, id). Grounded on the timer heap in the teacher's eventloop package,
// which reaches for container/heap the same way.
type eventHeap []Event

func (h eventHeap) Len() int            { return len(h) }
func (h eventHeap) Less(i, j int) bool  { return h[i].less(h[j]) }
func (h eventHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)         { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// EventQueue is the ordered store of pending events (component A). A
// secondary FIFO "ordered lane" holds events the caller guarantees were
// enqueued in non-decreasing time order; on a tie between the heap and the
// lane, the lane wins so its enqueue order is preserved regardless of id.
type EventQueue struct {
	heap      eventHeap
	ordered   []Event
	orderedAt int // index of the first not-yet-popped ordered event
	cancelled map[uint64]struct{}
}

// NewEventQueue returns an empty EventQueue.
func NewEventQueue() *EventQueue {
	return &EventQueue{cancelled: make(map[uint64]struct{})}
}

// Push inserts an event into the primary heap lane. O(log n).
func (q *EventQueue) Push(e Event) {
	heap.Push(&q.heap, e)
}

// PushOrdered appends an event to the FIFO ordered lane. The caller must
// guarantee e.Time is non-decreasing relative to the last ordered push;
// CanPushOrdered checks this in advance.
func (q *EventQueue) PushOrdered(e Event) {
	q.ordered = append(q.ordered, e)
}

// CanPushOrdered reports whether an event at the given time can be pushed
// without violating the ordered lane's non-decreasing time guarantee.
func (q *EventQueue) CanPushOrdered(time float64) bool {
	if len(q.ordered) == 0 {
		return true
	}
	last := q.ordered[len(q.ordered)-1]
	const eps = 1e-12
	return time >= last.Time-eps
}

// orderedFront returns the next not-yet-popped ordered event, if any.
func (q *EventQueue) orderedFront() (Event, bool) {
	if q.orderedAt >= len(q.ordered) {
		return Event{}, false
	}
	return q.ordered[q.orderedAt], true
}

// takeOrdered reports whether the ordered lane's front event should be
// dequeued ahead of the heap's front event: the lane wins whenever its time
// is earlier or tied with the heap, preserving FIFO order among ties.
func takeOrdered(heapHas bool, heapTime float64, orderedHas bool, orderedTime float64) bool {
	if !orderedHas {
		return false
	}
	return !heapHas || orderedTime <= heapTime
}

// Peek returns the next deliverable event (skipping cancelled ones) without
// removing it.
func (q *EventQueue) Peek() (Event, bool) {
	for {
		heapHas := len(q.heap) > 0
		orderedEvt, orderedHas := q.orderedFront()
		if takeOrdered(heapHas, peekTime(heapHas, q.heap), orderedHas, orderedEvt.Time) {
			if _, dead := q.cancelled[orderedEvt.ID]; dead {
				delete(q.cancelled, orderedEvt.ID)
				q.orderedAt++
				continue
			}
			return orderedEvt, true
		}
		if heapHas {
			if _, dead := q.cancelled[q.heap[0].ID]; dead {
				delete(q.cancelled, q.heap[0].ID)
				heap.Pop(&q.heap)
				continue
			}
			return q.heap[0], true
		}
		return Event{}, false
	}
}

func peekTime(has bool, h eventHeap) float64 {
	if !has {
		return 0
	}
	return h[0].Time
}

// Pop removes and returns the next deliverable event, or false if empty.
// Lane wins ties against the heap, preserving the ordered lane's FIFO
// guarantee even when ids and times tie.
func (q *EventQueue) Pop() (Event, bool) {
	for {
		heapHas := len(q.heap) > 0
		orderedEvt, orderedHas := q.orderedFront()

		if takeOrdered(heapHas, peekTime(heapHas, q.heap), orderedHas, orderedEvt.Time) {
			q.orderedAt++
			if _, dead := q.cancelled[orderedEvt.ID]; dead {
				delete(q.cancelled, orderedEvt.ID)
				continue
			}
			return orderedEvt, true
		}
		if heapHas {
			e := heap.Pop(&q.heap).(Event)
			if _, dead := q.cancelled[e.ID]; dead {
				delete(q.cancelled, e.ID)
				continue
			}
			return e, true
		}
		return Event{}, false
	}
}

// Cancel marks id as cancelled; it is skipped silently when reached by Pop
// or Peek.
func (q *EventQueue) Cancel(id uint64) {
	q.cancelled[id] = struct{}{}
}

// CancelWhere cancels every not-yet-delivered event (heap or ordered lane)
// matching pred.
func (q *EventQueue) CancelWhere(pred func(Event) bool) {
	for _, e := range q.heap {
		if pred(e) {
			q.cancelled[e.ID] = struct{}{}
		}
	}
	for _, e := range q.ordered[q.orderedAt:] {
		if pred(e) {
			q.cancelled[e.ID] = struct{}{}
		}
	}
}

// DumpSorted returns every live (not cancelled, not yet popped) event across
// both lanes sorted by (time, id). Intended for diagnostics and tests, not
// the hot path.
func (q *EventQueue) DumpSorted() []Event {
	out := make([]Event, 0, len(q.heap)+len(q.ordered)-q.orderedAt)
	for _, e := range q.heap {
		if _, dead := q.cancelled[e.ID]; !dead {
			out = append(out, e)
		}
	}
	for _, e := range q.ordered[q.orderedAt:] {
		if _, dead := q.cancelled[e.ID]; !dead {
			out = append(out, e)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].less(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
