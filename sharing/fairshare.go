// Package sharing implements the equal-share (processor-sharing) throughput
// model used by managed host allocations (component G): a set of in-flight
// items that fairly time-share a fixed total rate R, without per-tick
// updates — projected finish times are recomputed only on insert/pop by
// rebasing a shared virtual-progress counter S.
package sharing

// Model is a fair equal-share throughput-sharing queue over items of type
// T. It holds a fixed total rate R; at any instant every active item
// advances at rate R/n where n is the current item count.
type Model[T any] struct {
	rate float64
	s    float64 // shared virtual-progress counter, rebased on insert/peek/pop
	last float64 // simulation time S was last rebased at
	next uint64
	live []entry[T]
}

type entry[T any] struct {
	id    uint64
	value T
	total float64 // total work required
	base  float64 // S value at the moment this item was inserted
}

// New constructs a Model with the given total throughput rate.
func New[T any](rate float64) *Model[T] {
	return &Model[T]{rate: rate}
}

// Len reports the number of in-flight items.
func (m *Model[T]) Len() int { return len(m.live) }

func (m *Model[T]) rebase(now float64) {
	if n := len(m.live); n > 0 {
		dt := now - m.last
		m.s += dt * m.rate / float64(n)
	}
	m.last = now
}

// Insert adds an item with the given total work requirement, rebasing the
// shared progress counter to now first so existing items' projected
// finishes remain exact under the new share count.
func (m *Model[T]) Insert(now float64, value T, work float64) {
	m.rebase(now)
	m.live = append(m.live, entry[T]{id: m.next, value: value, total: work, base: m.s})
	m.next++
}

// finishTime projects when e finishes given the current rebased S, n, and
// rate: the remaining normalized work times n, divided by rate.
func (m *Model[T]) finishTime(now float64, e entry[T]) float64 {
	n := len(m.live)
	remaining := e.total - (m.s - e.base)
	if remaining < 0 {
		remaining = 0
	}
	return now + remaining*float64(n)/m.rate
}

// Peek returns the item with the earliest projected finish under the
// current share, without removing it. Ties are broken by insertion order
// (ascending id) for determinism.
func (m *Model[T]) Peek(now float64) (finish float64, value T, ok bool) {
	m.rebase(now)
	idx, ok := m.earliest(now)
	if !ok {
		return 0, value, false
	}
	return m.finishTime(now, m.live[idx]), m.live[idx].value, true
}

// Pop removes and returns the item with the earliest projected finish.
func (m *Model[T]) Pop(now float64) (finish float64, value T, ok bool) {
	m.rebase(now)
	idx, ok := m.earliest(now)
	if !ok {
		return 0, value, false
	}
	e := m.live[idx]
	finish = m.finishTime(now, e)
	m.live = append(m.live[:idx], m.live[idx+1:]...)
	return finish, e.value, true
}

func (m *Model[T]) earliest(now float64) (int, bool) {
	if len(m.live) == 0 {
		return 0, false
	}
	best := 0
	bestFinish := m.finishTime(now, m.live[0])
	for i := 1; i < len(m.live); i++ {
		f := m.finishTime(now, m.live[i])
		if f < bestFinish {
			best, bestFinish = i, f
		}
	}
	return best, true
}
