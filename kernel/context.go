package kernel

import (
	"reflect"
)

// Context is a component's façade onto the kernel (component F): emitting
// events, reading the clock, drawing from the shared deterministic RNG, and
// spawning cooperative tasks.
type Context struct {
	id   ID
	name string
	k    *Kernel
}

// ID returns this component's dense id.
func (c *Context) ID() ID { return c.id }

// Name returns the name this component was registered under.
func (c *Context) Name() string { return c.name }

// Time returns the kernel's current virtual clock value.
func (c *Context) Time() float64 { return c.k.Time() }

// Logger returns the kernel's structured logger.
func (c *Context) Logger() *Logger { return c.k.logger }

// Emit schedules payload for delivery to dst after delay seconds of virtual
// time, returning the new event's id.
func (c *Context) Emit(payload any, dst ID, delay float64) uint64 {
	return c.k.emit(c.id, dst, payload, delay)
}

// EmitNow is Emit with a zero delay.
func (c *Context) EmitNow(payload any, dst ID) uint64 {
	return c.k.emit(c.id, dst, payload, 0)
}

// EmitSelf schedules a self-addressed event after delay seconds, used for
// e.g. CompFinished completions.
func (c *Context) EmitSelf(payload any, delay float64) uint64 {
	return c.k.emit(c.id, c.id, payload, delay)
}

// EmitOrdered is like Emit but pushes onto the FIFO ordered lane; the
// resulting delivery time (now + delay) must not be earlier than that of
// the last event pushed onto the lane by any component, or the kernel
// treats it as a fatal TemporalViolation.
func (c *Context) EmitOrdered(payload any, dst ID, delay float64) uint64 {
	return c.k.emitOrdered(c.id, dst, payload, delay)
}

// CancelEvent cancels a previously emitted event by id; it is silently
// skipped if it is later reached by the queue.
func (c *Context) CancelEvent(id uint64) {
	c.k.events.Cancel(id)
}

// Rand returns the next float64 in [0,1) from the kernel's seeded PRNG.
func (c *Context) Rand() float64 {
	return c.k.rng.Float64()
}

// IntRange returns a pseudo-random int in [lo, hi).
func (c *Context) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.k.rng.Intn(hi-lo)
}

// Float64Range returns a pseudo-random float64 in [lo, hi).
func (c *Context) Float64Range(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + c.k.rng.Float64()*(hi-lo)
}

// RandomString returns a pseudo-random alphanumeric string of length n.
func (c *Context) RandomString(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	out := make([]byte, n)
	for i := range out {
		out[i] = alphabet[c.k.rng.Intn(len(alphabet))]
	}
	return string(out)
}

// Coroutine is a Context bound to one spawned cooperative task, adding the
// suspension helpers (Sleep, WaitForEvent*, RecvEventByKey) that park the
// task's goroutine and resume it with whatever the kernel later delivers.
type Coroutine struct {
	*Context
	task   *Task
	taskID uint64
}

// TaskID returns this coroutine's own globally unique task id, distinct
// from its owning component's id (Context.ID, shared by every task spawned
// from the same component). Use it as a discriminator wherever a request
// and its response must be correlated against concurrent siblings sharing
// a component — e.g. several workers awaiting their own CompStarted from
// the same host.
func (co *Coroutine) TaskID() uint64 { return co.taskID }

// Spawn starts body as a new cooperative task owned by this component. The
// task is queued as ready and does not run before Spawn returns: it first
// runs (until its first suspension point or completion) on the kernel's
// next Step, and further progress happens only as the kernel steps. It returns the new task's globally unique id, which
// callers needing to fan out and fan back in (e.g. workload.Parallel) can
// use as an await discriminator distinct from any other spawned task's.
func (c *Context) Spawn(body func(co *Coroutine)) uint64 {
	id := c.k.nextCoroutineID()
	co := &Coroutine{Context: c, taskID: id}
	c.k.executor.Spawn(id, func(t *Task) {
		co.task = t
		body(co)
	})
	return id
}

// Sleep suspends the current task for d seconds of virtual time.
func Sleep(co *Coroutine, d float64) {
	timer := Timer{
		ID:    co.k.nextTimerID(),
		Owner: co.id,
		Time:  co.k.Time() + d,
		task:  co.task,
	}
	co.k.timers.Push(timer)
	co.task.parkAndAwait()
}

// WaitForEvent suspends until dst=co.ID() receives an event of type T from
// src, returning the event and its typed payload.
func WaitForEvent[T any](co *Coroutine, src ID) (Event, T) {
	return waitForEvent[T](co, src, 0, false)
}

// WaitForEventWithKey is WaitForEvent scoped additionally to a
// discriminator value (e.g. a computation id), requiring a key extractor to
// have been registered for T via RegisterKeyExtractor.
func WaitForEventWithKey[T any](co *Coroutine, src ID, discriminator uint64) (Event, T) {
	return waitForEvent[T](co, src, discriminator, true)
}

func waitForEvent[T any](co *Coroutine, src ID, discriminator uint64, hasDisc bool) (Event, T) {
	var zero T
	key := AwaitKey{
		Src:              src,
		Dst:              co.id,
		PayloadType:      reflect.TypeOf(zero),
		Discriminator:    discriminator,
		HasDiscriminator: hasDisc,
	}
	if !co.k.registry.Register(key, promiseEntry{task: co.task}) {
		co.k.fatal(DuplicateAwait, "duplicate await on identical AwaitKey")
	}
	res := co.task.parkAndAwait()
	payload, _ := res.Event.Payload.(T)
	return res.Event, payload
}

// AwaitResultT mirrors kernel.AwaitResult but carries the typed payload
// produced by WaitForEventFor, matching the spec's AwaitResult<T> sum type
// (Ok(event, payload) | Timeout(event)).
type AwaitResultT[T any] struct {
	Kind  AwaitResultKind
	Event Event
	Value T
}

// WaitForEventFor is WaitForEvent with a deadline: whichever of {matching
// event, timeout} resolves first wins and the other side is cancelled.
func WaitForEventFor[T any](co *Coroutine, src ID, timeout float64) AwaitResultT[T] {
	var zero T
	key := AwaitKey{Src: src, Dst: co.id, PayloadType: reflect.TypeOf(zero)}
	guard := &awaitGuard{}
	timerID := co.k.nextTimerID()

	if !co.k.registry.Register(key, promiseEntry{task: co.task, guard: guard, peerTimerID: timerID, hasPeerTimer: true}) {
		co.k.fatal(DuplicateAwait, "duplicate await on identical AwaitKey")
	}
	co.k.timers.Push(Timer{
		ID:         timerID,
		Owner:      co.id,
		Time:       co.k.Time() + timeout,
		task:       co.task,
		guard:      guard,
		peerKey:    key,
		hasPeerKey: true,
	})

	res := co.task.parkAndAwait()
	var value T
	if res.Kind == AwaitOK {
		value, _ = res.Event.Payload.(T)
	}
	return AwaitResultT[T]{Kind: res.Kind, Event: res.Event, Value: value}
}

// Fatal raises a fatal kernel error of the given kind: the message is
// logged at Emergency and the kernel panics, matching the fatal-error
// taxonomy (duplicate requests, temporal violations) that recoverable
// component logic cannot itself recover from.
func (c *Context) Fatal(kind FatalErrorKind, msg string) {
	c.k.fatal(kind, msg)
}

// WaitForEitherEvent suspends until whichever of two event types arrives
// first from src, and reports which one. The registration for whichever
// type didn't fire is cancelled once the other resolves. Used where a
// component must race two distinct recoverable outcomes (e.g. an
// allocation's Success/Failed reply) that WaitForEvent's single-type form
// can't express.
func WaitForEitherEvent[A any, B any](co *Coroutine, src ID) (aOK bool, a A, bOK bool, b B) {
	return waitForEitherEvent[A, B](co, src, 0, false)
}

// WaitForEitherEventWithKey is WaitForEitherEvent scoped additionally to a
// discriminator value, for racing two recoverable outcomes of a request
// that a concurrent sibling sharing this component might also be awaiting
// (e.g. an allocation request's Success/Failed reply, discriminated by the
// requester's own task id).
func WaitForEitherEventWithKey[A any, B any](co *Coroutine, src ID, discriminator uint64) (aOK bool, a A, bOK bool, b B) {
	return waitForEitherEvent[A, B](co, src, discriminator, true)
}

func waitForEitherEvent[A any, B any](co *Coroutine, src ID, discriminator uint64, hasDisc bool) (aOK bool, a A, bOK bool, b B) {
	var zeroA A
	var zeroB B
	keyA := AwaitKey{Src: src, Dst: co.id, PayloadType: reflect.TypeOf(zeroA), Discriminator: discriminator, HasDiscriminator: hasDisc}
	keyB := AwaitKey{Src: src, Dst: co.id, PayloadType: reflect.TypeOf(zeroB), Discriminator: discriminator, HasDiscriminator: hasDisc}

	if !co.k.registry.Register(keyA, promiseEntry{task: co.task}) {
		co.k.fatal(DuplicateAwait, "duplicate await on identical AwaitKey")
	}
	if !co.k.registry.Register(keyB, promiseEntry{task: co.task}) {
		co.k.fatal(DuplicateAwait, "duplicate await on identical AwaitKey")
	}

	res := co.task.parkAndAwait()
	co.k.registry.Cancel(keyA)
	co.k.registry.Cancel(keyB)

	if av, ok := res.Event.Payload.(A); ok {
		return true, av, false, zeroB
	}
	if bv, ok := res.Event.Payload.(B); ok {
		return false, zeroA, true, bv
	}
	return false, zeroA, false, zeroB
}

// RecvEventByKey suspends on a fully caller-specified AwaitKey, for waits
// that don't fit the src/dst/type shorthand. Nothing in this module calls
// it.
func RecvEventByKey[T any](co *Coroutine, key AwaitKey) (Event, T) {
	if !co.k.registry.Register(key, promiseEntry{task: co.task}) {
		co.k.fatal(DuplicateAwait, "duplicate await on identical AwaitKey")
	}
	res := co.task.parkAndAwait()
	payload, _ := res.Event.Payload.(T)
	return res.Event, payload
}
