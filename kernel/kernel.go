package kernel

import (
	"container/heap"
	"math/rand"
	"reflect"

	"github.com/nogokama/dslab/internal/ratelimit"
)

// HandlerFunc is a registered component's event handler (component F's
// counterpart in the kernel): invoked when an event reaches dst and no
// promise is registered for it.
type HandlerFunc func(ctx *Context, e Event)

// Kernel is the simulation kernel (component E): the virtual clock, the
// event/timer queues, the promise registry, the task executor, and the
// component registry, wired together by step().
type Kernel struct {
	clock float64
	rng   *rand.Rand

	events     *EventQueue
	timers     *TimerQueue
	registry   *PromiseRegistry
	executor   *Executor
	extractors map[reflect.Type]func(any) uint64

	names      map[string]ID
	contexts   map[ID]*Context
	handlers   map[ID]HandlerFunc
	nextID     ID
	nextEvent  uint64
	nextTimer  uint64
	nextTaskID uint64

	logger    *Logger
	dropLimit *ratelimit.Limiter
}

// New constructs a Kernel with a deterministic seed. All randomness exposed
// through Context.Rand/IntRange/Float64Range/RandomString flows from this single PRNG so that
// identical seed, config, and scheduler reproduce a bit-identical event
// trace (spec P3).
func New(seed int64, logger *Logger) *Kernel {
	if logger == nil {
		logger = NewLogger(nil)
	}
	return &Kernel{
		rng:        rand.New(rand.NewSource(seed)),
		events:     NewEventQueue(),
		timers:     NewTimerQueue(),
		registry:   NewPromiseRegistry(),
		executor:   NewExecutor(),
		extractors: make(map[reflect.Type]func(any) uint64),
		names:      make(map[string]ID),
		contexts:   make(map[ID]*Context),
		handlers:   make(map[ID]HandlerFunc),
		nextID:     1,
		logger:     logger,
		dropLimit:  ratelimit.NewDefault(),
	}
}

// Time returns the current virtual clock value.
func (k *Kernel) Time() float64 { return k.clock }

// EventCount returns the number of events ever emitted (monotonically
// increasing only on new emissions, spec P5).
func (k *Kernel) EventCount() uint64 { return k.nextEvent }

// Context registers a component by name, assigning it a dense id (reusing
// the existing one if the name was already registered), and returns its
// per-component façade.
func (k *Kernel) Context(name string) *Context {
	if id, ok := k.names[name]; ok {
		return k.contexts[id]
	}
	id := k.nextID
	k.nextID++
	k.names[name] = id
	ctx := &Context{id: id, name: name, k: k}
	k.contexts[id] = ctx
	return ctx
}

// AddHandler registers h as the handler for events destined to id.
func (k *Kernel) AddHandler(id ID, h HandlerFunc) {
	k.handlers[id] = h
}

// RemoveHandler deregisters id's handler and tears down everything owned by
// it: pending timers, pending events with src or dst equal to id, and any
// in-flight promise awaits keyed by id (those tasks never resume, matching
// the cancellation-liveness guarantee in spec §5/P5).
func (k *Kernel) RemoveHandler(id ID) {
	delete(k.handlers, id)
	k.timers.CancelOwnedBy(id)
	k.events.CancelWhere(func(e Event) bool { return e.Src == id || e.Dst == id })
	k.registry.CancelWhere(func(key AwaitKey) bool { return key.Src == id || key.Dst == id })
}

// RegisterKeyExtractor registers the discriminator extractor for payload
// type T: AwaitKeys for events carrying a T payload will include
// fn(payload) as their discriminator, enabling waits scoped to e.g. a
// specific computation id.
func RegisterKeyExtractor[T any](k *Kernel, fn func(T) uint64) {
	var zero T
	t := reflect.TypeOf(zero)
	k.extractors[t] = func(v any) uint64 { return fn(v.(T)) }
}

// Logger returns the kernel's structured logger.
func (k *Kernel) Logger() *Logger { return k.logger }

func (k *Kernel) fatal(kind FatalErrorKind, msg string) {
	k.logger.Emerg().Str("kind", string(kind)).Float64("time", k.clock).Log(msg)
	panic(&FatalError{Kind: kind, Message: msg})
}

func (k *Kernel) nextEventID() uint64 {
	id := k.nextEvent
	k.nextEvent++
	return id
}

func (k *Kernel) nextTimerID() uint64 {
	id := k.nextTimer
	k.nextTimer++
	return id
}

func (k *Kernel) nextCoroutineID() uint64 {
	id := k.nextTaskID
	k.nextTaskID++
	return id
}

// emit constructs and enqueues an event, returning its id. delay < 0 is a
// TemporalViolation (fatal).
func (k *Kernel) emit(src, dst ID, payload any, delay float64) uint64 {
	if delay < 0 {
		k.fatal(TemporalViolation, "negative emission delay")
	}
	id := k.nextEventID()
	k.events.Push(Event{ID: id, Time: k.clock + delay, Src: src, Dst: dst, Payload: payload})
	return id
}

// emitOrdered is like emit but pushes to the FIFO ordered lane, enforcing
// the non-decreasing time guarantee (fatal TemporalViolation on violation).
func (k *Kernel) emitOrdered(src, dst ID, payload any, delay float64) uint64 {
	if delay < 0 {
		k.fatal(TemporalViolation, "negative emission delay")
	}
	t := k.clock + delay
	if !k.events.CanPushOrdered(t) {
		k.fatal(TemporalViolation, "ordered lane event emitted out of non-decreasing time order")
	}
	id := k.nextEventID()
	k.events.PushOrdered(Event{ID: id, Time: t, Src: src, Dst: dst, Payload: payload})
	return id
}

// Step performs exactly one unit of kernel work: running one ready task, or
// resolving the earliest pending timer, or dispatching/delivering the
// earliest pending event. It reports false only when there is no ready
// task, timer, or event left (simulation is quiescent).
//
// Tie-break, per spec §4.5: ready task, then timer (<=), then event.
func (k *Kernel) Step() bool {
	if k.executor.HasReady() {
		k.executor.RunOne()
		return true
	}

	timer, hasTimer := k.timers.Peek()
	event, hasEvent := k.events.Peek()

	if !hasTimer && !hasEvent {
		return false
	}

	if hasTimer && (!hasEvent || timer.Time <= event.Time) {
		timer, _ = k.timers.Pop()
		k.clock = timer.Time
		k.resolveTimer(timer)
		return true
	}

	event, _ = k.events.Pop()
	k.clock = event.Time
	k.dispatch(event)
	return true
}

func (k *Kernel) resolveTimer(t Timer) {
	if t.guard != nil && t.guard.done {
		// The paired event-keyed await already resolved this wait.
		return
	}
	if t.guard != nil {
		t.guard.done = true
	}
	if t.hasPeerKey {
		k.registry.Cancel(t.peerKey)
	}
	k.executor.wake(t.task, AwaitResult{Kind: AwaitTimeout, Event: Event{Time: k.clock, Dst: t.Owner}})
}

func (k *Kernel) dispatch(e Event) {
	if entry, key, ok := k.lookupPromise(e); ok {
		_ = key
		if entry.guard != nil {
			entry.guard.done = true
		}
		if entry.hasPeerTimer {
			for i, t := range k.timers.h {
				if t.ID == entry.peerTimerID {
					heap.Remove(&k.timers.h, i)
					break
				}
			}
		}
		k.executor.wake(entry.task, AwaitResult{Kind: AwaitOK, Event: e})
		return
	}

	h, ok := k.handlers[e.Dst]
	if !ok {
		if k.dropLimit.Allow("unknown-handler") {
			k.logger.Warning().Float64("time", k.clock).Uint64("event", e.ID).
				Str("payload", reflect.TypeOf(e.Payload).String()).Log("dropping event for unknown handler")
		}
		return
	}
	h(k.contexts[e.Dst], e)
}

// lookupPromise finds a registered promise matching e, preferring a
// discriminator-specific key (if a key extractor is registered for e's
// payload type) over the plain (src, dst, type) key.
func (k *Kernel) lookupPromise(e Event) (promiseEntry, AwaitKey, bool) {
	payloadType := reflect.TypeOf(e.Payload)
	base := AwaitKey{Src: e.Src, Dst: e.Dst, PayloadType: payloadType}

	if extractor, ok := k.extractors[payloadType]; ok {
		keyed := base
		keyed.Discriminator = extractor(e.Payload)
		keyed.HasDiscriminator = true
		if entry, ok := k.registry.Take(keyed); ok {
			return entry, keyed, true
		}
	}
	if entry, ok := k.registry.Take(base); ok {
		return entry, base, true
	}
	return promiseEntry{}, AwaitKey{}, false
}

// StepUntilNoEvents runs Step repeatedly until the kernel is quiescent.
func (k *Kernel) StepUntilNoEvents() {
	for k.Step() {
	}
}

// StepUntilTime runs Step until no event/timer/ready-task remains at or
// before t, then advances the clock to t if it hasn't reached it yet.
func (k *Kernel) StepUntilTime(t float64) {
	for {
		if k.executor.HasReady() {
			k.executor.RunOne()
			continue
		}
		timer, hasTimer := k.timers.Peek()
		event, hasEvent := k.events.Peek()
		nextTime, hasNext := earliest(hasTimer, timer.Time, hasEvent, event.Time)
		if !hasNext || nextTime > t {
			break
		}
		k.Step()
	}
	if k.clock < t {
		k.clock = t
	}
}

// StepForDuration advances the simulation by d seconds of virtual time from
// the current clock.
func (k *Kernel) StepForDuration(d float64) {
	k.StepUntilTime(k.clock + d)
}

func earliest(hasA bool, a float64, hasB bool, b float64) (float64, bool) {
	switch {
	case hasA && hasB:
		if a <= b {
			return a, true
		}
		return b, true
	case hasA:
		return a, true
	case hasB:
		return b, true
	default:
		return 0, false
	}
}
