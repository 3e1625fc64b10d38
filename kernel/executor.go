package kernel

// Task executor (component C): a single-consumer ready-queue of resumable
// task handles, emulating the reference implementation's stackful
// coroutines on top of Go goroutines. Exactly one task goroutine is ever
// unblocked at a time: a task parks on an unbuffered channel at every
// suspension point and is released only when the executor hands it back
// control, mirroring the teacher eventloop's Task/ready-queue pattern while
// presenting the simulation with a single logical thread of control.

// AwaitResultKind distinguishes a resolved await from one that timed out.
type AwaitResultKind int

const (
	// AwaitOK means the awaited event arrived.
	AwaitOK AwaitResultKind = iota
	// AwaitTimeout means the wait's deadline elapsed before a matching
	// event arrived.
	AwaitTimeout
	// AwaitCancelled names a suspension torn down by a handler
	// deregistration. The kernel never delivers it: RemoveHandler drops
	// such awaits without waking their tasks, which never resume.
	AwaitCancelled
)

// AwaitResult is the value delivered to a suspended task on resume: either
// the matching event or a timeout.
type AwaitResult struct {
	Kind  AwaitResultKind
	Event Event
}

// Task owns a goroutine-backed coroutine and the rendezvous channels used
// to hand control back and forth with the executor.
type Task struct {
	id       uint64
	resume   chan AwaitResult
	yield    chan struct{}
	started  bool
	finished bool
	pending  AwaitResult
	panicVal any
}

func newTask(id uint64) *Task {
	return &Task{
		id:     id,
		resume: make(chan AwaitResult),
		yield:  make(chan struct{}),
	}
}

// parkAndAwait is called from inside the task's own goroutine at every
// suspension point: it signals the executor that the task has yielded, then
// blocks until the executor resumes it with a result.
func (t *Task) parkAndAwait() AwaitResult {
	t.yield <- struct{}{}
	return <-t.resume
}

// finish is called from inside the task's own goroutine when its body
// returns; it signals completion and never expects a resume.
func (t *Task) finish() {
	t.finished = true
	t.yield <- struct{}{}
}

// Executor holds the ready-queue of task handles awaiting a pump.
type Executor struct {
	ready []*Task
	body  map[uint64]func(*Task)
}

// NewExecutor returns an empty Executor.
func NewExecutor() *Executor {
	return &Executor{body: make(map[uint64]func(*Task))}
}

// Spawn registers a new task with the given body and enqueues it as ready
// to run for the first time. The body function receives the Task so it can
// be threaded through suspension helpers (see kernel.Context).
func (e *Executor) Spawn(id uint64, body func(*Task)) *Task {
	t := newTask(id)
	e.body[id] = body
	e.ready = append(e.ready, t)
	return t
}

// wake moves a parked task back onto the ready queue carrying the result it
// should see on resume; duplicate wakes (already queued or already
// finished) are idempotent no-ops, matching the spec's waker-transition
// requirement.
func (e *Executor) wake(t *Task, r AwaitResult) {
	if t == nil || t.finished {
		return
	}
	for _, q := range e.ready {
		if q == t {
			return
		}
	}
	t.pending = r
	e.ready = append(e.ready, t)
}

// HasReady reports whether any task is queued to run.
func (e *Executor) HasReady() bool {
	return len(e.ready) > 0
}

// RunOne dequeues one ready task handle, polls it until it either suspends
// or finishes, and reports whether a task ran.
func (e *Executor) RunOne() bool {
	if len(e.ready) == 0 {
		return false
	}
	t := e.ready[0]
	e.ready = e.ready[1:]

	if !t.started {
		t.started = true
		body := e.body[t.id]
		go func() {
			defer func() {
				if r := recover(); r != nil {
					t.panicVal = r
				}
				t.finish()
			}()
			body(t)
		}()
	} else {
		t.resume <- t.pending
	}
	<-t.yield
	if t.finished {
		delete(e.body, t.id)
	}
	// A fatal error raised from inside the task's goroutine (e.g. via
	// Context.Fatal or a duplicate await) must surface on the caller's
	// goroutine, since a panic left inside the task's own goroutine would
	// simply crash the process instead of propagating through Step.
	if t.panicVal != nil {
		panic(t.panicVal)
	}
	return true
}
