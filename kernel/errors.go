package kernel

import "fmt"

// FatalErrorKind enumerates the broken-invariant classes that abort a
// simulation run (spec §7): a negative emission delay or an out-of-order
// ordered-lane push (TemporalViolation), two outstanding awaits on an
// identical AwaitKey (DuplicateAwait), or a duplicate structural request a
// caller has decided to treat as fatal (e.g. a repeated ScheduleExecution
// for one execution id in the cluster package).
type FatalErrorKind string

const (
	TemporalViolation FatalErrorKind = "TemporalViolation"
	DuplicateAwait    FatalErrorKind = "DuplicateAwait"
	DuplicateRequest  FatalErrorKind = "DuplicateRequest"
)

// FatalError is panicked by the kernel (after logging at Emergency level)
// when a run hits a broken invariant it cannot meaningfully continue from.
type FatalError struct {
	Kind    FatalErrorKind
	Message string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NotEnoughResources is the ResourceExhaustion recoverable error, carried as
// a payload field on a failure event rather than returned as a Go error.
type NotEnoughResources struct {
	AvailCores  uint32
	AvailMemory uint64
	ReqCores    uint32
	ReqMemory   uint64
}

// AllocationNotFound is the UnknownReference recoverable error, carried as a
// payload field on a failure event.
type AllocationNotFound struct {
	ID uint64
}
