// Package compute implements the host compute model (component H): per-host
// cores/memory accounting, run-to-completion computations with up-front
// core selection, and managed allocations that hold cores/memory for a
// period and fairly time-share them across a changing set of in-flight
// computations via the sharing package. Grounded on
// original_source/crates/dslab-compute/src/multicore.rs.
package compute

import (
	"github.com/nogokama/dslab/kernel"
	"github.com/nogokama/dslab/sharing"
)

// CoresDependency computes the speedup a computation achieves running on a
// given number of cores.
type CoresDependency interface {
	Speedup(cores uint32) float64
}

// Linear is CoresDependency where speedup scales linearly with core count.
type Linear struct{}

func (Linear) Speedup(cores uint32) float64 { return float64(cores) }

// LinearWithFixed is an Amdahl's-law speedup with a fixed serial fraction
// Alpha: speedup(k) = 1 / (Alpha + (1-Alpha)/k).
type LinearWithFixed struct{ Alpha float64 }

func (d LinearWithFixed) Speedup(cores uint32) float64 {
	if cores == 0 {
		return 0
	}
	return 1 / (d.Alpha + (1-d.Alpha)/float64(cores))
}

// Custom is a CoresDependency backed by an arbitrary function.
type Custom struct{ F func(uint32) float64 }

func (d Custom) Speedup(cores uint32) float64 { return d.F(cores) }

// --- event payloads ---------------------------------------------------

// CompRequest asks the host to run flops on a run-to-completion allocation
// of between MinCores and MaxCores cores. RequestID is echoed back in
// CompStarted/CompFailed so a requester running several concurrent
// computations (sharing one component id) can tell its own responses
// apart from a sibling's.
type CompRequest struct {
	Flops     float64
	Memory    uint64
	MinCores  uint32
	MaxCores  uint32
	CoresDep  CoresDependency
	RequestID uint64
	Requester kernel.ID
}

// CompStarted reports the number of cores a computation was started with.
// RequestID echoes the originating CompRequest/CompAllocationRequest.
type CompStarted struct {
	ID        uint64
	Cores     uint32
	RequestID uint64
}

// CompFinished reports a computation's completion to its requester.
type CompFinished struct {
	ID uint64
}

// CompFailed reports a recoverable failure starting a computation; exactly
// one of the two reason fields is set. RequestID echoes the originating
// request.
type CompFailed struct {
	NotEnoughResources *kernel.NotEnoughResources
	AllocationNotFound *kernel.AllocationNotFound
	RequestID          uint64
}

// CompAllocationRequest asks the host to run flops against an existing
// managed allocation, time-sharing it with any other in-flight
// computations on that allocation. RequestID echoes back in CompStarted
// for the same reason as CompRequest's.
type CompAllocationRequest struct {
	Flops        float64
	AllocationID uint64
	CoresDep     CoresDependency
	RequestID    uint64
	Requester    kernel.ID
}

// AllocationRequest asks for a plain (non-shared) grant of cores/memory.
// RequestID is echoed in AllocationSuccess/AllocationFailed.
type AllocationRequest struct {
	Cores     uint32
	Memory    uint64
	RequestID uint64
	Requester kernel.ID
}

// ManagedAllocationRequest asks for a grant of cores/memory that will be
// internally time-shared across computations submitted against it via
// CompAllocationRequest. RequestID is echoed in AllocationSuccess/Failed.
type ManagedAllocationRequest struct {
	Cores     uint32
	Memory    uint64
	RequestID uint64
	Requester kernel.ID
}

// AllocationSuccess reports the id of a newly created grant (plain or
// managed). RequestID echoes the originating AllocationRequest/
// ManagedAllocationRequest.
type AllocationSuccess struct {
	ID        uint64
	RequestID uint64
}

// AllocationFailed reports a recoverable failure creating a grant.
type AllocationFailed struct {
	NotEnoughResources *kernel.NotEnoughResources
	RequestID          uint64
}

// DeallocationRequest releases a plain grant. RequestID is echoed in
// DeallocationSuccess/Failed.
type DeallocationRequest struct {
	ID        uint64
	RequestID uint64
	Requester kernel.ID
}

// ManagedDeallocationRequest releases a managed grant, implicitly dropping
// its throughput-sharing state and any in-flight computations on it.
type ManagedDeallocationRequest struct {
	ID        uint64
	RequestID uint64
	Requester kernel.ID
}

// DeallocationSuccess reports a grant was released.
type DeallocationSuccess struct {
	ID        uint64
	RequestID uint64
}

// DeallocationFailed reports a recoverable failure releasing a grant (the
// id is unknown, already released, or was created under a different mode).
type DeallocationFailed struct {
	NotEnoughResources *kernel.NotEnoughResources
	RequestID          uint64
}

// internalCompFinished is the host's self-addressed completion for a
// run-to-completion computation; never observed outside this package.
type internalCompFinished struct {
	ID uint64
}

// nextCompletion is the host's self-addressed "soonest finish" tick for a
// managed allocation's sharing model; never observed outside this package.
type nextCompletion struct {
	AllocationID uint64
}

// --- host state ---------------------------------------------------------

type runningComputation struct {
	ID        uint64
	Cores     uint32
	Memory    uint64
	Requester kernel.ID
}

type compItem struct {
	ID        uint64
	Requester kernel.ID
}

type managedState struct {
	model        *sharing.Model[compItem]
	nextEventID  uint64
	hasNextEvent bool
	nextCompID   uint64
}

type allocation struct {
	ID        uint64
	Requester kernel.ID
	Cores     uint32
	Memory    uint64
	managed   *managedState
}

// Host is the per-host compute model (component H). It registers itself as
// a kernel event handler via Handler and owns all cores/memory accounting
// for that host.
type Host struct {
	ID         kernel.ID
	Name       string
	CPUSpeed   float64
	CoresTotal uint32
	MemTotal   uint64

	coresAvail uint32
	memAvail   uint64

	computations map[uint64]runningComputation
	allocs       map[uint64]*allocation
	nextCompID   uint64
	nextAllocID  uint64
}

// NewHost constructs a Host with all resources initially free.
func NewHost(id kernel.ID, name string, cores uint32, memory uint64, cpuSpeed float64) *Host {
	return &Host{
		ID:           id,
		Name:         name,
		CPUSpeed:     cpuSpeed,
		CoresTotal:   cores,
		MemTotal:     memory,
		coresAvail:   cores,
		memAvail:     memory,
		computations: make(map[uint64]runningComputation),
		allocs:       make(map[uint64]*allocation),
	}
}

// CoresAvail and MemAvail expose the current free resources (used by
// monitoring and P1 conservation checks).
func (h *Host) CoresAvail() uint32 { return h.coresAvail }
func (h *Host) MemAvail() uint64  { return h.memAvail }

// Handler returns the kernel.HandlerFunc to register for this host's id.
func (h *Host) Handler() kernel.HandlerFunc {
	return func(ctx *kernel.Context, e kernel.Event) {
		switch p := e.Payload.(type) {
		case CompRequest:
			h.handleCompRequest(ctx, p)
		case internalCompFinished:
			h.handleInternalCompFinished(ctx, p)
		case CompAllocationRequest:
			h.handleCompAllocationRequest(ctx, p)
		case nextCompletion:
			h.handleNextCompletion(ctx, p)
		case AllocationRequest:
			h.handleAllocationRequest(ctx, p.Cores, p.Memory, p.RequestID, p.Requester, false)
		case ManagedAllocationRequest:
			h.handleAllocationRequest(ctx, p.Cores, p.Memory, p.RequestID, p.Requester, true)
		case DeallocationRequest:
			h.handleDeallocation(ctx, p.ID, p.RequestID, p.Requester, false)
		case ManagedDeallocationRequest:
			h.handleDeallocation(ctx, p.ID, p.RequestID, p.Requester, true)
		}
	}
}

func min(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func (h *Host) handleCompRequest(ctx *kernel.Context, p CompRequest) {
	if h.memAvail < p.Memory || h.coresAvail < p.MinCores {
		ctx.Emit(CompFailed{NotEnoughResources: &kernel.NotEnoughResources{
			AvailCores: h.coresAvail, AvailMemory: h.memAvail,
			ReqCores: p.MinCores, ReqMemory: p.Memory,
		}, RequestID: p.RequestID}, p.Requester, 0)
		return
	}

	cores := min(h.coresAvail, p.MaxCores)
	h.coresAvail -= cores
	h.memAvail -= p.Memory

	id := h.nextCompID
	h.nextCompID++
	h.computations[id] = runningComputation{ID: id, Cores: cores, Memory: p.Memory, Requester: p.Requester}

	ctx.Emit(CompStarted{ID: id, Cores: cores, RequestID: p.RequestID}, p.Requester, 0)

	speedup := p.CoresDep.Speedup(cores)
	duration := p.Flops / (h.CPUSpeed * speedup)
	ctx.EmitSelf(internalCompFinished{ID: id}, duration)
}

func (h *Host) handleInternalCompFinished(ctx *kernel.Context, p internalCompFinished) {
	comp, ok := h.computations[p.ID]
	if !ok {
		// Stale self-event for a computation already reaped; impossible in
		// the run-to-completion path, but guarded defensively for symmetry
		// with the managed-allocation path.
		return
	}
	delete(h.computations, p.ID)
	h.coresAvail += comp.Cores
	h.memAvail += comp.Memory
	ctx.Emit(CompFinished{ID: p.ID}, comp.Requester, 0)
}

func (h *Host) handleCompAllocationRequest(ctx *kernel.Context, p CompAllocationRequest) {
	alloc, ok := h.allocs[p.AllocationID]
	if !ok || alloc.managed == nil {
		ctx.Emit(CompFailed{AllocationNotFound: &kernel.AllocationNotFound{ID: p.AllocationID}, RequestID: p.RequestID}, p.Requester, 0)
		return
	}

	cores := alloc.Cores
	work := p.Flops / p.CoresDep.Speedup(cores)

	compID := alloc.managed.nextCompID
	alloc.managed.nextCompID++

	ctx.Emit(CompStarted{ID: compID, Cores: cores, RequestID: p.RequestID}, p.Requester, 0)

	if alloc.managed.hasNextEvent {
		ctx.CancelEvent(alloc.managed.nextEventID)
		alloc.managed.hasNextEvent = false
	}

	alloc.managed.model.Insert(ctx.Time(), compItem{ID: compID, Requester: p.Requester}, work)
	h.rescheduleNextCompletion(ctx, alloc)
}

func (h *Host) handleNextCompletion(ctx *kernel.Context, p nextCompletion) {
	alloc, ok := h.allocs[p.AllocationID]
	if !ok || alloc.managed == nil {
		// The allocation was deallocated after this self-event was
		// scheduled; guarded no-op per the documented resolution of the
		// stale-self-event open question.
		return
	}
	alloc.managed.hasNextEvent = false

	_, item, ok := alloc.managed.model.Pop(ctx.Time())
	if !ok {
		return
	}
	ctx.Emit(CompFinished{ID: item.ID}, item.Requester, 0)
	h.rescheduleNextCompletion(ctx, alloc)
}

func (h *Host) rescheduleNextCompletion(ctx *kernel.Context, alloc *allocation) {
	finish, _, ok := alloc.managed.model.Peek(ctx.Time())
	if !ok {
		return
	}
	delay := finish - ctx.Time()
	if delay < 0 {
		delay = 0
	}
	eventID := ctx.EmitSelf(nextCompletion{AllocationID: alloc.ID}, delay)
	alloc.managed.nextEventID = eventID
	alloc.managed.hasNextEvent = true
}

func (h *Host) handleAllocationRequest(ctx *kernel.Context, cores uint32, memory uint64, requestID uint64, requester kernel.ID, managed bool) {
	if h.memAvail < memory || h.coresAvail < cores {
		ctx.Emit(AllocationFailed{NotEnoughResources: &kernel.NotEnoughResources{
			AvailCores: h.coresAvail, AvailMemory: h.memAvail,
			ReqCores: cores, ReqMemory: memory,
		}, RequestID: requestID}, requester, 0)
		return
	}

	h.coresAvail -= cores
	h.memAvail -= memory

	id := h.nextAllocID
	h.nextAllocID++

	a := &allocation{ID: id, Requester: requester, Cores: cores, Memory: memory}
	if managed {
		a.managed = &managedState{model: sharing.New[compItem](h.CPUSpeed)}
	}
	h.allocs[id] = a

	ctx.Emit(AllocationSuccess{ID: id, RequestID: requestID}, requester, 0)
}

func (h *Host) handleDeallocation(ctx *kernel.Context, id uint64, requestID uint64, requester kernel.ID, managed bool) {
	alloc, ok := h.allocs[id]
	if !ok || (alloc.managed != nil) != managed {
		ctx.Emit(DeallocationFailed{NotEnoughResources: &kernel.NotEnoughResources{
			AvailCores: h.coresAvail, AvailMemory: h.memAvail,
		}, RequestID: requestID}, requester, 0)
		return
	}

	delete(h.allocs, id)
	h.coresAvail += alloc.Cores
	h.memAvail += alloc.Memory
	// alloc.managed's sharing model and any scheduled nextCompletion event
	// are dropped here with no notification to in-flight requesters,
	// matching original_source's ManagedDeallocationRequest handler.

	ctx.Emit(DeallocationSuccess{ID: id, RequestID: requestID}, requester, 0)
}
