package cluster

import "github.com/nogokama/dslab/kernel"

// Scheduler is the pluggable placement policy contract (component K).
// Implementations live under the schedulers package and drive placement
// themselves by calling SchedulerContext.Schedule/ScheduleOneHost from
// within these callbacks, rather than being polled for a yes/no offer:
// only an implementation with a view of the whole pending request can
// choose a multi-host subset for it. Grounded directly on
// dslab-scheduling/src/scheduler.rs's Scheduler trait
// (on_host_added/on_execution_request/on_execution_finished).
type Scheduler interface {
	// OnHostAdded reports a host joined the cluster. It carries no
	// SchedulerContext, matching the upstream trait: a scheduler cannot
	// proactively place from here, only note the host and wait for the
	// next OnExecutionRequest/OnExecutionFinished to retry anything
	// pending.
	OnHostAdded(host HostInfo)

	// OnExecutionRequest reports a newly submitted job. The implementation
	// may call sc.Schedule/sc.ScheduleOneHost zero or more times (placing
	// this request, any previously deferred one, or none yet).
	OnExecutionRequest(sc *SchedulerContext, request ExecutionRequest)

	// OnExecutionFinished reports executionID (successfully or not) freed
	// the given hosts, a natural point to retry requests that didn't fit
	// earlier.
	OnExecutionFinished(sc *SchedulerContext, executionID uint64, hostIDs []kernel.ID)
}

// SchedulerContext is the façade a Scheduler implementation uses to learn
// about cluster state and commit a placement decision.
type SchedulerContext struct {
	ctx            *kernel.Context
	registry       *HostRegistry
	orchestratorID kernel.ID
	onPlace        func(t float64, executionID, hostID uint64)
}

// NewSchedulerContext wraps registry for direct use by a Scheduler
// implementation's own tests, without requiring a full Adapter. Schedule
// calls made against a context built this way emit with ctx's clock/id.
func NewSchedulerContext(ctx *kernel.Context, registry *HostRegistry, orchestratorID kernel.ID) *SchedulerContext {
	return &SchedulerContext{ctx: ctx, registry: registry, orchestratorID: orchestratorID}
}

// Hosts returns every host currently known to the cluster.
func (sc *SchedulerContext) Hosts() []HostInfo { return sc.registry.Hosts() }

// Schedule commits executionID to run with one Process per entry of
// hostIDs, in order, and notifies the orchestrator.
func (sc *SchedulerContext) Schedule(hostIDs []kernel.ID, executionID uint64) {
	sc.ctx.Emit(ScheduleExecution{ExecutionID: executionID, HostIDs: hostIDs}, sc.orchestratorID, 0)
	if sc.onPlace != nil {
		for _, h := range hostIDs {
			sc.onPlace(sc.ctx.Time(), executionID, uint64(h))
		}
	}
}

// ScheduleOneHost is Schedule for the common single-node case.
func (sc *SchedulerContext) ScheduleOneHost(hostID kernel.ID, executionID uint64) {
	sc.Schedule([]kernel.ID{hostID}, executionID)
}

// Adapter is the scheduler adapter (component K): a thin event-to-callback
// forwarder between the kernel and a Scheduler implementation. It carries
// no placement policy of its own; retry-on-capacity-change is entirely the
// concrete Scheduler's responsibility, since only it knows which requests
// it has deferred.
type Adapter struct {
	OrchestratorID kernel.ID

	registry *HostRegistry
	impl     Scheduler
	onPlace  func(t float64, executionID, hostID uint64)
	sc       *SchedulerContext
}

// NewAdapter constructs an Adapter wrapping impl, forwarding decisions to
// orchestratorID.
func NewAdapter(orchestratorID kernel.ID, registry *HostRegistry, impl Scheduler) *Adapter {
	return &Adapter{OrchestratorID: orchestratorID, registry: registry, impl: impl}
}

// WithPlacementLog installs a callback invoked once per host every time
// the wrapped Scheduler commits a placement, wiring e.g.
// monitoring.SchedulerInfoWriter.LogPlacement into the adapter's decision
// path. Returns the receiver, so it chains off NewAdapter at construction.
func (a *Adapter) WithPlacementLog(onPlace func(t float64, executionID, hostID uint64)) *Adapter {
	a.onPlace = onPlace
	if a.sc != nil {
		a.sc.onPlace = onPlace
	}
	return a
}

// Handler returns the kernel.HandlerFunc to register for this adapter's
// id. The kernel dispatches every event for a given component through the
// same *kernel.Context, so the SchedulerContext is built lazily on first
// use and reused for the adapter's lifetime rather than reconstructed per
// event.
func (a *Adapter) Handler() kernel.HandlerFunc {
	return func(ctx *kernel.Context, e kernel.Event) {
		if a.sc == nil {
			a.sc = &SchedulerContext{ctx: ctx, registry: a.registry, orchestratorID: a.OrchestratorID, onPlace: a.onPlace}
		}

		switch p := e.Payload.(type) {
		case ExecutionRequest:
			a.impl.OnExecutionRequest(a.sc, p)
		case HostAdded:
			a.impl.OnHostAdded(p.Host)
		case ExecutionFinished:
			a.impl.OnExecutionFinished(a.sc, p.ExecutionID, p.HostIDs)
		case ExecutionFailed:
			a.impl.OnExecutionFinished(a.sc, p.ExecutionID, p.HostIDs)
		}
	}
}
