package cluster

import (
	"github.com/nogokama/dslab/compute"
	"github.com/nogokama/dslab/kernel"
)

// ExecutionFinished reports a job ran to completion and every allocation
// across its Processes was released. It is sent to both the scheduler
// (a capacity-freed retry trigger) and the original requester.
type ExecutionFinished struct {
	ExecutionID uint64
	HostIDs     []kernel.ID
}

// ExecutionFailed reports a job could not be run: one of its per-host
// allocation requests was rejected (e.g. it raced another job for the
// last free cores between scheduling and allocation). Any allocation
// already granted on an earlier host in the same placement is released
// before this is reported.
type ExecutionFailed struct {
	ExecutionID uint64
	HostIDs     []kernel.ID
}

// Orchestrator is component I: given a scheduler's placement decision, it
// requests a managed allocation on every chosen host (spec.md's "for each
// host, request a managed allocation"), runs the job's Profile across the
// resulting Processes, releases every allocation, and reports the outcome
// to both the scheduler (so it can retry anything deferred) and the
// original requester. Each job runs as its own cooperative task, so many
// jobs progress concurrently within a single Step-driven kernel.
type Orchestrator struct {
	SchedulerID kernel.ID

	active   map[uint64]bool
	requests map[uint64]ExecutionRequest
}

// NewOrchestrator returns an Orchestrator with no jobs in flight, notifying
// schedulerID of every execution's eventual outcome.
func NewOrchestrator(schedulerID kernel.ID) *Orchestrator {
	return &Orchestrator{SchedulerID: schedulerID, active: make(map[uint64]bool), requests: make(map[uint64]ExecutionRequest)}
}

// Handler returns the kernel.HandlerFunc to register for this
// orchestrator's id.
func (o *Orchestrator) Handler() kernel.HandlerFunc {
	return func(ctx *kernel.Context, e kernel.Event) {
		switch p := e.Payload.(type) {
		case ExecutionRequest:
			// Recorded here and consumed once the matching ScheduleExecution
			// names the hosts to run it on; the Proxy's emission order
			// guarantees this always arrives first.
			o.requests[p.ExecutionID] = p

		case ScheduleExecution:
			if o.active[p.ExecutionID] {
				ctx.Fatal(kernel.DuplicateRequest, "duplicate schedule for the same execution id")
				return
			}
			request, ok := o.requests[p.ExecutionID]
			if !ok {
				ctx.Fatal(kernel.DuplicateRequest, "scheduled an execution id with no known request")
				return
			}
			delete(o.requests, p.ExecutionID)
			o.active[p.ExecutionID] = true

			ctx.Spawn(func(co *kernel.Coroutine) {
				defer delete(o.active, p.ExecutionID)
				o.run(co, p.HostIDs, request)
			})
		}
	}
}

// run requests a managed allocation on every host in hostIDs, one per
// node of request, collecting the resulting Processes, then runs the
// job's Profile across them before releasing every allocation and
// reporting the outcome. Every allocation/deallocation request carries
// co.TaskID() as its RequestID: every job runs as its own task spawned off
// the orchestrator's single component id, so two jobs placed on the same
// host at once would otherwise register identical AwaitKeys and collide.
func (o *Orchestrator) run(co *kernel.Coroutine, hostIDs []kernel.ID, request ExecutionRequest) {
	reqID := co.TaskID()
	processes := make([]Process, 0, len(hostIDs))

	for _, hostID := range hostIDs {
		co.EmitNow(compute.ManagedAllocationRequest{
			Cores: request.CPUPerNode, Memory: request.MemoryPerNode, RequestID: reqID, Requester: co.ID(),
		}, hostID)

		allocOK, success, _, _ := kernel.WaitForEitherEventWithKey[compute.AllocationSuccess, compute.AllocationFailed](co, hostID, reqID)
		if !allocOK {
			o.release(co, processes, reqID)
			o.finish(co, ExecutionFailed{ExecutionID: request.ExecutionID, HostIDs: hostIDs}, request.Requester)
			return
		}
		processes = append(processes, Process{HostID: hostID, AllocationID: success.ID})
	}

	request.Profile.Run(co, Execution{Processes: processes})

	o.release(co, processes, reqID)
	o.finish(co, ExecutionFinished{ExecutionID: request.ExecutionID, HostIDs: hostIDs}, request.Requester)
}

// release deallocates every granted Process's allocation, awaiting each
// DeallocationSuccess before moving to the next.
func (o *Orchestrator) release(co *kernel.Coroutine, processes []Process, reqID uint64) {
	for _, p := range processes {
		co.EmitNow(compute.ManagedDeallocationRequest{ID: p.AllocationID, RequestID: reqID, Requester: co.ID()}, p.HostID)
		kernel.WaitForEventWithKey[compute.DeallocationSuccess](co, p.HostID, reqID)
	}
}

// finish reports outcome to both the scheduler (a capacity-freed retry
// trigger for OnExecutionFinished) and the original requester.
func (o *Orchestrator) finish(co *kernel.Coroutine, outcome any, requester kernel.ID) {
	co.Emit(outcome, o.SchedulerID, 0)
	co.Emit(outcome, requester, 0)
}
