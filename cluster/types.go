// Package cluster implements the cluster orchestration layer (components
// I, J, K): a submission proxy that stamps and deduplicates incoming jobs,
// a host registry that tracks cluster membership, a scheduler adapter that
// drives a pluggable placement policy with full multi-host agency, and an
// orchestrator that carries a placed job from per-node allocation through
// execution to release. Grounded on
// original_source/crates/dslab-core's event-driven component style and the
// scheduler trait in dslab-scheduling/src/scheduler.rs.
package cluster

import "github.com/nogokama/dslab/kernel"

// Process is one node's resource handle within a running job: the host it
// was placed on and the managed allocation carved out of that host for it.
// Grounded on dslab-scheduling's HostProcessInstance{id, compute_allocation_id,
// host}, trimmed to the fields this simulation's profiles actually use.
type Process struct {
	HostID       kernel.ID
	AllocationID uint64
}

// Execution is the full set of Processes backing one running job, one per
// node the scheduler placed it on, in the same order as the scheduler's
// chosen host_ids. A Profile steps through Processes to run its workload;
// a single-node job is simply an Execution with one Process.
type Execution struct {
	Processes []Process
}

// Profile is a composable unit of workload behavior run to completion
// across an Execution's Processes. Implementations live in the workload
// package; the orchestrator only knows how to invoke one.
type Profile interface {
	Run(co *kernel.Coroutine, exec Execution)
}

// ExecutionRequest is a submitted job's resource shape: how many nodes it
// needs and the per-node cores/memory each one requires. The Proxy
// forwards one of these to both the scheduler adapter (to decide a
// placement) and the orchestrator (to run the job once placed), the same
// rebroadcast-to-every-listener pattern HostRegistry uses for HostAdded.
// Grounded on dslab-scheduling/src/workload_generators/events.rs's
// ExecutionRequest{resources: ResourceRequirements{nodes_count, cpu_per_node,
// memory_per_node}, profile, ...}.
type ExecutionRequest struct {
	ExecutionID   uint64
	NodesCount    uint32
	CPUPerNode    uint32
	MemoryPerNode uint64
	Profile       Profile
	Requester     kernel.ID
}

// ScheduleExecution is a scheduler's placement decision, emitted by
// SchedulerContext.Schedule/ScheduleOneHost: ExecutionID should run with
// one Process per entry of HostIDs, in that order.
type ScheduleExecution struct {
	ExecutionID uint64
	HostIDs     []kernel.ID
}
