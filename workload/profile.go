// Package workload implements the composable execution profiles (Profile
// implementations run by the orchestrator across a job's Processes) and
// the generators that drive synthetic job submission against the
// cluster's proxy. Grounded on the computation kinds in
// original_source/crates/dslab-scheduling/src/execution_profiles and the
// per-process model in dslab-scheduling/src/host/process.rs.
package workload

import (
	"github.com/nogokama/dslab/cluster"
	"github.com/nogokama/dslab/compute"
	"github.com/nogokama/dslab/kernel"
)

// stepDone signals one fanned-out branch finished (a Parallel step, a
// CommunicationHomogeneous transfer, or a MasterWorkers worker). It is
// keyed by the finished branch's own spawned task id rather than a small
// positional index: every Profile in a job's tree shares that job's single
// component id, so an index-keyed discriminator would collide between,
// say, a Parallel's branch 0 and a nested MasterWorkers' worker 0 running
// concurrently underneath it. Task ids are unique across the whole
// simulation, so this composes at any nesting depth.
type stepDone struct {
	TaskID uint64
}

// RegisterKeyExtractors wires the discriminator extractor Parallel,
// CommunicationHomogeneous, CPUBurnHomogeneous, and MasterWorkers need to
// await each of their fanned-out branches individually. Call this once
// against the kernel before running any Profile with more than one
// concurrent step.
func RegisterKeyExtractors(k *kernel.Kernel) {
	kernel.RegisterKeyExtractor(k, func(e stepDone) uint64 { return e.TaskID })
}

// runComputation requests a computation of flops work against proc's
// managed allocation and waits for it to finish. Requires
// compute.RegisterKeyExtractors to have been called so a sibling step
// running concurrently on the same host (e.g. another process's worker
// computation) can't collide with this one's CompStarted/CompFinished
// wait. Grounded on dslab-scheduling/src/host/cluster_host.rs's
// ClusterHost.run_flops.
func runComputation(co *kernel.Coroutine, proc cluster.Process, flops float64, dep compute.CoresDependency) {
	reqID := co.TaskID()
	co.EmitNow(compute.CompAllocationRequest{
		Flops: flops, AllocationID: proc.AllocationID, CoresDep: dep, RequestID: reqID, Requester: co.ID(),
	}, proc.HostID)
	_, started := kernel.WaitForEventWithKey[compute.CompStarted](co, proc.HostID, reqID)
	kernel.WaitForEventWithKey[compute.CompFinished](co, proc.HostID, started.ID)
}

// CPUBurnHomogeneous is a Profile that runs a Flops computation on every
// one of the Execution's Processes concurrently, time-shared on each
// process's own managed allocation.
type CPUBurnHomogeneous struct {
	Flops    float64
	CoresDep compute.CoresDependency
}

// Run spawns one task per process and waits for every one to finish its
// computation. Requires both RegisterKeyExtractors and
// compute.RegisterKeyExtractors to have been called.
func (p CPUBurnHomogeneous) Run(co *kernel.Coroutine, exec cluster.Execution) {
	taskIDs := make([]uint64, len(exec.Processes))
	for i, proc := range exec.Processes {
		proc := proc
		taskIDs[i] = co.Spawn(func(sub *kernel.Coroutine) {
			runComputation(sub, proc, p.Flops, p.CoresDep)
			sub.EmitNow(stepDone{TaskID: sub.TaskID()}, co.ID())
		})
	}
	for _, id := range taskIDs {
		kernel.WaitForEventWithKey[stepDone](co, co.ID(), id)
	}
}

// CommunicationHomogeneous models an all-pairs data exchange across the
// Execution's Processes: every ordered pair (i, j) with i != j transfers
// Volume bytes, charged as Volume/Bandwidth seconds of elapsed virtual
// time. Grounded on dslab-scheduling/src/execution_profiles/default.rs's
// CommunicationHomogenous.run, which loops every ordered pair and joins
// the resulting transfer futures concurrently. This simulation carries no
// network contention model (no network component is part of this
// simulation surface), so every pair's transfer is an independent
// concurrent sleep rather than competing for shared bandwidth; the whole
// step's elapsed time is therefore one pair's duration regardless of
// process count, but the transfer count genuinely scales as
// len(Processes)*(len(Processes)-1), the structural property the prior,
// single-process rendition of this profile had no way to exhibit.
type CommunicationHomogeneous struct {
	Volume    float64
	Bandwidth float64
}

// Run spawns one task per ordered process pair, each sleeping
// Volume/Bandwidth seconds, and waits for every pair to finish. A job with
// fewer than two Processes has no pairs to transfer between and returns
// immediately. Requires RegisterKeyExtractors to have been called.
func (p CommunicationHomogeneous) Run(co *kernel.Coroutine, exec cluster.Execution) {
	n := len(exec.Processes)
	if n < 2 {
		return
	}

	taskIDs := make([]uint64, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			taskIDs = append(taskIDs, co.Spawn(func(sub *kernel.Coroutine) {
				kernel.Sleep(sub, p.Volume/p.Bandwidth)
				sub.EmitNow(stepDone{TaskID: sub.TaskID()}, co.ID())
			}))
		}
	}
	for _, id := range taskIDs {
		kernel.WaitForEventWithKey[stepDone](co, co.ID(), id)
	}
}

// MasterWorkers is a Profile that treats the Execution's first Process as
// the master and every remaining Process as a worker: each worker runs its
// own WorkerFlops computation on its own host/allocation, then transfers
// Bytes back to the master, all concurrently; only once every worker has
// reported in does the master run its own MasterFlops computation.
// Grounded on dslab-scheduling/src/execution_profiles/default.rs's
// MasterWorkers.run (processes[0] is the master, processes[1..] are
// workers, each transferring to the master's process id once its own
// compute finishes).
type MasterWorkers struct {
	MasterFlops float64
	WorkerFlops float64
	Bytes       float64
	Bandwidth   float64
	CoresDep    compute.CoresDependency
}

// Run requires at least one Process (the master; a job with none has
// nothing to run workers or a master on). Requires both
// RegisterKeyExtractors and compute.RegisterKeyExtractors to have been
// called.
func (p MasterWorkers) Run(co *kernel.Coroutine, exec cluster.Execution) {
	if len(exec.Processes) == 0 {
		return
	}
	master := exec.Processes[0]
	workers := exec.Processes[1:]

	taskIDs := make([]uint64, len(workers))
	for i, w := range workers {
		w := w
		taskIDs[i] = co.Spawn(func(sub *kernel.Coroutine) {
			runComputation(sub, w, p.WorkerFlops, p.CoresDep)
			if p.Bandwidth > 0 {
				kernel.Sleep(sub, p.Bytes/p.Bandwidth)
			}
			sub.EmitNow(stepDone{TaskID: sub.TaskID()}, co.ID())
		})
	}
	for _, id := range taskIDs {
		kernel.WaitForEventWithKey[stepDone](co, co.ID(), id)
	}

	runComputation(co, master, p.MasterFlops, p.CoresDep)
}

// Sequential runs each of Steps to completion, one after another.
type Sequential struct {
	Steps []cluster.Profile
}

// Run runs each step in order on the caller's own coroutine.
func (p Sequential) Run(co *kernel.Coroutine, exec cluster.Execution) {
	for _, step := range p.Steps {
		step.Run(co, exec)
	}
}

// Parallel runs every one of Steps concurrently, each as its own
// cooperative task sharing this component's id, and waits for all to
// finish. Requires RegisterKeyExtractors to have been called, plus
// compute.RegisterKeyExtractors if any Step submits a computation.
type Parallel struct {
	Steps []cluster.Profile
}

// Run spawns one task per step and waits for every one to report done.
func (p Parallel) Run(co *kernel.Coroutine, exec cluster.Execution) {
	taskIDs := make([]uint64, len(p.Steps))
	for i, step := range p.Steps {
		step := step
		taskIDs[i] = co.Spawn(func(sub *kernel.Coroutine) {
			step.Run(sub, exec)
			sub.EmitNow(stepDone{TaskID: taskIDs[i]}, co.ID())
		})
	}
	for _, id := range taskIDs {
		kernel.WaitForEventWithKey[stepDone](co, co.ID(), id)
	}
}

// Repeat runs Step Count times in sequence. Count == 0 means run Step
// exactly once, matching the zero-value-means-default-behavior convention
// used elsewhere in this package's config surface.
type Repeat struct {
	Step  cluster.Profile
	Count int
}

// Run executes Step Count times (or once, if Count is 0).
func (p Repeat) Run(co *kernel.Coroutine, exec cluster.Execution) {
	n := p.Count
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		p.Step.Run(co, exec)
	}
}
