package workload_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nogokama/dslab/cluster"
	"github.com/nogokama/dslab/compute"
	"github.com/nogokama/dslab/kernel"
	"github.com/nogokama/dslab/workload"
)

func newHost(k *kernel.Kernel, name string, cores uint32, memory uint64, speed float64) (*compute.Host, kernel.ID) {
	ctx := k.Context(name)
	h := compute.NewHost(ctx.ID(), name, cores, memory, speed)
	k.AddHandler(ctx.ID(), h.Handler())
	return h, ctx.ID()
}

func allocate(co *kernel.Coroutine, hostID kernel.ID, cores uint32, memory uint64) cluster.Process {
	co.EmitNow(compute.ManagedAllocationRequest{Cores: cores, Memory: memory, Requester: co.ID()}, hostID)
	_, success := kernel.WaitForEvent[compute.AllocationSuccess](co, hostID)
	return cluster.Process{HostID: hostID, AllocationID: success.ID}
}

func TestCPUBurnHomogeneousCompletes(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)
	_, hostID := newHost(k, "host", 2, 0, 1000)
	client := k.Context("client")

	var done bool
	client.Spawn(func(co *kernel.Coroutine) {
		proc := allocate(co, hostID, 2, 0)
		workload.CPUBurnHomogeneous{Flops: 2000, CoresDep: compute.Linear{}}.Run(co, cluster.Execution{Processes: []cluster.Process{proc}})
		done = true
	})
	k.StepUntilNoEvents()

	require.True(t, done)
	require.Equal(t, 1.0, k.Time(), "2000 flops / (1000 * 2 cores) == 1s")
}

func TestCPUBurnHomogeneousRunsOnEveryProcessConcurrently(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)
	_, hostA := newHost(k, "host-a", 1, 0, 1000)
	_, hostB := newHost(k, "host-b", 1, 0, 1000)
	client := k.Context("client")

	var done bool
	client.Spawn(func(co *kernel.Coroutine) {
		procA := allocate(co, hostA, 1, 0)
		procB := allocate(co, hostB, 1, 0)
		workload.CPUBurnHomogeneous{Flops: 1000, CoresDep: compute.Linear{}}.Run(co, cluster.Execution{Processes: []cluster.Process{procA, procB}})
		done = true
	})
	k.StepUntilNoEvents()

	require.True(t, done)
	require.Equal(t, 1.0, k.Time(), "both processes run their 1000-flops burn concurrently, not in sequence")
}

func TestCommunicationHomogeneousAllPairsFinishConcurrently(t *testing.T) {
	k := kernel.New(1, nil)
	workload.RegisterKeyExtractors(k)
	_, hostA := newHost(k, "host-a", 1, 0, 1000)
	_, hostB := newHost(k, "host-b", 1, 0, 1000)
	_, hostC := newHost(k, "host-c", 1, 0, 1000)
	client := k.Context("client")

	client.Spawn(func(co *kernel.Coroutine) {
		exec := cluster.Execution{Processes: []cluster.Process{{HostID: hostA}, {HostID: hostB}, {HostID: hostC}}}
		workload.CommunicationHomogeneous{Volume: 100, Bandwidth: 25}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	require.Equal(t, 4.0, k.Time(), "every one of the 3*2 directed pairs transfers concurrently, same duration as a single pair")
}

func TestCommunicationHomogeneousNoopBelowTwoProcesses(t *testing.T) {
	k := kernel.New(1, nil)
	workload.RegisterKeyExtractors(k)
	_, hostID := newHost(k, "host", 1, 0, 1000)
	client := k.Context("client")

	var done bool
	client.Spawn(func(co *kernel.Coroutine) {
		exec := cluster.Execution{Processes: []cluster.Process{{HostID: hostID}}}
		workload.CommunicationHomogeneous{Volume: 100, Bandwidth: 25}.Run(co, exec)
		done = true
	})
	k.StepUntilNoEvents()

	require.True(t, done)
	require.Equal(t, 0.0, k.Time(), "a single process has no pair to transfer with")
}

func TestMasterWorkersRunsWorkersOnSeparateProcessesConcurrently(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)
	_, masterHost := newHost(k, "master", 1, 0, 1000)
	_, workerHostA := newHost(k, "worker-a", 1, 0, 1000)
	_, workerHostB := newHost(k, "worker-b", 1, 0, 1000)
	client := k.Context("client")

	client.Spawn(func(co *kernel.Coroutine) {
		master := allocate(co, masterHost, 1, 0)
		workerA := allocate(co, workerHostA, 1, 0)
		workerB := allocate(co, workerHostB, 1, 0)
		exec := cluster.Execution{Processes: []cluster.Process{master, workerA, workerB}}
		workload.MasterWorkers{WorkerFlops: 1000, CoresDep: compute.Linear{}}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	// Both workers run 1000 flops on their own dedicated core concurrently
	// (1s each); MasterFlops is zero, so the master contributes no further
	// delay once both workers have reported in.
	require.Equal(t, 1.0, k.Time())
}

func TestMasterWorkersRunsMasterComputeAfterTransfers(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)
	_, masterHost := newHost(k, "master", 1, 0, 1000)
	_, workerHost := newHost(k, "worker", 1, 0, 1000)
	client := k.Context("client")

	client.Spawn(func(co *kernel.Coroutine) {
		master := allocate(co, masterHost, 1, 0)
		worker := allocate(co, workerHost, 1, 0)
		exec := cluster.Execution{Processes: []cluster.Process{master, worker}}
		workload.MasterWorkers{
			MasterFlops: 500, WorkerFlops: 1000,
			Bytes: 100, Bandwidth: 100, CoresDep: compute.Linear{},
		}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	// worker compute: 1000/1000 = 1s; transfer: 100/100 = 1s; master
	// compute, only after the worker reports in: 500/1000 = 0.5s.
	require.InDelta(t, 2.5, k.Time(), 1e-9)
}

func TestMasterWorkersWithNoProcessesIsNoop(t *testing.T) {
	k := kernel.New(1, nil)
	client := k.Context("client")

	var done bool
	client.Spawn(func(co *kernel.Coroutine) {
		workload.MasterWorkers{MasterFlops: 500}.Run(co, cluster.Execution{})
		done = true
	})
	k.StepUntilNoEvents()

	require.True(t, done)
	require.Equal(t, 0.0, k.Time())
}

func TestSequentialRunsStepsInOrder(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)
	_, hostID := newHost(k, "host", 1, 0, 1000)
	client := k.Context("client")

	client.Spawn(func(co *kernel.Coroutine) {
		proc := allocate(co, hostID, 1, 0)
		exec := cluster.Execution{Processes: []cluster.Process{proc}}
		workload.Sequential{Steps: []cluster.Profile{
			workload.CPUBurnHomogeneous{Flops: 1000, CoresDep: compute.Linear{}},
			workload.CPUBurnHomogeneous{Flops: 1000, CoresDep: compute.Linear{}},
		}}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	require.Equal(t, 2.0, k.Time(), "two sequential 1-second steps must take 2 seconds total")
}

func TestParallelRunsStepsConcurrentlyAndWaitsForAll(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)
	_, hostA := newHost(k, "host-a", 1, 0, 1000)
	_, hostB := newHost(k, "host-b", 1, 0, 1000)
	client := k.Context("client")

	client.Spawn(func(co *kernel.Coroutine) {
		exec := cluster.Execution{Processes: []cluster.Process{{HostID: hostA}, {HostID: hostB}}}
		workload.Parallel{Steps: []cluster.Profile{
			workload.CommunicationHomogeneous{Volume: 100, Bandwidth: 100},
			workload.CommunicationHomogeneous{Volume: 300, Bandwidth: 100},
		}}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	require.Equal(t, 3.0, k.Time(), "parallel branches finish together at the slowest branch's time")
}

func TestRepeatZeroMeansRunOnce(t *testing.T) {
	k := kernel.New(1, nil)
	_, hostID := newHost(k, "host", 1, 0, 1000)
	client := k.Context("client")

	runs := 0
	client.Spawn(func(co *kernel.Coroutine) {
		exec := cluster.Execution{Processes: []cluster.Process{{HostID: hostID}}}
		workload.Repeat{
			Step:  countingProfile{counter: &runs, volume: 10, bandwidth: 10},
			Count: 0,
		}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	require.Equal(t, 1, runs)
	require.Equal(t, 1.0, k.Time())
}

func TestRepeatRunsStepCountTimes(t *testing.T) {
	k := kernel.New(1, nil)
	_, hostID := newHost(k, "host", 1, 0, 1000)
	client := k.Context("client")

	runs := 0
	client.Spawn(func(co *kernel.Coroutine) {
		exec := cluster.Execution{Processes: []cluster.Process{{HostID: hostID}}}
		workload.Repeat{
			Step:  countingProfile{counter: &runs, volume: 10, bandwidth: 10},
			Count: 3,
		}.Run(co, exec)
	})
	k.StepUntilNoEvents()

	require.Equal(t, 3, runs)
	require.Equal(t, 3.0, k.Time())
}

type countingProfile struct {
	counter   *int
	volume    float64
	bandwidth float64
}

func (p countingProfile) Run(co *kernel.Coroutine, exec cluster.Execution) {
	*p.counter++
	kernel.Sleep(co, p.volume/p.bandwidth)
}

func TestCollectionGeneratorSubmitsAllJobs(t *testing.T) {
	k := kernel.New(1, nil)
	compute.RegisterKeyExtractors(k)
	host, hostID := newHost(k, "host", 4, 0, 1000)
	_ = host

	var submittedRefs []uint64
	proxyCtx := k.Context("proxy")
	k.AddHandler(proxyCtx.ID(), func(ctx *kernel.Context, e kernel.Event) {
		req, ok := e.Payload.(cluster.JobRequest)
		if !ok {
			return
		}
		submittedRefs = append(submittedRefs, req.ClientRef)
		ctx.Emit(cluster.JobSubmitted{ClientRef: req.ClientRef, ID: req.ClientRef}, req.Requester, 0)
	})

	client := k.Context("client")
	gen := stubGenerator{hostID: hostID}
	cg := workload.CollectionGenerator{
		Gen: gen, Count: 3, ProxyID: proxyCtx.ID(),
		Interarrival: func(co *kernel.Coroutine) float64 { return 1 },
	}
	client.Spawn(func(co *kernel.Coroutine) { cg.Run(co) })
	k.StepUntilNoEvents()

	require.Equal(t, []uint64{0, 1, 2}, submittedRefs)
	require.Equal(t, 2.0, k.Time(), "two interarrival sleeps between three submissions")
}

type stubGenerator struct{ hostID kernel.ID }

func (g stubGenerator) Generate(co *kernel.Coroutine) (uint32, uint32, uint64, cluster.Profile) {
	return 1, 1, 0, workload.CommunicationHomogeneous{Volume: 1, Bandwidth: 1}
}
