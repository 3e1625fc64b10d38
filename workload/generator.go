package workload

import (
	"github.com/nogokama/dslab/cluster"
	"github.com/nogokama/dslab/kernel"
)

// Generator produces one job's resource shape (how many nodes, and the
// per-node cores/memory each one requires) and the Profile it should run
// once placed. Implementations typically close over a *kernel.Context to
// draw resource sizes from the kernel's seeded PRNG.
type Generator interface {
	Generate(co *kernel.Coroutine) (nodesCount uint32, cpuPerNode uint32, memoryPerNode uint64, profile cluster.Profile)
}

// CollectionGenerator drives submission of a sequence of Count jobs from
// Gen against ProxyID, sleeping Interarrival(co) seconds of virtual time
// between submissions. It runs as its own cooperative task and is
// typically started from a client component's Context via Spawn.
type CollectionGenerator struct {
	Gen          Generator
	Count        int
	Interarrival func(co *kernel.Coroutine) float64
	ProxyID      kernel.ID
}

// Run submits every job in order, waiting for the proxy's JobSubmitted
// acknowledgment before sleeping to the next submission.
func (g CollectionGenerator) Run(co *kernel.Coroutine) {
	for i := 0; i < g.Count; i++ {
		nodesCount, cpuPerNode, memoryPerNode, profile := g.Gen.Generate(co)
		co.EmitNow(cluster.JobRequest{
			NodesCount: nodesCount, CPUPerNode: cpuPerNode, MemoryPerNode: memoryPerNode, Profile: profile,
			ClientRef: uint64(i), Requester: co.ID(),
		}, g.ProxyID)
		kernel.WaitForEvent[cluster.JobSubmitted](co, g.ProxyID)

		if i < g.Count-1 && g.Interarrival != nil {
			kernel.Sleep(co, g.Interarrival(co))
		}
	}
}
