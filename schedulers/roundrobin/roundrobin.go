// Package roundrobin implements a cluster.Scheduler that places each job
// across NodesCount distinct hosts whose static capacity fits its
// per-node request, rotating the starting host across jobs so load
// spreads evenly. Grounded on the trivial round-robin placement policy
// shipped alongside the pluggable scheduler trait in original_source's
// dslab-scheduling crate, generalized from one host per job to a chosen
// subset per job.
package roundrobin

import (
	"github.com/nogokama/dslab/cluster"
	"github.com/nogokama/dslab/kernel"
)

// Scheduler is a round-robin multi-host placement policy. It does not
// track current host load: the orchestrator's per-host allocation step
// may still fail under contention, in which case that job fails outright
// rather than being retried. A request that doesn't fit the current host
// set at all is deferred and retried on the next OnExecutionRequest or
// OnExecutionFinished, since the upstream on_host_added callback carries
// no SchedulerContext to schedule from directly.
type Scheduler struct {
	cursor int

	pending map[uint64]cluster.ExecutionRequest
	order   []uint64
}

// New returns a Scheduler with an empty rotation and no deferred requests.
func New() *Scheduler {
	return &Scheduler{pending: make(map[uint64]cluster.ExecutionRequest)}
}

// OnHostAdded implements cluster.Scheduler. A newly joined host cannot
// trigger an immediate retry here (see the type doc); it is simply left
// for the next OnExecutionRequest/OnExecutionFinished to pick up.
func (s *Scheduler) OnHostAdded(host cluster.HostInfo) {}

// OnExecutionRequest implements cluster.Scheduler.
func (s *Scheduler) OnExecutionRequest(sc *cluster.SchedulerContext, request cluster.ExecutionRequest) {
	s.pending[request.ExecutionID] = request
	s.order = append(s.order, request.ExecutionID)
	s.tryPlaceAll(sc)
}

// OnExecutionFinished implements cluster.Scheduler: freed capacity is a
// retry trigger for whatever didn't fit earlier.
func (s *Scheduler) OnExecutionFinished(sc *cluster.SchedulerContext, executionID uint64, hostIDs []kernel.ID) {
	s.tryPlaceAll(sc)
}

// tryPlaceAll attempts every still-pending request against the current
// host set, in submission order, keeping whichever still don't fit for
// next time.
func (s *Scheduler) tryPlaceAll(sc *cluster.SchedulerContext) {
	remaining := s.order[:0]
	for _, id := range s.order {
		request, ok := s.pending[id]
		if !ok {
			continue
		}
		if hostIDs, ok := s.choose(sc, request); ok {
			delete(s.pending, id)
			sc.Schedule(hostIDs, id)
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
}

// choose picks request.NodesCount distinct fitting hosts starting at the
// rotation cursor, advancing the cursor by that many so the next request
// continues from where this one left off.
func (s *Scheduler) choose(sc *cluster.SchedulerContext, request cluster.ExecutionRequest) ([]kernel.ID, bool) {
	hosts := sc.Hosts()
	fit := make([]cluster.HostInfo, 0, len(hosts))
	for _, h := range hosts {
		if h.Cores >= request.CPUPerNode && h.Memory >= request.MemoryPerNode {
			fit = append(fit, h)
		}
	}
	if uint32(len(fit)) < request.NodesCount {
		return nil, false
	}

	chosen := make([]kernel.ID, request.NodesCount)
	for i := range chosen {
		chosen[i] = fit[(s.cursor+i)%len(fit)].ID
	}
	s.cursor += int(request.NodesCount)
	return chosen, true
}
