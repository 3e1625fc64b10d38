package cluster

import "github.com/nogokama/dslab/kernel"

// JobRequest submits a job for placement: how many nodes it needs, the
// per-node resource shape, and the Profile to run across the resulting
// Processes once placed. ClientRef is a caller-chosen correlation id
// (typically per-requester sequential), echoed back in JobSubmitted and
// used to detect resubmission.
type JobRequest struct {
	NodesCount    uint32
	CPUPerNode    uint32
	MemoryPerNode uint64
	Profile       Profile
	ClientRef     uint64
	Requester     kernel.ID
}

// JobSubmitted confirms a JobRequest was accepted and assigned a
// cluster-wide unique execution id.
type JobSubmitted struct {
	ClientRef uint64
	ID        uint64
}

// Proxy is the submission proxy (component J): it stamps incoming jobs
// with a dense execution id and forwards the resulting ExecutionRequest to
// both the orchestrator (which needs it to run the job once placed) and
// the scheduler adapter (which needs it to decide a placement).
// Resubmission of the same ClientRef by the same requester is a fatal
// DuplicateRequest, not a recoverable rejection, since it can only happen
// from a bug in the submitting component.
type Proxy struct {
	SchedulerID    kernel.ID
	OrchestratorID kernel.ID

	nextExecutionID uint64
	seen            map[kernel.ID]map[uint64]bool
}

// NewProxy constructs a Proxy forwarding accepted jobs to schedulerID for
// placement and to orchestratorID for execution.
func NewProxy(schedulerID, orchestratorID kernel.ID) *Proxy {
	return &Proxy{SchedulerID: schedulerID, OrchestratorID: orchestratorID, seen: make(map[kernel.ID]map[uint64]bool)}
}

// Handler returns the kernel.HandlerFunc to register for this proxy's id.
func (p *Proxy) Handler() kernel.HandlerFunc {
	return func(ctx *kernel.Context, e kernel.Event) {
		req, ok := e.Payload.(JobRequest)
		if !ok {
			return
		}

		byClient := p.seen[req.Requester]
		if byClient == nil {
			byClient = make(map[uint64]bool)
			p.seen[req.Requester] = byClient
		}
		if byClient[req.ClientRef] {
			ctx.Fatal(kernel.DuplicateRequest, "duplicate job submission for the same client reference")
			return
		}
		byClient[req.ClientRef] = true

		id := p.nextExecutionID
		p.nextExecutionID++

		ctx.Emit(JobSubmitted{ClientRef: req.ClientRef, ID: id}, req.Requester, 0)

		execReq := ExecutionRequest{
			ExecutionID: id, NodesCount: req.NodesCount, CPUPerNode: req.CPUPerNode,
			MemoryPerNode: req.MemoryPerNode, Profile: req.Profile, Requester: req.Requester,
		}
		// The orchestrator's copy must be emitted (and so assigned a lower
		// event id) before the scheduler's: a scheduler that schedules
		// synchronously out of OnExecutionRequest emits ScheduleExecution to
		// the orchestrator as a further consequence of processing its own
		// copy, which the kernel's (time, id)-ordered queue will only ever
		// deliver after every event already enqueued at this same instant.
		ctx.Emit(execReq, p.OrchestratorID, 0)
		ctx.Emit(execReq, p.SchedulerID, 0)
	}
}
