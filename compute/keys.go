package compute

import "github.com/nogokama/dslab/kernel"

// RegisterKeyExtractors wires every discriminator extractor this package's
// request/response pairs need: CompFinished scoped to a specific
// computation id (known only once its CompStarted arrives), and every
// other response scoped to the RequestID its request carried. Callers that
// run more than one concurrent request sharing a component id (any two
// siblings spawned from the same Context — e.g. master/workers, or two
// Parallel steps each submitting a computation) must call this once
// against the kernel before spawning any such job.
func RegisterKeyExtractors(k *kernel.Kernel) {
	kernel.RegisterKeyExtractor(k, func(e CompFinished) uint64 { return e.ID })
	kernel.RegisterKeyExtractor(k, func(e CompStarted) uint64 { return e.RequestID })
	kernel.RegisterKeyExtractor(k, func(e CompFailed) uint64 { return e.RequestID })
	kernel.RegisterKeyExtractor(k, func(e AllocationSuccess) uint64 { return e.RequestID })
	kernel.RegisterKeyExtractor(k, func(e AllocationFailed) uint64 { return e.RequestID })
	kernel.RegisterKeyExtractor(k, func(e DeallocationSuccess) uint64 { return e.RequestID })
	kernel.RegisterKeyExtractor(k, func(e DeallocationFailed) uint64 { return e.RequestID })
}
