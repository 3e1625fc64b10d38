// Package kernel implements the discrete-event simulation core: the virtual
// clock, event and timer queues, the promise registry that lets a spawned
// task await a specific future event, and the cooperative task executor that
// stands in for the stackful coroutines the reference implementation used.
package kernel

// ID identifies a registered component (a handler, a scheduler, a host, the
// submission proxy, ...) within a single Kernel. IDs are dense and assigned
// in registration order; re-registering an existing name returns the
// existing id rather than minting a new one.
type ID uint32

// Invalid is the zero ID, never assigned to a registered component.
const Invalid ID = 0
