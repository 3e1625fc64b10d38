package cluster

import "github.com/nogokama/dslab/kernel"

// HostInfo is the static shape of a registered host, as announced to
// scheduler and orchestrator listeners.
type HostInfo struct {
	ID     kernel.ID
	Cores  uint32
	Memory uint64
	Speed  float64
}

// HostAdded is broadcast to every listener when a host joins the cluster.
type HostAdded struct {
	Host HostInfo
}

// HostRegistry is the cluster's membership list (component I's
// counterpart for host join events): it records hosts as they're added
// and notifies registered listeners (typically the scheduler adapter and
// the orchestrator) of each join.
type HostRegistry struct {
	hosts     map[kernel.ID]HostInfo
	order     []kernel.ID
	listeners []kernel.ID
}

// NewHostRegistry returns an empty HostRegistry.
func NewHostRegistry() *HostRegistry {
	return &HostRegistry{hosts: make(map[kernel.ID]HostInfo)}
}

// Listen registers id to receive HostAdded for every future Add call.
func (r *HostRegistry) Listen(id kernel.ID) {
	r.listeners = append(r.listeners, id)
}

// Add records info and notifies every listener, in registration order.
func (r *HostRegistry) Add(ctx *kernel.Context, info HostInfo) {
	if _, exists := r.hosts[info.ID]; !exists {
		r.order = append(r.order, info.ID)
	}
	r.hosts[info.ID] = info
	for _, l := range r.listeners {
		ctx.EmitNow(HostAdded{Host: info}, l)
	}
}

// Hosts returns every registered host, in the order each was first added.
func (r *HostRegistry) Hosts() []HostInfo {
	out := make([]HostInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.hosts[id])
	}
	return out
}

// Get looks up a single host by id.
func (r *HostRegistry) Get(id kernel.ID) (HostInfo, bool) {
	h, ok := r.hosts[id]
	return h, ok
}
