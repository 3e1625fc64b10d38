// Package monitoring implements the windowed resource-utilization
// accumulator and its text report writers, grounded on original_source's
// load.txt/scheduler_info.txt reporting in dslab-core's simulation
// harness.
package monitoring

import (
	"fmt"
	"io"
)

// ResourceLoad is a windowed, time-weighted accumulator of cluster-wide
// cores/memory utilization. Add folds in the PREVIOUS observed totals
// weighted by how long they held before the new call, so utilization
// reflects occupancy over time rather than a naive average of samples.
type ResourceLoad struct {
	lastTime float64
	started  bool

	coresTotal, coresUsed uint32
	memTotal, memUsed     uint64

	coresUsedSeconds, coresCapSeconds float64
	memUsedSeconds, memCapSeconds     float64
}

// NewResourceLoad returns an empty accumulator.
func NewResourceLoad() *ResourceLoad {
	return &ResourceLoad{}
}

// Add records a change in cluster-wide totals observed at time t.
func (r *ResourceLoad) Add(t float64, coresTotal, coresUsed uint32, memTotal, memUsed uint64) {
	if r.started {
		dt := t - r.lastTime
		r.coresUsedSeconds += dt * float64(r.coresUsed)
		r.coresCapSeconds += dt * float64(r.coresTotal)
		r.memUsedSeconds += dt * float64(r.memUsed)
		r.memCapSeconds += dt * float64(r.memTotal)
	}
	r.started = true
	r.lastTime = t
	r.coresTotal, r.coresUsed = coresTotal, coresUsed
	r.memTotal, r.memUsed = memTotal, memUsed
}

// Reset clears the accumulated window without losing the last observed
// totals, so the next window starts from the current state.
func (r *ResourceLoad) Reset() {
	r.coresUsedSeconds, r.coresCapSeconds = 0, 0
	r.memUsedSeconds, r.memCapSeconds = 0, 0
}

// CoresUtilization reports the window's time-weighted average core
// utilization in [0,1], or 0 for an empty window.
func (r *ResourceLoad) CoresUtilization() float64 {
	if r.coresCapSeconds == 0 {
		return 0
	}
	return r.coresUsedSeconds / r.coresCapSeconds
}

// MemUtilization reports the window's time-weighted average memory
// utilization in [0,1], or 0 for an empty window.
func (r *ResourceLoad) MemUtilization() float64 {
	if r.memCapSeconds == 0 {
		return 0
	}
	return r.memUsedSeconds / r.memCapSeconds
}

// Dump writes the window's utilization as one line to w and resets the
// window.
func (r *ResourceLoad) Dump(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%.6f %.6f %.6f\n", r.lastTime, r.CoresUtilization(), r.MemUtilization())
	r.Reset()
	return err
}

// SchedulerInfoWriter logs placements for the scheduler_info.txt report:
// one line per host of each placement decision, as
// "<time> job=<id> host=<id>". It records placements only, not the
// scheduler's queue size.
type SchedulerInfoWriter struct {
	w io.Writer
}

// NewSchedulerInfoWriter wraps w.
func NewSchedulerInfoWriter(w io.Writer) *SchedulerInfoWriter {
	return &SchedulerInfoWriter{w: w}
}

// LogPlacement records that jobID was placed on hostID at time t.
func (s *SchedulerInfoWriter) LogPlacement(t float64, jobID uint64, hostID uint64) error {
	_, err := fmt.Fprintf(s.w, "%.6f job=%d host=%d\n", t, jobID, hostID)
	return err
}
