package monitoring_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nogokama/dslab/monitoring"
)

func TestResourceLoadWeightsByElapsedTime(t *testing.T) {
	r := monitoring.NewResourceLoad()

	// Fully idle for 1s, then fully busy (4/4 cores) for 1s.
	r.Add(0, 4, 0, 0, 0)
	r.Add(1, 4, 4, 0, 0)
	r.Add(2, 4, 4, 0, 0)

	require.InDelta(t, 0.5, r.CoresUtilization(), 1e-9)
}

func TestResourceLoadMemUtilizationTracksSeparately(t *testing.T) {
	r := monitoring.NewResourceLoad()

	r.Add(0, 10, 10, 1000, 0)
	r.Add(1, 10, 10, 1000, 1000)

	require.InDelta(t, 1.0, r.CoresUtilization(), 1e-9)
	require.InDelta(t, 0.0, r.MemUtilization(), 1e-9)
}

func TestResourceLoadEmptyWindowReportsZero(t *testing.T) {
	r := monitoring.NewResourceLoad()
	require.Equal(t, 0.0, r.CoresUtilization())
	require.Equal(t, 0.0, r.MemUtilization())
}

func TestResourceLoadDumpResetsWindow(t *testing.T) {
	r := monitoring.NewResourceLoad()
	r.Add(0, 4, 4, 0, 0)
	r.Add(1, 4, 4, 0, 0)

	var buf strings.Builder
	require.NoError(t, r.Dump(&buf))
	require.Contains(t, buf.String(), "1.000000")

	require.Equal(t, 0.0, r.CoresUtilization(), "window must reset after Dump")

	r.Add(2, 4, 0, 0, 0)
	require.InDelta(t, 0.0, r.CoresUtilization(), 1e-9, "post-reset window only sees new samples")
}

func TestSchedulerInfoWriterLogsPlacements(t *testing.T) {
	var buf strings.Builder
	w := monitoring.NewSchedulerInfoWriter(&buf)

	require.NoError(t, w.LogPlacement(1.5, 7, 3))

	out := buf.String()
	require.Contains(t, out, "job=7")
	require.Contains(t, out, "host=3")
}
