package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nogokama/dslab/config"
)

const sampleYAML = `
seed: 42
hosts:
  - name_prefix: worker
    count: 3
    cores: 8
    memory: 1073741824
    cpu_speed: 2000
scheduler:
  name: round-robin
workload:
  name: cpu-burn
  job_count: 100
  interarrival_mean: 2.5
monitoring:
  window_size: 10
  load_file: load.txt
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadExpandsHostGroups(t *testing.T) {
	path := writeTempConfig(t, sampleYAML)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, int64(42), cfg.Seed)
	require.Len(t, cfg.Hosts, 3)
	require.Equal(t, "worker-0", cfg.Hosts[0].Name)
	require.Equal(t, "worker-1", cfg.Hosts[1].Name)
	require.Equal(t, "worker-2", cfg.Hosts[2].Name)
	for _, h := range cfg.Hosts {
		require.Equal(t, uint32(8), h.Cores)
		require.Equal(t, uint64(1073741824), h.Memory)
		require.Equal(t, 2000.0, h.CPUSpeed)
	}

	require.Equal(t, "round-robin", cfg.Scheduler.Name)
	require.Equal(t, 100, cfg.Workload.JobCount)
	require.Equal(t, 2.5, cfg.Workload.InterarrivalMean)
	require.Equal(t, 10.0, cfg.Monitoring.WindowSize)
}

func TestLoadMultipleHostGroupsPreservesOrder(t *testing.T) {
	const yaml = `
seed: 1
hosts:
  - name_prefix: small
    count: 2
    cores: 1
    memory: 1024
    cpu_speed: 100
  - name_prefix: big
    count: 1
    cores: 32
    memory: 4096
    cpu_speed: 5000
`
	path := writeTempConfig(t, yaml)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Hosts, 3)
	require.Equal(t, []string{"small-0", "small-1", "big-0"}, []string{cfg.Hosts[0].Name, cfg.Hosts[1].Name, cfg.Hosts[2].Name})
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAMLReturnsError(t *testing.T) {
	path := writeTempConfig(t, "seed: [this is not a scalar\n")
	_, err := config.Load(path)
	require.Error(t, err)
}
