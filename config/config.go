// Package config parses the YAML simulation configuration: cluster
// topology (expanded from host groups), scheduler choice, workload
// parameters, and monitoring settings. Grounded on original_source's YAML
// config loader in dslab-core's simulation harness, reimplemented against
// gopkg.in/yaml.v3 rather than serde_yaml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HostConfig describes one concrete host to create.
type HostConfig struct {
	Name     string  `yaml:"name"`
	Cores    uint32  `yaml:"cores"`
	Memory   uint64  `yaml:"memory"`
	CPUSpeed float64 `yaml:"cpu_speed"`
}

// GroupHostConfig describes Count identical hosts, expanded into Count
// HostConfig values named "<NamePrefix>-<i>" for i in [0, Count).
type GroupHostConfig struct {
	NamePrefix string  `yaml:"name_prefix"`
	Count      int     `yaml:"count"`
	Cores      uint32  `yaml:"cores"`
	Memory     uint64  `yaml:"memory"`
	CPUSpeed   float64 `yaml:"cpu_speed"`
}

// Expand returns the Count concrete HostConfig values this group
// describes.
func (g GroupHostConfig) Expand() []HostConfig {
	out := make([]HostConfig, g.Count)
	for i := 0; i < g.Count; i++ {
		out[i] = HostConfig{
			Name:     fmt.Sprintf("%s-%d", g.NamePrefix, i),
			Cores:    g.Cores,
			Memory:   g.Memory,
			CPUSpeed: g.CPUSpeed,
		}
	}
	return out
}

// NetworkConfig is reserved for network-model parameters. No network
// contention model exists in this simulation surface, so it is parsed and
// preserved but not otherwise consumed.
type NetworkConfig struct {
	Bandwidth float64 `yaml:"bandwidth"`
	Latency   float64 `yaml:"latency"`
}

// SchedulerConfig names which scheduler implementation to run.
type SchedulerConfig struct {
	Name string `yaml:"name"`
}

// WorkloadConfig names a workload generator and its job count/timing
// parameters.
type WorkloadConfig struct {
	Name             string  `yaml:"name"`
	JobCount         int     `yaml:"job_count"`
	InterarrivalMean float64 `yaml:"interarrival_mean"`
}

// MonitoringConfig controls the resource-utilization accumulator's
// reporting window and report destinations.
type MonitoringConfig struct {
	WindowSize    float64 `yaml:"window_size"`
	LoadFile      string  `yaml:"load_file"`
	SchedulerFile string  `yaml:"scheduler_file"`
}

// RawSimulationConfig is the literal YAML document shape: host groups
// still need Expand-ing into concrete HostConfig values.
type RawSimulationConfig struct {
	Seed       int64             `yaml:"seed"`
	Hosts      []GroupHostConfig `yaml:"hosts"`
	Network    NetworkConfig     `yaml:"network"`
	Scheduler  SchedulerConfig   `yaml:"scheduler"`
	Workload   WorkloadConfig    `yaml:"workload"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
}

// Expand expands every host group into concrete hosts, preserving group
// order and within-group index order.
func (r RawSimulationConfig) Expand() *SimulationConfig {
	var hosts []HostConfig
	for _, g := range r.Hosts {
		hosts = append(hosts, g.Expand()...)
	}
	return &SimulationConfig{
		Seed:       r.Seed,
		Hosts:      hosts,
		Network:    r.Network,
		Scheduler:  r.Scheduler,
		Workload:   r.Workload,
		Monitoring: r.Monitoring,
	}
}

// SimulationConfig is RawSimulationConfig with every host group expanded
// into concrete hosts, ready to drive kernel/cluster setup.
type SimulationConfig struct {
	Seed       int64
	Hosts      []HostConfig
	Network    NetworkConfig
	Scheduler  SchedulerConfig
	Workload   WorkloadConfig
	Monitoring MonitoringConfig
}

// Load reads and parses a SimulationConfig from the YAML file at path.
func Load(path string) (*SimulationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var raw RawSimulationConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return raw.Expand(), nil
}
