// Command dslabctl loads a simulation config, wires up a kernel, a
// cluster of hosts, a round-robin scheduler, and a synthetic job
// generator, then steps the simulation to completion.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/nogokama/dslab/cluster"
	"github.com/nogokama/dslab/compute"
	"github.com/nogokama/dslab/config"
	"github.com/nogokama/dslab/kernel"
	"github.com/nogokama/dslab/monitoring"
	"github.com/nogokama/dslab/schedulers/roundrobin"
	"github.com/nogokama/dslab/workload"
)

func main() {
	configPath := flag.String("config", "", "path to the simulation YAML config")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "dslabctl: -config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := kernel.NewLogger(os.Stdout)
	k := kernel.New(cfg.Seed, logger)
	compute.RegisterKeyExtractors(k)
	workload.RegisterKeyExtractors(k)

	control := k.Context("control")
	registry := cluster.NewHostRegistry()

	hosts := make([]*compute.Host, len(cfg.Hosts))
	for i, hc := range cfg.Hosts {
		hctx := k.Context(hc.Name)
		host := compute.NewHost(hctx.ID(), hc.Name, hc.Cores, hc.Memory, hc.CPUSpeed)
		k.AddHandler(hctx.ID(), host.Handler())
		hosts[i] = host
	}

	schedulerCtx := k.Context("scheduler")

	orchestratorCtx := k.Context("orchestrator")
	orchestrator := cluster.NewOrchestrator(schedulerCtx.ID())
	k.AddHandler(orchestratorCtx.ID(), orchestrator.Handler())

	var schedulerInfoFile *os.File
	adapter := cluster.NewAdapter(orchestratorCtx.ID(), registry, roundrobin.New())
	if cfg.Monitoring.SchedulerFile != "" {
		schedulerInfoFile, err = os.Create(cfg.Monitoring.SchedulerFile)
		if err != nil {
			log.Fatal(err)
		}
		defer schedulerInfoFile.Close()
		schedulerInfo := monitoring.NewSchedulerInfoWriter(schedulerInfoFile)
		adapter.WithPlacementLog(func(t float64, executionID, hostID uint64) {
			if err := schedulerInfo.LogPlacement(t, executionID, hostID); err != nil {
				log.Fatal(err)
			}
		})
	}
	k.AddHandler(schedulerCtx.ID(), adapter.Handler())

	proxyCtx := k.Context("proxy")
	proxy := cluster.NewProxy(schedulerCtx.ID(), orchestratorCtx.ID())
	k.AddHandler(proxyCtx.ID(), proxy.Handler())

	registry.Listen(schedulerCtx.ID())
	registry.Listen(orchestratorCtx.ID())
	for i, hc := range cfg.Hosts {
		registry.Add(control, cluster.HostInfo{
			ID: hosts[i].ID, Cores: hc.Cores, Memory: hc.Memory, Speed: hc.CPUSpeed,
		})
	}

	var loadFile *os.File
	load := monitoring.NewResourceLoad()
	if cfg.Monitoring.LoadFile != "" {
		loadFile, err = os.Create(cfg.Monitoring.LoadFile)
		if err != nil {
			log.Fatal(err)
		}
		defer loadFile.Close()
	}

	clientCtx := k.Context("client")
	gen := homogeneousCPUGenerator{nodesCount: 1, cores: 1, memory: 1 << 20, flops: 1e9}
	cg := workload.CollectionGenerator{
		Gen:     gen,
		Count:   cfg.Workload.JobCount,
		ProxyID: proxyCtx.ID(),
		Interarrival: func(co *kernel.Coroutine) float64 {
			return cfg.Workload.InterarrivalMean
		},
	}
	clientCtx.Spawn(func(co *kernel.Coroutine) { cg.Run(co) })

	windowSize := cfg.Monitoring.WindowSize
	if windowSize <= 0 {
		windowSize = 1.0
	}
	nextDump := windowSize

	for k.Step() {
		if loadFile == nil {
			continue
		}
		var coresUsed, coresTotal uint32
		var memUsed, memTotal uint64
		for _, h := range hosts {
			coresTotal += h.CoresTotal
			coresUsed += h.CoresTotal - h.CoresAvail()
			memTotal += h.MemTotal
			memUsed += h.MemTotal - h.MemAvail()
		}
		load.Add(k.Time(), coresTotal, coresUsed, memTotal, memUsed)
		if k.Time() >= nextDump {
			if err := load.Dump(loadFile); err != nil {
				log.Fatal(err)
			}
			nextDump += windowSize
		}
	}

	fmt.Printf("simulation finished at t=%.6f after %d events\n", k.Time(), k.EventCount())
}

// homogeneousCPUGenerator is the default job generator until a named
// generator registry is warranted: every job needs a fixed node count and
// runs a homogeneous CPU burn of fixed shape across all of them.
type homogeneousCPUGenerator struct {
	nodesCount uint32
	cores      uint32
	memory     uint64
	flops      float64
}

func (g homogeneousCPUGenerator) Generate(co *kernel.Coroutine) (uint32, uint32, uint64, cluster.Profile) {
	return g.nodesCount, g.cores, g.memory, workload.CPUBurnHomogeneous{Flops: g.flops, CoresDep: compute.Linear{}}
}
