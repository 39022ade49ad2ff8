// Package vonsim is the public API for running one multicore
// pipelined-CPU and memory-hierarchy simulation from a set of process
// files, a scheduling policy, and a core count.
package vonsim

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ehrlich-b/vonsim/internal/cache"
	"github.com/ehrlich-b/vonsim/internal/constants"
	"github.com/ehrlich-b/vonsim/internal/interfaces"
	"github.com/ehrlich-b/vonsim/internal/loader"
	"github.com/ehrlich-b/vonsim/internal/logging"
	"github.com/ehrlich-b/vonsim/internal/metricsio"
	"github.com/ehrlich-b/vonsim/internal/pcb"
	"github.com/ehrlich-b/vonsim/internal/scheduler"
	"github.com/ehrlich-b/vonsim/internal/sim"
)

// Policy re-exports the scheduler's policy enum so callers of the
// public API don't need to import internal/scheduler directly.
type Policy = scheduler.Policy

const (
	FCFS     = scheduler.FCFS
	RR       = scheduler.RR
	PRIORITY = scheduler.PRIORITY
	SJN      = scheduler.SJN
)

// CachePolicy re-exports the cache eviction kind.
type CachePolicy = cache.Kind

const (
	CacheFIFO = cache.FIFO
	CacheLRU  = cache.LRU
)

// RunParams configures one simulation run: the scheduling policy, the
// core count, the memory hierarchy shape, and where process input comes
// from and metrics output goes.
type RunParams struct {
	Policy   Policy
	NumCores int

	CacheCapacity int
	CachePolicy   CachePolicy
	PartitionSize uint32

	PrimaryMemoryWords   int
	SecondaryMemoryWords int

	// ProcessFiles, if non-empty, names the exact process-file paths to
	// load. If empty, Run globs ./processes then ../processes.
	ProcessFiles []string

	// OutputDir, if non-empty, is where metrics artifacts are written
	// after the run completes. Empty skips writing artifacts.
	OutputDir string
}

// DefaultParams returns RunParams filled in with this module's standard
// tunables, the same ones cmd/vonsim falls back to when its arguments are
// omitted.
func DefaultParams() RunParams {
	return RunParams{
		Policy:               FCFS,
		NumCores:             constants.DefaultNumCores,
		CacheCapacity:        constants.DefaultCacheCapacity,
		CachePolicy:          CacheFIFO,
		PartitionSize:        constants.DefaultPartitionWords,
		PrimaryMemoryWords:   constants.DefaultPrimaryMemoryWords,
		SecondaryMemoryWords: constants.DefaultSecondaryMemoryWords,
	}
}

// Options carries cross-cutting run configuration that doesn't belong
// in RunParams: cancellation, logging, and live observation.
type Options struct {
	// Context, if nil, uses context.Background(). Canceling it stops
	// the run early and Run returns whatever partial report exists.
	Context context.Context

	// Logger receives warnings for recoverable problems (a malformed
	// process file, an unresolved process path). If nil, nothing is
	// logged beyond internal/logging's own default.
	Logger interfaces.Logger

	// Observer, if non-nil, is notified as the run progresses.
	Observer Observer
}

// Report is everything observable about a finished (or interrupted) run.
type Report = sim.Report

// Run resolves and loads process files, drives the simulation to
// completion (or until options.Context is canceled), and, if
// params.OutputDir is set, writes the standard metrics artifacts.
func Run(params RunParams, options *Options) (*Report, error) {
	if options == nil {
		options = &Options{}
	}
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}

	paths, err := loader.ResolveProcessFiles(params.ProcessFiles, "./processes", "../processes")
	if err != nil {
		return nil, WrapError("Run", err)
	}
	if len(paths) == 0 {
		return nil, NewError("Run", ErrCodeNoPCBs, "no process files found")
	}

	var procs []*pcb.PCB
	for _, path := range paths {
		p, err := loader.LoadFile(path)
		if err != nil {
			logWarn(options.Logger, "vonsim: skipping malformed process file %s: %v", path, err)
			continue
		}
		procs = append(procs, p)
	}
	if len(procs) == 0 {
		return nil, NewError("Run", ErrCodeNoPCBs, "no usable process control blocks after loading")
	}

	simOpts := sim.Options{
		Policy:         params.Policy,
		NumCores:       params.NumCores,
		PartitionWords: params.PartitionSize,
		PrimaryWords:   params.PrimaryMemoryWords,
		SecondaryWords: params.SecondaryMemoryWords,
		CacheCapacity:  params.CacheCapacity,
		CachePolicy:    params.CachePolicy,
		IOLatencyTicks: constants.DefaultIOLatencyTicks,
		SnapshotEvery:  constants.TemporalSnapshotInterval,
		Output:         os.Stdout,
		Observer:       options.Observer,
	}

	report, err := sim.Run(ctx, sim.RunParams{Processes: procs}, simOpts)
	if err != nil {
		return nil, WrapError("Run", err)
	}

	if params.OutputDir != "" {
		dir := metricsio.OutputDir(params.OutputDir, strings.ToLower(params.Policy.String()), params.NumCores)
		if err := writeArtifacts(dir, params.Policy, params.NumCores, report); err != nil {
			return report, WrapError("Run", err)
		}
	}

	return report, nil
}

func logWarn(logger interfaces.Logger, format string, args ...interface{}) {
	if logger != nil {
		logger.Printf(format, args...)
		return
	}
	logging.Default().Warnf(format, args...)
}

func writeArtifacts(dir string, policy Policy, ncores int, report *Report) error {
	if err := metricsio.WriteCSV(dir, report.PerProcess); err != nil {
		return fmt.Errorf("metrics.csv: %w", err)
	}
	if err := metricsio.WriteJSON(dir, report.PerProcess); err != nil {
		return fmt.Errorf("metrics.json: %w", err)
	}

	pm := metricsio.PolicyMetrics{
		Policy:            policy.String(),
		AvgWaiting:        averageU64(waitings(report.PerProcess)),
		AvgTurnaround:     averageU64(turnarounds(report.PerProcess)),
		CPUUtilizationPct: metricsio.CPUUtilization(report.Cores),
		Throughput:        metricsio.Throughput(report.Completed, report.TotalTicks),
		Efficiency:        metricsio.Efficiency(totalPipeline(report.PerProcess), report.Cores),
		NumProcesses:      len(report.PerProcess),
		TotalCycles:       report.TotalTicks,
	}
	if err := metricsio.WritePolicyMetrics(dir, pm); err != nil {
		return fmt.Errorf("policy_metrics.csv: %w", err)
	}

	if err := metricsio.WriteTemporalMetrics(dir, report.Temporal); err != nil {
		return fmt.Errorf("temporal_metrics.csv: %w", err)
	}

	comparison := []metricsio.CoreComparisonRow{{
		NumCores:       ncores,
		AvgWaiting:     pm.AvgWaiting,
		AvgTurnaround:  pm.AvgTurnaround,
		CPUUtilization: pm.CPUUtilizationPct,
		Throughput:     pm.Throughput,
		Speedup:        1.0,
	}}
	if err := metricsio.WriteCoreComparison(dir, comparison); err != nil {
		return fmt.Errorf("core_comparison.csv: %w", err)
	}
	return nil
}

func waitings(rows []metricsio.PCBReport) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.Waiting
	}
	return out
}

func turnarounds(rows []metricsio.PCBReport) []uint64 {
	out := make([]uint64, len(rows))
	for i, r := range rows {
		out[i] = r.Turnaround
	}
	return out
}

func totalPipeline(rows []metricsio.PCBReport) uint64 {
	var total uint64
	for _, r := range rows {
		total += r.Pipeline
	}
	return total
}

func averageU64(vals []uint64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}
