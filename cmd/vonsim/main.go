// Command vonsim drives one multicore pipelined-CPU simulation run from
// a scheduling policy, a core count, and a set of process files, writing
// the standard metrics artifacts under ./output.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ehrlich-b/vonsim/internal/constants"
	"github.com/ehrlich-b/vonsim/internal/logging"
	"github.com/ehrlich-b/vonsim/internal/scheduler"

	"github.com/ehrlich-b/vonsim"
)

func main() {
	var (
		outputRoot = flag.String("output", "./output", "Root directory for metrics artifacts")
		verbose    = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	policy, ncores, files := parsePositional(flag.Args())

	logger.Info("starting simulation", "policy", policy.String(), "cores", ncores)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, draining partial report")
		cancel()
	}()

	params := vonsim.DefaultParams()
	params.Policy = policy
	params.NumCores = ncores
	params.ProcessFiles = files
	params.OutputDir = *outputRoot

	report, err := vonsim.Run(params, &vonsim.Options{Context: ctx, Logger: logger})
	if err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("simulation complete",
		"completed", report.Completed, "ticks", report.TotalTicks, "output", *outputRoot)

	if ctx.Err() != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

// parsePositional pulls policy, ncores, and process files out of the
// CLI's optional positional arguments, falling back to the spec's
// defaults for anything omitted.
func parsePositional(args []string) (scheduler.Policy, int, []string) {
	policy := scheduler.FCFS
	ncores := constants.DefaultNumCores
	var files []string

	if len(args) > 0 {
		if p, ok := parsePolicy(args[0]); ok {
			policy = p
			args = args[1:]
		}
	}
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil {
			ncores = clampCores(n)
			args = args[1:]
		}
	}
	files = args
	return policy, ncores, files
}

func parsePolicy(s string) (scheduler.Policy, bool) {
	switch s {
	case "fcfs":
		return scheduler.FCFS, true
	case "rr":
		return scheduler.RR, true
	case "priority":
		return scheduler.PRIORITY, true
	case "sjn":
		return scheduler.SJN, true
	default:
		return scheduler.FCFS, false
	}
}

func clampCores(n int) int {
	if n < constants.MinCores {
		return constants.MinCores
	}
	if n > constants.MaxCores {
		return constants.MaxCores
	}
	return n
}
