// Package sim implements the tick-driven simulation loop tying the
// scheduler, multicore pipeline, memory manager, and I/O queue together.
package sim

import (
	"context"
	"io"

	"github.com/ehrlich-b/vonsim/internal/cache"
	"github.com/ehrlich-b/vonsim/internal/core"
	"github.com/ehrlich-b/vonsim/internal/interfaces"
	"github.com/ehrlich-b/vonsim/internal/ioqueue"
	"github.com/ehrlich-b/vonsim/internal/logging"
	"github.com/ehrlich-b/vonsim/internal/memmgr"
	"github.com/ehrlich-b/vonsim/internal/metricsio"
	"github.com/ehrlich-b/vonsim/internal/multicore"
	"github.com/ehrlich-b/vonsim/internal/pcb"
	"github.com/ehrlich-b/vonsim/internal/scheduler"
)

// Options configures one simulation run.
type Options struct {
	Policy         scheduler.Policy
	NumCores       int
	PartitionWords uint32
	PrimaryWords   int
	SecondaryWords int
	CacheCapacity  int
	CachePolicy    cache.Kind
	IOLatencyTicks uint64
	SnapshotEvery  uint64
	Output         io.Writer
	// Observer, if non-nil, receives live notifications as the run
	// progresses. A nil Observer disables notification entirely.
	Observer interfaces.Observer
}

// noOpObserver discards every notification; used when Options.Observer
// is nil so the tick loop never needs its own nil checks.
type noOpObserver struct{}

func (noOpObserver) ObserveProcessStarted(int)         {}
func (noOpObserver) ObserveProcessFinished(int, uint64) {}
func (noOpObserver) ObserveCacheAccess(bool)            {}
func (noOpObserver) ObserveIOCompletion(int)            {}
func (noOpObserver) ObserveTick(uint64)                 {}

// RunParams is the set of processes to simulate.
type RunParams struct {
	Processes []*pcb.PCB
}

// Report is everything observable about a finished (or interrupted) run.
type Report struct {
	PerProcess []metricsio.PCBReport
	Cores      []metricsio.CoreReport
	Temporal   []metricsio.TemporalSample
	TotalTicks uint64
	Completed  int
}

// Run drives the simulation until every process has finished and every
// subsystem has drained, or ctx is canceled. Implements the seven-step
// loop: retry deferred partition allocations, assign ready processes to
// idle cores, step every core one tick, dispatch terminal events, step
// the I/O queue, optionally snapshot temporal metrics, advance the tick.
func Run(ctx context.Context, params RunParams, opts Options) (*Report, error) {
	observer := opts.Observer
	if observer == nil {
		observer = noOpObserver{}
	}

	mm := memmgr.NewWithPolicy(opts.PrimaryWords, opts.SecondaryWords, opts.CacheCapacity, opts.CachePolicy)
	mm.CreatePartitions(opts.PartitionWords)

	sched := scheduler.New(opts.Policy)
	ioMgr := ioqueue.New(opts.Output)
	mc := multicore.New(opts.NumCores, mm)
	ioMgr.SetReadyCallback(func(p *pcb.PCB) {
		sched.Unblock(p)
		observer.ObserveIOCompletion(p.PID)
	})

	pending := append([]*pcb.PCB(nil), params.Processes...)
	var finished []*pcb.PCB

	var tick uint64
	var samples []metricsio.TemporalSample

	for {
		if ctx.Err() != nil {
			break
		}
		if sched.IsEmpty() && !mc.HasActiveCores() && len(pending) == 0 && ioMgr.PendingCount() == 0 {
			break
		}

		pending = retryPending(mm, sched, pending, tick, observer)

		hitsBefore, missesBefore := mm.Cache().Hits(), mm.Cache().Misses()

		mc.AssignReady(sched.FetchNext, tick)
		events := mc.StepAll()

		reportCacheDelta(observer, hitsBefore, missesBefore, mm.Cache().Hits(), mm.Cache().Misses())

		for _, ev := range events {
			switch ev.Kind {
			case core.Finished:
				ev.PCB.FinishTime = tick
				ev.PCB.WaitTime = waitTime(ev.PCB)
				mm.FreePartition(ev.PCB.PID)
				finished = append(finished, ev.PCB)
				observer.ObserveProcessFinished(ev.PCB.PID, ev.PCB.Turnaround())
			case core.Blocked:
				ioMgr.Register(ev.PCB, ev.IORequests, opts.IOLatencyTicks)
			case core.Preempted:
				sched.Add(ev.PCB)
			}
		}

		ioMgr.Step()

		if opts.SnapshotEvery > 0 && tick%opts.SnapshotEvery == 0 {
			samples = append(samples, snapshot(tick, mc, len(finished)))
		}

		observer.ObserveTick(tick)
		tick++
	}

	return buildReport(mc, finished, samples, tick), nil
}

// reportCacheDelta notifies the observer once per cache access that
// occurred during the tick just stepped, since the cache itself only
// exposes cumulative counters.
func reportCacheDelta(observer interfaces.Observer, hitsBefore, missesBefore, hitsAfter, missesAfter uint64) {
	for i := uint64(0); i < hitsAfter-hitsBefore; i++ {
		observer.ObserveCacheAccess(true)
	}
	for i := uint64(0); i < missesAfter-missesBefore; i++ {
		observer.ObserveCacheAccess(false)
	}
}

// retryPending attempts to allocate a partition for every still-waiting
// process, loading its segments and handing it to the scheduler on
// success; processes that still don't fit remain pending.
func retryPending(mm *memmgr.Manager, sched *scheduler.Scheduler, pending []*pcb.PCB, tick uint64, observer interfaces.Observer) []*pcb.PCB {
	var stillPending []*pcb.PCB
	for _, p := range pending {
		required := uint32(len(p.DataSegment) + len(p.CodeSegment))
		if !mm.AllocateFixedPartition(p, required) {
			stillPending = append(stillPending, p)
			continue
		}
		loadSegments(mm, p)
		p.ArrivalTime = tick
		sched.Add(p)
		observer.ObserveProcessStarted(p.PID)
	}
	return stillPending
}

func loadSegments(mm *memmgr.Manager, p *pcb.PCB) {
	for i, word := range p.DataSegment {
		if err := mm.WriteLogical(uint32(i), word, p); err != nil {
			logging.Default().Warnf("sim: loading data segment for pid=%d: %v", p.PID, err)
		}
	}
	base := uint32(len(p.DataSegment))
	for i, word := range p.CodeSegment {
		if err := mm.WriteLogical(base+uint32(i), word, p); err != nil {
			logging.Default().Warnf("sim: loading code segment for pid=%d: %v", p.PID, err)
		}
	}
}

// waitTime derives time spent ready-but-not-running as turnaround minus
// actual pipeline cycles consumed, floored at zero: a process that never
// waited (dispatched on its arrival tick and run straight through) has at
// least as many pipeline cycles as turnaround ticks, and reports no wait
// rather than an underflowed value.
func waitTime(p *pcb.PCB) uint64 {
	turnaround := p.Turnaround()
	ran := p.Counters.PipelineCycles.Load()
	if ran >= turnaround {
		return 0
	}
	return turnaround - ran
}

func snapshot(tick uint64, mc *multicore.MultiCore, completed int) metricsio.TemporalSample {
	active := mc.CountActiveCores()
	total := mc.NumCores()
	cpuPct := 0.0
	if total > 0 {
		cpuPct = 100 * float64(active) / float64(total)
	}
	return metricsio.TemporalSample{
		Tick:               tick,
		CPUUsagePct:        cpuPct,
		ActiveProcesses:    active,
		CompletedProcesses: completed,
	}
}

func buildReport(mc *multicore.MultiCore, finished []*pcb.PCB, samples []metricsio.TemporalSample, totalTicks uint64) *Report {
	reports := make([]metricsio.PCBReport, 0, len(finished))
	for _, p := range finished {
		reports = append(reports, metricsio.ReportFrom(p))
	}

	cores := make([]metricsio.CoreReport, 0, mc.NumCores())
	for _, c := range mc.Cores() {
		cores = append(cores, metricsio.CoreReport{
			CoreID:        c.ID(),
			RunningTime:   c.TimeRunning,
			WaitingIOTime: c.TimeWaitingIO,
			IdleTime:      c.TimeIdle,
		})
	}

	return &Report{
		PerProcess: reports,
		Cores:      cores,
		Temporal:   samples,
		TotalTicks: totalTicks,
		Completed:  len(finished),
	}
}
