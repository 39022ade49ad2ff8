// Package scheduler selects the next ready process for a core under one
// of four interchangeable policies. It is grounded in the original
// Scheduler class: one FCFS queue, one round-robin queue (rotation is
// driven externally by re-adding a preempted process), and one slice kept
// sorted on insert for PRIORITY and SJN.
package scheduler

import (
	"sort"

	"github.com/ehrlich-b/vonsim/internal/pcb"
)

// Policy selects which ordering FetchNext honors.
type Policy int

const (
	FCFS Policy = iota
	RR
	PRIORITY
	SJN
)

func (p Policy) String() string {
	switch p {
	case FCFS:
		return "FCFS"
	case RR:
		return "RR"
	case PRIORITY:
		return "PRIORITY"
	case SJN:
		return "SJN"
	default:
		return "UNKNOWN"
	}
}

// entry pairs a PCB with its insertion sequence number, used as the
// tie-break for PRIORITY and SJN since Go's sort.Slice is not guaranteed
// stable (and the original's std::sort is not stable either, so this
// module makes the tie-break explicit rather than relying on it).
type entry struct {
	p   *pcb.PCB
	seq uint64
}

// Scheduler holds the ready set for one policy. It is not safe for
// concurrent use from multiple goroutines without external locking; the
// simulation loop owns one Scheduler per core-assignment domain and calls
// into it from a single goroutine per tick.
type Scheduler struct {
	policy Policy

	fcfs []*pcb.PCB
	rr   []*pcb.PCB
	sort []entry

	nextSeq uint64
}

// New constructs a scheduler under the given policy.
func New(p Policy) *Scheduler {
	return &Scheduler{policy: p}
}

// SetPolicy switches the active policy. Existing queued entries are not
// migrated between internal representations; callers should only switch
// policy on an empty scheduler.
func (s *Scheduler) SetPolicy(p Policy) { s.policy = p }

// GetPolicy returns the active policy.
func (s *Scheduler) GetPolicy() Policy { return s.policy }

// Add enqueues a ready process per the active policy's ordering rule.
func (s *Scheduler) Add(p *pcb.PCB) {
	if p == nil {
		return
	}
	p.State = pcb.Ready

	switch s.policy {
	case FCFS:
		s.fcfs = append(s.fcfs, p)
	case RR:
		s.rr = append(s.rr, p)
	case PRIORITY:
		s.sort = append(s.sort, entry{p: p, seq: s.nextSeq})
		s.nextSeq++
		sortSlice(s.sort, func(a, b entry) bool {
			if a.p.Priority != b.p.Priority {
				return a.p.Priority > b.p.Priority
			}
			return a.seq < b.seq
		})
	case SJN:
		s.sort = append(s.sort, entry{p: p, seq: s.nextSeq})
		s.nextSeq++
		sortSlice(s.sort, func(a, b entry) bool {
			if a.p.BurstEstimate != b.p.BurstEstimate {
				return a.p.BurstEstimate < b.p.BurstEstimate
			}
			return a.seq < b.seq
		})
	}
}

// FetchNext removes and returns the head of the ready set per policy, or
// nil if empty.
func (s *Scheduler) FetchNext() *pcb.PCB {
	switch s.policy {
	case FCFS:
		if len(s.fcfs) == 0 {
			return nil
		}
		p := s.fcfs[0]
		s.fcfs = s.fcfs[1:]
		return p
	case RR:
		if len(s.rr) == 0 {
			return nil
		}
		p := s.rr[0]
		s.rr = s.rr[1:]
		return p
	case PRIORITY, SJN:
		if len(s.sort) == 0 {
			return nil
		}
		e := s.sort[0]
		s.sort = s.sort[1:]
		return e.p
	}
	return nil
}

// Unblock returns a previously blocked process to the ready set. It is
// equivalent to Add: the original re-enqueues through the same path.
func (s *Scheduler) Unblock(p *pcb.PCB) {
	s.Add(p)
}

// IsEmpty reports whether the ready set holds no process.
func (s *Scheduler) IsEmpty() bool {
	switch s.policy {
	case FCFS:
		return len(s.fcfs) == 0
	case RR:
		return len(s.rr) == 0
	case PRIORITY, SJN:
		return len(s.sort) == 0
	}
	return true
}

// Len reports the number of ready processes currently queued.
func (s *Scheduler) Len() int {
	switch s.policy {
	case FCFS:
		return len(s.fcfs)
	case RR:
		return len(s.rr)
	case PRIORITY, SJN:
		return len(s.sort)
	}
	return 0
}

// sortSlice is a tiny indirection over sort.SliceStable kept local so the
// comparator reads as a plain less-than.
func sortSlice(e []entry, less func(a, b entry) bool) {
	sort.SliceStable(e, func(i, j int) bool { return less(e[i], e[j]) })
}
