package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/vonsim/internal/pcb"
	"github.com/ehrlich-b/vonsim/internal/pipeline"
)

type fakeMem struct {
	words map[uint32]uint32
}

func newFakeMem() *fakeMem { return &fakeMem{words: make(map[uint32]uint32)} }

func (m *fakeMem) ReadLogical(logical uint32, p *pcb.PCB) (uint32, error) {
	return m.words[logical], nil
}

func (m *fakeMem) WriteLogical(logical, word uint32, p *pcb.PCB) error {
	m.words[logical] = word
	return nil
}

// S7 — end-sentinel drives a FINISHED event, and the core becomes idle
// and assignable again immediately afterward.
func TestCore_S7_EndSentinelFinishes(t *testing.T) {
	mem := newFakeMem()
	mem.words[0] = pipeline.EndSentinel

	c := New(0)
	p := pcb.New(1, "p")
	p.Quantum = 1000
	require.True(t, c.Assign(p))
	assert.False(t, c.IsIdle())

	var ev Event
	for i := 0; i < 20 && ev.Kind == None; i++ {
		c.UpdateCoreTime()
		ev = c.StepOneCycle(mem)
	}

	require.Equal(t, Finished, ev.Kind)
	assert.True(t, c.IsIdle())

	other := pcb.New(2, "q")
	assert.True(t, c.Assign(other), "core must be assignable again after a terminal event")
}

func TestCore_QuantumPreempts(t *testing.T) {
	mem := newFakeMem()
	for i := uint32(0); i < 20; i++ {
		mem.words[i] = pipeline.EncodeI(pipeline.OpADDI, 0, 1, 1)
	}

	c := New(0)
	p := pcb.New(1, "p")
	p.Quantum = 2
	require.True(t, c.Assign(p))

	var ev Event
	for i := 0; i < 20 && ev.Kind == None; i++ {
		c.UpdateCoreTime()
		ev = c.StepOneCycle(mem)
	}

	assert.Equal(t, Preempted, ev.Kind)
}

func TestCore_IOBlocksAndTransfersRequests(t *testing.T) {
	mem := newFakeMem()
	mem.words[0] = pipeline.EncodeI(pipeline.OpOUT, 1, 0, 0)
	mem.words[1] = pipeline.EndSentinel

	c := New(0)
	p := pcb.New(1, "p")
	p.Quantum = 1000
	p.Regs.GPR[1] = 42
	require.True(t, c.Assign(p))

	var ev Event
	for i := 0; i < 20 && ev.Kind == None; i++ {
		c.UpdateCoreTime()
		ev = c.StepOneCycle(mem)
	}

	require.Equal(t, Blocked, ev.Kind)
	require.Len(t, ev.IORequests, 1)
	assert.Equal(t, uint32(42), ev.IORequests[0].Value)
	assert.True(t, c.IsIdle())
	assert.Equal(t, pcb.Blocked, p.State)
}

func TestCore_AssignFailsWhenNotIdle(t *testing.T) {
	c := New(0)
	p1 := pcb.New(1, "p1")
	p2 := pcb.New(2, "p2")
	require.True(t, c.Assign(p1))
	assert.False(t, c.Assign(p2))
}

func TestCore_UpdateCoreTimeTracksIdle(t *testing.T) {
	c := New(0)
	c.UpdateCoreTime()
	c.UpdateCoreTime()
	assert.Equal(t, uint64(2), c.TimeIdle)
	assert.Equal(t, uint64(0), c.TimeRunning)
}
