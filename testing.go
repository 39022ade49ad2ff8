package vonsim

import (
	"sync"

	"github.com/ehrlich-b/vonsim/internal/pcb"
)

// MockMemoryAccessor provides a mock implementation of
// pipeline.MemoryAccessor for testing the pipeline and loader without
// wiring up a real internal/memmgr.Manager. It tracks call counts for
// verification the way the teacher's MockBackend does for block-device
// reads and writes.
type MockMemoryAccessor struct {
	mu    sync.RWMutex
	words map[uint32]uint32

	readCalls  int
	writeCalls int

	// failAt, if set, makes ReadLogical/WriteLogical return failErr for
	// exactly this logical address, simulating an out-of-bounds access.
	failAt  uint32
	hasFail bool
	failErr error
}

// NewMockMemoryAccessor creates an empty mock memory backed by a map, so
// any address can be touched without pre-sizing a backing array.
func NewMockMemoryAccessor() *MockMemoryAccessor {
	return &MockMemoryAccessor{words: make(map[uint32]uint32)}
}

// ReadLogical implements pipeline.MemoryAccessor.
func (m *MockMemoryAccessor) ReadLogical(logical uint32, p *pcb.PCB) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCalls++
	if m.hasFail && logical == m.failAt {
		return 0, m.failErr
	}
	return m.words[logical], nil
}

// WriteLogical implements pipeline.MemoryAccessor.
func (m *MockMemoryAccessor) WriteLogical(logical, word uint32, p *pcb.PCB) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++
	if m.hasFail && logical == m.failAt {
		return m.failErr
	}
	m.words[logical] = word
	return nil
}

// SetWord seeds the backing store directly, bypassing call tracking.
func (m *MockMemoryAccessor) SetWord(logical, word uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[logical] = word
}

// FailAt makes every access to logical return err instead of succeeding,
// until Reset, simulating a bounds violation at a chosen address.
func (m *MockMemoryAccessor) FailAt(logical uint32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt = logical
	m.hasFail = true
	m.failErr = err
}

// CallCounts returns the number of reads and writes observed so far.
func (m *MockMemoryAccessor) CallCounts() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"read":  m.readCalls,
		"write": m.writeCalls,
	}
}

// Reset clears call counters and any injected failure, keeping stored words.
func (m *MockMemoryAccessor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readCalls = 0
	m.writeCalls = 0
	m.hasFail = false
}

// NewTestPCB builds a minimal PCB suitable for pipeline and scheduler
// tests: a code segment terminated with the end sentinel and default
// memory weights, without going through internal/loader's JSON parsing.
func NewTestPCB(pid int, code ...uint32) *pcb.PCB {
	p := pcb.New(pid, "test")
	p.CodeSegment = append(append([]uint32(nil), code...), EndSentinel)
	p.JobLength = uint32(len(p.CodeSegment))
	p.MemWeights = pcb.MemWeights{Cache: 1, Primary: 5, Secondary: 10}
	return p
}
