package memmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehrlich-b/vonsim/internal/cache"
	"github.com/ehrlich-b/vonsim/internal/pcb"
)

func newTestPCB(pid int) *pcb.PCB {
	p := pcb.New(pid, "proc")
	p.MemWeights = pcb.MemWeights{Cache: 1, Primary: 5, Secondary: 10}
	return p
}

func TestManager_RoundTrip(t *testing.T) {
	m := New(1024, 4096, 8)
	m.CreatePartitions(256)
	p := newTestPCB(1)

	require.True(t, m.AllocateFixedPartition(p, 100))
	require.NoError(t, m.WriteLogical(10, 0xDEAD, p))

	word, err := m.ReadLogical(10, p)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEAD), word)
}

func TestManager_ResolveErrors(t *testing.T) {
	m := New(1024, 4096, 8)
	m.CreatePartitions(256)
	p := newTestPCB(2)

	_, err := m.Resolve(0, p)
	assert.ErrorIs(t, err, ErrNoPartition)

	require.True(t, m.AllocateFixedPartition(p, 50))
	_, err = m.Resolve(p.PartitionSize, p)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

// S5 — partition exhaustion: a 1024-word primary store tiled into
// 256-word partitions yields 4 slots; the first four allocations succeed
// and the fifth must fail rather than block or corrupt state.
func TestManager_S5_PartitionExhaustion(t *testing.T) {
	m := New(1024, 0, 8)
	m.CreatePartitions(256)

	var pcbs []*pcb.PCB
	for i := 0; i < 4; i++ {
		p := newTestPCB(i)
		require.True(t, m.AllocateFixedPartition(p, 1), "allocation %d should succeed", i)
		pcbs = append(pcbs, p)
	}

	fifth := newTestPCB(4)
	assert.False(t, m.AllocateFixedPartition(fifth, 1), "fifth allocation must fail: no partitions left")

	m.FreePartition(pcbs[0].PID)
	assert.True(t, m.AllocateFixedPartition(fifth, 1), "allocation must succeed again once a partition is freed")
}

func TestManager_WriteThenSecondaryRange(t *testing.T) {
	m := New(256, 256, 8)
	m.CreatePartitions(256)
	p := newTestPCB(1)
	require.True(t, m.AllocateFixedPartition(p, 256))
	// Partitions tile only the primary store, so widen this binding by
	// hand to let a logical address reach past it.
	p.PartitionSize = 512

	// Logical address 300 maps past the primary store into secondary.
	require.NoError(t, m.WriteLogical(300, 0x1234, p))
	word, err := m.ReadLogical(300, p)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), word)
	assert.Equal(t, uint64(1), p.Counters.SecondaryAccesses.Load())
}

func TestManager_CacheHitAvoidsStoreAccess(t *testing.T) {
	m := New(256, 0, 8)
	m.CreatePartitions(256)
	p := newTestPCB(1)
	require.True(t, m.AllocateFixedPartition(p, 256))

	require.NoError(t, m.WriteLogical(5, 42, p))
	before := p.Counters.PrimaryAccesses.Load()

	word, err := m.ReadLogical(5, p)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), word)
	assert.Equal(t, before, p.Counters.PrimaryAccesses.Load(), "a cache hit must not touch the primary store")
	assert.Equal(t, uint64(1), p.Counters.CacheHits.Load())
}

// DirtyFlush must push every line mutated via an in-place Update back to
// the underlying store, even though Write already writes through.
func TestManager_DirtyFlush(t *testing.T) {
	m := NewWithPolicy(64, 0, 4, cache.FIFO)
	m.CreatePartitions(64)
	p := newTestPCB(1)
	require.True(t, m.AllocateFixedPartition(p, 64))

	require.NoError(t, m.WriteLogical(1, 7, p))
	phys, err := m.Resolve(1, p)
	require.NoError(t, err)
	m.cache.Update(uint64(phys), 99)

	m.DirtyFlush()
	assert.Equal(t, uint32(99), m.primary.ReadWord(int(phys)))
}

func TestManager_FreePartitionAllowsReallocation(t *testing.T) {
	m := New(512, 0, 4)
	m.CreatePartitions(256)
	a := newTestPCB(1)
	b := newTestPCB(2)

	require.True(t, m.AllocateFixedPartition(a, 10))
	require.True(t, m.AllocateFixedPartition(b, 10))
	m.FreePartition(a.PID)

	c := newTestPCB(3)
	require.True(t, m.AllocateFixedPartition(c, 10))
	assert.Equal(t, a.PartitionBase, c.PartitionBase, "freed partition should be first-fit reused")
}
