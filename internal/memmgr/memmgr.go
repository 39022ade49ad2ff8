// Package memmgr implements the fixed-partition memory manager: a primary
// store, a secondary (swap/disk) store, a shared write-back cache, and
// logical-to-physical address translation through first-fit partitions.
//
// Addresses and sizes are word indices throughout this package's public
// surface. The original C++ source mixes "bytes" into comments while
// actually indexing 32-bit words; this package is internally consistent
// and never multiplies an address by 4.
package memmgr

import (
	"errors"

	"github.com/ehrlich-b/vonsim/internal/cache"
	"github.com/ehrlich-b/vonsim/internal/pcb"
)

// ErrOutOfBounds is returned by Resolve when a logical address is at or
// beyond the process's partition size.
var ErrOutOfBounds = errors.New("memmgr: logical address out of partition bounds")

// ErrNoPartition is returned by Resolve when the process owns no
// partition.
var ErrNoPartition = errors.New("memmgr: process does not own a partition")

// Manager owns the primary store, the secondary store, the partitions
// vector, and the shared cache.
type Manager struct {
	primary   *wordStore
	secondary *wordStore
	cache     *cache.Cache

	primaryLimit uint32
	partitions   []Partition
}

// New constructs a manager with a FIFO cache, matching the spec's
// "capacity-only defaults to FIFO" resolution of the two historical
// constructor signatures.
func New(primaryWords, secondaryWords, cacheCapacity int) *Manager {
	return NewWithPolicy(primaryWords, secondaryWords, cacheCapacity, cache.FIFO)
}

// NewWithPolicy constructs a manager with an explicit cache eviction
// policy, exposing the second historical constructor signature named in
// the spec's open question.
func NewWithPolicy(primaryWords, secondaryWords, cacheCapacity int, policy cache.Kind) *Manager {
	return &Manager{
		primary:      newWordStore(primaryWords),
		secondary:    newWordStore(secondaryWords),
		cache:        cache.New(cacheCapacity, policy),
		primaryLimit: uint32(primaryWords),
	}
}

// Cache exposes the shared cache, e.g. for tests asserting hit/miss
// counts directly.
func (m *Manager) Cache() *cache.Cache { return m.cache }

// Partitions returns a read-only snapshot of the partition table.
func (m *Manager) Partitions() []Partition {
	out := make([]Partition, len(m.partitions))
	copy(out, m.partitions)
	return out
}

// CreatePartitions tiles the primary store into partitionSize-word equal
// free partitions starting at offset 0.
func (m *Manager) CreatePartitions(partitionSize uint32) {
	m.partitions = m.partitions[:0]
	if partitionSize == 0 {
		return
	}
	var offset uint32
	for offset+partitionSize <= m.primaryLimit {
		m.partitions = append(m.partitions, newPartition(offset, partitionSize))
		offset += partitionSize
	}
}

// AllocateFixedPartition performs first-fit allocation over the partition
// vector, binds the winning partition to p.PID, and writes the binding
// back into the PCB. It returns false when no partition is large enough
// and free — callers defer the process for a later retry rather than
// treating this as an error.
func (m *Manager) AllocateFixedPartition(p *pcb.PCB, requiredWords uint32) bool {
	for i := range m.partitions {
		part := &m.partitions[i]
		if part.Free && part.Size >= requiredWords {
			part.Free = false
			part.PID = p.PID

			p.PartitionID = i
			p.PartitionBase = part.Base
			p.PartitionSize = part.Size
			return true
		}
	}
	return false
}

// FreePartition releases every partition owned by pid.
func (m *Manager) FreePartition(pid int) {
	for i := range m.partitions {
		if m.partitions[i].PID == pid {
			m.partitions[i].Free = true
			m.partitions[i].PID = -1
		}
	}
}

// Resolve translates a logical address into a physical one for the given
// process's partition.
func (m *Manager) Resolve(logical uint32, p *pcb.PCB) (uint32, error) {
	if !p.Bound() {
		return 0, ErrNoPartition
	}
	if logical >= p.PartitionSize {
		return 0, ErrOutOfBounds
	}
	return p.PartitionBase + logical, nil
}

// ReadLogical resolves then reads.
func (m *Manager) ReadLogical(logical uint32, p *pcb.PCB) (uint32, error) {
	phys, err := m.Resolve(logical, p)
	if err != nil {
		return 0, err
	}
	return m.Read(phys, p), nil
}

// WriteLogical resolves then writes.
func (m *Manager) WriteLogical(logical, word uint32, p *pcb.PCB) error {
	phys, err := m.Resolve(logical, p)
	if err != nil {
		return err
	}
	m.Write(phys, word, p)
	return nil
}

// Read consults the cache first; on a miss it reads from primary or
// secondary storage depending on the address range, installs the word in
// the cache (write-allocate on read miss), and accounts the access against
// the process's counters.
func (m *Manager) Read(physical uint32, p *pcb.PCB) uint32 {
	p.Counters.MemReads.Add(1)

	if word, ok := m.cache.Get(uint64(physical)); ok {
		p.Counters.CacheAccesses.Add(1)
		p.Counters.CacheHits.Add(1)
		p.Counters.MemoryCycles.Add(p.MemWeights.Cache)
		return word
	}
	p.Counters.CacheMisses.Add(1)

	word := m.loadFromStore(physical, p)
	_ = m.cache.Put(uint64(physical), word, (*storeAdapter)(m))
	return word
}

// Write performs a write-through to the underlying store, then either
// updates an already-cached line (marking it dirty) or write-allocates
// the line into the cache. This is the spec's documented design choice:
// write-through-to-store with an up-to-date cache, not classic write-back.
// The dirty bit remains load-bearing for lines later mutated via Update
// outside this path.
func (m *Manager) Write(physical, word uint32, p *pcb.PCB) {
	p.Counters.MemWrites.Add(1)
	m.storeToMemory(physical, word, p)

	if _, ok := m.cache.Get(uint64(physical)); ok {
		m.cache.Update(uint64(physical), word)
	} else {
		_ = m.cache.Put(uint64(physical), word, (*storeAdapter)(m))
	}
	p.Counters.CacheAccesses.Add(1)
	p.Counters.MemoryCycles.Add(p.MemWeights.Cache)
}

// DirtyFlush walks the cache's dirty snapshot and writes every entry back
// to the underlying store. Used at shutdown so the store holds the final
// value of every line mutated via Update.
func (m *Manager) DirtyFlush() {
	for _, d := range m.cache.DirtySnapshot() {
		m.writeRaw(uint32(d.Addr), d.Word)
	}
}

func (m *Manager) loadFromStore(physical uint32, p *pcb.PCB) uint32 {
	if physical < m.primaryLimit {
		p.Counters.PrimaryAccesses.Add(1)
		p.Counters.MemoryCycles.Add(p.MemWeights.Primary)
		return m.primary.ReadWord(int(physical))
	}
	p.Counters.SecondaryAccesses.Add(1)
	p.Counters.MemoryCycles.Add(p.MemWeights.Secondary)
	return m.secondary.ReadWord(int(physical - m.primaryLimit))
}

func (m *Manager) storeToMemory(physical, word uint32, p *pcb.PCB) {
	if physical < m.primaryLimit {
		p.Counters.PrimaryAccesses.Add(1)
		p.Counters.MemoryCycles.Add(p.MemWeights.Primary)
	} else {
		p.Counters.SecondaryAccesses.Add(1)
		p.Counters.MemoryCycles.Add(p.MemWeights.Secondary)
	}
	m.writeRaw(physical, word)
}

func (m *Manager) writeRaw(physical, word uint32) {
	if physical < m.primaryLimit {
		m.primary.WriteWord(int(physical), word)
	} else {
		m.secondary.WriteWord(int(physical-m.primaryLimit), word)
	}
}

// storeAdapter lets Manager itself satisfy cache.StoreWriter for eviction
// write-backs, without exposing writeRaw on the public Manager type.
type storeAdapter Manager

func (s *storeAdapter) WriteBack(addr uint64, word uint32) error {
	(*Manager)(s).writeRaw(uint32(addr), word)
	return nil
}
