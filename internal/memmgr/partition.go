package memmgr

// Partition is a fixed-size, contiguous range of primary memory assigned
// to at most one process for the lifetime of its residency. free ==
// (pid < 0) is the class invariant maintained by the manager.
type Partition struct {
	Base uint32
	Size uint32
	PID  int
	Free bool
}

func newPartition(base, size uint32) Partition {
	return Partition{Base: base, Size: size, PID: -1, Free: true}
}
