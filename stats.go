package conservheap

// BlockStats is a point-in-time snapshot of the heap's bookkeeping
// counters. It exists so black-box tests and the metrics package can
// observe allocation and segment accounting without reaching into
// package internals.
type BlockStats struct {
	AllocatedBytes uintptr
	SegmentCount   uint64
	FreeBlocks     uint64
}

// Stats returns a snapshot of the heap's allocator bookkeeping.
func (h *Heap) Stats() BlockStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	var free uint64
	for b := h.freeHead; b != nil; b = b.nextFree {
		free++
	}

	return BlockStats{
		AllocatedBytes: h.allocatedBytes,
		SegmentCount:   h.segmentCount,
		FreeBlocks:     free,
	}
}
