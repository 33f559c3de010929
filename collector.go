package conservheap

import (
	"time"
	"unsafe"

	"github.com/petermattis/goid"
	"github.com/sirupsen/logrus"
)

// GCStats summarizes the most recently completed collection cycle.
type GCStats struct {
	Cycle    uint64
	Freed    uintptr // bytes reclaimed
	Retained uintptr // bytes still live after sweep
	Duration time.Duration
}

// LastGC returns the stats recorded by the most recent Collect call.
func (h *Heap) LastGC() GCStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastGC
}

// Collect runs one stop-the-world mark-sweep cycle: it raises the
// GC-requested flag, waits for every other registered goroutine to
// park at a safepoint, seeds reachability from roots and parked
// stacks, closes the reachable set transitively, sweeps every segment,
// and releases parked goroutines.
//
// Collect waits for the full rendezvous before seeding reachability
// from roots and stacks, rather than seeding as each goroutine parks.
// Seeding early would let a goroutine still running concurrently with
// the scan mutate a root or grow its stack mid-seed, producing a torn
// read of live pointers; waiting for every goroutine to park first
// closes that window entirely.
func (h *Heap) Collect() {
	if h == nil {
		return
	}

	h.mu.Lock()
	start := time.Now()
	h.gcRequested = true
	self := goid.Get()

	h.waitForRendezvous(self)

	markStack := make([]*blockHeader, 0, 128)
	h.seedRoots(&markStack)
	h.seedThreadStacks(self, &markStack)
	h.drainMarkStack(&markStack)

	freed, retained := h.sweep()

	h.gcRequested = false
	h.gcCycles++
	h.lastGC = GCStats{
		Cycle:    h.gcCycles,
		Freed:    freed,
		Retained: retained,
		Duration: time.Since(start),
	}
	stats := h.lastGC
	h.cond.Broadcast()
	h.mu.Unlock()

	h.logger.WithFields(logrus.Fields{
		"cycle":         stats.Cycle,
		"freed_bytes":   stats.Freed,
		"retained_bytes": stats.Retained,
		"duration":      stats.Duration,
	}).Info("conservheap: gc cycle complete")

	h.notifyMetrics(stats)
}

// waitForRendezvous blocks until every registered goroutine other than
// self reports PARKED. The caller must hold h.mu.
func (h *Heap) waitForRendezvous(self int64) {
	for {
		allParked := true
		for gid, rec := range h.threads {
			if gid == self {
				continue
			}
			if rec.status != threadParked {
				allParked = false
				break
			}
		}
		if allParked {
			return
		}
		h.cond.Wait()
	}
}

// seedRoots loads every registered root slot's current value and
// attempts to mark the block it might point to. The caller must hold
// h.mu.
func (h *Heap) seedRoots(markStack *[]*blockHeader) {
	for _, slot := range h.roots {
		candidate := *(*uintptr)(slot)
		h.tryMark(candidate, markStack)
	}
}

// seedThreadStacks walks every other registered goroutine's stack from
// its parked stack pointer to its recorded high bound, one machine
// word at a time. A record whose parked sp falls outside its own
// [stackLow, stackHigh] window is skipped rather than scanned, since
// that can only mean the goroutine's stack moved or grew past the
// window RegisterThread sized for it. The caller must hold h.mu.
func (h *Heap) seedThreadStacks(self int64, markStack *[]*blockHeader) {
	for gid, rec := range h.threads {
		if gid == self {
			continue
		}
		if rec.sp < rec.stackLow || rec.sp > rec.stackHigh {
			continue
		}
		h.scanRange(rec.sp, rec.stackHigh, markStack)
	}
}

// drainMarkStack scans each popped block's payload as a sequence of
// word-sized candidates until the mark stack is empty. Termination is
// guaranteed because a block is only ever pushed once (tryMark checks
// isMarked before pushing). The caller must hold h.mu.
func (h *Heap) drainMarkStack(markStack *[]*blockHeader) {
	for len(*markStack) > 0 {
		n := len(*markStack) - 1
		blk := (*markStack)[n]
		*markStack = (*markStack)[:n]
		start, end := blk.addr()+headerSize, blk.addr()+headerSize+blk.size
		h.scanRange(start, end, markStack)
	}
}

// scanRange interprets every word-aligned uintptr in [start, end) as a
// candidate pointer. The caller must hold h.mu.
func (h *Heap) scanRange(start, end uintptr, markStack *[]*blockHeader) {
	if start == 0 || end == 0 || start >= end {
		return
	}
	for addr := start; addr+wordSize <= end; addr += wordSize {
		candidate := *(*uintptr)(unsafe.Pointer(addr))
		h.tryMark(candidate, markStack)
	}
}

// tryMark implements the conservative pointer discovery rule: a
// candidate value v marks a block iff some segment contains
// v-headerSize, the header there carries the expected magic, the block
// is not FREE, and it is not already marked. Interior pointers (past a
// payload's start) are never recognized. The caller must hold h.mu.
func (h *Heap) tryMark(v uintptr, markStack *[]*blockHeader) {
	if v < headerSize {
		return
	}
	headerAddr := v - headerSize
	seg := h.findSegment(headerAddr)
	if seg == nil {
		return
	}
	hdr := (*blockHeader)(unsafe.Pointer(headerAddr))
	if hdr.magic != blockMagic {
		return
	}
	if hdr.isFree() {
		return
	}
	if hdr.isMarked() {
		return
	}
	hdr.flags |= flagMark
	*markStack = append(*markStack, hdr)
}

// sweep walks every segment linearly, reclaiming unmarked allocated
// blocks and clearing MARK from reachable ones. It stops a segment's
// walk early if it encounters a header with a bad magic, a zero size,
// or a size that would overrun the segment, tolerating header
// corruption instead of reading past the segment's bounds. The caller
// must hold h.mu.
func (h *Heap) sweep() (freed, retained uintptr) {
	for seg := h.segHead; seg != nil; seg = seg.next {
		cur := seg.base
		for cur < seg.end() {
			hdr := (*blockHeader)(unsafe.Pointer(cur))
			if hdr.magic != blockMagic {
				break
			}
			if hdr.size == 0 || hdr.end() > seg.end() {
				break
			}

			switch {
			case hdr.isFree():
				hdr.flags &^= flagMark
			case hdr.isMarked():
				hdr.flags &^= flagMark
				retained += hdr.size
			default:
				if h.allocatedBytes >= hdr.size {
					h.allocatedBytes -= hdr.size
				} else {
					h.allocatedBytes = 0
				}
				freed += hdr.size
				h.pushFree(hdr)
			}

			cur = hdr.end()
		}
	}
	return freed, retained
}
