package conservheap

import (
	"unsafe"

	"github.com/inhies/go-bytesize"
	"github.com/sirupsen/logrus"
)

// segment is a contiguous byte region backing one or more blocks laid
// out sequentially from its start. Segments form an intrusive
// singly-linked list, newest at the head, and are destroyed only at
// heap teardown; a segment is never compacted or reclaimed mid-life.
//
// mem is the Go-owned backing array for the segment's bytes. It must
// never be allowed to become unreferenced while the segment is linked
// into the heap: this package tracks live data exclusively through
// uintptr arithmetic over mem's contents, which is invisible to the Go
// garbage collector's pointer scanning. Keeping mem alive here is what
// stands in for owning a raw OS-allocated region until the heap is
// torn down.
type segment struct {
	next *segment
	mem  []byte
	base uintptr
	size uintptr
}

func newSegment(size uintptr) *segment {
	mem := make([]byte, size)
	return &segment{
		mem:  mem,
		base: uintptr(unsafe.Pointer(&mem[0])),
		size: size,
	}
}

func (s *segment) end() uintptr {
	return s.base + s.size
}

func (s *segment) contains(addr uintptr) bool {
	return addr >= s.base && addr < s.end()
}

// Bytes exposes the segment's capacity in the domain stack's
// human-readable unit, for logging and metrics.
func (s *segment) Bytes() bytesize.ByteSize {
	return bytesize.ByteSize(s.size)
}

// initialBlock installs one FREE block spanning the whole segment body
// minus one header.
func (s *segment) initialBlock() *blockHeader {
	h := (*blockHeader)(unsafe.Pointer(s.base))
	h.magic = blockMagic
	h.flags = flagFree
	h.size = s.size - headerSize
	h.nextFree = nil
	return h
}

// growSegment links a new segment of the heap's configured size at the
// head of the segment list and returns its single whole-body free block. The
// caller must hold h.mu.
func (h *Heap) growSegment() *blockHeader {
	size := uintptr(h.cfg.SegmentSize)
	if size <= headerSize {
		return nil
	}
	seg := newSegment(size)
	seg.next = h.segHead
	h.segHead = seg
	h.segmentCount++
	blk := seg.initialBlock()
	h.pushFree(blk)
	h.logger.WithFields(logrus.Fields{
		"segment_bytes": seg.Bytes().String(),
		"segment_count": h.segmentCount,
	}).Debug("conservheap: grew heap by one segment")
	return blk
}

// findSegment scans the segment list to determine which segment, if
// any, contains an arbitrary address. The caller must hold h.mu.
func (h *Heap) findSegment(addr uintptr) *segment {
	for s := h.segHead; s != nil; s = s.next {
		if s.contains(addr) {
			return s
		}
	}
	return nil
}
