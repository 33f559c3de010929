package conservheap

import (
	"unsafe"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// pushFree links blk at the head of the free list. The caller must
// hold h.mu. blk.flags gains flagFree as a side effect so every other
// call site only has to remember to call pushFree, not to also set the
// flag.
func (h *Heap) pushFree(blk *blockHeader) {
	blk.flags |= flagFree
	blk.flags &^= flagMark
	blk.nextFree = h.freeHead
	h.freeHead = blk
}

// findAndUnlinkFit performs a first-fit scan of the free list and
// removes the chosen block in the same pass, since the list is singly
// linked and has no back-pointers. The caller must hold h.mu.
func (h *Heap) findAndUnlinkFit(req uintptr) *blockHeader {
	var prev *blockHeader
	cur := h.freeHead
	for cur != nil {
		if cur.size >= req {
			if prev == nil {
				h.freeHead = cur.nextFree
			} else {
				prev.nextFree = cur.nextFree
			}
			cur.nextFree = nil
			return cur
		}
		prev = cur
		cur = cur.nextFree
	}
	return nil
}

// maybeSplit carves exactly req bytes out of blk, pushing the
// remainder back onto the free list as a new block when it is large
// enough to be worth the header overhead. Splits always happen at the
// high-address end. The caller must hold h.mu.
func (h *Heap) maybeSplit(blk *blockHeader, req uintptr) {
	remainder := blk.size - req
	if remainder <= headerSize+wordSize {
		return
	}
	tail := (*blockHeader)(unsafe.Pointer(blk.addr() + headerSize + req))
	tail.magic = blockMagic
	tail.size = remainder - headerSize
	tail.nextFree = nil
	h.pushFree(tail)
	blk.size = req
}

// Allocate reserves size bytes of zeroed memory from the heap and
// returns the payload address. It polls the safepoint before taking
// the heap lock, so a mutator that only allocates still cooperates
// with a pending collection.
func (h *Heap) Allocate(size uintptr) (unsafe.Pointer, error) {
	if h == nil {
		return nil, ErrNilHeap
	}
	if size == 0 {
		return nil, ErrInvalidSize
	}

	h.Safepoint()

	req := alignUp(size)

	h.mu.Lock()
	blk := h.findAndUnlinkFit(req)
	if blk == nil {
		if h.growSegment() == nil {
			h.mu.Unlock()
			return nil, pkgerrors.Wrap(ErrOutOfMemory, "allocate: segment allocation failed")
		}
		blk = h.findAndUnlinkFit(req)
		if blk == nil {
			h.mu.Unlock()
			return nil, pkgerrors.Wrapf(ErrOutOfMemory, "allocate: %d bytes exceeds segment capacity", size)
		}
	}

	h.maybeSplit(blk, req)
	blk.flags &^= flagFree | flagMark
	blk.nextFree = nil
	h.allocatedBytes += blk.size

	triggerGC := h.cfg.GCThresholdBytes > 0 && h.allocatedBytes >= uintptr(h.cfg.GCThresholdBytes)

	payload := blk.payload()
	zeroBytes(payload, blk.size)

	// The block being returned is not yet referenced by the caller, so
	// root it for the duration of the automatic collection.
	var keep unsafe.Pointer
	if triggerGC {
		keep = payload
		h.roots = append(h.roots, unsafe.Pointer(&keep))
	}
	h.mu.Unlock()

	if triggerGC {
		h.Collect()
		_ = h.RemoveRoot(unsafe.Pointer(&keep))
	}

	return payload, nil
}

// Deallocate returns a payload to the free list. It is a no-op on a
// nil pointer, on a pointer whose header fails the magic check (wrong
// address, or a block from an already-destroyed segment), and on a
// block that is already free, so a double-free is tolerated rather
// than treated as a fatal error.
func (h *Heap) Deallocate(ptr unsafe.Pointer) {
	if h == nil || ptr == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	hdr := headerFromPayload(ptr)
	if h.findSegment(hdr.addr()) == nil {
		return
	}
	if hdr.magic != blockMagic {
		return
	}
	if hdr.isFree() {
		return
	}

	if h.allocatedBytes >= hdr.size {
		h.allocatedBytes -= hdr.size
	} else {
		h.allocatedBytes = 0
	}
	h.pushFree(hdr)

	h.logger.WithFields(logrus.Fields{
		"bytes": hdr.size,
	}).Trace("conservheap: deallocate")
}
