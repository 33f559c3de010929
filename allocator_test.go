package conservheap

import (
	"testing"
	"unsafe"
)

func TestAllocateRejectsZeroSize(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	if _, err := h.Allocate(0); err != ErrInvalidSize {
		t.Fatalf("Allocate(0) error = %v, want ErrInvalidSize", err)
	}
}

func TestAllocateRejectsNilHeap(t *testing.T) {
	var h *Heap
	if _, err := h.Allocate(16); err != ErrNilHeap {
		t.Fatalf("Allocate on nil heap error = %v, want ErrNilHeap", err)
	}
}

func TestAllocateReturnsZeroedMemoryAtLeastRequestedSize(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	ptr, err := h.Allocate(37)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	hdr := headerFromPayload(ptr)
	if hdr.size < alignUp(37) {
		t.Fatalf("block size %d is smaller than align_up(37)=%d", hdr.size, alignUp(37))
	}
	if hdr.size%wordSize != 0 {
		t.Fatalf("block size %d is not word-aligned", hdr.size)
	}
	b := unsafe.Slice((*byte)(ptr), hdr.size)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d = %#x, want zero", i, v)
		}
	}
}

func TestAllocateSplitsLargeFreeBlock(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	ptr, err := h.Allocate(64)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	hdr := headerFromPayload(ptr)
	if hdr.size != alignUp(64) {
		t.Fatalf("expected first allocation to split, got size=%d", hdr.size)
	}

	foundRemainder := false
	for b := h.freeHead; b != nil; b = b.nextFree {
		if b.size > alignUp(64) {
			foundRemainder = true
		}
	}
	if !foundRemainder {
		t.Fatal("expected a large remainder block on the free list after splitting")
	}
}

func TestAllocateExhaustsSegmentThenGrows(t *testing.T) {
	h := newTestHeap(t, 512)
	var ptrs []unsafe.Pointer
	for i := 0; i < 50; i++ {
		p, err := h.Allocate(32)
		if err != nil {
			t.Fatalf("allocation %d failed: %v", i, err)
		}
		ptrs = append(ptrs, p)
	}
	if h.SegmentCount() < 2 {
		t.Fatalf("expected multiple segments, got %d", h.SegmentCount())
	}
}

func TestAllocateTooLargeForAnySegmentFails(t *testing.T) {
	h := newTestHeap(t, 256)
	if _, err := h.Allocate(4096); err == nil {
		t.Fatal("expected out-of-memory error for an allocation larger than one segment")
	}
}

func TestDeallocateIsNoOpOnNil(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	h.Deallocate(nil) // must not panic
}

func TestDeallocateThenAllocateSameSizeSucceeds(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	p, err := h.Allocate(128)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	h.Deallocate(p)
	q, err := h.Allocate(128)
	if err != nil {
		t.Fatalf("second Allocate: %v", err)
	}
	if q == nil {
		t.Fatal("expected a non-nil pointer")
	}
}

func TestDeallocateIsDoubleFreeTolerant(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	p, err := h.Allocate(128)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	h.Deallocate(p)
	h.Deallocate(p) // must not corrupt the free list
	q, err := h.Allocate(128)
	if err != nil {
		t.Fatalf("Allocate after double free: %v", err)
	}
	if q == nil {
		t.Fatal("expected a non-nil pointer")
	}
}

func TestDeallocateRejectsBadMagic(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	before := h.AllocatedBytes()
	var garbage [headerSize]byte
	h.Deallocate(unsafe.Pointer(&garbage[0]))
	if h.AllocatedBytes() != before {
		t.Fatal("deallocating an invalid pointer must not mutate allocated_bytes")
	}
}

func TestAllocatedBytesEqualsSumOfNonFreeBlocks(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	sizes := []uintptr{16, 32, 48, 8}
	var want uintptr
	for _, s := range sizes {
		p, err := h.Allocate(s)
		if err != nil {
			t.Fatalf("Allocate(%d): %v", s, err)
		}
		want += headerFromPayload(p).size
	}
	if got := h.AllocatedBytes(); got != want {
		t.Fatalf("AllocatedBytes() = %d, want %d", got, want)
	}
}
