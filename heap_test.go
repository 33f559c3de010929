package conservheap

import (
	"testing"
	"unsafe"

	"github.com/inhies/go-bytesize"
)

func bytesizeOf(n uintptr) bytesize.ByteSize {
	return bytesize.ByteSize(n)
}

func newTestHeap(t *testing.T, segmentSize uintptr) *Heap {
	t.Helper()
	h, err := New(Config{SegmentSize: bytesizeOf(segmentSize)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func TestNewRejectsUndersizedSegment(t *testing.T) {
	_, err := New(Config{SegmentSize: bytesizeOf(headerSize)})
	if err == nil {
		t.Fatal("expected an error for a segment too small to hold one header")
	}
}

func TestNewUsesDefaultSegmentSizeWhenZero(t *testing.T) {
	h, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer h.Close()
	if h.SegmentCount() != 1 {
		t.Fatalf("SegmentCount() = %d, want 1", h.SegmentCount())
	}
}

func TestCloseDropsState(t *testing.T) {
	h := newTestHeap(t, 1<<20)
	ptr, err := h.Allocate(64)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	var root unsafe.Pointer = ptr
	if err := h.AddRoot(unsafe.Pointer(&root)); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	h.Close()
	if h.SegmentCount() != 0 || h.AllocatedBytes() != 0 || h.RootCount() != 0 {
		t.Fatal("Close did not drop heap state")
	}
}

func TestIDIsStable(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	if h.ID() != h.ID() {
		t.Fatal("ID() should be stable across calls")
	}
}
