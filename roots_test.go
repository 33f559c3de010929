package conservheap

import (
	"testing"
	"unsafe"
)

func TestAddRootIsIdempotent(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	var slot unsafe.Pointer
	if err := h.AddRoot(unsafe.Pointer(&slot)); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	if err := h.AddRoot(unsafe.Pointer(&slot)); err != nil {
		t.Fatalf("AddRoot (second time): %v", err)
	}
	if got := h.RootCount(); got != 1 {
		t.Fatalf("RootCount() = %d, want 1", got)
	}
}

func TestAddRootRejectsNilSlot(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	if err := h.AddRoot(nil); err != ErrNilSlot {
		t.Fatalf("AddRoot(nil) = %v, want ErrNilSlot", err)
	}
}

func TestRemoveRootNotFound(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	var slot unsafe.Pointer
	if err := h.RemoveRoot(unsafe.Pointer(&slot)); err != ErrNotFound {
		t.Fatalf("RemoveRoot on unregistered slot = %v, want ErrNotFound", err)
	}
}

func TestRemoveRootSwapsWithLast(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	var a, b, c unsafe.Pointer
	for _, s := range []unsafe.Pointer{unsafe.Pointer(&a), unsafe.Pointer(&b), unsafe.Pointer(&c)} {
		if err := h.AddRoot(s); err != nil {
			t.Fatalf("AddRoot: %v", err)
		}
	}
	if err := h.RemoveRoot(unsafe.Pointer(&a)); err != nil {
		t.Fatalf("RemoveRoot: %v", err)
	}
	if got := h.RootCount(); got != 2 {
		t.Fatalf("RootCount() = %d, want 2", got)
	}
	// b and c must both still be present.
	if err := h.RemoveRoot(unsafe.Pointer(&b)); err != nil {
		t.Fatalf("b should still be registered: %v", err)
	}
	if err := h.RemoveRoot(unsafe.Pointer(&c)); err != nil {
		t.Fatalf("c should still be registered: %v", err)
	}
}
