package conservheap

import "unsafe"

// AddRoot registers the address of a client-owned slot whose current
// value is treated as a candidate GC pointer at every future Collect.
// The registry stores the slot's address, not its value, so the client
// is free to update *slot without re-registering. Adding the same
// address twice is a no-op.
//
// The backing slice grows the way Go slices always do — geometric
// doubling on append — rather than hand-rolling capacity math the
// runtime already does correctly.
func (h *Heap) AddRoot(slot unsafe.Pointer) error {
	if h == nil {
		return ErrNilHeap
	}
	if slot == nil {
		return ErrNilSlot
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, r := range h.roots {
		if r == slot {
			return nil
		}
	}
	h.roots = append(h.roots, slot)
	return nil
}

// RemoveRoot unregisters a previously added slot address, shrinking
// the registry by swap-with-last since root order carries no meaning.
// It returns ErrNotFound when the slot was never registered.
func (h *Heap) RemoveRoot(slot unsafe.Pointer) error {
	if h == nil {
		return ErrNilHeap
	}
	if slot == nil {
		return ErrNilSlot
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for i, r := range h.roots {
		if r == slot {
			last := len(h.roots) - 1
			h.roots[i] = h.roots[last]
			h.roots[last] = nil
			h.roots = h.roots[:last]
			return nil
		}
	}
	return ErrNotFound
}

// RootCount returns the number of currently registered root slots.
func (h *Heap) RootCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.roots)
}
