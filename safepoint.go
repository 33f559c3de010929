package conservheap

import (
	"github.com/petermattis/goid"

	"github.com/conservheap/conservheap/platform"
)

// Safepoint is the cooperative poll a registered goroutine must make
// periodically so a pending Collect can proceed. Allocate calls it
// implicitly before taking the heap lock; clients with long compute
// stretches between allocations should call it explicitly so a
// pending Collect doesn't stall waiting for them.
//
// A goroutine that never calls Safepoint and never allocates cannot
// park, and Collect will block indefinitely waiting for it — this is a
// correctness requirement of the mutator contract, not a bug.
func (h *Heap) Safepoint() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if !h.gcRequested {
		h.mu.Unlock()
		return
	}

	gid := goid.Get()
	rec, registered := h.threads[gid]
	if !registered {
		// An unregistered goroutine has no stack bounds to publish and
		// nothing for the collector to wait on, but it must still not
		// run concurrently with the mark/sweep pass it would otherwise
		// race with.
		for h.gcRequested {
			h.cond.Wait()
		}
		h.mu.Unlock()
		return
	}

	rec.status = threadParked
	rec.sp = platform.CurrentStackPointer()
	h.cond.Broadcast()

	for h.gcRequested {
		h.cond.Wait()
	}

	rec.status = threadRunning
	h.mu.Unlock()
}
