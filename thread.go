package conservheap

import (
	"runtime"

	"github.com/petermattis/goid"
	"github.com/sirupsen/logrus"

	"github.com/conservheap/conservheap/platform"
)

type threadStatus int

const (
	threadRunning threadStatus = iota
	threadParked
)

// goroutineStackScanWindow bounds how far below a goroutine's
// registration-time stack pointer seedThreadStacks is willing to scan.
// It plays the same conservative role as a real thread-stack size: a
// generous ceiling on how deep the goroutine's call stack can grow
// between RegisterThread and the safepoint a collection catches it at.
const goroutineStackScanWindow = 8 << 20

// threadRecord is the per-goroutine bookkeeping the collector needs to
// scan a mutator's stack: an identifier, a status, the goroutine's own
// stack bounds snapshotted at registration, and a parked stack pointer
// captured at the most recent safepoint. stackLow and stackHigh are
// both derived from the same Go stack CurrentStackPointer reads sp
// from — never from the OS thread's pthread stack, which is a
// different memory region and does not bound a goroutine's stack.
type threadRecord struct {
	goID      int64
	osTID     int
	status    threadStatus
	stackLow  uintptr
	stackHigh uintptr
	sp        uintptr
}

// RegisterThread creates a thread record for the calling goroutine. A
// goroutine may register at most once; call RegisterThread again only
// after UnregisterThread.
//
// RegisterThread should be called as close to the goroutine's entry
// point as practical: it snapshots the current stack pointer as the
// record's high bound, and a later Safepoint call deeper in the same
// goroutine's call chain only has its sp correctly bounded if that
// call chain was built on top of the frame RegisterThread captured,
// not above it.
func (h *Heap) RegisterThread() error {
	if h == nil {
		return ErrNilHeap
	}

	gid := goid.Get()

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.threads[gid]; exists {
		return ErrAlreadyRegistered
	}

	// The OS thread's own stack bounds are a different memory region
	// than this goroutine's Go stack and cannot be used to bound a scan
	// of it; they are read here purely as diagnostic context.
	if _, _, err := platform.ThreadStackBounds(); err != nil {
		h.logger.WithError(err).Debug("conservheap: OS thread stack bounds unavailable")
	}

	high := platform.CurrentStackPointer()
	var low uintptr
	if high > goroutineStackScanWindow {
		low = high - goroutineStackScanWindow
	}

	osTID := platform.OSThreadID()
	h.threads[gid] = &threadRecord{
		goID:      gid,
		osTID:     osTID,
		status:    threadRunning,
		stackLow:  low,
		stackHigh: high,
	}
	h.logger.WithFields(logrus.Fields{"goid": gid, "os_tid": osTID}).Debug("conservheap: thread registered")
	return nil
}

// UnregisterThread removes the calling goroutine's thread record. It
// is required before the goroutine exits (or before it stops calling
// Allocate/Safepoint for good); a thread that never unregisters and
// never polls again is a liveness hazard for every future Collect.
// Unregistering a goroutine with no record is a no-op.
func (h *Heap) UnregisterThread() error {
	if h == nil {
		return ErrNilHeap
	}

	gid := goid.Get()

	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.threads, gid)
	h.cond.Broadcast() // a pending Collect's rendezvous may now be satisfied
	return nil
}

// ThreadCount reports how many goroutines are currently registered.
func (h *Heap) ThreadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.threads)
}

// pinCurrentOSThread is a thin wrapper used by the concurrent
// registration tests to pin a goroutine to its OS thread for the
// duration of a test case.
func pinCurrentOSThread() func() {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
