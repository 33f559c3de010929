//go:build linux

package platform

/*
#define _GNU_SOURCE
#include <pthread.h>
#include <stdint.h>

static int conservheap_stack_bounds(uintptr_t *low, uintptr_t *high) {
	pthread_attr_t attr;
	void *stackaddr;
	size_t stacksize;

	if (pthread_getattr_np(pthread_self(), &attr) != 0) {
		return -1;
	}
	if (pthread_attr_getstack(&attr, &stackaddr, &stacksize) != 0) {
		pthread_attr_destroy(&attr);
		return -1;
	}
	pthread_attr_destroy(&attr);

	*low = (uintptr_t)stackaddr;
	*high = (uintptr_t)stackaddr + (uintptr_t)stacksize;
	return 0;
}
*/
import "C"

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ThreadStackBounds returns the stack bounds of the OS thread the
// calling goroutine is currently running on, queried through
// pthread_getattr_np. This is the pthread stack, a different memory
// region than any goroutine's own Go stack (even one pinned to this
// OS thread with runtime.LockOSThread), so callers must not use it to
// bound a scan of a goroutine's stack; it is informational only.
func ThreadStackBounds() (low, high uintptr, err error) {
	var clow, chigh C.uintptr_t
	if C.conservheap_stack_bounds(&clow, &chigh) != 0 {
		return 0, 0, errors.New("platform: pthread_getattr_np failed")
	}
	return uintptr(clow), uintptr(chigh), nil
}

// CurrentStackPointer returns the address of the caller's current
// stack frame. RegisterThread snapshots this as a thread record's high
// bound, and Safepoint snapshots it again just before parking, so the
// collector scans from the parked sp up to the registration-time high
// bound of the same goroutine's own stack.
//
// Caveat: the Go runtime can relocate a growing goroutine's stack
// between the moment this address is captured and the moment the
// collector reads it, which would invalidate the captured pointer.
// This package accepts that risk by keeping the window between capture
// and use as short as possible (a parked goroutine blocks immediately
// after capturing sp, so it cannot grow its own stack while parked)
// and documenting it as a known limitation rather than silently
// pretending it away. See DESIGN.md.
func CurrentStackPointer() uintptr {
	var probe byte
	return uintptr(unsafe.Pointer(&probe))
}

// OSThreadID returns the kernel thread id of the OS thread the calling
// goroutine is currently pinned to. It is informational only: thread
// records are keyed by goid, not by this value, since a goroutine can
// move between OS threads whenever it isn't pinned with
// runtime.LockOSThread.
func OSThreadID() int {
	return unix.Gettid()
}
