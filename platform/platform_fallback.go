//go:build !linux

package platform

import "unsafe"

// guessedStackSpan is the conservative window scanned below the
// current frame when the platform doesn't expose a real stack-bounds
// primitive. 8 MiB matches the common default thread stack size on
// most non-Linux Unixes.
const guessedStackSpan = 8 << 20

// ThreadStackBounds has no pthread_getattr_np-equivalent wired up for
// this platform, so it returns a conservative range anchored at the
// current frame instead of failing outright. It is informational only:
// conservheap derives its own scan bounds for a goroutine's stack
// independently of this function. See DESIGN.md for the platforms this
// affects.
func ThreadStackBounds() (low, high uintptr, err error) {
	sp := CurrentStackPointer()
	if sp < guessedStackSpan {
		return 0, sp, nil
	}
	return sp - guessedStackSpan, sp, nil
}

func CurrentStackPointer() uintptr {
	var probe byte
	return uintptr(unsafe.Pointer(&probe))
}

// OSThreadID has no portable equivalent outside Linux's gettid, so it
// reports -1. Thread records are keyed by goid regardless of platform,
// so this only affects log/metric annotations.
func OSThreadID() int {
	return -1
}
