// Package platform isolates the OS- and architecture-specific
// primitives the collector needs: the address of the caller's current
// stack frame, and the stack bounds of the OS thread a goroutine is
// currently running on. Keeping these behind a small abstraction layer
// avoids scattering build tags through the collector itself.
package platform

import "unsafe"

// WordSize is the machine's pointer width, used by callers that need
// it without importing unsafe themselves.
const WordSize = unsafe.Sizeof(uintptr(0))
