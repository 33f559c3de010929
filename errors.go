package conservheap

import "errors"

// Sentinel errors returned at the API boundary. Callers may compare
// against these with errors.Is; internal call sites wrap them with
// github.com/pkg/errors to attach the failing operation without losing
// the underlying sentinel.
var (
	// ErrNilHeap is returned when an operation is invoked on a nil *Heap.
	ErrNilHeap = errors.New("conservheap: nil heap")

	// ErrInvalidSize is returned by Allocate for a zero-byte request.
	ErrInvalidSize = errors.New("conservheap: size must be greater than zero")

	// ErrOutOfMemory is returned when no free block satisfies a request
	// and growing the heap by one more segment still doesn't.
	ErrOutOfMemory = errors.New("conservheap: out of memory")

	// ErrNilSlot is returned by AddRoot/RemoveRoot for a nil slot address.
	ErrNilSlot = errors.New("conservheap: nil root slot")

	// ErrNotFound is returned by RemoveRoot when the slot was never
	// registered.
	ErrNotFound = errors.New("conservheap: not registered")

	// ErrAlreadyRegistered is returned by RegisterThread when the
	// calling goroutine already holds a thread record.
	ErrAlreadyRegistered = errors.New("conservheap: thread already registered")

	// ErrInvalidConfig is returned by Config.Verify.
	ErrInvalidConfig = errors.New("conservheap: invalid configuration")
)
