// Package conservheap implements a thread-aware, conservative,
// stop-the-world mark-and-sweep garbage-collected heap usable as a
// library by any Go program.
//
// The heap carves a private address space out of large segments backed
// by ordinary Go byte slices, serves size-requested allocations from
// those segments through a first-fit free-list allocator, and reclaims
// unreachable blocks during explicit Collect cycles. A block is
// reachable if it is transitively pointed to, word-aligned, from a
// registered root slot or from a registered goroutine's live stack
// frames below its most recently recorded safepoint.
//
// Compaction, generational or incremental collection, precise type
// information, finalizers, weak references, write barriers,
// cross-process shared heaps and free-block coalescing are out of
// scope; see DESIGN.md for the reasoning behind every design decision
// that departs from the reference C implementation this package is
// modeled on.
package conservheap
