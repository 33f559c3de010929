package conservheap

import "unsafe"

// wordSize is the machine's pointer width, the alignment unit used for
// both payload sizes and payload start addresses.
const wordSize = unsafe.Sizeof(uintptr(0))

// blockMagic tags every header ever created and is never cleared until
// its segment is destroyed. It guards pointer-from-payload conversions
// against following a stray or already-freed address.
const blockMagic uint32 = 0x6c62636f // "oclb", arbitrary

type blockFlags uint32

const (
	flagFree blockFlags = 1 << iota
	flagMark
)

// blockHeader sits immediately before the payload it describes.
// payload = header address + headerSize; header = payload address -
// headerSize. These two conversions are the only raw pointer
// arithmetic this package performs on block addresses, kept behind a
// single pair of documented primitives rather than spread inline.
type blockHeader struct {
	magic    uint32
	flags    blockFlags
	size     uintptr      // payload size in bytes, always a multiple of wordSize
	nextFree *blockHeader // valid only while flagFree is set
}

// headerSize is the fixed overhead every block pays, already a
// multiple of wordSize because blockHeader's largest field is a
// pointer.
const headerSize = unsafe.Sizeof(blockHeader{})

// alignUp rounds size up to the next multiple of wordSize.
func alignUp(size uintptr) uintptr {
	return (size + wordSize - 1) &^ (wordSize - 1)
}

// payload returns the payload address immediately following h.
func (h *blockHeader) payload() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + headerSize)
}

func (h *blockHeader) addr() uintptr {
	return uintptr(unsafe.Pointer(h))
}

// end returns the address one past this block's payload, i.e. where
// the next block's header would start.
func (h *blockHeader) end() uintptr {
	return h.addr() + headerSize + h.size
}

func (h *blockHeader) isFree() bool   { return h.flags&flagFree != 0 }
func (h *blockHeader) isMarked() bool { return h.flags&flagMark != 0 }

// headerFromPayload recovers the header for a payload pointer the
// client is handing back to Deallocate or a root/stack candidate the
// collector is considering. It performs no validation; callers must
// check containment and the magic tag before trusting the result.
func headerFromPayload(ptr unsafe.Pointer) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(uintptr(ptr) - headerSize))
}

func zeroBytes(ptr unsafe.Pointer, size uintptr) {
	b := unsafe.Slice((*byte)(ptr), size)
	for i := range b {
		b[i] = 0
	}
}
