package conservheap

import "testing"

func TestAlignUp(t *testing.T) {
	cases := []struct {
		in, want uintptr
	}{
		{0, 0},
		{1, wordSize},
		{wordSize, wordSize},
		{wordSize + 1, 2 * wordSize},
		{2 * wordSize, 2 * wordSize},
	}
	for _, c := range cases {
		if got := alignUp(c.in); got != c.want {
			t.Errorf("alignUp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestHeaderPayloadRoundTrip(t *testing.T) {
	h := newTestHeap(t, 1<<16)
	ptr, err := h.Allocate(40)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	hdr := headerFromPayload(ptr)
	if hdr.magic != blockMagic {
		t.Fatalf("magic = %#x, want %#x", hdr.magic, blockMagic)
	}
	if hdr.payload() != ptr {
		t.Fatalf("hdr.payload() = %p, want %p", hdr.payload(), ptr)
	}
}

func TestHeaderSizeIsWordAligned(t *testing.T) {
	if headerSize%wordSize != 0 {
		t.Fatalf("headerSize (%d) is not a multiple of wordSize (%d)", headerSize, wordSize)
	}
}
