package platform

import "testing"

func TestThreadStackBoundsOrdering(t *testing.T) {
	low, high, err := ThreadStackBounds()
	if err != nil {
		t.Logf("ThreadStackBounds reported a non-fatal error: %v", err)
	}
	if low >= high {
		t.Fatalf("expected low < high, got low=%#x high=%#x", low, high)
	}
}

func TestCurrentStackPointerNonZero(t *testing.T) {
	if sp := CurrentStackPointer(); sp == 0 {
		t.Fatal("expected a non-zero stack pointer")
	}
}

func TestWordSizeIsPointerWidth(t *testing.T) {
	if WordSize != 4 && WordSize != 8 {
		t.Fatalf("unexpected word size: %d", WordSize)
	}
}
