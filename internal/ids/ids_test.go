package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndValid(t *testing.T) {
	a := New()
	b := New()
	if !Valid(a) || !Valid(b) {
		t.Fatalf("expected valid ids, got %q %q", a, b)
	}
	if a >= b {
		t.Fatalf("expected monotonic ids, got %q then %q", a, b)
	}
	if Valid("not-an-id") {
		t.Fatal("unexpected valid id")
	}
}

func TestNewAtOrdersByTime(t *testing.T) {
	older := NewAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	newer := NewAt(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if older >= newer {
		t.Fatalf("expected %q < %q", older, newer)
	}
}
