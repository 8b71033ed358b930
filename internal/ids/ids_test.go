package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndValid(t *testing.T) {
	now := time.Now()
	a := NewAt(now)
	b := NewAt(now)
	if !(a < b) {
		t.Fatalf("expected monotonic ids, got %s then %s", a, b)
	}
	if !Valid(a) || !Valid(New()) {
		t.Fatalf("expected generated ids to be valid")
	}
	for _, bad := range []string{"", "42", "not-a-ulid-at-all-xxxxxxxxx"} {
		if Valid(bad) {
			t.Fatalf("Valid(%q) = true", bad)
		}
	}
}
