package main

import "testing"

func TestStubEncodeProducesOneColumnPerText(t *testing.T) {
	m, doclens, err := stubEncode([]string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("stubEncode: %v", err)
	}
	if m.Cols() != 3 {
		t.Fatalf("Cols() = %d, want 3", m.Cols())
	}
	if len(doclens) != 3 {
		t.Fatalf("len(doclens) = %d, want 3", len(doclens))
	}
	for _, l := range doclens {
		if l != 1 {
			t.Errorf("doclen = %d, want 1", l)
		}
	}
}
