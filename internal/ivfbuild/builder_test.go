package ivfbuild

import (
	"reflect"
	"testing"
)

func TestBuildFromCodesMatchesSpecExample(t *testing.T) {
	// Spec §8 example uses 1-based codes [3,1,3,2,1]; this implementation
	// assigns 0-based centroid codes, so the equivalent input is
	// [2,0,2,1,0] against 3 partitions.
	codes := []uint32{2, 0, 2, 1, 0}

	result, err := BuildFromCodes(codes, 3)
	if err != nil {
		t.Fatalf("BuildFromCodes: %v", err)
	}

	wantIVF := []uint32{2, 5, 4, 1, 3}
	if !reflect.DeepEqual(result.IVF, wantIVF) {
		t.Errorf("ivf = %v, want %v", result.IVF, wantIVF)
	}

	wantLengths := []uint32{2, 1, 2}
	if !reflect.DeepEqual(result.Lengths, wantLengths) {
		t.Errorf("ivf_lengths = %v, want %v", result.Lengths, wantLengths)
	}
}

func TestBuildFromCodesIsPermutationAndNonDecreasing(t *testing.T) {
	codes := []uint32{1, 0, 2, 0, 1, 2, 0}
	result, err := BuildFromCodes(codes, 3)
	if err != nil {
		t.Fatalf("BuildFromCodes: %v", err)
	}

	n := len(codes)
	seen := make(map[uint32]bool, n)
	for _, id := range result.IVF {
		if id < 1 || int(id) > n {
			t.Fatalf("ivf entry %d out of range [1,%d]", id, n)
		}
		if seen[id] {
			t.Fatalf("ivf entry %d appears more than once", id)
		}
		seen[id] = true
	}

	prev := uint32(0)
	for _, id := range result.IVF {
		c := codes[id-1]
		if c < prev {
			t.Fatalf("codes_global ordered by ivf is not non-decreasing: %d after %d", c, prev)
		}
		prev = c
	}

	sum := uint32(0)
	for _, l := range result.Lengths {
		sum += l
	}
	if int(sum) != n {
		t.Errorf("sum(ivf_lengths) = %d, want %d", sum, n)
	}
}

func TestBuildFromCodesRejectsOutOfRangeCode(t *testing.T) {
	if _, err := BuildFromCodes([]uint32{5}, 3); err == nil {
		t.Fatal("expected error for code out of range")
	}
}
