package slides

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestForEachParallelRunsAllIndices(t *testing.T) {
	var count int64
	errs := forEachParallel(20, 4, func(i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	if count != 20 {
		t.Fatalf("count = %d, want 20", count)
	}
	for _, e := range errs {
		if e != nil {
			t.Fatalf("unexpected error: %v", e)
		}
	}
}

func TestForEachParallelCollectsErrors(t *testing.T) {
	errs := forEachParallel(5, 2, func(i int) error {
		if i == 2 {
			return errors.New("boom")
		}
		return nil
	})
	if errs[2] == nil {
		t.Fatalf("expected error at index 2")
	}
}

func TestClampWorkers(t *testing.T) {
	cases := map[int]int{0: 8, -3: 8, 1: 1, 16: 16, 30: 16}
	for in, want := range cases {
		if got := clampWorkers(in); got != want {
			t.Fatalf("clampWorkers(%d) = %d, want %d", in, got, want)
		}
	}
}
