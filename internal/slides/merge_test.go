package slides

import "testing"

func TestUniformGridTargetCountBounds(t *testing.T) {
	grid := UniformGrid(1200, 20)
	if len(grid) < 3 || len(grid) > 20 {
		t.Fatalf("expected grid count within [3,20], got %d", len(grid))
	}
}

func TestMergeSnapsToNearbyDetection(t *testing.T) {
	duration := 300.0
	detected := []Detection{{TimestampSec: 50}, {TimestampSec: 150}, {TimestampSec: 250}}
	merged := Merge(detected, duration, 5)
	found := false
	for _, m := range merged {
		if m == 50 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected detection at 50s to survive the merge, got %v", merged)
	}
}

func TestMergeNoDetectionsReturnsGrid(t *testing.T) {
	merged := Merge(nil, 300, 5)
	grid := UniformGrid(300, 5)
	if len(merged) != len(grid) {
		t.Fatalf("expected merge with no detections to equal the uniform grid, got %d vs %d", len(merged), len(grid))
	}
}

func TestSelectEnforcesSpacingAndCap(t *testing.T) {
	points := []float64{1, 2, 3, 20, 21, 40}
	out := Select(points, 10, 2)
	if len(out) != 2 {
		t.Fatalf("expected cap of 2 picks, got %d: %v", len(out), out)
	}
	if out[1]-out[0] < 10 {
		t.Errorf("expected minDuration spacing to be enforced, got %v", out)
	}
}
