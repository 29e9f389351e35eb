package slides

import "testing"

func TestIsDimFirstSlideUsesStricterThresholds(t *testing.T) {
	stats := FrameStats{Brightness: 0.5, Contrast: 0.3}
	if !IsDim(stats, 3, true) {
		t.Errorf("expected first-slide-specific threshold to flag brightness=0.5 as dim")
	}
	if IsDim(stats, 3, false) {
		t.Errorf("expected non-first-slide threshold to accept brightness=0.5")
	}
}

func TestIsDimOrdinarySlide(t *testing.T) {
	if IsDim(FrameStats{Brightness: 0.5, Contrast: 0.5}, 120, false) {
		t.Errorf("bright, high-contrast frame should not be flagged dim")
	}
	if !IsDim(FrameStats{Brightness: 0.1, Contrast: 0.1}, 120, false) {
		t.Errorf("dark, low-contrast frame should be flagged dim")
	}
}

func TestRefineScoreWeighting(t *testing.T) {
	score := RefineScore(FrameStats{Brightness: 1, Contrast: 1}, 0)
	if score != 1 {
		t.Errorf("expected perfect brightness+contrast at zero delta to score 1, got %v", score)
	}
}

func TestAcceptReplacementThresholds(t *testing.T) {
	if AcceptReplacement(0.5, 0.51, false) {
		t.Errorf("0.01 improvement should not clear the 0.03 ordinary threshold")
	}
	if !AcceptReplacement(0.5, 0.54, false) {
		t.Errorf("0.04 improvement should clear the 0.03 ordinary threshold")
	}
	if !AcceptReplacement(0.5, 0.52, true) {
		t.Errorf("0.02 improvement should clear the 0.015 first-slide threshold")
	}
}
