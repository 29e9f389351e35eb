package slides

import "math"

// FrameStats holds the signalstats-derived brightness/contrast used
// to judge whether a slide's thumbnail needs replacement.
type FrameStats struct {
	Brightness float64 // normalized [0,1]
	Contrast   float64 // normalized [0,1]
}

// IsDim reports whether a frame is too dim to keep as a thumbnail.
// The first slide (timestampSec < 8) uses a stricter pair of
// thresholds, since an opening title card is disproportionately
// visible.
func IsDim(stats FrameStats, timestampSec float64, isFirstSlide bool) bool {
	if isFirstSlide && timestampSec < 8 {
		return stats.Brightness < 0.58 || stats.Contrast < 0.2
	}
	return stats.Brightness < 0.24 || stats.Contrast < 0.16
}

// RefineScore computes 0.55·brightness + 0.45·contrast − 0.05·|Δ|/10.
func RefineScore(stats FrameStats, deltaSec float64) float64 {
	return 0.55*stats.Brightness + 0.45*stats.Contrast - 0.05*math.Abs(deltaSec)/10
}

// CandidateOffsets are the probe offsets (in seconds, signed) tried
// during thumbnail refinement.
var CandidateOffsets = []float64{-10, -8, -6, -4, -2, 2, 4, 6, 8, 10}

// AcceptReplacement reports whether a candidate frame should replace
// the original: improvement must be ≥0.03 (≥0.015 for the first-slide
// case).
func AcceptReplacement(originalScore, candidateScore float64, isFirstSlide bool) bool {
	threshold := 0.03
	if isFirstSlide {
		threshold = 0.015
	}
	return candidateScore-originalScore >= threshold
}
