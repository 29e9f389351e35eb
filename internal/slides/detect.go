package slides

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/shaneholloman/summarize/internal/scriptrun"
)

// Detection is one scene-change timestamp found during the detect
// stage.
type Detection struct {
	TimestampSec float64
}

// segmentBounds splits [0, duration) into at most maxSegments chunks,
// no chunk shorter than one minute.
func segmentBounds(duration float64, maxSegments int) [][2]float64 {
	if maxSegments < 1 {
		maxSegments = 1
	}
	const minChunk = 60.0

	segments := int(math.Min(float64(maxSegments), math.Max(1, math.Floor(duration/minChunk))))
	if segments < 1 {
		segments = 1
	}

	bounds := make([][2]float64, segments)
	chunk := duration / float64(segments)
	for i := 0; i < segments; i++ {
		start := float64(i) * chunk
		end := start + chunk
		if i == segments-1 {
			end = duration
		}
		bounds[i] = [2]float64{start, end}
	}
	return bounds
}

// Detector extracts probe frames at a fixed sampling interval within
// a segment and flags a detection wherever the Hamming ratio between
// consecutive frames exceeds threshold.
type Detector struct {
	Scripts *scriptrun.Runner
	TempDir string
	// SampleIntervalSec is the probe cadence within a segment; smaller
	// values catch faster cuts at proportionally higher cost.
	SampleIntervalSec float64
}

func (d *Detector) sampleInterval() float64 {
	if d.SampleIntervalSec > 0 {
		return d.SampleIntervalSec
	}
	return 1.0
}

// detectSegment runs ffmpeg to dump one frame per sampleInterval
// within [start,end), hashes each, and reports a Detection at the
// later frame of every consecutive pair whose Hamming ratio exceeds
// threshold.
func (d *Detector) detectSegment(ctx context.Context, sourcePath string, start, end, threshold float64) ([]Detection, error) {
	dir, err := os.MkdirTemp(d.TempDir, "segment-*")
	if err != nil {
		return nil, fmt.Errorf("slides: create segment temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	interval := d.sampleInterval()
	pattern := filepath.Join(dir, "probe-%06d.jpg")

	_, err = d.Scripts.Run(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", start),
		"-to", fmt.Sprintf("%.3f", end),
		"-i", sourcePath,
		"-vf", fmt.Sprintf("fps=1/%.3f", interval),
		"-qscale:v", "4",
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("slides: ffmpeg probe extraction: %w", err)
	}

	frames, err := filepath.Glob(filepath.Join(dir, "probe-*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("slides: list probe frames: %w", err)
	}

	var detections []Detection
	var prev *Hash
	for i, frame := range frames {
		h, err := HashFile(frame)
		if err != nil {
			continue
		}
		if prev != nil && HammingRatio(*prev, h) > threshold {
			detections = append(detections, Detection{TimestampSec: start + float64(i)*interval})
		}
		prev = &h
	}
	return detections, nil
}

// Detect runs segmented, parallel scene detection over the whole
// video, retrying once with a halved threshold if the first pass
// found zero detections.
func (d *Detector) Detect(ctx context.Context, sourcePath string, duration, threshold float64, workers int) ([]Detection, error) {
	detections, err := d.detectAllSegments(ctx, sourcePath, duration, threshold, workers)
	if err != nil {
		return nil, err
	}
	if len(detections) == 0 {
		detections, err = d.detectAllSegments(ctx, sourcePath, duration, threshold/2, workers)
		if err != nil {
			return nil, err
		}
	}
	return detections, nil
}

func (d *Detector) detectAllSegments(ctx context.Context, sourcePath string, duration, threshold float64, workers int) ([]Detection, error) {
	bounds := segmentBounds(duration, clampWorkers(workers))
	results := make([][]Detection, len(bounds))

	errs := forEachParallel(len(bounds), workers, func(i int) error {
		dets, err := d.detectSegment(ctx, sourcePath, bounds[i][0], bounds[i][1], threshold)
		if err != nil {
			return err
		}
		results[i] = dets
		return nil
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	var all []Detection
	for _, r := range results {
		all = append(all, r...)
	}
	return dedupeDetections(all, minGap(0)), nil
}

// minGap is max(0.1, minDuration/2), the floor below which two
// detections are considered the same cut.
func minGap(minDuration float64) float64 {
	return math.Max(0.1, minDuration/2)
}

func dedupeDetections(dets []Detection, gap float64) []Detection {
	if len(dets) == 0 {
		return nil
	}
	sorted := append([]Detection(nil), dets...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TimestampSec < sorted[j].TimestampSec })

	out := []Detection{sorted[0]}
	for _, d := range sorted[1:] {
		if d.TimestampSec-out[len(out)-1].TimestampSec >= gap {
			out = append(out, d)
		}
	}
	return out
}
