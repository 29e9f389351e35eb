// Package slides implements the slide-extraction pipeline: probe ->
// calibrate -> detect -> merge -> select -> extract -> refine -> OCR
// -> manifest, run as a bounded worker pool over segments and frames.
package slides

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shaneholloman/summarize/internal/mediacache"
	"github.com/shaneholloman/summarize/internal/scriptrun"
)

// Phase weights for progress reporting. Percentages are monotonically
// non-decreasing across the pipeline's run.
const (
	progressPrepare  = 2
	progressFetchMin = 6
	progressFetchMax = 35
	progressDetect   = 60
	progressExtract  = 90
	progressRefine   = 96
	progressOCR      = 99
	progressDone     = 100
)

// ProgressFunc receives monotonically increasing percentages as the
// pipeline advances.
type ProgressFunc func(percent int, stage string)

// Settings are the per-run slide-extraction options.
type Settings struct {
	MaxSlides   int
	MinDuration float64 // seconds between consecutive slides
	Workers     int
	OCR         bool
	OutputDir   string
}

func (s Settings) key() string {
	return fmt.Sprintf("maxSlides=%d,minDuration=%.1f,ocr=%v", s.MaxSlides, s.MinDuration, s.OCR)
}

func (s Settings) maxSlides() int {
	if s.MaxSlides > 0 {
		return s.MaxSlides
	}
	return 20
}

func (s Settings) minDuration() float64 {
	if s.MinDuration > 0 {
		return s.MinDuration
	}
	return 15
}

// Pipeline runs the full extraction flow for one source.
type Pipeline struct {
	Scripts  *scriptrun.Runner
	Media    *mediacache.Cache
	TempDir  string
	Logger   *logrus.Logger
	Progress ProgressFunc
}

func (p *Pipeline) logger() *logrus.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return logrus.StandardLogger()
}

func (p *Pipeline) report(percent int, stage string) {
	if p.Progress != nil {
		p.Progress(percent, stage)
	}
}

// Run executes the pipeline for a source already resolved to a local
// file path (sourcePath): YouTube stream-vs-download acquisition is
// the caller's responsibility (extract.Extractor owns URL strategy),
// this package owns everything from a playable media file onward.
func (p *Pipeline) Run(ctx context.Context, sourceID, kind, url, sourcePath string, settings Settings) (Manifest, error) {
	const op = "Pipeline.Run"
	log := p.logger().WithField("op", op).WithField("sourceId", sourceID)

	slidesDir := filepath.Join(settings.OutputDir, sourceID)
	if err := os.MkdirAll(slidesDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("slides: %s: create slidesDir: %w", op, err)
	}
	p.report(progressPrepare, "prepare")

	slidesDirID := dirIdentity(slidesDir)
	if cached, ok := ReadManifest(slidesDir); ok {
		if err := ValidateManifest(cached, settings.OutputDir, sourceID, kind, url, slidesDirID, settings.key()); err == nil {
			log.Info("reusing cached slide manifest")
			p.report(progressDone, "done")
			return cached, nil
		} else {
			log.WithError(err).Info("cached manifest invalid, re-extracting")
		}
	}

	unlock := LockSlidesDir(slidesDir, func() {
		log.Info("queued: another extraction is already running for this source")
	})
	defer unlock()

	p.report(progressFetchMin, "probe")
	duration, err := p.probeDuration(ctx, sourcePath)
	if err != nil {
		return Manifest{}, fmt.Errorf("slides: %s: probe: %w", op, err)
	}

	calibHashes, err := p.sampleCalibrationFrames(ctx, sourcePath, duration)
	if err != nil {
		return Manifest{}, fmt.Errorf("slides: %s: calibration sampling: %w", op, err)
	}
	calibration := Calibrate(calibHashes)
	p.report(progressFetchMax, "calibrate")

	detector := &Detector{Scripts: p.Scripts, TempDir: p.TempDir}
	detections, err := detector.Detect(ctx, sourcePath, duration, calibration.Threshold, settings.Workers)
	if err != nil {
		return Manifest{}, fmt.Errorf("slides: %s: detect: %w", op, err)
	}
	p.report(progressDetect, "detect")

	merged := Merge(detections, duration, settings.maxSlides())
	points := Select(merged, settings.minDuration(), settings.maxSlides())
	if len(points) == 0 {
		points = []float64{duration / 2}
	}

	frames, err := p.extractFrames(ctx, sourcePath, slidesDir, points, settings.Workers)
	if err != nil {
		return Manifest{}, fmt.Errorf("slides: %s: extract frames: %w", op, err)
	}
	p.report(progressExtract, "extract")

	if err := p.refineFrames(ctx, sourcePath, slidesDir, frames, settings.Workers); err != nil {
		log.WithError(err).Warn("refine pass failed, keeping original frames")
	}
	p.report(progressRefine, "refine")

	if settings.OCR {
		if err := p.ocrFrames(ctx, slidesDir, frames, settings.Workers); err != nil {
			log.WithError(err).Warn("ocr pass failed, continuing without text")
		}
	}
	p.report(progressOCR, "ocr")

	slideRecords := make([]Slide, len(frames))
	for i, f := range frames {
		slideRecords[i] = *f
	}

	manifest := Manifest{
		SourceID:    sourceID,
		Kind:        kind,
		URL:         url,
		SlidesDir:   slidesDir,
		SlidesDirID: slidesDirID,
		Settings:    settings.key(),
		Slides:      slideRecords,
	}
	if err := WriteManifest(manifest); err != nil {
		return Manifest{}, fmt.Errorf("slides: %s: write manifest: %w", op, err)
	}
	p.report(progressDone, "done")
	return manifest, nil
}

// dirIdentity derives a stable id for a slidesDir from its absolute,
// cleaned path, so a manifest copied or moved elsewhere is detected as
// invalid rather than silently trusted.
func dirIdentity(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return filepath.Clean(abs)
}

func (p *Pipeline) probeDuration(ctx context.Context, sourcePath string) (float64, error) {
	result, err := p.Scripts.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		sourcePath,
	)
	if err != nil {
		return 0, err
	}
	raw := strings.TrimSpace(string(result.Stdout))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", raw, err)
	}
	return duration, nil
}

func (p *Pipeline) sampleCalibrationFrames(ctx context.Context, sourcePath string, duration float64) ([]Hash, error) {
	timestamps := SampleTimestamps(duration, sampleCount(8))
	dir, err := os.MkdirTemp(p.TempDir, "calibrate-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	hashes := make([]Hash, len(timestamps))
	errs := forEachParallel(len(timestamps), 4, func(i int) error {
		framePath := filepath.Join(dir, fmt.Sprintf("calib-%03d.jpg", i))
		_, err := p.Scripts.Run(ctx, "ffmpeg",
			"-ss", fmt.Sprintf("%.3f", timestamps[i]),
			"-i", sourcePath,
			"-frames:v", "1",
			"-qscale:v", "4",
			framePath,
		)
		if err != nil {
			return err
		}
		h, err := HashFile(framePath)
		if err != nil {
			return err
		}
		hashes[i] = h
		return nil
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return hashes, nil
}

func (p *Pipeline) extractFrames(ctx context.Context, sourcePath, slidesDir string, points []float64, workers int) ([]*Slide, error) {
	frames := make([]*Slide, len(points))
	errs := forEachParallel(len(points), workers, func(i int) error {
		name := fmt.Sprintf("slide-%03d.jpg", i+1)
		dest := filepath.Join(slidesDir, name)
		_, err := p.Scripts.Run(ctx, "ffmpeg",
			"-ss", fmt.Sprintf("%.3f", points[i]),
			"-i", sourcePath,
			"-frames:v", "1",
			"-qscale:v", "2",
			"-y",
			dest,
		)
		if err != nil {
			return err
		}
		frames[i] = &Slide{Index: i + 1, TimestampSec: points[i], ImagePath: name}
		return nil
	})
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// refineFrames replaces dim thumbnails with a nearby better-scoring
// frame.
func (p *Pipeline) refineFrames(ctx context.Context, sourcePath, slidesDir string, frames []*Slide, workers int) error {
	errs := forEachParallel(len(frames), workers, func(i int) error {
		f := frames[i]
		isFirst := i == 0
		stats, err := p.signalStats(ctx, sourcePath, f.TimestampSec)
		if err != nil {
			return err
		}
		if !IsDim(stats, f.TimestampSec, isFirst) {
			return nil
		}

		originalScore := RefineScore(stats, 0)
		bestScore := originalScore
		bestOffset := 0.0
		bestStats := stats

		for _, offset := range CandidateOffsets {
			ts := f.TimestampSec + offset
			if ts < 0 {
				continue
			}
			candStats, err := p.signalStats(ctx, sourcePath, ts)
			if err != nil {
				continue
			}
			score := RefineScore(candStats, offset)
			if score > bestScore {
				bestScore = score
				bestOffset = offset
				bestStats = candStats
			}
		}

		if bestOffset == 0 || !AcceptReplacement(originalScore, bestScore, isFirst) {
			return nil
		}

		dest := filepath.Join(slidesDir, f.ImagePath)
		_, err = p.Scripts.Run(ctx, "ffmpeg",
			"-ss", fmt.Sprintf("%.3f", f.TimestampSec+bestOffset),
			"-i", sourcePath,
			"-frames:v", "1",
			"-qscale:v", "2",
			"-y",
			dest,
		)
		if err != nil {
			return err
		}
		_ = bestStats
		return nil
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// signalStats runs ffmpeg's signalstats filter on a single frame and
// parses out normalized brightness/contrast.
func (p *Pipeline) signalStats(ctx context.Context, sourcePath string, timestampSec float64) (FrameStats, error) {
	result, err := p.Scripts.Run(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", math.Max(0, timestampSec)),
		"-i", sourcePath,
		"-frames:v", "1",
		"-vf", "signalstats",
		"-f", "null",
		"-",
	)
	if err != nil {
		return FrameStats{}, err
	}
	return parseSignalStats(string(result.Stderr)), nil
}

// parseSignalStats extracts YAVG (brightness proxy) and the spread
// between YMAX and YMIN (contrast proxy) from ffmpeg's signalstats
// log lines, normalizing both to [0,1] over the 8-bit luma range.
func parseSignalStats(log string) FrameStats {
	var yavg, ymax, ymin float64
	for _, field := range strings.Fields(log) {
		switch {
		case strings.HasPrefix(field, "YAVG:"):
			yavg, _ = strconv.ParseFloat(strings.TrimPrefix(field, "YAVG:"), 64)
		case strings.HasPrefix(field, "YMAX:"):
			ymax, _ = strconv.ParseFloat(strings.TrimPrefix(field, "YMAX:"), 64)
		case strings.HasPrefix(field, "YMIN:"):
			ymin, _ = strconv.ParseFloat(strings.TrimPrefix(field, "YMIN:"), 64)
		}
	}
	return FrameStats{
		Brightness: clamp(yavg/255, 0, 1),
		Contrast:   clamp((ymax-ymin)/255, 0, 1),
	}
}

// ocrFrames runs tesseract over each slide image and attaches cleaned
// text plus a confidence estimate.
func (p *Pipeline) ocrFrames(ctx context.Context, slidesDir string, frames []*Slide, workers int) error {
	errs := forEachParallel(len(frames), workers, func(i int) error {
		f := frames[i]
		imgPath := f.ImagePath
		if !filepath.IsAbs(imgPath) {
			imgPath = filepath.Join(slidesDir, f.ImagePath)
		}
		result, err := p.Scripts.Run(ctx, "tesseract", imgPath, "stdout")
		if err != nil {
			return nil // OCR is best-effort; a failure just leaves text empty
		}
		lines := CleanOCRLines(string(result.Stdout))
		f.OCRText = strings.Join(lines, "\n")
		f.OCRConfidence = OCRConfidence(lines)
		return nil
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is a compact JSON-serializable view of in-progress slide
// extraction, served by the daemon's snapshot endpoint while a run is
// still in flight.
type Snapshot struct {
	SourceID string  `json:"sourceId"`
	Percent  int     `json:"percent"`
	Stage    string  `json:"stage"`
	Slides   []Slide `json:"slides,omitempty"`
}

// MarshalSnapshot renders a Snapshot the way the daemon's SSE/JSON
// endpoints expect it, with slides sorted by index.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	sorted := append([]Slide(nil), s.Slides...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })
	s.Slides = sorted
	return json.Marshal(s)
}
