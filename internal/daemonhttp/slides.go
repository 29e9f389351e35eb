package daemonhttp

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shaneholloman/summarize/internal/apperrors"
	"github.com/shaneholloman/summarize/internal/slides"
)

// handleSlideImage serves a single extracted slide image, enforcing
// that the resolved path is inside the configured slides directory —
// the same escape check slides.ValidateManifest applies before
// trusting a cached manifest.
func (s *Server) handleSlideImage(w http.ResponseWriter, r *http.Request) {
	sourceID := r.PathValue("sourceId")
	indexRaw := r.PathValue("index")

	index, err := strconv.Atoi(indexRaw)
	if err != nil {
		respondError(w, apperrors.InvalidInput("handleSlideImage", err, "index must be an integer"))
		return
	}

	slidesDir := filepath.Join(s.SlidesDir, sourceID)
	manifest, ok := slides.ReadManifest(slidesDir)
	if !ok {
		respondError(w, apperrors.NotFound("handleSlideImage", nil, "no slides manifest for this source"))
		return
	}

	var slide *slides.Slide
	for i := range manifest.Slides {
		if manifest.Slides[i].Index == index {
			slide = &manifest.Slides[i]
			break
		}
	}
	if slide == nil {
		respondError(w, apperrors.NotFound("handleSlideImage", nil, "no slide at that index"))
		return
	}

	abs := filepath.Join(slidesDir, slide.ImagePath)
	rel, err := filepath.Rel(slidesDir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		respondError(w, apperrors.InvalidInput("handleSlideImage", nil, "resolved image path escapes the slides directory"))
		return
	}

	http.ServeFile(w, r, abs)
}

// handleSlidesSnapshot returns the current in-progress snapshot, or the
// final manifest once the run's slides side-channel has completed.
func (s *Server) handleSlidesSnapshot(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runId")

	job, ok := s.jobs.get(runID)
	if !ok {
		respondError(w, apperrors.NotFound("handleSlidesSnapshot", nil, "unknown run id"))
		return
	}

	snapshot, manifest, err := job.read()
	if err != nil {
		respondError(w, apperrors.Internal("handleSlidesSnapshot", err, "slides extraction failed"))
		return
	}
	if manifest != nil {
		respondJSON(w, http.StatusOK, manifest)
		return
	}

	raw, marshalErr := slides.MarshalSnapshot(snapshot)
	if marshalErr != nil {
		respondError(w, apperrors.Internal("handleSlidesSnapshot", marshalErr, "failed to encode snapshot"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
