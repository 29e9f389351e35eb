package daemonhttp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaneholloman/summarize/internal/apperrors"
	"github.com/shaneholloman/summarize/internal/orchestrator"
	"github.com/shaneholloman/summarize/internal/slides"
	"github.com/shaneholloman/summarize/internal/streammerge"
)

// summarizeRequestBody is the POST /v1/summarize request body.
type summarizeRequestBody struct {
	URL           string `json:"url"`
	Mode          string `json:"mode"`
	Title         string `json:"title,omitempty"`
	Text          string `json:"text,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
	Model         string `json:"model,omitempty"`
	Length        string `json:"length,omitempty"`
	Language      string `json:"language,omitempty"`
	Prompt        string `json:"prompt,omitempty"`
	MaxCharacters int    `json:"maxCharacters,omitempty"`
	ExtractOnly   bool   `json:"extractOnly,omitempty"`

	Slides    bool `json:"slides,omitempty"`
	SlidesOCR bool `json:"slidesOcr,omitempty"`
}

// handleCreateSummarize accepts a job and returns {ok, id} immediately;
// the run itself proceeds on its own goroutine, its progress observable
// through the SSE events endpoint keyed by the returned id.
func (s *Server) handleCreateSummarize(w http.ResponseWriter, r *http.Request) {
	var body summarizeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, apperrors.InvalidInput("handleCreateSummarize", err, "invalid JSON body"))
		return
	}

	mode := orchestrator.Mode(body.Mode)
	if mode == "" {
		mode = orchestrator.ModeURL
	}
	if body.ExtractOnly && mode != orchestrator.ModeURL {
		respondError(w, apperrors.InvalidInput("handleCreateSummarize", nil, "extractOnly requires mode=url"))
		return
	}
	if body.URL == "" && body.Text == "" {
		respondError(w, apperrors.InvalidInput("handleCreateSummarize", nil, "one of url or text is required"))
		return
	}

	id := uuid.New().String()
	run := s.Bus.StartRun(id)
	job := s.jobs.start(id)

	req := orchestrator.Request{
		URL:           body.URL,
		Mode:          mode,
		Title:         body.Title,
		Text:          body.Text,
		Truncated:     body.Truncated,
		Model:         body.Model,
		Length:        orchestrator.Length(body.Length),
		Language:      body.Language,
		Prompt:        body.Prompt,
		MaxCharacters: body.MaxCharacters,
		ExtractOnly:   body.ExtractOnly,
		Slides:        body.Slides,
		SlidesSettings: slides.Settings{
			OCR: body.SlidesOCR,
		},
		SlidesProgress: job.setSnapshot,
	}

	go s.runJob(id, run, job, req)

	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// runJob drives one orchestrator.Run call, translating its callbacks
// and outcome into the run's SSE event log.
func (s *Server) runJob(id string, run *streammerge.Run, job *jobState, req orchestrator.Request) {
	onChunk := func(text string) {
		run.Append(streammerge.Event{Name: streammerge.EventChunk, Data: streammerge.ChunkData{Text: text}})
	}
	onSlidesDone := func(manifest *slides.Manifest, err error) {
		job.setDone(manifest, err)
		if err != nil {
			run.Append(streammerge.Event{Name: streammerge.EventError, Data: streammerge.ErrorData{Message: err.Error()}})
			return
		}
		run.Append(streammerge.Event{Name: streammerge.EventSlides, Data: manifest})
	}

	// The HTTP request that accepted this job has already returned by
	// the time this goroutine runs its course, so the run carries its
	// own background context rather than the (by-then-canceled)
	// request context; every external call inside Run still enforces
	// its own per-stage timeout.
	result, err := s.Orchestrator.Run(context.Background(), req, onChunk, onSlidesDone)
	if err != nil {
		run.Append(streammerge.Event{Name: streammerge.EventError, Data: streammerge.ErrorData{Message: apperrors.Message(err)}})
		run.Append(streammerge.Event{Name: streammerge.EventDone, Data: streammerge.DoneData{}})
		return
	}
	run.Append(streammerge.Event{Name: streammerge.EventStatus, Data: result})
	run.Append(streammerge.Event{Name: streammerge.EventDone, Data: streammerge.DoneData{}})
}

// handleEvents serves the SSE subscription for a run's events, per spec
// §4.6: replay the existing log, then stream live appends until done.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, ok := s.Bus.Run(id)
	if !ok {
		respondError(w, apperrors.NotFound("handleEvents", nil, "unknown run id"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, apperrors.Internal("handleEvents", nil, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := run.Subscribe()
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := streammerge.WriteSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
