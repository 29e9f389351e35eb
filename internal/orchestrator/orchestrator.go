// Package orchestrator sequences one summarize run: language
// resolution, classification, cache lookups, extraction, optional
// slide extraction, map-reduce summarization, and cost reporting. One
// job moves through several sequential stages plus a parallel
// side-channel for slides.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shaneholloman/summarize/internal/apperrors"
	"github.com/shaneholloman/summarize/internal/costbook"
	"github.com/shaneholloman/summarize/internal/extract"
	"github.com/shaneholloman/summarize/internal/language"
	"github.com/shaneholloman/summarize/internal/llm"
	"github.com/shaneholloman/summarize/internal/metacache"
	"github.com/shaneholloman/summarize/internal/model"
	"github.com/shaneholloman/summarize/internal/slides"
	"github.com/shaneholloman/summarize/internal/streammerge"
)

// Mode distinguishes a URL-driven run from a page already captured by
// a browser extension.
type Mode string

const (
	ModeURL  Mode = "url"
	ModePage Mode = "page"
)

// Request is one summarize job, shared by the HTTP API's POST body
// and the CLI's equivalent flags.
type Request struct {
	URL           string
	Mode          Mode
	Title         string
	Text          string // pre-extracted content, used when Mode == ModePage
	Truncated     bool
	Model         string
	Length        Length
	Language      string
	Prompt        string
	MaxCharacters int
	ExtractOnly   bool

	Slides         bool
	SlidesSettings slides.Settings
	// SlidesProgress, if set, receives progress snapshots from this
	// request's slides run in isolation from any other concurrent job
	// (the daemon uses this to serve the per-run snapshot endpoint).
	SlidesProgress func(slides.Snapshot)

	ExtractSettings extract.Settings
}

// Result is the outcome of a completed run.
type Result struct {
	FinalURL      string
	ExtractedText string
	ExtractSource string
	Summary       string
	ModelLabel    string
	Language      language.Resolved
	Warnings      []string
	Cost          costbook.Report
	Slides        *slides.Manifest
}

// ChunkSink receives progressive summary text as it is produced,
// mirroring the SSE "chunk" event. Nil is a valid no-op sink (the CLI
// one-shot path that only cares about the final Result).
type ChunkSink func(text string)

// SlidesDoneHook is invoked exactly once when the parallel slides
// side-channel finishes.
type SlidesDoneHook func(manifest *slides.Manifest, err error)

// Orchestrator holds the wiring shared across runs.
type Orchestrator struct {
	Extractor      *extract.Extractor
	Registry       *model.Registry
	Credentials    model.CredentialFunc
	NewClient      func(id model.ID) (llm.Client, error)
	SummaryCache   *metacache.Store
	Cost           *costbook.Book
	SlidesPipeline *slides.Pipeline
	Logger         *logrus.Logger

	// ChunkCharBudget bounds a single map-reduce chunk's character
	// count; defaults to roughly 6000 tokens worth of characters.
	ChunkCharBudget int
}

func (o *Orchestrator) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

func (o *Orchestrator) chunkBudget() int {
	if o.ChunkCharBudget > 0 {
		return o.ChunkCharBudget
	}
	return 24000
}

// Run executes one summarize job start to finish: extract, optionally
// kick off slides in parallel, summarize, cache, and report cost.
func (o *Orchestrator) Run(ctx context.Context, req Request, onChunk ChunkSink, onSlidesDone SlidesDoneHook) (*Result, error) {
	const op = "Orchestrator.Run"
	log := o.logger().WithField("op", op).WithField("url", req.URL)

	// Step 1: resolve language.
	lang := language.Resolve(req.Language)

	result := &Result{Language: lang, FinalURL: req.URL}

	// Step 2+3+4: classify and extract (the extractor itself handles
	// the embedded-video recursion and content-cache lookup).
	var extracted *extract.ExtractedContent
	if req.Mode == ModePage && req.Text != "" {
		extracted = &extract.ExtractedContent{FinalURL: req.URL, Text: req.Text, Title: req.Title, Source: "page"}
	} else {
		if req.ExtractOnly && req.Mode != ModeURL {
			return nil, apperrors.InvalidInput(op, nil, "extractOnly requires mode=url")
		}
		var err error
		extracted, err = o.Extractor.Extract(ctx, req.URL, req.ExtractSettings)
		if err != nil {
			return nil, apperrors.Internal(op, err, fmt.Sprintf("extraction failed for %s: %v", req.URL, err))
		}
	}
	result.FinalURL = extracted.FinalURL
	result.ExtractedText = extracted.Text
	result.ExtractSource = extracted.Source

	// Step 5: spawn slides in parallel, non-blocking.
	if req.Slides && o.SlidesPipeline != nil {
		o.spawnSlides(ctx, req, extracted, onSlidesDone)
	}

	// Step 6: extract-only short-circuit.
	if req.ExtractOnly {
		return result, nil
	}

	purpose := classifyPurpose(req.Mode, req.URL)

	candidates := o.Registry.Candidates(req.Model, purpose)
	if len(candidates) == 0 {
		return nil, apperrors.InvalidInput(op, nil, fmt.Sprintf("unknown model or preset %q", req.Model))
	}

	summary, chosen, err := o.summarize(ctx, extracted.Text, req, lang, onChunk, candidates)
	if err != nil {
		return nil, err
	}

	result.Summary = summary
	result.ModelLabel = model.DisplayLabel(req.Model, chosen)

	// Step 10: write SummaryCache; emit cost report.
	if o.SummaryCache != nil {
		key := summaryCacheKey(extracted.Text, req)
		_ = o.SummaryCache.Put(ctx, key, "summary", []byte(summary))
	}

	if o.Cost != nil {
		result.Cost = o.Cost.Summarize(o.Registry)
	}

	log.Info("run completed")
	return result, nil
}

func classifyPurpose(mode Mode, rawURL string) string {
	if mode == ModePage {
		return "website"
	}
	switch extract.Classify(rawURL) {
	case extract.KindYouTube:
		return "youtube"
	case extract.KindAsset:
		return "asset"
	default:
		return "website"
	}
}

func summaryCacheKey(content string, req Request) string {
	contentHash := metacache.ContentKey(content, "")
	promptHash := metacache.ContentKey(req.Prompt, "")
	return metacache.SummaryKey(contentHash, promptHash, req.Model, string(req.Length), req.Language)
}

// summarize consults the summary cache, then either a direct
// generate/stream call or chunked map-reduce, with the pre-flight
// token-cap refusal and the empty-summary retry.
func (o *Orchestrator) summarize(ctx context.Context, content string, req Request, lang language.Resolved, onChunk ChunkSink, candidates []model.ID) (string, model.ID, error) {
	const op = "Orchestrator.summarize"

	if o.SummaryCache != nil {
		key := summaryCacheKey(content, req)
		if cached, ok, err := o.SummaryCache.Get(ctx, key); err == nil && ok {
			if onChunk != nil {
				onChunk(string(cached))
			}
			return string(cached), candidates[0], nil
		}
	}

	var lastErr error
	for _, id := range candidates {
		if !o.Credentials(id.Provider) {
			lastErr = fmt.Errorf("no credentials configured for provider %q", id.Provider)
			continue
		}

		client, err := o.NewClient(id)
		if err != nil {
			lastErr = err
			continue
		}

		caps, _ := o.Registry.Capabilities(id)
		if caps.ContextWindow > 0 && estimateTokens(content) > caps.ContextWindow {
			return "", model.ID{}, apperrors.TooLarge(op, nil, fmt.Sprintf("input token count exceeds model cap for %s", id.String()))
		}

		summary, err := o.runSummarizeAttempt(ctx, client, id, content, req, lang, onChunk)
		if err != nil {
			lastErr = err
			continue
		}
		if isEmptySummary(summary) {
			// Step 9: retry an empty summary once before moving to the
			// next candidate.
			summary, err = o.runSummarizeAttempt(ctx, client, id, content, req, lang, onChunk)
			if err != nil || isEmptySummary(summary) {
				lastErr = fmt.Errorf("model %s: empty summary", id.String())
				continue
			}
		}
		return summary, id, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no candidates available")
	}
	return "", model.ID{}, apperrors.Unavailable(op, lastErr, fmt.Sprintf("summarization failed: %v", lastErr))
}

func (o *Orchestrator) runSummarizeAttempt(ctx context.Context, client llm.Client, id model.ID, content string, req Request, lang language.Resolved, onChunk ChunkSink) (string, error) {
	budget := o.chunkBudget()
	if len(content) <= budget {
		return o.summarizeDirect(ctx, client, id, content, req, lang, onChunk)
	}
	return o.summarizeMapReduce(ctx, client, id, content, req, lang, onChunk, budget)
}

// summarizeDirect issues a single streamed call for content that fits
// within one chunk.
func (o *Orchestrator) summarizeDirect(ctx context.Context, client llm.Client, id model.ID, content string, req Request, lang language.Resolved, onChunk ChunkSink) (string, error) {
	systemPrompt := buildSummaryPrompt(req.Length, languageInstruction(req.Language, lang), req.Prompt, req.MaxCharacters)
	wireReq := llm.TextRequest(systemPrompt, content)

	deltas, final := client.Stream(ctx, wireReq)
	var accumulated string
	for chunk := range deltas {
		accumulated = streammerge.MergeStreamingChunk(accumulated, chunk.Text)
		if onChunk != nil {
			onChunk(accumulated)
		}
	}
	resp, err := final()
	if err != nil {
		return "", err
	}

	o.recordCall(id, resp.Usage, costbook.PurposeSummary)

	text := accumulated
	if text == "" {
		text = resp.Text
	}
	return text, nil
}

// summarizeMapReduce runs chunked map-reduce: per-chunk notes via
// generate, then a final streamed merge pass.
func (o *Orchestrator) summarizeMapReduce(ctx context.Context, client llm.Client, id model.ID, content string, req Request, lang language.Resolved, onChunk ChunkSink, budget int) (string, error) {
	chunks := chunkText(content, budget)
	langInstruction := languageInstruction(req.Language, lang)

	notes := make([]string, len(chunks))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk string) {
			defer wg.Done()
			wireReq := llm.TextRequest(buildChunkNotesPrompt(langInstruction), chunk)
			resp, err := client.Generate(ctx, wireReq)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			notes[i] = resp.Text
			o.recordCall(id, resp.Usage, costbook.PurposeChunkNotes)
		}(i, chunk)
	}
	wg.Wait()
	if firstErr != nil {
		return "", firstErr
	}

	mergeInput := strings.Join(notes, "\n\n---\n\n")
	mergePrompt := buildMergePrompt(req.Length, langInstruction, req.Prompt, req.MaxCharacters)
	wireReq := llm.TextRequest(mergePrompt, mergeInput)

	deltas, final := client.Stream(ctx, wireReq)
	var accumulated string
	for chunk := range deltas {
		accumulated = streammerge.MergeStreamingChunk(accumulated, chunk.Text)
		if onChunk != nil {
			onChunk(accumulated)
		}
	}
	resp, err := final()
	if err != nil {
		return "", err
	}
	o.recordCall(id, resp.Usage, costbook.PurposeSummary)

	text := accumulated
	if text == "" {
		text = resp.Text
	}
	return text, nil
}

func languageInstruction(requested string, resolved language.Resolved) string {
	if requested == "" {
		return ""
	}
	if resolved.Known {
		return resolved.Label
	}
	return resolved.Label
}

func (o *Orchestrator) recordCall(id model.ID, usage llm.Usage, purpose costbook.Purpose) {
	if o.Cost == nil {
		return
	}
	prompt := usage.InputTokens
	completion := usage.OutputTokens
	total := prompt + completion
	o.Cost.RecordCall(costbook.LlmCall{
		Provider: id.Provider,
		Model:    id.Name,
		Usage:    costbook.Usage{Prompt: &prompt, Completion: &completion, Total: &total},
		Purpose:  purpose,
	})
}

// spawnSlides runs the slides pipeline on a separate goroutine, firing
// onSlidesDone exactly once.
func (o *Orchestrator) spawnSlides(ctx context.Context, req Request, extracted *extract.ExtractedContent, onSlidesDone SlidesDoneHook) {
	sourceID := slidesSourceID(req.URL, extracted.FinalURL)
	kind := classifyPurpose(req.Mode, req.URL)

	pipeline := o.SlidesPipeline
	if req.SlidesProgress != nil {
		// A per-job shallow copy so one run's progress callback never
		// races with another concurrent run sharing the same Pipeline.
		clone := *o.SlidesPipeline
		report := req.SlidesProgress
		clone.Progress = func(percent int, stage string) {
			report(slides.Snapshot{SourceID: sourceID, Percent: percent, Stage: stage})
		}
		pipeline = &clone
	}

	go func() {
		localPath, err := o.Extractor.ResolveLocalMedia(ctx, extracted.FinalURL)
		if err != nil {
			if onSlidesDone != nil {
				onSlidesDone(nil, err)
			}
			return
		}
		manifest, err := pipeline.Run(ctx, sourceID, kind, extracted.FinalURL, localPath, req.SlidesSettings)
		if onSlidesDone != nil {
			if err != nil {
				onSlidesDone(nil, err)
			} else {
				onSlidesDone(&manifest, nil)
			}
		}
	}()
}

// slidesSourceID derives a stable per-source directory name: the
// YouTube video id for YouTube sources, a content-derived hash
// otherwise, per the GLOSSARY's sourceId definition.
func slidesSourceID(originalURL, finalURL string) string {
	if id, ok := extract.YouTubeVideoID(originalURL); ok {
		return id
	}
	if id, ok := extract.YouTubeVideoID(finalURL); ok {
		return id
	}
	return metacache.ContentKey(finalURL, "slides-source-id")
}
