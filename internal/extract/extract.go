package extract

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/shaneholloman/summarize/internal/llm"
	"github.com/shaneholloman/summarize/internal/mediacache"
	"github.com/shaneholloman/summarize/internal/metacache"
	"github.com/shaneholloman/summarize/internal/scriptrun"
)

// FirecrawlMode controls when the Firecrawl fallback is consulted.
type FirecrawlMode string

const (
	FirecrawlOff    FirecrawlMode = "off"
	FirecrawlAuto   FirecrawlMode = "auto"
	FirecrawlAlways FirecrawlMode = "always"
)

// MarkdownMode controls HTML-to-Markdown conversion.
type MarkdownMode string

const (
	MarkdownOff  MarkdownMode = "off"
	MarkdownAuto MarkdownMode = "auto"
	MarkdownLLM  MarkdownMode = "llm"
)

// Settings are the per-call extraction options.
type Settings struct {
	Firecrawl    FirecrawlMode
	Markdown     MarkdownMode
	ExtractOnly  bool
	FirecrawlKey string
}

// ExtractedContent is the extractor's output.
type ExtractedContent struct {
	FinalURL    string
	Text        string
	Title       string
	Language    string
	Source      string // "html", "firecrawl", "markdown-llm", "markdown-structural", "file", "content-cache", "youtube-transcript", "media-transcription"
	Diagnostics []string
}

// Extractor runs the input-classification and content-extraction
// strategy chain: YouTube transcript, asset transcription, or website
// HTML/Markdown/Firecrawl extraction, depending on what the input
// resolves to.
type Extractor struct {
	HTTPClient  *http.Client
	Transcripts *metacache.Store
	Content     *metacache.Store
	Media       *mediacache.Cache
	Scripts     *scriptrun.Runner
	LLM         llm.Client
	ModelName   string
	Logger      *logrus.Logger

	// MaxRecursionDepth bounds the embedded-video recursion so a
	// malicious or malformed page can't loop forever.
	MaxRecursionDepth int
}

func (e *Extractor) logger() *logrus.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.StandardLogger()
}

// Extract is the entry point: classify, then run the matching
// strategy, recursing at most once into an embedded YouTube video.
func (e *Extractor) Extract(ctx context.Context, rawURL string, settings Settings) (*ExtractedContent, error) {
	return e.extractDepth(ctx, rawURL, settings, 0)
}

func (e *Extractor) extractDepth(ctx context.Context, rawURL string, settings Settings, depth int) (*ExtractedContent, error) {
	const op = "Extractor.Extract"
	log := e.logger().WithField("op", op).WithField("url", rawURL)

	maxDepth := e.MaxRecursionDepth
	if maxDepth <= 0 {
		maxDepth = 1
	}

	switch Classify(rawURL) {
	case KindYouTube:
		return e.extractYouTube(ctx, rawURL, settings)
	case KindAsset:
		return e.extractAsset(ctx, rawURL, settings)
	case KindFile:
		return e.extractFile(rawURL)
	default:
		content, recurseURL, err := e.extractWebsite(ctx, rawURL, settings)
		if err != nil {
			return nil, err
		}
		if recurseURL != "" && depth < maxDepth {
			log.WithField("embedded_video", recurseURL).Info("recursing into embedded youtube video")
			return e.extractDepth(ctx, recurseURL, settings, depth+1)
		}
		return content, nil
	}
}

func (e *Extractor) extractFile(rawPath string) (*ExtractedContent, error) {
	path := strings.TrimPrefix(rawPath, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read file: %w", err)
	}
	return &ExtractedContent{
		FinalURL: rawPath,
		Text:     collapseWhitespace(string(data)),
		Title:    filepath.Base(path),
		Source:   "file",
	}, nil
}

// extractWebsite fetches HTML and runs the Markdown/Firecrawl/article
// extraction fallback chain. It returns a non-empty recurseURL when
// the page has no text but references a single embedded YouTube
// video.
func (e *Extractor) extractWebsite(ctx context.Context, rawURL string, settings Settings) (*ExtractedContent, string, error) {
	const op = "Extractor.extractWebsite"
	log := e.logger().WithField("op", op).WithField("url", rawURL)
	var diagnostics []string

	cacheKey := metacache.ContentKey(rawURL, string(settings.Firecrawl)+"|"+string(settings.Markdown))
	if e.Content != nil {
		if cached, ok, err := e.Content.Get(ctx, cacheKey); err == nil && ok {
			return &ExtractedContent{FinalURL: rawURL, Text: string(cached), Source: "content-cache"}, "", nil
		}
	}

	if settings.Firecrawl == FirecrawlAlways && settings.FirecrawlKey != "" {
		if text, err := e.fetchFirecrawl(ctx, rawURL, settings.FirecrawlKey); err == nil {
			return e.finishWebsite(ctx, rawURL, rawURL, text, "firecrawl", cacheKey, diagnostics)
		} else {
			diagnostics = append(diagnostics, fmt.Sprintf("firecrawl(always): %v", err))
		}
	}

	page, err := fetchHTML(ctx, e.httpClient(), rawURL)
	if err != nil {
		diagnostics = append(diagnostics, fmt.Sprintf("fetch: %v", err))
		if settings.Firecrawl != FirecrawlOff && settings.FirecrawlKey != "" {
			if text, fcErr := e.fetchFirecrawl(ctx, rawURL, settings.FirecrawlKey); fcErr == nil {
				return e.finishWebsite(ctx, rawURL, rawURL, text, "firecrawl", cacheKey, diagnostics)
			}
		}
		return nil, "", fmt.Errorf("extract: %s: all strategies failed: %w", op, err)
	}

	text, artErr := articleText(page.HTML)
	if artErr != nil {
		diagnostics = append(diagnostics, fmt.Sprintf("article parse: %v", artErr))
	}

	if text == "" {
		if embedded, ok := embeddedYouTubeURL(page.HTML); ok {
			log.Info("page has no text; recursing into embedded video")
			return nil, embedded, nil
		}
	}

	if looksBlocked(text) && settings.Firecrawl != FirecrawlOff && settings.FirecrawlKey != "" {
		if fcText, fcErr := e.fetchFirecrawl(ctx, rawURL, settings.FirecrawlKey); fcErr == nil {
			return e.finishWebsite(ctx, page.FinalURL, rawURL, fcText, "firecrawl", cacheKey, diagnostics)
		} else {
			diagnostics = append(diagnostics, fmt.Sprintf("firecrawl(fallback): %v", fcErr))
		}
	}

	wantMarkdown := settings.Markdown == MarkdownLLM || (settings.Markdown == MarkdownAuto && looksBlocked(text))
	if wantMarkdown {
		if settings.Markdown == MarkdownLLM && e.LLM != nil {
			md, mdErr := e.convertMarkdownViaLLM(ctx, page.HTML)
			if mdErr == nil {
				return e.finishWebsite(ctx, page.FinalURL, rawURL, md, "markdown-llm", cacheKey, diagnostics)
			}
			diagnostics = append(diagnostics, fmt.Sprintf("markdown-llm: %v", mdErr))
		} else if md, mdErr := convertToMarkdown(page.HTML); mdErr == nil {
			return e.finishWebsite(ctx, page.FinalURL, rawURL, md, "markdown-structural", cacheKey, diagnostics)
		}
	}

	if text == "" {
		return nil, "", fmt.Errorf("extract: %s: no extractable content found for %s", op, rawURL)
	}

	return e.finishWebsite(ctx, page.FinalURL, rawURL, text, "html", cacheKey, diagnostics)
}

func (e *Extractor) finishWebsite(ctx context.Context, finalURL, originalURL, text, source, cacheKey string, diagnostics []string) (*ExtractedContent, string, error) {
	if e.Content != nil {
		_ = e.Content.Put(ctx, cacheKey, "content", []byte(text))
	}
	return &ExtractedContent{
		FinalURL:    finalURL,
		Text:        text,
		Source:      source,
		Diagnostics: diagnostics,
	}, "", nil
}

func (e *Extractor) convertMarkdownViaLLM(ctx context.Context, rawHTML string) (string, error) {
	req := llm.TextRequest(
		"Convert the given HTML into clean Markdown. Preserve headings, lists, and links. Output only the Markdown.",
		rawHTML,
	)
	resp, err := e.LLM.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (e *Extractor) httpClient() *http.Client {
	if e.HTTPClient != nil {
		return e.HTTPClient
	}
	return http.DefaultClient
}
