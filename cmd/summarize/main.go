// Command summarize is the one-shot CLI entrypoint: point it at a URL
// (or pipe a page's extracted text via --text) and it prints a
// summary, optionally streaming it chunk by chunk. Package-level flag
// parsing, a single linear run function, and os.Exit(1) on a fatal
// error rather than a layered command tree.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shaneholloman/summarize/internal/appwiring"
	"github.com/shaneholloman/summarize/internal/config"
	"github.com/shaneholloman/summarize/internal/costbook"
	"github.com/shaneholloman/summarize/internal/extract"
	"github.com/shaneholloman/summarize/internal/llm"
	"github.com/shaneholloman/summarize/internal/logging"
	"github.com/shaneholloman/summarize/internal/model"
	"github.com/shaneholloman/summarize/internal/orchestrator"
	"github.com/shaneholloman/summarize/internal/refreshfree"
	"github.com/shaneholloman/summarize/internal/runtimectx"
	"github.com/shaneholloman/summarize/internal/slides"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "refresh-free" {
		runRefreshFree(os.Args[2:])
		return
	}

	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	model_ := fs.String("model", "", "model id or preset name (default: config's configured model)")
	length := fs.String("length", "medium", "summary length: short|medium|xl|xxl")
	language := fs.String("language", "", "target language for the summary")
	streamMode := fs.String("stream", "auto", "chunked output: auto|on|off")
	render := fs.String("render", "plain", "output rendering: plain|markdown")
	text := fs.String("text", "", "pre-extracted page text (implies mode=page)")
	title := fs.String("title", "", "page title, used with --text")
	extractFlag := fs.Bool("extract", false, "also run extraction diagnostics")
	extractOnly := fs.Bool("extract-only", false, "stop after extraction, skip summarization (requires a URL)")
	jsonOut := fs.Bool("json", false, "print the full result as JSON instead of plain text")
	metrics := fs.String("metrics", "off", "cost/usage report: off|on|detailed")
	firecrawl := fs.String("firecrawl", "auto", "Firecrawl fallback: off|auto|always")
	markdown := fs.String("markdown", "auto", "HTML-to-Markdown fallback: off|auto|llm")
	timeoutFlag := fs.String("timeout", "", "per-run timeout, e.g. 30s, 2m, 5000ms, or a bare number of seconds")
	maxOutputTokens := fs.Int("max-output-tokens", 0, "hard cap on generated characters (0 = no cap)")
	slidesFlag := fs.Bool("slides", false, "extract slides alongside the summary")
	slidesSceneThreshold := fs.Float64("slides-scene-threshold", 0, "scene-change sensitivity override (0 = pipeline default)")
	slidesOCR := fs.Bool("slides-ocr", false, "run OCR over extracted slides")
	noCache := fs.Bool("no-cache", false, "bypass the transcript/content/summary cache")
	noMediaCache := fs.Bool("no-media-cache", false, "bypass the media cache")
	cacheStats := fs.Bool("cache-stats", false, "print cache sizes and exit")
	clearCache := fs.Bool("clear-cache", false, "delete all cached data and exit")
	showVersion := fs.Bool("version", false, "print the version and exit")
	fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("invalid configuration: %v", err)
	}
	cfg.Version = version

	logger, err := logging.New(logging.Options{LogDir: cfg.LogDir, Level: "warn"})
	if err != nil {
		fatalf("failed to initialize logger: %v", err)
	}

	if *cacheStats {
		printCacheStats(cfg)
		return
	}
	if *clearCache {
		if err := clearCacheFiles(cfg); err != nil {
			fatalf("failed to clear cache: %v", err)
		}
		fmt.Println("cache cleared")
		return
	}

	app, err := appwiring.Build(cfg, logger)
	if err != nil {
		fatalf("failed to wire dependencies: %v", err)
	}
	defer app.Close()

	if *noCache {
		app.Orchestrator.SummaryCache = nil
	}
	if *noMediaCache {
		app.Orchestrator.Extractor.Media = nil
	}

	req, err := buildRequest(fs.Args(), requestFlags{
		model:                 *model_,
		length:                *length,
		language:              *language,
		text:                  *text,
		title:                 *title,
		extractOnly:           *extractOnly,
		firecrawl:             *firecrawl,
		markdown:              *markdown,
		maxOutputTokens:       *maxOutputTokens,
		slides:                *slidesFlag,
		slidesSceneThreshold:  *slidesSceneThreshold,
		slidesOCR:             *slidesOCR,
		slidesDir:             app.SlidesDir,
	})
	if err != nil {
		fatalf("%v", err)
	}
	if req.Model == "" {
		req.Model = cfg.Model
	}

	ctx := context.Background()
	if *timeoutFlag != "" {
		d, err := config.ParseTimeout(*timeoutFlag)
		if err != nil {
			fatalf("invalid --timeout: %v", err)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	streaming := *streamMode == "on" || (*streamMode == "auto" && !*jsonOut)

	var onChunk orchestrator.ChunkSink
	if streaming && !req.ExtractOnly {
		last := ""
		onChunk = func(text string) {
			fmt.Print(strings.TrimPrefix(text, last))
			last = text
		}
	}

	result, err := app.Orchestrator.Run(ctx, req, onChunk, nil)
	if err != nil {
		fatalf("summarize failed: %v", err)
	}

	if *extractFlag {
		fmt.Fprintf(os.Stderr, "extracted %d character(s) via %s from %s\n", len(result.ExtractedText), result.ExtractSource, result.FinalURL)
	}

	if streaming && !req.ExtractOnly {
		fmt.Println()
	} else if !req.ExtractOnly {
		fmt.Println(renderBody(result.Summary, *render))
	}

	if *jsonOut {
		printJSON(result)
	}
	if *metrics != "off" {
		printMetrics(result.Cost, *metrics == "detailed")
	}
}

type requestFlags struct {
	model                string
	length               string
	language             string
	text                 string
	title                string
	extractOnly          bool
	firecrawl            string
	markdown             string
	maxOutputTokens      int
	slides               bool
	slidesSceneThreshold float64
	slidesOCR            bool
	slidesDir            string
}

// buildRequest assembles an orchestrator.Request from the positional
// URL argument (or --text for an already-extracted page) and the
// parsed flags.
func buildRequest(args []string, f requestFlags) (orchestrator.Request, error) {
	req := orchestrator.Request{
		Model:         f.model,
		Length:        orchestrator.Length(f.length),
		Language:      f.language,
		ExtractOnly:   f.extractOnly,
		MaxCharacters: f.maxOutputTokens,
		ExtractSettings: extract.Settings{
			Firecrawl: extract.FirecrawlMode(f.firecrawl),
			Markdown:  extract.MarkdownMode(f.markdown),
		},
	}

	if f.text != "" {
		if f.extractOnly {
			return req, fmt.Errorf("--extract-only requires a URL (it cannot be combined with --text)")
		}
		req.Mode = orchestrator.ModePage
		req.Text = f.text
		req.Title = f.title
		if len(args) > 0 {
			req.URL = args[0]
		}
		return req, nil
	}

	if len(args) == 0 {
		return req, fmt.Errorf("a URL is required (or pass --text for an already-extracted page)")
	}
	req.Mode = orchestrator.ModeURL
	req.URL = args[0]

	if f.slides {
		req.Slides = true
		req.SlidesSettings = slides.Settings{
			OCR:         f.slidesOCR,
			OutputDir:   f.slidesDir,
			MinDuration: f.slidesSceneThreshold,
		}
	}
	return req, nil
}

func renderBody(text, mode string) string {
	if mode == "markdown" {
		return text
	}
	return stripMarkdown(text)
}

// stripMarkdown removes the common inline/block markdown markup for
// --render=plain. No pack-grounded markdown-to-plain-text library
// exists in the retrieved examples (html-to-markdown in go.mod runs
// the opposite direction), so this is a small, deliberately narrow
// regex pass rather than a full parser.
var (
	mdHeading  = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBold     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic   = regexp.MustCompile(`\*([^*]+)\*`)
	mdBullet   = regexp.MustCompile(`(?m)^[-*]\s+`)
)

func stripMarkdown(text string) string {
	text = mdHeading.ReplaceAllString(text, "")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdBullet.ReplaceAllString(text, "- ")
	return text
}

func printJSON(result *orchestrator.Result) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(result)
}

func printMetrics(report costbook.Report, detailed bool) {
	fmt.Fprintln(os.Stderr, "---")
	for _, row := range report.Rows {
		fmt.Fprintf(os.Stderr, "%s/%s: %d call(s), cost %s\n", row.Provider, row.Model, row.Calls, costbook.FormatCost(row.Cost))
		if detailed {
			fmt.Fprintf(os.Stderr, "  prompt=%s completion=%s total=%s\n", formatNullableInt(row.Usage.Prompt), formatNullableInt(row.Usage.Completion), formatNullableInt(row.Usage.Total))
		}
	}
	for _, svc := range report.Services {
		fmt.Fprintf(os.Stderr, "%s: %d call(s)\n", svc.Service, svc.Count)
	}
	fmt.Fprintf(os.Stderr, "total cost: %s\n", costbook.FormatCost(report.TotalCost))
}

func formatNullableInt(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}

func printCacheStats(cfg *config.Config) {
	files := []struct {
		label string
		path  string
	}{
		{"transcripts", filepath.Join(cfg.HomeDir, "transcripts.sqlite")},
		{"content", filepath.Join(cfg.HomeDir, "content.sqlite")},
		{"summaries", cfg.Cache.Path},
	}
	for _, f := range files {
		info, err := os.Stat(f.path)
		if err != nil {
			fmt.Printf("%s: empty\n", f.label)
			continue
		}
		fmt.Printf("%s: %.2f MB (%s)\n", f.label, float64(info.Size())/1e6, f.path)
	}
	mediaSize, mediaCount := dirStats(cfg.Cache.Media.Path)
	fmt.Printf("media: %.2f MB across %d file(s) (%s)\n", float64(mediaSize)/1e6, mediaCount, cfg.Cache.Media.Path)
}

func dirStats(dir string) (totalBytes int64, count int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() {
			continue
		}
		totalBytes += info.Size()
		count++
	}
	return totalBytes, count
}

func clearCacheFiles(cfg *config.Config) error {
	paths := []string{
		filepath.Join(cfg.HomeDir, "transcripts.sqlite"),
		filepath.Join(cfg.HomeDir, "content.sqlite"),
		cfg.Cache.Path,
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	if err := os.RemoveAll(cfg.Cache.Media.Path); err != nil {
		return err
	}
	return os.MkdirAll(cfg.Cache.Media.Path, 0o755)
}

// runRefreshFree implements the "summarize refresh-free" subcommand:
// fetch OpenRouter's catalog, filter to free models meeting the
// size/age thresholds, probe each, and persist the survivors as the
// "free" preset's candidates.
func runRefreshFree(args []string) {
	fs := flag.NewFlagSet("refresh-free", flag.ExitOnError)
	runs := fs.Int("runs", 1, "additional probe attempts beyond the first")
	minParams := fs.Float64("min-params", refreshfree.DefaultMinParamsB, "minimum parameter count in billions")
	maxAgeDays := fs.Int("max-age-days", refreshfree.DefaultMaxAgeDays, "maximum catalog age in days (0 disables)")
	verbose := fs.Bool("verbose", false, "log each probe attempt, including backoffs")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		fatalf("invalid configuration: %v", err)
	}
	logger, err := logging.New(logging.Options{LogDir: cfg.LogDir, Level: "info"})
	if err != nil {
		fatalf("failed to initialize logger: %v", err)
	}

	rc := runtimectx.FromEnvironment(cfg.TempDir)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	catalog, err := refreshfree.FetchCatalog(ctx, rc.Client)
	if err != nil {
		fatalf("failed to fetch OpenRouter catalog: %v", err)
	}

	candidates := refreshfree.FilterFree(catalog, *minParams, *maxAgeDays, rc.Now())
	if len(candidates) == 0 {
		fmt.Println("no candidates matched the free-model filter")
		return
	}

	newClient := appwiring.NewLLMClientFactory(cfg)
	probe := func(ctx context.Context, modelID string) error {
		client, err := newClient(model.Parse("openrouter/" + modelID))
		if err != nil {
			return err
		}
		_, err = client.Generate(ctx, llm.TextRequest(`respond with the single word "ok"`, "ping"))
		return err
	}

	results := refreshfree.Probe(ctx, candidates, *runs, *verbose, logger, probe)
	passing := refreshfree.Passing(results)
	if len(passing) == 0 {
		fmt.Println("no candidates passed probing")
		return
	}

	ids := make([]string, len(passing))
	for i, name := range passing {
		ids[i] = "openrouter/" + name
	}
	cfg.SetFreePresetCandidates(ids)
	if err := cfg.Save(); err != nil {
		fatalf("failed to persist config: %v", err)
	}

	fmt.Printf("refreshed models.free.rules[0].candidates with %d model(s):\n", len(ids))
	for _, id := range ids {
		fmt.Println("  " + id)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "summarize: "+format+"\n", args...)
	os.Exit(1)
}
