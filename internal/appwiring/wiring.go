// Package appwiring builds the shared object graph (caches, extractor,
// slides pipeline, model registry, LLM client factory, orchestrator)
// both cmd/summarize and cmd/summarized need, constructed once and
// handed to whichever entrypoint is running.
package appwiring

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shaneholloman/summarize/internal/config"
	"github.com/shaneholloman/summarize/internal/costbook"
	"github.com/shaneholloman/summarize/internal/extract"
	"github.com/shaneholloman/summarize/internal/mediacache"
	"github.com/shaneholloman/summarize/internal/mediacache/remote"
	"github.com/shaneholloman/summarize/internal/metacache"
	"github.com/shaneholloman/summarize/internal/model"
	"github.com/shaneholloman/summarize/internal/orchestrator"
	"github.com/shaneholloman/summarize/internal/scriptrun"
	"github.com/shaneholloman/summarize/internal/slides"
)

// App bundles the fully wired object graph.
type App struct {
	Config       *config.Config
	Registry     *model.Registry
	Orchestrator *orchestrator.Orchestrator
	Cost         *costbook.Book
	Transcripts  *metacache.Store
	Content      *metacache.Store
	Summaries    *metacache.Store
	Media        *mediacache.Cache
	Logger       *logrus.Logger
	// SlidesDir is the base directory slides.Settings.OutputDir should
	// point at for every request this App handles.
	SlidesDir string

	closers []func() error
}

// Close releases every cache/db handle opened during Build, in the
// reverse order they were acquired.
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Build wires every internal package into one App, opening the
// on-disk caches (cache.sqlite, cache/media) and slides output
// directory under cfg.HomeDir.
func Build(cfg *config.Config, logger *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	now := time.Now

	transcripts, err := metacache.Open(filepath.Join(cfg.HomeDir, "transcripts.sqlite"), metacache.DefaultConfig(), now)
	if err != nil {
		return nil, fmt.Errorf("appwiring: open transcript cache: %w", err)
	}
	app.Transcripts = transcripts
	app.closers = append(app.closers, transcripts.Close)

	content, err := metacache.Open(filepath.Join(cfg.HomeDir, "content.sqlite"), metacache.DefaultConfig(), now)
	if err != nil {
		return nil, fmt.Errorf("appwiring: open content cache: %w", err)
	}
	app.Content = content
	app.closers = append(app.closers, content.Close)

	summaryCfg := metacache.DefaultConfig()
	summaries, err := metacache.Open(cfg.Cache.Path, summaryCfg, now)
	if err != nil {
		return nil, fmt.Errorf("appwiring: open summary cache: %w", err)
	}
	app.Summaries = summaries
	app.closers = append(app.closers, summaries.Close)

	mediaVerify := mediacache.Verify(cfg.Cache.Media.Verify)
	media, err := mediacache.Open(
		cfg.Cache.Media.Path,
		cfg.Cache.Media.MaxMB*1024*1024,
		time.Duration(cfg.Cache.Media.TTLDays)*24*time.Hour,
		mediaVerify,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("appwiring: open media cache: %w", err)
	}
	app.Media = media

	if cfg.Cache.Media.Remote.Enabled {
		mirror, err := remote.New(context.Background(), remote.Config{
			Endpoint:  cfg.Cache.Media.Remote.Endpoint,
			Region:    cfg.Cache.Media.Remote.Region,
			Bucket:    cfg.Cache.Media.Remote.Bucket,
			AccessKey: cfg.Cache.Media.Remote.AccessKey,
			SecretKey: cfg.Cache.Media.Remote.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("appwiring: configure remote media mirror: %w", err)
		}
		media.Mirror = mirror
		media.MirrorErrors = func(err error) { logger.WithError(err).Warn("remote media mirror upload failed") }
	}

	scripts := scriptrun.NewRunner(map[string]string{
		"ffmpeg":    cfg.FFmpegPath,
		"ffprobe":   cfg.FFprobePath,
		"yt-dlp":    cfg.YTDLPPath,
		"tesseract": cfg.TesseractPath,
	}, logger)

	registry := model.NewRegistry()
	registry.MergePresets(presetsFromConfig(cfg))
	registry.MergeServiceRates(cfg.ServiceRates)
	app.Registry = registry

	newClient := NewLLMClientFactory(cfg)

	extractor := &extract.Extractor{
		HTTPClient:  &http.Client{Timeout: cfg.RequestTimeout},
		Transcripts: transcripts,
		Content:     content,
		Media:       media,
		Scripts:     scripts,
		Logger:      logger,
	}

	slidesOutputDir := filepath.Join(cfg.HomeDir, "slides")
	pipeline := &slides.Pipeline{
		Scripts: scripts,
		Media:   media,
		TempDir: cfg.TempDir,
		Logger:  logger,
	}

	cost := costbook.New()
	app.Cost = cost

	app.Orchestrator = &orchestrator.Orchestrator{
		Extractor:      extractor,
		Registry:       registry,
		Credentials:    func(provider string) bool { return config.ProviderCredential(provider) != "" },
		NewClient:      newClient,
		SummaryCache:   summaries,
		Cost:           cost,
		SlidesPipeline: pipeline,
		Logger:         logger,
	}
	app.SlidesDir = slidesOutputDir

	return app, nil
}

func presetsFromConfig(cfg *config.Config) map[string]model.Preset {
	presets := map[string]model.Preset{}
	for name, p := range cfg.Models {
		rules := make([]model.Rule, len(p.Rules))
		for i, r := range p.Rules {
			ids := make([]model.ID, len(r.Candidates))
			for j, c := range r.Candidates {
				ids[j] = model.Parse(c)
			}
			rules[i] = model.Rule{When: r.When, Candidates: ids}
		}
		presets[name] = model.Preset{Mode: p.Mode, Rules: rules}
	}
	return presets
}
