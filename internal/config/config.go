// Package config loads and validates the summarize configuration,
// layering defaults, the ~/.summarize/config.json file, environment
// variables, and (applied by callers afterward) CLI flags — in that
// increasing order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// VerifyMode controls how the media cache validates a cached payload on
// read.
type VerifyMode string

const (
	VerifySize VerifyMode = "size"
	VerifyHash VerifyMode = "hash"
	VerifyNone VerifyMode = "none"
)

// FirecrawlMode controls whether the extractor consults Firecrawl.
type FirecrawlMode string

const (
	FirecrawlOff    FirecrawlMode = "off"
	FirecrawlAuto   FirecrawlMode = "auto"
	FirecrawlAlways FirecrawlMode = "always"
)

// MarkdownMode controls the HTML-to-Markdown fallback strategy.
type MarkdownMode string

const (
	MarkdownOff  MarkdownMode = "off"
	MarkdownAuto MarkdownMode = "auto"
	MarkdownLLM  MarkdownMode = "llm"
)

// Preset is a named model-selection rule set.
type Preset struct {
	Mode  string `json:"mode"`
	Rules []Rule `json:"rules"`
}

// Rule matches a pipeline kind to an ordered list of candidate model IDs.
type Rule struct {
	When       []string `json:"when,omitempty"`
	Candidates []string `json:"candidates"`
}

// MediaCacheConfig configures the file-backed media cache.
type MediaCacheConfig struct {
	Enabled bool       `json:"enabled"`
	MaxMB   int64      `json:"maxMb"`
	TTLDays int        `json:"ttlDays"`
	Path    string     `json:"path,omitempty"`
	Verify  VerifyMode `json:"verify"`
	Remote  RemoteConfig `json:"remote,omitempty"`
}

// RemoteConfig configures the optional S3-compatible mirror of cached
// media payloads.
type RemoteConfig struct {
	Enabled   bool   `json:"enabled"`
	Endpoint  string `json:"endpoint,omitempty"`
	Region    string `json:"region,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
}

// CacheConfig configures the metadata cache and nests the media cache.
type CacheConfig struct {
	Enabled bool             `json:"enabled"`
	MaxMB   int64            `json:"maxMb"`
	TTLDays int              `json:"ttlDays"`
	Path    string           `json:"path,omitempty"`
	Media   MediaCacheConfig `json:"media"`
}

// Config is the fully resolved, validated configuration.
type Config struct {
	Model    string            `json:"model,omitempty"`
	Models   map[string]Preset `json:"models,omitempty"`
	Language string            `json:"language,omitempty"`

	// ServiceRates gives each auxiliary (non-LLM) service named in a
	// costbook.ServiceHit a flat per-request USD rate, e.g.
	// {"firecrawl": 0.003}. A service with no entry here prices as
	// unknown rather than free.
	ServiceRates map[string]float64 `json:"serviceRates,omitempty"`

	AnthropicBaseURL       string `json:"-"`
	OpenAIBaseURL          string `json:"-"`
	OpenAIUseChatCompletions bool `json:"-"`

	Cache CacheConfig `json:"cache"`

	// Daemon settings, persisted separately in daemon.json but folded
	// into Config for convenience at runtime.
	DaemonPort  int    `json:"-"`
	DaemonToken string `json:"-"`

	// Process-level paths and timeouts.
	HomeDir string        `json:"-"`
	LogDir  string        `json:"-"`
	TempDir string        `json:"-"`

	ReadTimeout     time.Duration `json:"-"`
	WriteTimeout    time.Duration `json:"-"`
	IdleTimeout     time.Duration `json:"-"`
	RequestTimeout  time.Duration `json:"-"`
	ShutdownTimeout time.Duration `json:"-"`

	RateLimit RateLimitConfig `json:"-"`

	Slides SlidesConfig `json:"-"`

	FFmpegPath    string `json:"-"`
	FFprobePath   string `json:"-"`
	YTDLPPath     string `json:"-"`
	TesseractPath string `json:"-"`

	Version string `json:"-"`
	Debug   bool   `json:"-"`
}

// RateLimitConfig configures the daemon's per-IP token bucket.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
}

// SlidesConfig configures the slide-extraction pipeline's defaults.
type SlidesConfig struct {
	Workers      int
	Samples      int
	YtdlpFormat  string
	ExtractStream bool
}

// Default returns the built-in defaults, before any file or env layer
// is applied.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".summarize")
	return &Config{
		Language: "",
		Cache: CacheConfig{
			Enabled: true,
			MaxMB:   512,
			TTLDays: 30,
			Path:    filepath.Join(base, "cache.sqlite"),
			Media: MediaCacheConfig{
				Enabled: true,
				MaxMB:   2048,
				TTLDays: 7,
				Path:    filepath.Join(base, "cache", "media"),
				Verify:  VerifySize,
			},
		},
		HomeDir:         base,
		LogDir:          filepath.Join(base, "logs"),
		TempDir:         os.TempDir(),
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		RequestTimeout:  10 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
		Slides: SlidesConfig{
			Workers: 8,
			Samples: 8,
		},
		FFmpegPath:    "ffmpeg",
		FFprobePath:   "ffprobe",
		YTDLPPath:     "yt-dlp",
		TesseractPath: "tesseract",
		Version:       "dev",
	}
}

// Load builds the fully layered configuration: defaults, then
// ~/.summarize/config.json (if present), then environment variables.
// CLI flags are not handled here: each command applies its own flag
// values to the returned Config or request after Load returns.
func Load() (*Config, error) {
	cfg := Default()

	path := filepath.Join(cfg.HomeDir, "config.json")
	if err := applyFile(cfg, path); err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Reject a non-object top level.
	var probe interface{}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return fmt.Errorf("config file %s: top level must be a JSON object", path)
	}

	var onDisk struct {
		Model        string             `json:"model"`
		Models       map[string]Preset  `json:"models"`
		Language     string             `json:"language"`
		ServiceRates map[string]float64 `json:"serviceRates"`
		Cache        *CacheConfig       `json:"cache"`
		Anthropic struct {
			BaseURL string `json:"baseUrl"`
		} `json:"anthropic"`
		OpenAI struct {
			BaseURL             string `json:"baseUrl"`
			UseChatCompletions  bool   `json:"useChatCompletions"`
		} `json:"openai"`
	}
	if err := json.Unmarshal(data, &onDisk); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if onDisk.Model != "" {
		cfg.Model = onDisk.Model
	}
	if len(onDisk.Models) > 0 {
		if cfg.Models == nil {
			cfg.Models = map[string]Preset{}
		}
		for k, v := range onDisk.Models {
			cfg.Models[k] = v
		}
	}
	if onDisk.Language != "" {
		cfg.Language = onDisk.Language
	}
	if len(onDisk.ServiceRates) > 0 {
		if cfg.ServiceRates == nil {
			cfg.ServiceRates = map[string]float64{}
		}
		for k, v := range onDisk.ServiceRates {
			cfg.ServiceRates[k] = v
		}
	}
	if onDisk.Cache != nil {
		cfg.Cache = *onDisk.Cache
	}
	cfg.AnthropicBaseURL = onDisk.Anthropic.BaseURL
	cfg.OpenAIBaseURL = onDisk.OpenAI.BaseURL
	cfg.OpenAIUseChatCompletions = onDisk.OpenAI.UseChatCompletions

	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SUMMARIZE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("SUMMARIZE_VERSION"); v != "" {
		cfg.Version = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		cfg.AnthropicBaseURL = v
	}
	if v := os.Getenv("OPENAI_USE_CHAT_COMPLETIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.OpenAIUseChatCompletions = b
		}
	}
	if v := os.Getenv("FFMPEG_PATH"); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv("FFPROBE_PATH"); v != "" {
		cfg.FFprobePath = v
	}
	if v := os.Getenv("YT_DLP_PATH"); v != "" {
		cfg.YTDLPPath = v
	}
	if v := os.Getenv("TESSERACT_PATH"); v != "" {
		cfg.TesseractPath = v
	}
	if v := os.Getenv("SUMMARIZE_SLIDES_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Slides.Workers = n
		}
	}
	if v := os.Getenv("SUMMARIZE_SLIDES_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Slides.Samples = n
		}
	}
	if v := os.Getenv("SUMMARIZE_SLIDES_YTDLP_FORMAT"); v != "" {
		cfg.Slides.YtdlpFormat = v
	}
	if v := os.Getenv("SUMMARIZE_SLIDES_EXTRACT_STREAM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Slides.ExtractStream = b
		}
	}
}

// ProviderCredential resolves an API key for a provider from the
// environment, including the two aliases for Gemini.
func ProviderCredential(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "xai":
		return os.Getenv("XAI_API_KEY")
	case "google":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			return v
		}
		if v := os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY"); v != "" {
			return v
		}
		return os.Getenv("GOOGLE_API_KEY")
	case "openrouter":
		return os.Getenv("OPENROUTER_API_KEY")
	default:
		return ""
	}
}

func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{c.TempDir, "temp directory"},
		{filepath.Dir(c.Cache.Path), "cache directory"},
	}
	for _, p := range paths {
		if p.path == "" {
			continue
		}
		if err := os.MkdirAll(p.path, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxMB <= 0 {
		return fmt.Errorf("cache.maxMb must be positive")
	}
	switch c.Cache.Media.Verify {
	case VerifySize, VerifyHash, VerifyNone, "":
	default:
		return fmt.Errorf("cache.media.verify must be one of size|hash|none")
	}
	return nil
}

// SetFreePresetCandidates overwrites the "free" preset's first rule
// candidates, persisting the selection under
// models.free.rules[0].candidates.
func (c *Config) SetFreePresetCandidates(ids []string) {
	if c.Models == nil {
		c.Models = map[string]Preset{}
	}
	preset := c.Models["free"]
	preset.Mode = "auto"
	if len(preset.Rules) == 0 {
		preset.Rules = []Rule{{}}
	}
	preset.Rules[0].Candidates = ids
	c.Models["free"] = preset
}

// Save persists the subset of Config that round-trips through
// config.json (model/models/language/serviceRates/cache/anthropic/
// openai), the same shape applyFile reads back, atomically (temp file
// then rename).
func (c *Config) Save() error {
	onDisk := struct {
		Model        string             `json:"model,omitempty"`
		Models       map[string]Preset  `json:"models,omitempty"`
		Language     string             `json:"language,omitempty"`
		ServiceRates map[string]float64 `json:"serviceRates,omitempty"`
		Cache        CacheConfig        `json:"cache"`
		Anthropic struct {
			BaseURL string `json:"baseUrl,omitempty"`
		} `json:"anthropic,omitempty"`
		OpenAI struct {
			BaseURL            string `json:"baseUrl,omitempty"`
			UseChatCompletions bool   `json:"useChatCompletions,omitempty"`
		} `json:"openai,omitempty"`
	}{
		Model:        c.Model,
		Models:       c.Models,
		Language:     c.Language,
		ServiceRates: c.ServiceRates,
		Cache:        c.Cache,
	}
	onDisk.Anthropic.BaseURL = c.AnthropicBaseURL
	onDisk.OpenAI.BaseURL = c.OpenAIBaseURL
	onDisk.OpenAI.UseChatCompletions = c.OpenAIUseChatCompletions

	raw, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(c.HomeDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	dest := filepath.Join(c.HomeDir, "config.json")
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, dest)
}

// ParseTimeout parses a flag/env timeout value that may be given as a
// bare number of seconds ("30"), or with a unit suffix ("30s", "2m",
// "5000ms").
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timeout")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid timeout %q", s)
}
