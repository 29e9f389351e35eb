package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyFileRejectsNonObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`["not", "an", "object"]`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := applyFile(cfg, path); err == nil {
		t.Fatal("expected error for non-object top level")
	}
}

func TestApplyFileMergesCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"model": "anthropic/claude-sonnet", "cache": {"enabled": true, "maxMb": 10, "ttlDays": 1, "media": {"enabled": true, "maxMb": 5, "ttlDays": 1, "verify": "hash"}}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Default()
	if err := applyFile(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "anthropic/claude-sonnet" {
		t.Fatalf("Model = %q", cfg.Model)
	}
	if cfg.Cache.MaxMB != 10 || cfg.Cache.Media.Verify != VerifyHash {
		t.Fatalf("cache not merged: %+v", cfg.Cache)
	}
}

func TestProviderCredentialGoogleAliases(t *testing.T) {
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("GOOGLE_GENERATIVE_AI_API_KEY")
	t.Setenv("GOOGLE_API_KEY", "fallback-key")
	if got := ProviderCredential("google"); got != "fallback-key" {
		t.Fatalf("ProviderCredential(google) = %q", got)
	}

	t.Setenv("GEMINI_API_KEY", "primary-key")
	if got := ProviderCredential("google"); got != "primary-key" {
		t.Fatalf("ProviderCredential(google) with GEMINI_API_KEY set = %q", got)
	}
}

func TestParseTimeout(t *testing.T) {
	cases := map[string]int64{
		"30":     30_000_000_000,
		"30s":    30_000_000_000,
		"2m":     120_000_000_000,
		"5000ms": 5_000_000_000,
	}
	for in, want := range cases {
		got, err := ParseTimeout(in)
		if err != nil {
			t.Fatalf("ParseTimeout(%q): %v", in, err)
		}
		if int64(got) != want {
			t.Fatalf("ParseTimeout(%q) = %v, want %dns", in, got, want)
		}
	}
	if _, err := ParseTimeout(""); err == nil {
		t.Fatal("expected error for empty timeout")
	}
}

func TestSetFreePresetCandidatesCreatesRuleZero(t *testing.T) {
	cfg := Default()
	cfg.SetFreePresetCandidates([]string{"openrouter/a:free", "openrouter/b:free"})

	preset, ok := cfg.Models["free"]
	if !ok {
		t.Fatal("expected a free preset to be created")
	}
	if len(preset.Rules) != 1 || len(preset.Rules[0].Candidates) != 2 {
		t.Fatalf("got %+v", preset)
	}
}

func TestSaveThenLoadRoundTripsFreePreset(t *testing.T) {
	cfg := Default()
	cfg.HomeDir = t.TempDir()
	cfg.SetFreePresetCandidates([]string{"openrouter/a:free"})

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := Default()
	reloaded.HomeDir = cfg.HomeDir
	if err := applyFile(reloaded, reloaded.HomeDir+"/config.json"); err != nil {
		t.Fatalf("applyFile: %v", err)
	}
	if len(reloaded.Models["free"].Rules) != 1 || reloaded.Models["free"].Rules[0].Candidates[0] != "openrouter/a:free" {
		t.Fatalf("got %+v", reloaded.Models["free"])
	}
}
