package model

import "testing"

func TestParse(t *testing.T) {
	id := Parse("openrouter/mistral-7b-instruct:free")
	if id.Provider != "openrouter" || id.Name != "mistral-7b-instruct:free" {
		t.Fatalf("Parse = %+v", id)
	}
	if id.String() != "openrouter/mistral-7b-instruct:free" {
		t.Fatalf("String() = %q", id.String())
	}
}

func TestParseNoSlash(t *testing.T) {
	id := Parse("bare-name")
	if id.Provider != "" || id.Name != "bare-name" {
		t.Fatalf("Parse = %+v", id)
	}
}

func TestPriceTwoTierFallback(t *testing.T) {
	r := NewRegistry()
	r.MergePricing(map[string]Pricing{
		"gpt-4o":             {InputPerMTok: newf(5), OutputPerMTok: newf(15)},
		"openai/gpt-4o-mini": {InputPerMTok: newf(0.15), OutputPerMTok: newf(0.6)},
	})

	exact := r.Price(Parse("openai/gpt-4o-mini"))
	if exact.InputPerMTok == nil || *exact.InputPerMTok != 0.15 {
		t.Fatalf("exact lookup = %+v", exact)
	}

	fallback := r.Price(Parse("anthropic/gpt-4o"))
	if fallback.InputPerMTok == nil || *fallback.InputPerMTok != 5 {
		t.Fatalf("provider-less fallback = %+v", fallback)
	}

	unknown := r.Price(Parse("openai/does-not-exist"))
	if unknown.InputPerMTok != nil {
		t.Fatalf("unknown price should be nil, got %+v", unknown)
	}
}

func TestDisplayLabel(t *testing.T) {
	if got := DisplayLabel("openrouter/mistral-7b", Parse("openrouter/mistral-7b")); got != "openrouter/mistral-7b" {
		t.Fatalf("DisplayLabel full id = %q", got)
	}
	if got := DisplayLabel("auto", Parse("anthropic/claude-3-5-sonnet")); got != "anthropic/claude-3-5-sonnet" {
		t.Fatalf("DisplayLabel preset fallback = %q", got)
	}
}

func TestCandidatesPresetVsLiteral(t *testing.T) {
	r := NewRegistry()
	got := r.Candidates("auto", "website")
	if len(got) == 0 {
		t.Fatalf("expected auto preset candidates")
	}

	literal := r.Candidates("openrouter/mistral-7b-instruct:free", "website")
	if len(literal) != 1 || literal[0].Provider != "openrouter" {
		t.Fatalf("literal candidate = %+v", literal)
	}
}
