package model

import (
	"errors"
	"strings"
	"testing"
)

func TestResolvePicksFirstCredentialedNonEmpty(t *testing.T) {
	candidates := []ID{Parse("openai/gpt-4o"), Parse("anthropic/claude-3-5-sonnet")}
	creds := map[string]bool{"anthropic": true}

	res, err := Resolve(candidates, "auto", func(p string) bool { return creds[p] }, func(id ID) (string, error) {
		return "hello from " + id.String(), nil
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Chosen.Provider != "anthropic" {
		t.Fatalf("Chosen = %+v", res.Chosen)
	}
}

func TestResolveSkipsEmptyOutput(t *testing.T) {
	candidates := []ID{Parse("openai/gpt-4o"), Parse("anthropic/claude-3-5-sonnet")}
	res, err := Resolve(candidates, "auto", func(string) bool { return true }, func(id ID) (string, error) {
		if id.Provider == "openai" {
			return "", nil
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Chosen.Provider != "anthropic" {
		t.Fatalf("Chosen = %+v", res.Chosen)
	}
}

func TestResolveAllFailHintsFreeRefresh(t *testing.T) {
	candidates := []ID{Parse("openrouter/a:free"), Parse("openrouter/b:free")}
	_, err := Resolve(candidates, "free", func(string) bool { return true }, func(id ID) (string, error) {
		return "", errors.New("rate limited")
	})
	if err == nil || !strings.Contains(err.Error(), "refresh-free") {
		t.Fatalf("expected refresh-free hint, got %v", err)
	}
}

func TestResolveNoCredentials(t *testing.T) {
	candidates := []ID{Parse("openai/gpt-4o")}
	_, err := Resolve(candidates, "auto", func(string) bool { return false }, func(id ID) (string, error) {
		t.Fatalf("generate should not be called without credentials")
		return "", nil
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
