package orchestrator

import (
	"strings"
	"testing"
)

func TestChunkTextWithinBudgetReturnsSingleChunk(t *testing.T) {
	chunks := chunkText("short text", 1000)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("expected a single unchanged chunk, got %v", chunks)
	}
}

func TestChunkTextSplitsOnParagraphBoundaries(t *testing.T) {
	text := "para one is here.\n\npara two is here.\n\npara three is here."
	chunks := chunkText(text, 25)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d: %v", len(chunks), chunks)
	}
	for _, c := range chunks {
		if len(c) > 25+2 {
			// allow a couple bytes slack for a joined boundary, but no chunk
			// should silently exceed the budget by a wide margin.
			t.Errorf("chunk exceeds budget: %q (%d bytes)", c, len(c))
		}
	}
}

func TestChunkTextHardSplitsOversizedParagraph(t *testing.T) {
	text := ""
	for i := 0; i < 100; i++ {
		text += "x"
	}
	chunks := chunkText(text, 10)
	if len(chunks) != 10 {
		t.Fatalf("expected 10 hard-split chunks of 10 bytes, got %d", len(chunks))
	}
}

func TestEstimateTokensRoughlyCharsOverFour(t *testing.T) {
	if got := estimateTokens("abcd"); got != 2 {
		t.Fatalf("estimateTokens(\"abcd\") = %d, want 2", got)
	}
}

func TestIsEmptySummaryWhitespaceOnly(t *testing.T) {
	if !isEmptySummary("   \n\t  ") {
		t.Error("expected whitespace-only summary to be empty")
	}
	if isEmptySummary("  text  ") {
		t.Error("expected non-whitespace summary to not be empty")
	}
}

func TestBuildSummaryPromptHonorsMaxCharactersAsHardLimit(t *testing.T) {
	prompt := buildSummaryPrompt(LengthMedium, "", "", 280)
	if !strings.Contains(prompt, "280 characters") {
		t.Fatalf("expected prompt to mention the hard character limit: %q", prompt)
	}
}
