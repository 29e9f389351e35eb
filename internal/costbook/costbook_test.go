package costbook

import (
	"testing"

	"github.com/shaneholloman/summarize/internal/model"
)

func intp(v int) *int { return &v }

func TestSummarizeGroupsByProviderModel(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "anthropic", Model: "claude-3-5-sonnet", Purpose: PurposeSummary,
		Usage: Usage{Prompt: intp(1000), Completion: intp(200)}})
	b.RecordCall(LlmCall{Provider: "anthropic", Model: "claude-3-5-sonnet", Purpose: PurposeChunkNotes,
		Usage: Usage{Prompt: intp(500), Completion: intp(100)}})

	registry := model.NewRegistry()
	five := 5.0
	fifteen := 15.0
	registry.MergePricing(map[string]model.Pricing{
		"anthropic/claude-3-5-sonnet": {InputPerMTok: &five, OutputPerMTok: &fifteen},
	})

	report := b.Summarize(registry)
	if len(report.Rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(report.Rows))
	}
	row := report.Rows[0]
	if row.Calls != 2 || *row.Usage.Prompt != 1500 || *row.Usage.Completion != 300 {
		t.Fatalf("row = %+v", row)
	}
	wantCost := 1500.0/1e6*5 + 300.0/1e6*15
	if row.Cost == nil || *row.Cost != wantCost {
		t.Fatalf("cost = %v, want %v", row.Cost, wantCost)
	}
}

func TestSummarizeNullPreservation(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-4o", Usage: Usage{Prompt: intp(100)}})
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-4o", Usage: Usage{}})

	report := b.Summarize(model.NewRegistry())
	row := report.Rows[0]
	if row.Usage.Prompt == nil || *row.Usage.Prompt != 100 {
		t.Fatalf("Prompt = %v", row.Usage.Prompt)
	}
	if row.Usage.Completion != nil {
		t.Fatalf("Completion should stay null, got %v", row.Usage.Completion)
	}
}

func TestSummarizeUnknownPricingYieldsNullCost(t *testing.T) {
	b := New()
	b.RecordCall(LlmCall{Provider: "openai", Model: "gpt-4o", Usage: Usage{Prompt: intp(100), Completion: intp(10)}})

	report := b.Summarize(model.NewRegistry())
	if report.Rows[0].Cost != nil {
		t.Fatalf("Cost = %v, want nil for unpriced model", report.Rows[0].Cost)
	}
	if report.TotalCost != nil {
		t.Fatalf("TotalCost = %v, want nil", report.TotalCost)
	}
}

func TestFormatCost(t *testing.T) {
	tiny := 0.001
	cases := []struct {
		cost *float64
		want string
	}{
		{nil, "n/a"},
		{&tiny, "<$0.01"},
	}
	zero := 1.2345
	cases = append(cases, struct {
		cost *float64
		want string
	}{&zero, "$1.23"})

	for _, c := range cases {
		if got := FormatCost(c.cost); got != c.want {
			t.Fatalf("FormatCost(%v) = %q, want %q", c.cost, got, c.want)
		}
	}
}
