// Package costbook is a run-scoped, append-only ledger of LLM calls
// and auxiliary-service hits. It sums token usage and dollar cost per
// (provider, model), preserving "unknown" as null rather than coercing
// it to zero, since a missing price or usage figure is not the same
// fact as a real zero.
package costbook

import (
	"fmt"
	"sync"

	"github.com/shaneholloman/summarize/internal/model"
)

// Purpose classifies why a call was made.
type Purpose string

const (
	PurposeSummary      Purpose = "summary"
	PurposeChunkNotes   Purpose = "chunk-notes"
	PurposeMarkdown     Purpose = "markdown"
	PurposeAssetSummary Purpose = "asset-summary"
)

// Usage holds token counts. Any field is nil when the provider never
// reported it, distinct from a true zero.
type Usage struct {
	Prompt     *int
	Completion *int
	Total      *int
}

// LlmCall is one booked generation call.
type LlmCall struct {
	Provider string
	Model    string
	Usage    Usage
	Purpose  Purpose
}

// ServiceHit counts one call to an auxiliary (non-LLM) service, e.g.
// Firecrawl, yt-dlp, or OCR invocations.
type ServiceHit struct {
	Service string
	Count   int
	Cost    *float64
}

// Row is one aggregated (provider, model) line in a Report.
type Row struct {
	Provider string
	Model    string
	Calls    int
	Usage    Usage
	Cost     *float64
}

// Report is the final rendering-ready summary produced by Summarize.
type Report struct {
	Rows         []Row
	Services     []ServiceHit
	TotalCost    *float64
}

// Book is the append-only, mutex-guarded ledger for a single run.
type Book struct {
	mu       sync.Mutex
	calls    []LlmCall
	services map[string]int
}

// New returns an empty Book.
func New() *Book {
	return &Book{services: map[string]int{}}
}

// RecordCall appends one LlmCall. Safe for concurrent use.
func (b *Book) RecordCall(call LlmCall) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

// RecordService increments the hit counter for an auxiliary service.
func (b *Book) RecordService(service string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.services[service]++
}

func addNullable(a, b *int) *int {
	if a == nil && b == nil {
		return nil
	}
	sum := 0
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// Summarize groups booked calls by (provider, model), sums usage
// preserving null (a column's sum is null unless at least one call
// contributed a real number), and prices each row and each recorded
// service hit via registry. Total cost is null unless at least one row
// or service contributed a real cost.
func (b *Book) Summarize(registry *model.Registry) Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	type key struct{ provider, model string }
	order := []key{}
	rows := map[key]*Row{}

	for _, call := range b.calls {
		k := key{call.Provider, call.Model}
		row, ok := rows[k]
		if !ok {
			row = &Row{Provider: call.Provider, Model: call.Model}
			rows[k] = row
			order = append(order, k)
		}
		row.Calls++
		row.Usage.Prompt = addNullable(row.Usage.Prompt, call.Usage.Prompt)
		row.Usage.Completion = addNullable(row.Usage.Completion, call.Usage.Completion)
		row.Usage.Total = addNullable(row.Usage.Total, call.Usage.Total)
	}

	var total *float64
	out := make([]Row, 0, len(order))
	for _, k := range order {
		row := rows[k]
		row.Cost = priceRow(registry, k.provider, k.model, row.Usage)
		if row.Cost != nil {
			if total == nil {
				zero := 0.0
				total = &zero
			}
			*total += *row.Cost
		}
		out = append(out, *row)
	}

	var services []ServiceHit
	for name, count := range b.services {
		hit := ServiceHit{Service: name, Count: count}
		if registry != nil {
			if rate, ok := registry.ServiceRate(name); ok {
				cost := rate * float64(count)
				hit.Cost = &cost
				if total == nil {
					zero := 0.0
					total = &zero
				}
				*total += cost
			}
		}
		services = append(services, hit)
	}

	return Report{Rows: out, Services: services, TotalCost: total}
}

func priceRow(registry *model.Registry, provider, modelName string, usage Usage) *float64 {
	if registry == nil || usage.Prompt == nil && usage.Completion == nil {
		return nil
	}
	pricing := registry.Price(model.Parse(provider + "/" + modelName))
	if pricing.InputPerMTok == nil && pricing.OutputPerMTok == nil {
		return nil
	}
	cost := 0.0
	if usage.Prompt != nil && pricing.InputPerMTok != nil {
		cost += float64(*usage.Prompt) / 1e6 * *pricing.InputPerMTok
	}
	if usage.Completion != nil && pricing.OutputPerMTok != nil {
		cost += float64(*usage.Completion) / 1e6 * *pricing.OutputPerMTok
	}
	return &cost
}

// FormatCost renders a cost value for display: "<$0.01" when the
// computed cost is positive but rounds to "$0.00" at 2 decimals, and
// never more than 2 decimals otherwise. A nil cost renders as "n/a".
func FormatCost(cost *float64) string {
	if cost == nil {
		return "n/a"
	}
	if *cost > 0 && *cost < 0.005 {
		return "<$0.01"
	}
	return fmt.Sprintf("$%.2f", *cost)
}
