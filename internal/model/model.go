// Package model parses gateway-style model identifiers, resolves named
// presets to candidate lists, and looks up capability/pricing metadata.
// Small, but every cost and generation call threads through it.
package model

import (
	"strings"
)

// ID is a parsed gateway-style "provider/name" model identifier.
type ID struct {
	Provider string
	Name     string
	raw      string
}

// String returns the canonical "provider/name" form.
func (id ID) String() string {
	if id.raw != "" {
		return id.raw
	}
	return id.Provider + "/" + id.Name
}

// Parse splits a gateway-style model identifier on the first "/".
// Parsing is purely lexical: the provider is whatever precedes the
// first slash, the name is everything after it, verbatim. An input
// with no slash is treated as a bare name with an empty provider.
func Parse(raw string) ID {
	raw = strings.TrimSpace(raw)
	idx := strings.IndexByte(raw, '/')
	if idx < 0 {
		return ID{Provider: "", Name: raw, raw: raw}
	}
	return ID{Provider: raw[:idx], Name: raw[idx+1:], raw: raw}
}

// Pricing holds per-million-token rates. Fields are nil when unknown:
// a missing entry means no cost data is available, not that the rate
// is zero.
type Pricing struct {
	InputPerMTok  *float64
	OutputPerMTok *float64
}

// Capabilities describes what a model supports, used by the
// extractor and orchestrator to decide whether a model is eligible
// for a given call (e.g. markdown conversion, vision for slides OCR
// fallback).
type Capabilities struct {
	ContextWindow int
	SupportsTools bool
	SupportsImage bool
}

// Registry is a capability/pricing lookup keyed by model ID, plus the
// named presets ("free", "auto", user-defined) that resolve to an
// ordered candidate list.
type Registry struct {
	pricing      map[string]Pricing
	capabilities map[string]Capabilities
	presets      map[string]Preset
	serviceRates map[string]float64
}

// Preset is a named rule set: the first matching rule (by Purpose) is
// selected, and its Candidates are tried in order.
type Preset struct {
	Mode  string // "auto" is the only mode the built-in presets use today.
	Rules []Rule
}

// Rule restricts a candidate list to a set of purposes ("website",
// "asset", "youtube", ...). An empty When matches any purpose.
type Rule struct {
	When       []string
	Candidates []ID
}

func newf(v float64) *float64 { return &v }

// NewRegistry builds a Registry seeded with the built-in "free"/"auto"
// presets and no pricing entries. Callers
// merge config-supplied presets and pricing on top via Merge.
func NewRegistry() *Registry {
	r := &Registry{
		pricing:      map[string]Pricing{},
		capabilities: map[string]Capabilities{},
		presets:      map[string]Preset{},
		serviceRates: map[string]float64{},
	}
	r.presets["auto"] = Preset{
		Mode: "auto",
		Rules: []Rule{{
			Candidates: []ID{
				Parse("anthropic/claude-3-5-sonnet"),
				Parse("openai/gpt-4o"),
				Parse("google/gemini-1.5-pro"),
			},
		}},
	}
	r.presets["free"] = Preset{
		Mode:  "auto",
		Rules: []Rule{{Candidates: []ID{}}},
	}
	return r
}

// MergePricing overlays additional pricing entries, keyed by
// "provider/name" for an exact match or "name" for a provider-less
// fallback entry. Later calls take precedence on key collision.
func (r *Registry) MergePricing(entries map[string]Pricing) {
	for k, v := range entries {
		r.pricing[k] = v
	}
}

// MergePresets overlays or replaces named presets (config's
// models.<name> blocks, including the persisted models.free preset
// written by refresh-free).
func (r *Registry) MergePresets(presets map[string]Preset) {
	for k, v := range presets {
		r.presets[k] = v
	}
}

// MergeServiceRates overlays flat per-request USD rates for auxiliary
// (non-LLM) services, keyed by the same service name a costbook
// ServiceHit carries (e.g. "firecrawl"). Later calls take precedence
// on key collision.
func (r *Registry) MergeServiceRates(entries map[string]float64) {
	for k, v := range entries {
		r.serviceRates[k] = v
	}
}

// ServiceRate looks up the flat per-request rate for an auxiliary
// service. ok is false when no rate is configured, in which case the
// service's hits are unpriced (null, not free) rather than silently
// treated as zero cost.
func (r *Registry) ServiceRate(service string) (float64, bool) {
	rate, ok := r.serviceRates[service]
	return rate, ok
}

// SetCapabilities registers capability metadata for an exact model ID.
func (r *Registry) SetCapabilities(id ID, caps Capabilities) {
	r.capabilities[id.String()] = caps
}

// Capabilities looks up capability metadata for an exact model ID. ok
// is false when nothing is registered.
func (r *Registry) Capabilities(id ID) (Capabilities, bool) {
	c, ok := r.capabilities[id.String()]
	return c, ok
}

// Price looks up pricing for id. The lookup is two-tier: try the exact
// "provider/name" key, then fall back to the provider-less "name" key.
// Pricing fields are nil, not zero, when neither key matches a given
// rate.
func (r *Registry) Price(id ID) Pricing {
	if p, ok := r.pricing[id.String()]; ok {
		return p
	}
	if p, ok := r.pricing[id.Name]; ok {
		return p
	}
	return Pricing{}
}

// Preset looks up a named preset ("free", "auto", or user-defined).
func (r *Registry) Preset(name string) (Preset, bool) {
	p, ok := r.presets[name]
	return p, ok
}

// Candidates resolves a raw --model value into an ordered candidate
// list for the given purpose. A value containing "/" that does not
// name a registered preset is treated as a literal single-candidate
// model ID (so "openrouter/mistral-7b" always wins over an
// accidentally-shadowing preset name, since presets are looked up by
// exact full string first).
func (r *Registry) Candidates(rawModel string, purpose string) []ID {
	if preset, ok := r.presets[rawModel]; ok {
		return candidatesForPurpose(preset, purpose)
	}
	return []ID{Parse(rawModel)}
}

func candidatesForPurpose(preset Preset, purpose string) []ID {
	for _, rule := range preset.Rules {
		if len(rule.When) == 0 || containsString(rule.When, purpose) {
			return rule.Candidates
		}
	}
	return nil
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// IsPreset reports whether name resolves to a registered preset
// rather than a literal model ID.
func (r *Registry) IsPreset(name string) bool {
	_, ok := r.presets[name]
	return ok
}

// DisplayLabel is the model label metrics render: echo the
// user-supplied id verbatim if it is already a full "provider/name"
// id, otherwise fall back to the resolved candidate's canonical
// provider/name.
func DisplayLabel(requested string, resolved ID) string {
	if strings.Contains(requested, "/") {
		return requested
	}
	return resolved.String()
}
