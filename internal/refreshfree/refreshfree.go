// Package refreshfree ranks free-tier models: fetch OpenRouter's
// catalog, keep ":free"-suffixed models meeting a minimum
// parameter-count heuristic and a maximum age, probe each a few times,
// and persist the survivors as the "free" preset's candidate list.
package refreshfree

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const catalogURL = "https://openrouter.ai/api/v1/models"

// CatalogModel is the subset of OpenRouter's /models response this
// package reads.
type CatalogModel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Created int64  `json:"created"` // unix seconds
}

type catalogResponse struct {
	Data []CatalogModel `json:"data"`
}

// FetchCatalog retrieves the full OpenRouter model catalog. No
// pack-grounded SDK method exists for this particular listing call
// (the revrost/go-openrouter client used elsewhere in this module
// targets chat completions, not catalog discovery), so this is a
// direct net/http GET against OpenRouter's public, unauthenticated
// models endpoint.
func FetchCatalog(ctx context.Context, client *http.Client) ([]CatalogModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return nil, fmt.Errorf("refreshfree: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refreshfree: fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refreshfree: catalog returned status %d", resp.StatusCode)
	}
	var parsed catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("refreshfree: decode catalog: %w", err)
	}
	return parsed.Data, nil
}

var paramPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*b\b`)

// ParamsBillions heuristically extracts a model's parameter count in
// billions from its name (e.g. "Llama 3.1 70B Instruct" -> 70). ok is
// false if no such token is found.
func ParamsBillions(name string) (float64, bool) {
	matches := paramPattern.FindAllStringSubmatch(name, -1)
	if len(matches) == 0 {
		return 0, false
	}
	// the largest b-suffixed number in the name is the parameter count
	// (names sometimes also mention a context length like "128k").
	best := 0.0
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v > best {
			best = v
		}
	}
	return best, best > 0
}

// DefaultMinParamsB is the default minimum parameter count.
const DefaultMinParamsB = 27.0

// DefaultMaxAgeDays is the default catalog-age cutoff; 0 disables the
// filter.
const DefaultMaxAgeDays = 180

// maxCandidates caps the filtered candidate list.
const maxCandidates = 10

// FilterFree keeps ":free" models meeting the minimum parameter count
// and maximum age, newest-created first, capped at 10.
func FilterFree(models []CatalogModel, minParamsB float64, maxAgeDays int, now time.Time) []CatalogModel {
	var cutoff time.Time
	if maxAgeDays > 0 {
		cutoff = now.Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	}

	var kept []CatalogModel
	for _, m := range models {
		if !strings.HasSuffix(m.ID, ":free") {
			continue
		}
		if params, ok := ParamsBillions(m.Name); ok && params < minParamsB {
			continue
		}
		if maxAgeDays > 0 {
			created := time.Unix(m.Created, 0)
			if created.Before(cutoff) {
				continue
			}
		}
		kept = append(kept, m)
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Created > kept[j].Created })
	if len(kept) > maxCandidates {
		kept = kept[:maxCandidates]
	}
	return kept
}

// ProbeResult is the outcome of probing one candidate.
type ProbeResult struct {
	ID      string
	Passed  bool
	Err     error
	Retried bool
}

// ProbeFunc issues one probe call against a candidate model, returning
// an error classified as rate-limited via IsRateLimited.
type ProbeFunc func(ctx context.Context, modelID string) error

// IsRateLimited reports whether err looks like a 429 from the probe
// call, by the common substrings providers use.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// minBackoff is the rate-limit backoff floor.
const minBackoff = 60 * time.Second

// sleepFunc is swapped out in tests to avoid a real 60-second sleep.
var sleepFunc = time.Sleep

// Probe runs 1+runs attempts against each candidate (so runs=1 means 2
// total attempts), backing off at least 60s and retrying exactly once
// on a rate-limit error, and advertising the backoff when verbose.
func Probe(ctx context.Context, candidates []CatalogModel, runs int, verbose bool, logger *logrus.Logger, probe ProbeFunc) []ProbeResult {
	total := 1 + runs
	results := make([]ProbeResult, 0, len(candidates))

	for _, c := range candidates {
		result := ProbeResult{ID: c.ID}
		rateLimitRetries := 0

		for attempt := 0; attempt < total; attempt++ {
			err := probe(ctx, c.ID)
			if err == nil {
				result.Passed = true
				break
			}
			if IsRateLimited(err) && rateLimitRetries == 0 {
				rateLimitRetries++
				result.Retried = true
				if verbose {
					logger.WithField("model", c.ID).Infof("rate limited, backing off %s before retrying once", minBackoff)
				}
				select {
				case <-ctx.Done():
					result.Err = ctx.Err()
					results = append(results, result)
					return results
				default:
					sleepFunc(minBackoff)
				}
				continue
			}
			result.Err = err
		}
		results = append(results, result)
	}
	return results
}

// Passing returns the candidate ids that passed at least one probe
// attempt, in the order of results.
func Passing(results []ProbeResult) []string {
	var ids []string
	for _, r := range results {
		if r.Passed {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
