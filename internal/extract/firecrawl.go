package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// firecrawlRequest/firecrawlResponse mirror the relevant slice of
// Firecrawl's /v1/scrape response (markdown-mode output only; this
// module never needs Firecrawl's structured-extraction fields).
type firecrawlRequest struct {
	URL          string   `json:"url"`
	Formats      []string `json:"formats"`
	OnlyMainText bool     `json:"onlyMainContent"`
}

type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

// fetchFirecrawl calls Firecrawl's scrape endpoint for a Markdown
// rendering of rawURL, used whenever Firecrawl mode is "always", or
// as an "auto" fallback when the fast HTML path fails or looks
// blocked.
func (e *Extractor) fetchFirecrawl(ctx context.Context, rawURL, apiKey string) (string, error) {
	payload, err := json.Marshal(firecrawlRequest{URL: rawURL, Formats: []string{"markdown"}, OnlyMainText: true})
	if err != nil {
		return "", fmt.Errorf("firecrawl: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.firecrawl.dev/v1/scrape", strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("firecrawl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("firecrawl: request: %w", err)
	}
	defer resp.Body.Close()

	var out firecrawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("firecrawl: decode response: %w", err)
	}
	if !out.Success {
		return "", fmt.Errorf("firecrawl: %s", out.Error)
	}
	return out.Data.Markdown, nil
}
