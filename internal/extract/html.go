package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// fetchedPage is the raw result of an HTML GET, before any extraction
// strategy has run over it.
type fetchedPage struct {
	FinalURL string // post-redirect URL.
	HTML     string
}

func fetchHTML(ctx context.Context, client *http.Client, rawURL string) (fetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fetchedPage{}, fmt.Errorf("extract: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; summarize/1.0)")

	resp, err := client.Do(req)
	if err != nil {
		return fetchedPage{}, fmt.Errorf("extract: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fetchedPage{}, fmt.Errorf("extract: fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20*1024*1024))
	if err != nil {
		return fetchedPage{}, fmt.Errorf("extract: read body: %w", err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return fetchedPage{FinalURL: finalURL, HTML: string(body)}, nil
}

// sanitizer strips unsafe/irrelevant markup before any text extraction
// touches the document, grounded on the widely-used bluemonday policy
// pattern (no pack example exercises it directly; see DESIGN.md).
var sanitizer = bluemonday.UGCPolicy()

// articleText parses raw HTML into "article-ish" plain text: strip
// script/style/nav/footer, walk the remaining text nodes, collapse
// whitespace. This is the fast, LLM-free extraction path tried before
// any Firecrawl or markdown-LLM fallback.
func articleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("extract: parse html: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	skip := map[string]bool{"script": true, "style": true, "nav": true, "footer": true, "header": true, "noscript": true}
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skip[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	// Strip any residual markup (e.g. a raw "<" the tokenizer treated
	// as text on a malformed page) before the result is treated as
	// plain text downstream.
	return collapseWhitespace(sanitizer.Sanitize(sb.String())), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// looksBlocked is a heuristic for "extraction yields too little or
// looks blocked": very short output, or output dominated by known
// bot-wall phrasing.
func looksBlocked(text string) bool {
	if len(text) < 200 {
		return true
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{"enable javascript", "verify you are human", "checking your browser"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// markdownConverter wraps html-to-markdown/v2, grounded on the
// hazyhaar-chrc veille pipeline's converter.NewConverter wiring, used
// for the `--markdown llm`-adjacent "structural" conversion path: HTML
// whose tag structure is still informative enough that a pure
// converter (rather than an LLM call) can produce usable Markdown.
var markdownConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

func convertToMarkdown(rawHTML string) (string, error) {
	out, err := markdownConverter.ConvertString(rawHTML)
	if err != nil {
		return "", fmt.Errorf("extract: convert html to markdown: %w", err)
	}
	return out, nil
}

// embeddedYouTubeURL finds a page that has no extractable text but
// references a single embedded YouTube video (via
// <meta property="og:video"> or an <iframe> youtube src), so it can be
// recursed into as a YouTube URL.
func embeddedYouTubeURL(rawHTML string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", false
	}

	var found string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var isVideo bool
				var content string
				for _, a := range n.Attr {
					if a.Key == "property" && (a.Val == "og:video" || a.Val == "og:video:url") {
						isVideo = true
					}
					if a.Key == "content" {
						content = a.Val
					}
				}
				if isVideo && content != "" {
					if _, ok := YouTubeVideoID(content); ok {
						found = content
					}
				}
			case "iframe":
				for _, a := range n.Attr {
					if a.Key == "src" {
						if _, ok := YouTubeVideoID(a.Val); ok {
							found = a.Val
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil && found == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if found == "" {
		return "", false
	}
	return found, true
}
