// Package llm defines the small capability interface the orchestrator
// and extractor call generation through, with variants selected at
// init time. The request/response shapes reuse genkit's ai package so
// a provider implementation can be swapped for a genkit-registered
// model without changing callers.
package llm

import (
	"context"

	"github.com/firebase/genkit/go/ai"
)

// Usage mirrors genkit's ai.GenerationUsage but is never nil, so
// costbook can always read it (missing provider usage reports zeros,
// not a nil dereference).
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is the result of a non-streaming Generate call.
type Response struct {
	Text  string
	Usage Usage
}

// Chunk is one streamed delta.
type Chunk struct {
	Text string
}

// Client is the capability interface every provider backend
// implements. Generate performs a single request/response call;
// Stream returns a channel of deltas plus a function that blocks
// until the stream is drained and returns the final aggregated
// response (mirroring the generator.generate callback pattern the
// genkit OpenRouter plugin uses internally).
type Client interface {
	Generate(ctx context.Context, req *ai.ModelRequest) (*Response, error)
	Stream(ctx context.Context, req *ai.ModelRequest) (<-chan Chunk, func() (*Response, error))
}

// TextRequest builds a minimal single-user-message ai.ModelRequest,
// the common case for summarization and markdown-conversion calls.
func TextRequest(systemPrompt, userText string) *ai.ModelRequest {
	req := &ai.ModelRequest{}
	if systemPrompt != "" {
		req.Messages = append(req.Messages, &ai.Message{
			Role:    ai.RoleSystem,
			Content: []*ai.Part{ai.NewTextPart(systemPrompt)},
		})
	}
	req.Messages = append(req.Messages, &ai.Message{
		Role:    ai.RoleUser,
		Content: []*ai.Part{ai.NewTextPart(userText)},
	})
	return req
}

// TextOf concatenates the text parts of a genkit message into one
// flat string.
func TextOf(msg *ai.Message) string {
	if msg == nil {
		return ""
	}
	var out string
	for _, part := range msg.Content {
		if part.IsText() {
			out += part.Text
		}
	}
	return out
}
