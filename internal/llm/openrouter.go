package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/firebase/genkit/go/ai"
	"github.com/revrost/go-openrouter"
)

// OpenRouterClient is a Client backed by github.com/revrost/go-openrouter,
// grounded on the request/response translation the genkit OpenRouter
// plugin performs (antflydb-antfly-go/openrouter-genkit), minus the
// genkit action-registration machinery this module doesn't need: the
// orchestrator calls providers directly through the Client interface
// rather than through a genkit model registry.
type OpenRouterClient struct {
	client *openrouter.Client
	model  string
}

var roleMapping = map[ai.Role]string{
	ai.RoleUser:   openrouter.ChatMessageRoleUser,
	ai.RoleModel:  openrouter.ChatMessageRoleAssistant,
	ai.RoleSystem: openrouter.ChatMessageRoleSystem,
	ai.RoleTool:   openrouter.ChatMessageRoleTool,
}

// NewOpenRouterClient builds a client for one model name (the
// provider-native name, without the "openrouter/" prefix). siteName
// and siteURL set OpenRouter's identifying headers for usage
// attribution; either may be empty.
func NewOpenRouterClient(apiKey, model, siteName, siteURL string) *OpenRouterClient {
	var opts []openrouter.Option
	if siteName != "" {
		opts = append(opts, openrouter.WithXTitle(siteName))
	}
	if siteURL != "" {
		opts = append(opts, openrouter.WithHTTPReferer(siteURL))
	}
	return &OpenRouterClient{
		client: openrouter.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (c *OpenRouterClient) convertMessages(messages []*ai.Message) ([]openrouter.ChatCompletionMessage, error) {
	var out []openrouter.ChatCompletionMessage
	for _, msg := range messages {
		role := roleMapping[msg.Role]
		if role == "" {
			role = openrouter.ChatMessageRoleUser
		}
		var text string
		for _, part := range msg.Content {
			if part.IsText() {
				text += part.Text
			}
		}
		out = append(out, openrouter.ChatCompletionMessage{
			Role:    role,
			Content: openrouter.Content{Text: text},
		})
	}
	return out, nil
}

// Generate performs a single non-streaming chat completion.
func (c *OpenRouterClient) Generate(ctx context.Context, req *ai.ModelRequest) (*Response, error) {
	messages, err := c.convertMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("llm: convert messages: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: openrouter request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm: openrouter response had no choices")
	}

	out := &Response{Text: resp.Choices[0].Message.Content.Text}
	if resp.Usage != nil {
		out.Usage = Usage{InputTokens: resp.Usage.PromptTokens, OutputTokens: resp.Usage.CompletionTokens}
	}
	return out, nil
}

// Stream performs a streaming chat completion. The returned channel
// is closed when the stream ends (successfully or on error); callers
// must invoke the returned final-response function to observe a
// stream error or to get the aggregated Response. That Response
// carries the concatenated text only; its Usage is left zero, as no
// token counts are read from the stream.
func (c *OpenRouterClient) Stream(ctx context.Context, req *ai.ModelRequest) (<-chan Chunk, func() (*Response, error)) {
	out := make(chan Chunk)
	done := make(chan struct{})
	var final *Response
	var finalErr error

	go func() {
		defer close(out)
		defer close(done)

		messages, err := c.convertMessages(req.Messages)
		if err != nil {
			finalErr = fmt.Errorf("llm: convert messages: %w", err)
			return
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, openrouter.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
			Stream:   true,
		})
		if err != nil {
			finalErr = fmt.Errorf("llm: openrouter stream request: %w", err)
			return
		}
		defer stream.Close()

		var text string
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				finalErr = fmt.Errorf("llm: stream recv: %w", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			text += delta
			select {
			case out <- Chunk{Text: delta}:
			case <-ctx.Done():
				finalErr = ctx.Err()
				return
			}
		}
		final = &Response{Text: text}
	}()

	return out, func() (*Response, error) {
		<-done
		if finalErr != nil {
			return nil, finalErr
		}
		return final, nil
	}
}
