package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/firebase/genkit/go/ai"
)

// WireShape selects which OpenAI-compatible endpoint shape a
// CompatClient speaks. A custom base URL for an OpenAI-compatible
// provider forces the chat-completions shape instead of the default
// responses shape, since most self-hosted/third-party gateways only
// implement chat completions.
type WireShape int

const (
	// ShapeResponses is OpenAI's default /v1/responses endpoint.
	ShapeResponses WireShape = iota
	// ShapeChatCompletions is the legacy-but-widely-mirrored
	// /v1/chat/completions shape most self-hosted gateways speak.
	ShapeChatCompletions
)

// CompatClient is a Client for providers speaking an OpenAI-compatible
// HTTP API directly (not through OpenRouter): a plain net/http request
// builder, since no pack dependency models this narrower wire format
// better than the standard library does.
type CompatClient struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Model   string
	Shape   WireShape
}

type compatChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type compatChatRequest struct {
	Model    string              `json:"model"`
	Messages []compatChatMessage `json:"messages"`
	Stream   bool                `json:"stream,omitempty"`
}

type compatChatChoice struct {
	Message compatChatMessage `json:"message"`
}

type compatChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type compatChatResponse struct {
	Choices []compatChatChoice `json:"choices"`
	Usage   compatChatUsage    `json:"usage"`
}

type compatResponsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type compatResponsesUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type compatResponsesOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type compatResponsesOutput struct {
	Content []compatResponsesOutputContent `json:"content"`
}

type compatResponsesResponse struct {
	Output []compatResponsesOutput `json:"output"`
	Usage  compatResponsesUsage    `json:"usage"`
}

func flattenText(messages []*ai.Message) (system string, user string) {
	for _, msg := range messages {
		var text string
		for _, part := range msg.Content {
			if part.IsText() {
				text += part.Text
			}
		}
		switch msg.Role {
		case ai.RoleSystem:
			system = text
		default:
			if user != "" {
				user += "\n\n" + text
			} else {
				user = text
			}
		}
	}
	return system, user
}

func (c *CompatClient) endpoint() string {
	if c.Shape == ShapeChatCompletions {
		return c.BaseURL + "/chat/completions"
	}
	return c.BaseURL + "/responses"
}

func (c *CompatClient) do(ctx context.Context, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("llm: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("llm: provider returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}

// Generate performs one non-streaming call, dispatching to the
// chat-completions or responses wire shape per c.Shape.
func (c *CompatClient) Generate(ctx context.Context, req *ai.ModelRequest) (*Response, error) {
	system, user := flattenText(req.Messages)

	if c.Shape == ShapeChatCompletions {
		var messages []compatChatMessage
		if system != "" {
			messages = append(messages, compatChatMessage{Role: "system", Content: system})
		}
		messages = append(messages, compatChatMessage{Role: "user", Content: user})

		var out compatChatResponse
		if err := c.do(ctx, compatChatRequest{Model: c.Model, Messages: messages}, &out); err != nil {
			return nil, err
		}
		if len(out.Choices) == 0 {
			return nil, fmt.Errorf("llm: compat response had no choices")
		}
		return &Response{
			Text:  out.Choices[0].Message.Content,
			Usage: Usage{InputTokens: out.Usage.PromptTokens, OutputTokens: out.Usage.CompletionTokens},
		}, nil
	}

	input := user
	if system != "" {
		input = system + "\n\n" + user
	}
	var out compatResponsesResponse
	if err := c.do(ctx, compatResponsesRequest{Model: c.Model, Input: input}, &out); err != nil {
		return nil, err
	}
	var text string
	for _, o := range out.Output {
		for _, part := range o.Content {
			if part.Type == "output_text" || part.Type == "text" {
				text += part.Text
			}
		}
	}
	return &Response{
		Text:  text,
		Usage: Usage{InputTokens: out.Usage.InputTokens, OutputTokens: out.Usage.OutputTokens},
	}, nil
}

// Stream does not stream incrementally for CompatClient: it calls
// Generate and emits the whole response text as a single chunk.
func (c *CompatClient) Stream(ctx context.Context, req *ai.ModelRequest) (<-chan Chunk, func() (*Response, error)) {
	out := make(chan Chunk, 1)
	var final *Response
	var finalErr error

	resp, err := c.Generate(ctx, req)
	if err != nil {
		finalErr = err
	} else {
		final = resp
		out <- Chunk{Text: resp.Text}
	}
	close(out)

	return out, func() (*Response, error) {
		if finalErr != nil {
			return nil, finalErr
		}
		return final, nil
	}
}
