package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestCompatClientChatCompletionsShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		var body compatChatRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Model != "local-model" {
			t.Fatalf("model = %q", body.Model)
		}
		json.NewEncoder(w).Encode(compatChatResponse{
			Choices: []compatChatChoice{{Message: compatChatMessage{Role: "assistant", Content: "hi there"}}},
			Usage:   compatChatUsage{PromptTokens: 3, CompletionTokens: 2},
		})
	}))
	defer srv.Close()

	c := &CompatClient{BaseURL: srv.URL, Model: "local-model", Shape: ShapeChatCompletions}
	resp, err := c.Generate(context.Background(), TextRequest("be terse", "hello"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "hi there" || resp.Usage.InputTokens != 3 || resp.Usage.OutputTokens != 2 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestCompatClientResponsesShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(compatResponsesResponse{
			Output: []compatResponsesOutput{{Content: []compatResponsesOutputContent{{Type: "output_text", Text: "ok"}}}},
			Usage:  compatResponsesUsage{InputTokens: 1, OutputTokens: 1},
		})
	}))
	defer srv.Close()

	c := &CompatClient{BaseURL: srv.URL, Model: "gpt-4o", Shape: ShapeResponses}
	resp, err := c.Generate(context.Background(), TextRequest("", "hello"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("resp.Text = %q", resp.Text)
	}
}

func TestFlattenTextSeparatesSystemFromUser(t *testing.T) {
	req := TextRequest("system rules", "user body")
	system, user := flattenText(req.Messages)
	if system != "system rules" || user != "user body" {
		t.Fatalf("system=%q user=%q", system, user)
	}
}

func TestTextOf(t *testing.T) {
	msg := &ai.Message{Content: []*ai.Part{ai.NewTextPart("a"), ai.NewTextPart("b")}}
	if got := TextOf(msg); got != "ab" {
		t.Fatalf("TextOf = %q", got)
	}
	if got := TextOf(nil); got != "" {
		t.Fatalf("TextOf(nil) = %q", got)
	}
}
