package daemonhttp

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"

	"github.com/shaneholloman/summarize/internal/costbook"
	"github.com/shaneholloman/summarize/internal/llm"
	"github.com/shaneholloman/summarize/internal/model"
	"github.com/shaneholloman/summarize/internal/orchestrator"
	"github.com/shaneholloman/summarize/internal/streammerge"
)

type fakeClient struct{ text string }

func (f *fakeClient) Generate(ctx context.Context, req *ai.ModelRequest) (*llm.Response, error) {
	return &llm.Response{Text: f.text}, nil
}

func (f *fakeClient) Stream(ctx context.Context, req *ai.ModelRequest) (<-chan llm.Chunk, func() (*llm.Response, error)) {
	ch := make(chan llm.Chunk, 1)
	ch <- llm.Chunk{Text: f.text}
	close(ch)
	return ch, func() (*llm.Response, error) { return &llm.Response{Text: f.text}, nil }
}

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	registry := model.NewRegistry()
	orch := &orchestrator.Orchestrator{
		Registry:    registry,
		Credentials: func(provider string) bool { return true },
		NewClient:   func(id model.ID) (llm.Client, error) { return &fakeClient{text: "a summary"}, nil },
		Cost:        costbook.New(),
	}

	srv := NewServer(":0")
	srv.Orchestrator = orch
	srv.Registry = registry
	srv.Bus = streammerge.NewBus()
	srv.Token = token
	srv.SlidesDir = t.TempDir()
	return srv
}

func TestLivenessExemptFromAuth(t *testing.T) {
	srv := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/live")
	if err != nil {
		t.Fatalf("GET /v1/live: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatsRequiresAuth(t *testing.T) {
	srv := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.StatusCode)
	}
}

func doAuthed(t *testing.T, method, url, token string, body *strings.Reader) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, url, body)
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	return resp
}

func TestCreateSummarizeExtractOnlyRequiresModeURL(t *testing.T) {
	srv := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	body := strings.NewReader(`{"mode":"page","text":"hello","extractOnly":true}`)
	resp := doAuthed(t, http.MethodPost, ts.URL+"/v1/summarize", "secret", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	matched := strings.Contains(strings.ToLower(payload["error"]), "extractonly requires mode=url")
	if !matched {
		t.Fatalf("expected error message to match /extractOnly requires mode=url/i, got %q", payload["error"])
	}
}

func TestCreateSummarizeAndStreamEvents(t *testing.T) {
	srv := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	createBody := strings.NewReader(`{"mode":"page","text":"hello world","model":"openai/test-model"}`)
	createResp := doAuthed(t, http.MethodPost, ts.URL+"/v1/summarize", "secret", createBody)
	defer createResp.Body.Close()
	if createResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from create, got %d", createResp.StatusCode)
	}
	var created map[string]any
	if err := json.NewDecoder(createResp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected a non-empty run id")
	}

	eventsResp := doAuthed(t, http.MethodGet, ts.URL+"/v1/summarize/"+id+"/events", "secret", nil)
	defer eventsResp.Body.Close()
	if eventsResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from events, got %d", eventsResp.StatusCode)
	}

	reader := bufio.NewReader(eventsResp.Body)
	deadline := time.Now().Add(5 * time.Second)
	sawDone := false
	for time.Now().Before(deadline) {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		if strings.HasPrefix(line, "event: done") {
			sawDone = true
			break
		}
	}
	if !sawDone {
		t.Fatal("expected to observe a done event in the SSE stream")
	}
}

func TestUnknownRunIDReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp := doAuthed(t, http.MethodGet, ts.URL+"/v1/summarize/does-not-exist/events", "secret", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSlideImageWithoutManifestReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, "secret")
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp := doAuthed(t, http.MethodGet, ts.URL+"/v1/slides/some-source/1", "secret", nil)
	defer resp.Body.Close()
	// no manifest has been written for this source, so this resolves to
	// a 404 rather than a 200 - proving the handler does not blindly
	// serve a guessed path.
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for a source with no manifest, got %d", resp.StatusCode)
	}
}
