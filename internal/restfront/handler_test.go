package restfront

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/llm"
	"go.uber.org/zap"
)

type fakeProvider struct {
	resp    *llm.ChatResponse
	err     error
	name    string
	model   string
	models  []string
	healthy bool
}

func (f *fakeProvider) Name() string                  { return f.name }
func (f *fakeProvider) DisplayName() string            { return f.name }
func (f *fakeProvider) Capabilities() llm.Capabilities { return llm.Capabilities{} }
func (f *fakeProvider) DefaultModel() string           { return f.model }
func (f *fakeProvider) AvailableModels() []string      { return f.models }
func (f *fakeProvider) HealthCheck(ctx context.Context) (bool, error) {
	return f.healthy, nil
}

func (f *fakeProvider) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, req *llm.ChatRequest) (llm.StreamReader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStreamReader{chunks: []llm.StreamChunk{{Delta: "hi", IsFinal: true}}}, nil
}

type fakeRunners struct {
	byKind map[llm.Kind]llm.Provider
	errs   map[llm.Kind]error
}

func (f *fakeRunners) Get(kind llm.Kind) (llm.Provider, error) {
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	if p, ok := f.byKind[kind]; ok {
		return p, nil
	}
	return nil, cliwireerr.New(cliwireerr.KindBinaryNotFound, "no provider registered")
}

func newTestServer(runners *fakeRunners) *Server {
	return New(runners, llm.ClaudeCode, zap.NewNop(), nil)
}

func TestHandleChatCompletionsSingleProvider(t *testing.T) {
	runners := &fakeRunners{byKind: map[llm.Kind]llm.Provider{
		llm.ClaudeCode: &fakeProvider{
			name:  "claude_code",
			model: "opus",
			resp:  &llm.ChatResponse{Content: "hello there", Model: "opus"},
		},
	}}
	s := newTestServer(runners)

	body, _ := json.Marshal(map[string]any{
		"model":    "claude_code:opus",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Choices[0].Message.Content != "hello there" {
		t.Errorf("content = %q", resp.Choices[0].Message.Content)
	}
	if resp.Model != "claude_code:opus" {
		t.Errorf("model = %q", resp.Model)
	}
	if resp.Choices[0].FinishReason == nil || *resp.Choices[0].FinishReason != "stop" {
		t.Error("finish_reason should default to stop")
	}
}

func TestHandleChatCompletionsMultiplex(t *testing.T) {
	runners := &fakeRunners{
		byKind: map[llm.Kind]llm.Provider{
			llm.Copilot: &fakeProvider{name: "copilot", model: "gpt", resp: &llm.ChatResponse{Content: "a", Model: "gpt"}},
		},
		errs: map[llm.Kind]error{
			llm.ClaudeCode: cliwireerr.New(cliwireerr.KindBinaryNotFound, "claude not found"),
		},
	}
	s := newTestServer(runners)

	body, _ := json.Marshal(map[string]any{
		"model":    []string{"copilot", "claude_code"},
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", w.Code, w.Body.String())
	}

	var resp MultiplexResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Summary != "1 succeeded, 1 failed out of 2 providers" {
		t.Errorf("summary = %q", resp.Summary)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
}

func TestHandleChatCompletionsStreamingMultiplexRejected(t *testing.T) {
	s := newTestServer(&fakeRunners{})

	body, _ := json.Marshal(map[string]any{
		"model":    []string{"copilot", "claude_code"},
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
		"stream":   true,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleChatCompletionsBinaryNotFoundMapsTo503(t *testing.T) {
	s := newTestServer(&fakeRunners{})

	body, _ := json.Marshal(map[string]any{
		"model":    "claude_code:opus",
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHandleChatCompletionsRejectsBadTemperature(t *testing.T) {
	s := newTestServer(&fakeRunners{})

	temp := 3.5
	body, _ := json.Marshal(map[string]any{
		"model":       "claude_code:opus",
		"messages":    []map[string]string{{"role": "user", "content": "hi"}},
		"temperature": temp,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&fakeRunners{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
