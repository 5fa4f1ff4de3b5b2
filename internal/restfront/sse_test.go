package restfront

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/howard-nolan/cliwire/internal/llm"
)

// fakeStreamReader replays a canned sequence of chunks, mirroring what a
// guardedstream.Stream does for a real CLI subprocess.
type fakeStreamReader struct {
	chunks []llm.StreamChunk
	i      int
	closed bool
}

func (f *fakeStreamReader) Next(ctx context.Context) (llm.StreamChunk, error) {
	if f.i >= len(f.chunks) {
		return llm.StreamChunk{}, io.EOF
	}
	c := f.chunks[f.i]
	f.i++
	return c, nil
}

func (f *fakeStreamReader) Close() error {
	f.closed = true
	return nil
}

func parseSSEEvents(body string) []string {
	var events []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			payload := strings.TrimPrefix(line, "data: ")
			if payload != "[DONE]" {
				events = append(events, payload)
			}
		}
	}
	return events
}

func TestSSEResponseAnnouncesRoleOnFirstChunk(t *testing.T) {
	reader := &fakeStreamReader{chunks: []llm.StreamChunk{
		{Delta: "Hello"},
		{Delta: " world"},
		{IsFinal: true},
	}}

	w := httptest.NewRecorder()
	err := sseResponse(context.Background(), w, reader, "claude_code:opus")
	if err != nil {
		t.Fatalf("sseResponse returned error: %v", err)
	}

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if !reader.closed {
		t.Error("reader was not closed")
	}

	events := parseSSEEvents(w.Body.String())
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	var first sseChunk
	if err := json.Unmarshal([]byte(events[0]), &first); err != nil {
		t.Fatalf("parsing event 0: %v", err)
	}
	if first.Choices[0].Delta.Role != "assistant" {
		t.Errorf("event 0 role = %q, want assistant", first.Choices[0].Delta.Role)
	}
	if first.Choices[0].Delta.Content != "Hello" {
		t.Errorf("event 0 content = %q, want Hello", first.Choices[0].Delta.Content)
	}

	var second sseChunk
	if err := json.Unmarshal([]byte(events[1]), &second); err != nil {
		t.Fatalf("parsing event 1: %v", err)
	}
	if second.Choices[0].Delta.Role != "" {
		t.Error("role should only be announced once")
	}
	if second.Choices[0].Delta.Content != " world" {
		t.Errorf("event 1 content = %q, want ' world'", second.Choices[0].Delta.Content)
	}

	var third sseChunk
	if err := json.Unmarshal([]byte(events[2]), &third); err != nil {
		t.Fatalf("parsing event 2: %v", err)
	}
	if third.Choices[0].FinishReason == nil || *third.Choices[0].FinishReason != "stop" {
		t.Error("final event should default finish_reason to stop")
	}

	if !strings.Contains(w.Body.String(), "data: [DONE]\n\n") {
		t.Error("missing [DONE] sentinel")
	}
}

func TestSSEResponseFinalChunkWithContent(t *testing.T) {
	reader := &fakeStreamReader{chunks: []llm.StreamChunk{
		{Delta: "Paris is the capital.", IsFinal: true, FinishReason: "length"},
	}}

	w := httptest.NewRecorder()
	if err := sseResponse(context.Background(), w, reader, "m"); err != nil {
		t.Fatalf("sseResponse returned error: %v", err)
	}

	events := parseSSEEvents(w.Body.String())
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 (role + content + finish folded together)", len(events))
	}

	var combined sseChunk
	_ = json.Unmarshal([]byte(events[0]), &combined)
	if combined.Choices[0].Delta.Role != "assistant" {
		t.Errorf("role = %q, want assistant", combined.Choices[0].Delta.Role)
	}
	if combined.Choices[0].Delta.Content != "Paris is the capital." {
		t.Errorf("content = %q", combined.Choices[0].Delta.Content)
	}
	if combined.Choices[0].FinishReason == nil || *combined.Choices[0].FinishReason != "length" {
		t.Error("combined event should preserve the provider's finish_reason")
	}
}

func TestSSEResponseMidStreamError(t *testing.T) {
	reader := &fakeStreamReader{chunks: []llm.StreamChunk{{Delta: "partial"}}}
	failing := &failingAfterFirst{fakeStreamReader: reader}

	w := httptest.NewRecorder()
	err := sseResponse(context.Background(), w, failing, "m")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("error = %q, want it to mention connection reset", err.Error())
	}

	body := w.Body.String()
	if !strings.Contains(body, `"type":"stream_error"`) {
		t.Error("expected a stream_error SSE event")
	}
	if strings.Contains(body, "[DONE]") {
		t.Error("errored stream should not send [DONE]")
	}
}

// failingAfterFirst returns one real chunk, then an error, simulating a
// provider CLI that crashes partway through a response.
type failingAfterFirst struct {
	*fakeStreamReader
	served bool
}

func (f *failingAfterFirst) Next(ctx context.Context) (llm.StreamChunk, error) {
	if !f.served {
		f.served = true
		return f.fakeStreamReader.Next(ctx)
	}
	return llm.StreamChunk{}, errors.New("connection reset")
}
