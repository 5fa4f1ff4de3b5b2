package restfront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/howard-nolan/cliwire/internal/llm"
)

// sseChunk is the top-level JSON object of each streaming SSE event.
type sseChunk struct {
	ID      string      `json:"id"`
	Object  string      `json:"object"`
	Model   string      `json:"model"`
	Choices []sseChoice `json:"choices"`
}

type sseChoice struct {
	Index        int      `json:"index"`
	Delta        sseDelta `json:"delta"`
	FinishReason *string  `json:"finish_reason"`
}

// sseDelta holds the incremental content of one chunk. Role is set only on
// the very first event of a stream, matching the OpenAI convention of
// announcing the assistant role once before any content arrives.
type sseDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// sseErrorEvent is emitted in place of a chunk when the provider's stream
// fails partway through. The HTTP response has already started (status 200,
// headers sent), so a failure can't be reported as a different status code —
// instead we emit one more SSE event describing the error and stop.
type sseErrorEvent struct {
	Error apiError `json:"error"`
}

// sseResponse drains reader and writes each chunk to w as an
// OpenAI-compatible Server-Sent Event stream:
//
//  1. A role-announcement chunk (delta.role="assistant", empty content) —
//     folded into the first content chunk if that chunk already carries text.
//  2. One chunk per content delta as it arrives from the provider.
//  3. A final chunk carrying finish_reason (defaulting to "stop").
//  4. The "data: [DONE]" sentinel.
//
// A mid-stream error is written as an {"error":...} SSE event rather than
// aborting the response, since the 200 status and SSE headers are already
// on the wire by the time an error can occur.
func sseResponse(ctx context.Context, w http.ResponseWriter, reader llm.StreamReader, model string) error {
	defer reader.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("response writer does not support flushing (http.Flusher)")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	id := generateID()
	sentRole := false

	for {
		chunk, err := reader.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				// The provider's stream ended without an IsFinal chunk
				// (Copilot never sends one), so close it here.
				reason := "stop"
				writeSSEEvent(w, flusher, buildChunk(id, model, "", &sentRole, &reason))
				break
			}
			writeSSEError(w, flusher, err)
			return err
		}

		if chunk.IsFinal {
			reason := chunk.FinishReason
			if reason == "" {
				reason = "stop"
			}

			if chunk.Delta != "" && !sentRole {
				// First and only chunk of the stream: fold role, content, and
				// finish_reason into one event instead of splitting a bare
				// role-announcement chunk off from the content.
				writeSSEEvent(w, flusher, buildChunk(id, model, chunk.Delta, &sentRole, &reason))
				break
			}

			if chunk.Delta != "" {
				writeSSEEvent(w, flusher, buildChunk(id, model, chunk.Delta, &sentRole, nil))
			}
			writeSSEEvent(w, flusher, buildChunk(id, model, "", &sentRole, &reason))
			break
		}

		writeSSEEvent(w, flusher, buildChunk(id, model, chunk.Delta, &sentRole, nil))
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

// buildChunk assembles one sseChunk. The role is announced exactly once,
// on whichever chunk is first to leave this function — folded into that
// chunk's delta alongside any content it already carries.
func buildChunk(id, model, content string, sentRole *bool, finishReason *string) sseChunk {
	delta := sseDelta{Content: content}
	if !*sentRole {
		delta.Role = "assistant"
		*sentRole = true
	}
	return sseChunk{
		ID:     id,
		Object: "chat.completion.chunk",
		Model:  model,
		Choices: []sseChoice{
			{Index: 0, Delta: delta, FinishReason: finishReason},
		},
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func writeSSEError(w http.ResponseWriter, flusher http.Flusher, err error) {
	event := sseErrorEvent{Error: apiError{Message: err.Error(), Type: "stream_error"}}
	writeSSEEvent(w, flusher, event)
}
