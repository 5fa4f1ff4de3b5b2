package restfront

import (
	"encoding/json"
	"fmt"
)

// ChatCompletionMessage is one OpenAI-format message in an incoming request.
type ChatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelField accepts either a single model string ("copilot:gpt-4o") or an
// array of model strings (for a multiplex request), matching how the
// OpenAI-compatible clients in the wild pass this field. json.Unmarshal
// picks the right branch based on whether the raw value is a string or
// an array.
type ModelField struct {
	Single   string
	Multiple []string
}

func (m *ModelField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		m.Single = single
		m.Multiple = nil
		return nil
	}

	var multiple []string
	if err := json.Unmarshal(data, &multiple); err == nil {
		m.Multiple = multiple
		m.Single = ""
		return nil
	}

	return fmt.Errorf("model field must be a string or an array of strings")
}

func (m ModelField) MarshalJSON() ([]byte, error) {
	if m.Multiple != nil {
		return json.Marshal(m.Multiple)
	}
	return json.Marshal(m.Single)
}

// IsMultiplex reports whether this model field names more than one model.
func (m ModelField) IsMultiplex() bool {
	return len(m.Multiple) > 1
}

// Values returns every model string named by this field, regardless of
// whether it arrived as a single string or an array.
func (m ModelField) Values() []string {
	if m.Multiple != nil {
		return m.Multiple
	}
	return []string{m.Single}
}

// ChatCompletionRequest is the OpenAI-compatible request body for
// POST /v1/chat/completions.
type ChatCompletionRequest struct {
	Model       ModelField              `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	Temperature *float64                `json:"temperature,omitempty"`
	MaxTokens   *int                    `json:"max_tokens,omitempty"`
	Stream      bool                    `json:"stream,omitempty"`
}

// Usage reports token accounting for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ResponseMessage is the assistant's reply inside a Choice.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Choice is one completion choice. This gateway never returns more than one.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason *string         `json:"finish_reason"`
}

// ChatCompletionResponse is the non-streaming, single-provider response body.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// MultiplexProviderResult is one provider's outcome within a multiplex response.
type MultiplexProviderResult struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Content    string `json:"content,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// MultiplexResponse is returned when the request's model field names more
// than one provider.
type MultiplexResponse struct {
	ID      string                    `json:"id"`
	Object  string                    `json:"object"`
	Created int64                     `json:"created"`
	Results []MultiplexProviderResult `json:"results"`
	Summary string                    `json:"summary"`
}

// apiError is the OpenAI-compatible error envelope.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ErrorResponse wraps apiError the way OpenAI's API does: {"error": {...}}.
type ErrorResponse struct {
	Error apiError `json:"error"`
}

func newErrorResponse(errType, message string) ErrorResponse {
	return ErrorResponse{Error: apiError{Message: message, Type: errType}}
}

// modelsResponse backs GET /v1/models: a flat OpenAI-style listing of
// "provider:model" identifiers aggregated across every known provider kind.
type modelsResponse struct {
	Object string      `json:"object"`
	Data   []modelData `json:"data"`
}

type modelData struct {
	ID           string             `json:"id"`
	Object       string             `json:"object"`
	OwnedBy      string             `json:"owned_by"`
	Capabilities *capabilitiesField `json:"capabilities,omitempty"`
}

// capabilitiesField surfaces the capability probe's findings for the
// model's owning provider: the raw version string the installed binary
// reports and which of the four optional features (JSON output,
// streaming, system prompt, session resume) it supports.
type capabilitiesField struct {
	VersionString       string `json:"version_string,omitempty"`
	MeetsMinimumVersion bool   `json:"meets_minimum_version"`
	JSONOutput          bool   `json:"json_output"`
	Streaming           bool   `json:"streaming"`
	SystemPrompt        bool   `json:"system_prompt"`
	SessionResume       bool   `json:"session_resume"`
}
