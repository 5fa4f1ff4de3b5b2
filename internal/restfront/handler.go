package restfront

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/howard-nolan/cliwire/internal/address"
	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/multiplex"
	"go.uber.org/zap"
)

// maxTemperature is OpenAI's documented upper bound for the temperature field.
const maxTemperature = 2.0

func jsonEncode(w http.ResponseWriter, body any) error {
	return json.NewEncoder(w).Encode(body)
}

// handleChatCompletions handles POST /v1/chat/completions. It validates
// the request, then dispatches to the single-provider or multiplex path
// depending on how many models the model field names.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: "+err.Error())
		return
	}

	if req.Temperature != nil && (*req.Temperature < 0 || *req.Temperature > maxTemperature) {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "temperature must be between 0.0 and 2.0")
		return
	}
	if req.MaxTokens != nil && *req.MaxTokens <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "max_tokens must be greater than 0")
		return
	}

	models := req.Model.Values()
	switch {
	case req.Model.IsMultiplex():
		s.handleMultiplex(w, r, &req, models)
	case len(models) == 1 && models[0] != "":
		s.handleSingle(w, r, &req, models[0])
	default:
		writeError(w, http.StatusBadRequest, "invalid_request_error", "model field must not be empty")
	}
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request, req *ChatCompletionRequest, modelStr string) {
	resolved := address.Resolve(modelStr, s.defaultProvider)
	s.logger.Debug("dispatching completion",
		zap.String("provider", resolved.Kind.String()),
		zap.String("model", resolved.Model),
		zap.Bool("stream", req.Stream))

	provider, err := s.runners.Get(resolved.Kind)
	if err != nil {
		s.writeRunnerError(w, err)
		return
	}

	chatRequest := &llm.ChatRequest{
		Messages:    convertMessages(req.Messages),
		Model:       resolved.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}

	if req.Stream {
		reader, err := provider.CompleteStream(r.Context(), chatRequest)
		if err != nil {
			s.writeRunnerError(w, err)
			return
		}
		model := resolved.Model
		if model == "" {
			model = provider.DefaultModel()
		}
		modelName := resolved.Kind.String() + ":" + model
		if err := sseResponse(r.Context(), w, reader, modelName); err != nil {
			s.logger.Warn("sse stream ended with error", zap.Error(err))
		}
		return
	}

	start := time.Now()
	resp, err := provider.Complete(r.Context(), chatRequest)
	if s.metrics != nil {
		s.metrics.RecordInvocation(resolved.Kind.String(), err == nil, time.Since(start))
	}
	if err != nil {
		s.writeRunnerError(w, err)
		return
	}

	modelName := resolved.Kind.String() + ":" + resp.Model
	finishReason := resp.FinishReason
	if finishReason == "" {
		finishReason = "stop"
	}

	body := ChatCompletionResponse{
		ID:      generateID(),
		Object:  "chat.completion",
		Created: unixTimestamp(),
		Model:   modelName,
		Choices: []Choice{
			{
				Index:        0,
				Message:      ResponseMessage{Role: "assistant", Content: resp.Content},
				FinishReason: &finishReason,
			},
		},
		Usage: convertUsage(resp.Usage),
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleMultiplex(w http.ResponseWriter, r *http.Request, req *ChatCompletionRequest, models []string) {
	if req.Stream {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "streaming is not supported for multiplex requests")
		return
	}
	if len(models) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "model array must not be empty")
		return
	}

	kinds := make([]llm.Kind, len(models))
	for i, m := range models {
		kinds[i] = address.Resolve(m, s.defaultProvider).Kind
	}

	chatRequest := &llm.ChatRequest{
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	result := multiplex.Execute(r.Context(), s.runners, kinds, chatRequest)
	if s.metrics != nil {
		s.metrics.RecordMultiplex(len(kinds))
	}

	results := make([]MultiplexProviderResult, len(result.Outcomes))
	for i, o := range result.Outcomes {
		entry := MultiplexProviderResult{
			Provider:   o.Provider.String(),
			Model:      o.Model,
			Content:    o.Content,
			DurationMS: o.DurationMS,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		if s.metrics != nil {
			s.metrics.RecordInvocation(o.Provider.String(), o.Err == nil, time.Duration(o.DurationMS)*time.Millisecond)
		}
		results[i] = entry
	}

	body := MultiplexResponse{
		ID:      generateID(),
		Object:  "chat.completion.multiplex",
		Created: unixTimestamp(),
		Results: results,
		Summary: result.Summary,
	}
	writeJSON(w, http.StatusOK, body)
}

func convertMessages(messages []ChatCompletionMessage) []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(messages))
	for i, m := range messages {
		role := llm.RoleUser
		switch m.Role {
		case "system":
			role = llm.RoleSystem
		case "user":
			role = llm.RoleUser
		case "assistant":
			role = llm.RoleAssistant
		}
		out[i] = llm.ChatMessage{Role: role, Content: m.Content}
	}
	return out
}

func convertUsage(u *llm.Usage) *Usage {
	if u == nil {
		return nil
	}
	return &Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// writeRunnerError maps a cliwireerr.Error to the appropriate HTTP status
// and OpenAI-style error body.
func (s *Server) writeRunnerError(w http.ResponseWriter, err error) {
	status, errType := statusForError(err)
	s.logger.Error("runner error", zap.String("kind", string(cliwireerr.KindOf(err))), zap.Error(err))
	writeError(w, status, errType, err.Error())
}

func statusForError(err error) (int, string) {
	switch cliwireerr.KindOf(err) {
	case cliwireerr.KindBinaryNotFound:
		return http.StatusServiceUnavailable, "provider_not_available"
	case cliwireerr.KindAuthFailure:
		return http.StatusUnauthorized, "authentication_error"
	case cliwireerr.KindTimeout:
		return http.StatusGatewayTimeout, "timeout_error"
	case cliwireerr.KindExternalService:
		return http.StatusBadGateway, "external_service_error"
	case cliwireerr.KindConfig:
		return http.StatusBadRequest, "invalid_request_error"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, newErrorResponse(errType, message))
}

// generateID builds a "chatcmpl-<uuid>" identifier.
func generateID() string {
	return fmt.Sprintf("chatcmpl-%s", uuid.New().String())
}

func unixTimestamp() int64 {
	return time.Now().Unix()
}
