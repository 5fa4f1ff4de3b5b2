// Package mcptools implements the MCP tool surface the cliwire MCP server
// exposes: inspecting and switching the active provider and model,
// configuring multiplex fan-out, and dispatching chat prompts. Each tool
// is a thin adapter between the MCP SDK's typed-handler convention and
// mcpstate.State, which holds the actual session data.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/mcpstate"
	"github.com/howard-nolan/cliwire/internal/multiplex"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register adds every cliwire MCP tool to server, wired against state.
func Register(server *mcp.Server, state *mcpstate.State) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_provider",
		Description: "Get the active LLM provider and list all available providers",
	}, getProviderHandler(state))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_provider",
		Description: "Set the active LLM provider for prompt dispatch",
	}, setProviderHandler(state))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_model",
		Description: "Get the current model and list available models for the active provider",
	}, getModelHandler(state))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_model",
		Description: "Set the model for the active provider (omit to reset to the provider default)",
	}, setModelHandler(state))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_multiplex_provider",
		Description: "Get the list of providers configured for multiplex prompt dispatch",
	}, getMultiplexHandler(state))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_multiplex_provider",
		Description: "Set providers for multiplex mode so prompts fan out to every listed provider",
	}, setMultiplexHandler(state))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "prompt",
		Description: "Send a chat prompt to the active LLM provider, or multiplex to all configured providers",
	}, promptHandler(state))
}

type emptyInput struct{}

// textResult wraps payload as the tool's text content, matching how the
// reference server renders every tool response as a single pretty-printed
// JSON string rather than structured MCP content.
func textResult(payload any) (*mcp.CallToolResult, any, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("response serialization failed: %v", err))
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(body)}}}, nil, nil
}

// errorResult reports a tool-level failure as a successful MCP call whose
// result is flagged IsError, rather than as a JSON-RPC protocol error. A
// runner that can't be constructed, or arguments that don't validate, are
// both things the calling model should see and can react to — not
// something the transport should treat as a broken request.
func errorResult(message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}, nil, nil
}

func providerNames() []string {
	names := make([]string, len(llm.AllKinds))
	for i, k := range llm.AllKinds {
		names[i] = k.String()
	}
	return names
}

func modelPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func getProviderHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		active := state.ActiveProvider()
		return textResult(map[string]any{
			"active_provider":     active.String(),
			"available_providers": providerNames(),
		})
	}
}

type setProviderInput struct {
	Provider string `json:"provider" jsonschema:"Provider name"`
}

func setProviderHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, setProviderInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in setProviderInput) (*mcp.CallToolResult, any, error) {
		if in.Provider == "" {
			return errorResult("missing 'provider' argument")
		}
		kind, ok := llm.ParseKind(in.Provider)
		if !ok {
			return errorResult(fmt.Sprintf("unknown provider: %s. valid: %s", in.Provider, llm.ValidKindNames()))
		}

		state.SetActiveProvider(kind)
		return textResult(map[string]any{
			"active_provider": kind.String(),
			"status":          "active",
		})
	}
}

func getModelHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		provider := state.ActiveProvider()
		currentModel := state.ActiveModel()

		runner, err := state.Runner(provider)
		if err != nil {
			return textResult(map[string]any{
				"provider":      provider.String(),
				"current_model": modelPtr(currentModel),
				"error":         fmt.Sprintf("could not load runner: %v", err),
			})
		}

		return textResult(map[string]any{
			"provider":         provider.String(),
			"current_model":    modelPtr(currentModel),
			"default_model":    runner.DefaultModel(),
			"available_models": runner.AvailableModels(),
		})
	}
}

type setModelInput struct {
	Model string `json:"model" jsonschema:"Model identifier, e.g. claude-opus-4-20250514 or gpt-4o; empty resets to the provider default"`
}

func setModelHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, setModelInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in setModelInput) (*mcp.CallToolResult, any, error) {
		state.SetActiveModel(in.Model)
		provider := state.ActiveProvider()

		return textResult(map[string]any{
			"provider":      provider.String(),
			"current_model": modelPtr(in.Model),
			"status":        "updated",
		})
	}
}

func getMultiplexHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
		providers := state.MultiplexProviders()
		names := make([]string, len(providers))
		for i, p := range providers {
			names[i] = p.String()
		}

		return textResult(map[string]any{
			"multiplex_providers":  names,
			"available_providers": providerNames(),
		})
	}
}

type setMultiplexInput struct {
	Providers []string `json:"providers" jsonschema:"List of provider names to multiplex to"`
}

func setMultiplexHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, setMultiplexInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in setMultiplexInput) (*mcp.CallToolResult, any, error) {
		if len(in.Providers) == 0 {
			return errorResult("missing 'providers' array argument")
		}

		kinds := make([]llm.Kind, 0, len(in.Providers))
		for _, name := range in.Providers {
			kind, ok := llm.ParseKind(name)
			if !ok {
				return errorResult(fmt.Sprintf("unknown provider: %s. valid: %s", name, llm.ValidKindNames()))
			}
			kinds = append(kinds, kind)
		}

		state.SetMultiplexProviders(kinds)
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = k.String()
		}

		return textResult(map[string]any{
			"multiplex_providers": names,
			"status":              "configured",
		})
	}
}

type promptMessageInput struct {
	Role    string `json:"role" jsonschema:"system, user, or assistant"`
	Content string `json:"content"`
}

type promptInput struct {
	Messages  []promptMessageInput `json:"messages" jsonschema:"Chat messages to send to the provider"`
	Multiplex bool                 `json:"multiplex,omitempty" jsonschema:"If true, send to all multiplex providers instead of the active one"`
}

func promptHandler(state *mcpstate.State) func(context.Context, *mcp.CallToolRequest, promptInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in promptInput) (*mcp.CallToolResult, any, error) {
		messages, err := convertPromptMessages(in.Messages)
		if err != nil {
			return errorResult(err.Error())
		}

		if in.Multiplex {
			return executeMultiplexPrompt(ctx, state, messages)
		}
		return executeSinglePrompt(ctx, state, messages)
	}
}

func convertPromptMessages(in []promptMessageInput) ([]llm.ChatMessage, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("messages array must not be empty")
	}

	out := make([]llm.ChatMessage, len(in))
	for i, m := range in {
		if m.Content == "" {
			return nil, fmt.Errorf("message %d: missing 'content'", i)
		}
		role, ok := parseRole(m.Role)
		if !ok {
			return nil, fmt.Errorf("message %d: invalid role '%s'", i, m.Role)
		}
		out[i] = llm.ChatMessage{Role: role, Content: m.Content}
	}
	return out, nil
}

func parseRole(s string) (llm.Role, bool) {
	switch s {
	case "system":
		return llm.RoleSystem, true
	case "user":
		return llm.RoleUser, true
	case "assistant":
		return llm.RoleAssistant, true
	default:
		return "", false
	}
}

func executeSinglePrompt(ctx context.Context, state *mcpstate.State, messages []llm.ChatMessage) (*mcp.CallToolResult, any, error) {
	provider := state.ActiveProvider()
	runner, err := state.Runner(provider)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create runner: %v", err))
	}

	req := &llm.ChatRequest{Messages: messages}
	if model := state.ActiveModel(); model != "" {
		req.Model = model
	}

	resp, err := runner.Complete(ctx, req)
	if err != nil {
		return errorResult(fmt.Sprintf("completion error: %v", err))
	}

	return textResult(responseJSON{
		Content:      resp.Content,
		Model:        resp.Model,
		Usage:        usageJSON(resp.Usage),
		FinishReason: resp.FinishReason,
	})
}

// runnerLookup adapts mcpstate.State to multiplex.ProviderLookup, so the
// prompt tool can reuse the same fan-out engine the REST front uses
// without mcpstate needing to know about the multiplex package.
type runnerLookup struct{ state *mcpstate.State }

func (r runnerLookup) Get(kind llm.Kind) (llm.Provider, error) { return r.state.Runner(kind) }

func executeMultiplexPrompt(ctx context.Context, state *mcpstate.State, messages []llm.ChatMessage) (*mcp.CallToolResult, any, error) {
	providers := state.MultiplexProviders()
	if len(providers) == 0 {
		return errorResult("no multiplex providers configured. use set_multiplex_provider first.")
	}

	req := &llm.ChatRequest{Messages: messages}
	result := multiplex.Execute(ctx, runnerLookup{state}, providers, req)

	outcomes := make([]multiplexOutcomeJSON, len(result.Outcomes))
	for i, o := range result.Outcomes {
		entry := multiplexOutcomeJSON{
			Provider:   o.Provider.String(),
			Content:    o.Content,
			Model:      o.Model,
			DurationMS: o.DurationMS,
		}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		outcomes[i] = entry
	}

	return textResult(multiplexResultJSON{Outcomes: outcomes, Summary: result.Summary})
}

type responseJSON struct {
	Content      string     `json:"content"`
	Model        string     `json:"model"`
	Usage        *usageBody `json:"usage,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

type usageBody struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func usageJSON(u *llm.Usage) *usageBody {
	if u == nil {
		return nil
	}
	return &usageBody{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

type multiplexOutcomeJSON struct {
	Provider   string `json:"provider"`
	Content    string `json:"content,omitempty"`
	Model      string `json:"model,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type multiplexResultJSON struct {
	Outcomes []multiplexOutcomeJSON `json:"outcomes"`
	Summary  string                 `json:"summary"`
}
