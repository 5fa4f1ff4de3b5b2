// Package llm defines the provider-agnostic chat completion contract that
// every CLI adapter implements, and the shared request/response/streaming
// types the rest of the gateway works with.
//
// Every concrete provider (Claude Code, Copilot, Cursor Agent, OpenCode)
// satisfies the Provider interface below. The registry, the multiplex
// engine, and both fronts (REST, MCP) only ever talk to Provider — they
// never know which CLI is actually doing the work.
package llm

import "context"

// Kind is the closed set of CLI providers this gateway knows how to drive.
type Kind string

const (
	ClaudeCode  Kind = "claude_code"
	Copilot     Kind = "copilot"
	CursorAgent Kind = "cursor_agent"
	OpenCode    Kind = "opencode"
)

// String renders the provider kind the way it appears in logs, error
// messages, and on-wire "provider:model" identifiers.
func (k Kind) String() string {
	return string(k)
}

// BinaryName returns the executable name to look up on PATH.
func (k Kind) BinaryName() string {
	switch k {
	case ClaudeCode:
		return "claude"
	case Copilot:
		return "copilot"
	case CursorAgent:
		return "cursor-agent"
	case OpenCode:
		return "opencode"
	default:
		return string(k)
	}
}

// EnvOverrideKey returns the environment variable that may override this
// provider's binary path (spec §6: "<PROVIDER>_BINARY").
func (k Kind) EnvOverrideKey() string {
	switch k {
	case ClaudeCode:
		return "CLAUDE_CODE_BINARY"
	case Copilot:
		return "COPILOT_BINARY"
	case CursorAgent:
		return "CURSOR_AGENT_BINARY"
	case OpenCode:
		return "OPENCODE_BINARY"
	default:
		return ""
	}
}

// AllKinds lists every supported provider in CLI discovery priority order.
var AllKinds = []Kind{ClaudeCode, Copilot, CursorAgent, OpenCode}

// ParseKind accepts the documented aliases for each provider, case
// insensitive, per spec §4.8.
func ParseKind(s string) (Kind, bool) {
	switch normalizeAlias(s) {
	case "claude_code", "claude", "claudecode":
		return ClaudeCode, true
	case "copilot":
		return Copilot, true
	case "cursor_agent", "cursoragent", "cursor-agent":
		return CursorAgent, true
	case "opencode", "open_code":
		return OpenCode, true
	default:
		return "", false
	}
}

func normalizeAlias(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		out = append(out, r)
	}
	return string(out)
}

// ValidKindNames formats the list of valid provider names for error
// messages.
func ValidKindNames() string {
	return "claude_code, copilot, cursor_agent, opencode"
}

// Role is one of the three roles a ChatMessage may carry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a conversation.
type ChatMessage struct {
	Role    Role
	Content string
}

// ChatRequest is what a front builds after parsing an incoming request.
type ChatRequest struct {
	Messages    []ChatMessage
	Model       string // optional model override; empty means provider default
	Temperature *float64
	MaxTokens   *int
	Stream      bool
}

// Usage holds token counts normalized across providers.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResponse is a complete, non-streaming completion.
type ChatResponse struct {
	Content      string
	Model        string
	Usage        *Usage
	FinishReason string
}

// StreamChunk is one piece of a streaming response. At most one chunk in a
// stream has IsFinal = true, and it is always the last one emitted.
// Empty-delta chunks are valid and must be tolerated by consumers.
type StreamChunk struct {
	Delta        string
	IsFinal      bool
	FinishReason string
}

// Capabilities describes what optional features a provider's CLI supports.
type Capabilities struct {
	Runner              Kind
	VersionString       string
	MajorMinorPatch     [3]int
	HasParsedVersion    bool
	JSONOutput          bool
	Streaming           bool
	SystemPrompt        bool
	SessionResume       bool
	MeetsMinimumVersion bool
}

// IsCompatible mirrors spec §3's is_compatible = meets_minimum_version AND
// json_output.
func (c Capabilities) IsCompatible() bool {
	return c.MeetsMinimumVersion && c.JSONOutput
}

// ReadinessStatus is the tagged result of a readiness probe.
type ReadinessStatus struct {
	State  ReadinessState
	Reason string
	Action string
}

type ReadinessState string

const (
	Ready         ReadinessState = "ready"
	NotReady      ReadinessState = "not_ready"
	BinaryMissing ReadinessState = "binary_missing"
	UnknownState  ReadinessState = "unknown"
)

// StreamReader is implemented by anything that yields a finite,
// non-restartable sequence of StreamChunks. Adapters return one from
// CompleteStream; guardedstream.Stream implements it by wrapping a child
// process's stdout.
type StreamReader interface {
	// Next returns the next chunk, or io.EOF when the stream is
	// exhausted. It must be safe to call Close concurrently with an
	// in-flight Next.
	Next(ctx context.Context) (StreamChunk, error)
	// Close terminates the stream's backing resources (if any). It is
	// always safe to call, including more than once.
	Close() error
}

// Provider is the contract every CLI adapter satisfies. The rest of the
// gateway — registry, multiplex engine, both fronts — only ever depends on
// this interface, never a concrete adapter type.
type Provider interface {
	Name() string
	DisplayName() string
	Capabilities() Capabilities
	DefaultModel() string
	AvailableModels() []string

	Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	CompleteStream(ctx context.Context, req *ChatRequest) (StreamReader, error)
	HealthCheck(ctx context.Context) (bool, error)
}
