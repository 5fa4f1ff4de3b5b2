// Package address resolves a "provider:model" style address string (as
// accepted by the REST front's model field and the MCP prompt tool) into a
// concrete provider kind and an optional model override.
package address

import (
	"strings"

	"github.com/howard-nolan/cliwire/internal/llm"
)

// Resolved is the outcome of resolving an address string.
type Resolved struct {
	Kind  llm.Kind
	Model string // empty means "use the provider's own default model"
}

// Resolve parses modelStr against defaultKind.
//
// Formats:
//   - "copilot:gpt-4o" -> {Copilot, "gpt-4o"}
//   - "copilot:"        -> {Copilot, ""}
//   - "copilot"         -> {Copilot, ""}
//   - "gpt-4o"          -> {defaultKind, "gpt-4o"}
//
// A colon with an unrecognized prefix ("unknown:something") is NOT treated
// as a provider prefix — the whole string is taken as a bare model name
// against defaultKind.
func Resolve(modelStr string, defaultKind llm.Kind) Resolved {
	if prefix, model, ok := strings.Cut(modelStr, ":"); ok {
		if kind, known := llm.ParseKind(prefix); known {
			return Resolved{Kind: kind, Model: model}
		}
		return Resolved{Kind: defaultKind, Model: modelStr}
	}
	if kind, known := llm.ParseKind(modelStr); known {
		return Resolved{Kind: kind, Model: ""}
	}
	return Resolved{Kind: defaultKind, Model: modelStr}
}
