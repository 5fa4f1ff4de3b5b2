// Package prompt serializes a chat message sequence into the plain-text
// form each CLI provider expects on its command line.
package prompt

import (
	"strings"

	"github.com/howard-nolan/cliwire/internal/llm"
)

func label(role llm.Role) string {
	switch role {
	case llm.RoleSystem:
		return "[system]"
	case llm.RoleAssistant:
		return "[assistant]"
	default:
		return "[user]"
	}
}

// BuildCombined joins every message as "[role]\ncontent", separated by
// blank lines, in original order. Used by providers with no separate
// system-prompt flag (Copilot, Cursor Agent, OpenCode).
func BuildCombined(messages []llm.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, label(m.Role)+"\n"+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// ExtractSystemMessage returns the content of the first system message, if
// any.
func ExtractSystemMessage(messages []llm.ChatMessage) (string, bool) {
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			return m.Content, true
		}
	}
	return "", false
}

// BuildUserPrompt is BuildCombined but excludes system messages — used
// alongside ExtractSystemMessage by providers that accept a separate
// --system-prompt flag (Claude Code).
func BuildUserPrompt(messages []llm.ChatMessage) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			continue
		}
		parts = append(parts, label(m.Role)+"\n"+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// BuildSplit returns (system text, user text) in one call for providers
// that use split assembly.
func BuildSplit(messages []llm.ChatMessage) (string, string) {
	system, _ := ExtractSystemMessage(messages)
	return system, BuildUserPrompt(messages)
}
