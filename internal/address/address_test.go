package address

import (
	"testing"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestResolveProviderWithModel(t *testing.T) {
	result := Resolve("copilot:gpt-4o", llm.ClaudeCode)
	assert.Equal(t, llm.Copilot, result.Kind)
	assert.Equal(t, "gpt-4o", result.Model)
}

func TestResolveClaudeWithModel(t *testing.T) {
	result := Resolve("claude:opus", llm.Copilot)
	assert.Equal(t, llm.ClaudeCode, result.Kind)
	assert.Equal(t, "opus", result.Model)
}

func TestResolveProviderOnly(t *testing.T) {
	result := Resolve("copilot", llm.ClaudeCode)
	assert.Equal(t, llm.Copilot, result.Kind)
	assert.Empty(t, result.Model)
}

func TestResolveBareModelUsesDefault(t *testing.T) {
	result := Resolve("gpt-4o", llm.Copilot)
	assert.Equal(t, llm.Copilot, result.Kind)
	assert.Equal(t, "gpt-4o", result.Model)
}

func TestResolveProviderWithEmptyModel(t *testing.T) {
	result := Resolve("copilot:", llm.ClaudeCode)
	assert.Equal(t, llm.Copilot, result.Kind)
	assert.Empty(t, result.Model)
}

func TestResolveUnknownPrefixAsBareModel(t *testing.T) {
	// A colon is present but "unknown" isn't a recognized provider prefix,
	// so the whole string is treated as a bare model name.
	result := Resolve("unknown:something", llm.Copilot)
	assert.Equal(t, llm.Copilot, result.Kind)
	assert.Equal(t, "unknown:something", result.Model)
}

func TestResolveCaseInsensitiveProvider(t *testing.T) {
	result := Resolve("CLAUDE:opus", llm.Copilot)
	assert.Equal(t, llm.ClaudeCode, result.Kind)
	assert.Equal(t, "opus", result.Model)
}

func TestResolveCursorAgentVariants(t *testing.T) {
	for _, prefix := range []string{"cursor_agent", "cursor-agent", "cursoragent"} {
		result := Resolve(prefix+":model", llm.Copilot)
		assert.Equal(t, llm.CursorAgent, result.Kind, "prefix %q", prefix)
		assert.Equal(t, "model", result.Model, "prefix %q", prefix)
	}
}

func TestResolveOpenCodeVariants(t *testing.T) {
	result := Resolve("opencode:latest", llm.Copilot)
	assert.Equal(t, llm.OpenCode, result.Kind)
	assert.Equal(t, "latest", result.Model)

	result = Resolve("open_code:latest", llm.Copilot)
	assert.Equal(t, llm.OpenCode, result.Kind)
	assert.Equal(t, "latest", result.Model)
}
