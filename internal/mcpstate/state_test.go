package mcpstate

import (
	"testing"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/stretchr/testify/assert"
)

type fakeRunners struct{}

func (fakeRunners) Get(kind llm.Kind) (llm.Provider, error) { return nil, nil }

func TestDefaultStateUsesProvidedProvider(t *testing.T) {
	s := New(llm.Copilot, fakeRunners{})
	assert.Equal(t, llm.Copilot, s.ActiveProvider())
	assert.Empty(t, s.ActiveModel())
	assert.Empty(t, s.MultiplexProviders())
}

func TestSetProviderResetsModel(t *testing.T) {
	s := New(llm.Copilot, fakeRunners{})
	s.SetActiveModel("gpt-4o")
	assert.Equal(t, "gpt-4o", s.ActiveModel())

	s.SetActiveProvider(llm.ClaudeCode)
	assert.Equal(t, llm.ClaudeCode, s.ActiveProvider())
	assert.Empty(t, s.ActiveModel())
}

func TestMultiplexProvidersRoundTrip(t *testing.T) {
	s := New(llm.Copilot, fakeRunners{})
	providers := []llm.Kind{llm.ClaudeCode, llm.OpenCode}
	s.SetMultiplexProviders(providers)
	assert.Equal(t, providers, s.MultiplexProviders())
}

func TestMultiplexProvidersReturnsIndependentCopy(t *testing.T) {
	s := New(llm.Copilot, fakeRunners{})
	s.SetMultiplexProviders([]llm.Kind{llm.ClaudeCode})

	got := s.MultiplexProviders()
	got[0] = llm.OpenCode

	assert.Equal(t, []llm.Kind{llm.ClaudeCode}, s.MultiplexProviders())
}
