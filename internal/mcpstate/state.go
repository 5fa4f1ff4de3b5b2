// Package mcpstate holds the mutable session state an MCP client drives
// through the provider/model/multiplex tools: which provider is active,
// which model it should use, and which providers a multiplex prompt call
// fans out to. Unlike the REST front (which resolves a provider fresh from
// every request's model field), the MCP front is a stateful conversation
// partner — tool calls mutate a single shared session.
package mcpstate

import (
	"sync"

	"github.com/howard-nolan/cliwire/internal/llm"
)

// Runners is the subset of *registry.Registry the MCP front depends on for
// lazily creating and caching provider adapters.
type Runners interface {
	Get(kind llm.Kind) (llm.Provider, error)
}

// State is the shared, mutex-guarded session state for one MCP server
// process. All fields are accessed only through its methods.
type State struct {
	mu                 sync.RWMutex
	activeProvider     llm.Kind
	activeModel        string // empty means "use the provider's own default"
	multiplexProviders []llm.Kind

	runners Runners
}

// New creates session state defaulting to defaultProvider, with no active
// model override and no multiplex providers configured.
func New(defaultProvider llm.Kind, runners Runners) *State {
	return &State{activeProvider: defaultProvider, runners: runners}
}

// ActiveProvider returns the currently selected provider.
func (s *State) ActiveProvider() llm.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeProvider
}

// SetActiveProvider switches the active provider and resets the active
// model, since a model override almost never carries over between
// different providers' CLIs.
func (s *State) SetActiveProvider(provider llm.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeProvider = provider
	s.activeModel = ""
}

// ActiveModel returns the current model override, or "" for "use default".
func (s *State) ActiveModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeModel
}

// SetActiveModel sets the model override for subsequent prompt calls.
// An empty string clears the override back to "use provider default".
func (s *State) SetActiveModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeModel = model
}

// MultiplexProviders returns the providers configured for multiplex
// dispatch. An empty slice means multiplexing isn't configured.
func (s *State) MultiplexProviders() []llm.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Kind, len(s.multiplexProviders))
	copy(out, s.multiplexProviders)
	return out
}

// SetMultiplexProviders replaces the multiplex provider list.
func (s *State) SetMultiplexProviders(providers []llm.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multiplexProviders = append([]llm.Kind(nil), providers...)
}

// Runner returns the cached (or lazily constructed) adapter for kind.
func (s *State) Runner(kind llm.Kind) (llm.Provider, error) {
	return s.runners.Get(kind)
}
