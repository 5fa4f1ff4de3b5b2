// Package registry lazily constructs and caches one llm.Provider per
// provider kind, resolving the binary and building the adapter exactly
// once per kind even under concurrent first-use.
package registry

import (
	"context"
	"os"
	"sync"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/discovery"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/llm/claudecode"
	"github.com/howard-nolan/cliwire/internal/llm/copilot"
	"github.com/howard-nolan/cliwire/internal/llm/cursoragent"
	"github.com/howard-nolan/cliwire/internal/llm/opencode"
	"go.uber.org/zap"
)

// Overrides lets config supply a non-default RunnerConfig (binary path,
// timeout, extra args, env whitelist, working directory, explicit model)
// per provider kind. Any field in a given Overrides entry left at its zero
// value falls back to llm.NewRunnerConfig's defaults. A BinaryPath here is
// used when the provider's <PROVIDER>_BINARY env var is unset.
type Overrides map[llm.Kind]llm.RunnerConfig

// Registry is the get-or-create cache of live provider adapters.
//
// Construction happens under the same lock used to check the cache: the
// critical section is usually short (a PATH lookup and a struct
// allocation), so serializing it under burst load is cheaper than the
// complexity of a double-checked lock or a per-kind mutex. The exception
// is Copilot, whose constructor runs a `gh copilot models` probe (up to
// 10s) while the lock is held.
type Registry struct {
	mu        sync.Mutex
	providers map[llm.Kind]llm.Provider
	overrides Overrides
	logger    *zap.Logger
}

// New creates an empty registry. overrides may be nil.
func New(overrides Overrides, logger *zap.Logger) *Registry {
	if overrides == nil {
		overrides = Overrides{}
	}
	return &Registry{
		providers: make(map[llm.Kind]llm.Provider),
		overrides: overrides,
		logger:    logger,
	}
}

// Get returns the cached adapter for kind, constructing it on first use.
func (r *Registry) Get(kind llm.Kind) (llm.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[kind]; ok {
		return p, nil
	}

	envOverride := os.Getenv(kind.EnvOverrideKey())
	if envOverride == "" {
		envOverride = r.overrides[kind].BinaryPath
	}
	binaryPath, err := discovery.Resolve(kind.BinaryName(), envOverride)
	if err != nil {
		return nil, err
	}

	config := llm.NewRunnerConfig(binaryPath)
	if override, ok := r.overrides[kind]; ok {
		config = mergeOverride(config, override)
	}

	provider, err := construct(kind, config, r.logger)
	if err != nil {
		return nil, err
	}

	r.providers[kind] = provider
	return provider, nil
}

func construct(kind llm.Kind, config llm.RunnerConfig, logger *zap.Logger) (llm.Provider, error) {
	switch kind {
	case llm.ClaudeCode:
		return claudecode.New(config, logger), nil
	case llm.Copilot:
		return copilot.New(context.Background(), config, logger), nil
	case llm.CursorAgent:
		return cursoragent.New(config, logger), nil
	case llm.OpenCode:
		return opencode.New(config, logger), nil
	default:
		return nil, cliwireerr.Newf(cliwireerr.KindConfig, "unrecognized provider kind %q", kind)
	}
}

func mergeOverride(base, override llm.RunnerConfig) llm.RunnerConfig {
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.Timeout != 0 {
		base.Timeout = override.Timeout
	}
	if len(override.ExtraArgs) > 0 {
		base.ExtraArgs = override.ExtraArgs
	}
	if len(override.AllowedEnvKeys) > 0 {
		base.AllowedEnvKeys = override.AllowedEnvKeys
	}
	if override.WorkingDirectory != "" {
		base.WorkingDirectory = override.WorkingDirectory
	}
	if override.ContainerImage != "" {
		base.ContainerImage = override.ContainerImage
	}
	if override.ContainerMemoryLimit != "" {
		base.ContainerMemoryLimit = override.ContainerMemoryLimit
	}
	if override.ContainerPIDsLimit != 0 {
		base.ContainerPIDsLimit = override.ContainerPIDsLimit
	}
	if override.ContainerNetworkMode != "" {
		base.ContainerNetworkMode = override.ContainerNetworkMode
	}
	if len(override.ContainerExtraMounts) > 0 {
		base.ContainerExtraMounts = override.ContainerExtraMounts
	}
	if len(override.ContainerEnvVars) > 0 {
		base.ContainerEnvVars = override.ContainerEnvVars
	}
	return base
}
