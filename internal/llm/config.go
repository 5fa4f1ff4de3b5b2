package llm

import (
	"time"

	"github.com/howard-nolan/cliwire/internal/container"
)

// DefaultTimeout is the wall-clock budget a RunnerConfig gets unless
// overridden.
const DefaultTimeout = 120 * time.Second

// RunnerConfig is per-adapter configuration, resolved once at registry
// construction time and then immutable for the adapter's lifetime.
type RunnerConfig struct {
	BinaryPath       string
	Model            string // optional override; empty means the adapter's own default
	Timeout          time.Duration
	ExtraArgs        []string
	AllowedEnvKeys   []string
	WorkingDirectory string

	// ContainerImage, when non-empty, routes this adapter's invocations
	// through a docker container instead of running the binary directly
	// on the host. Empty means host-direct execution.
	ContainerImage string

	// The remaining fields only take effect when ContainerImage is set;
	// each maps directly onto the matching container.Config field.
	ContainerMemoryLimit string
	ContainerPIDsLimit    int
	ContainerNetworkMode  container.NetworkMode
	ContainerExtraMounts  []container.Mount
	ContainerEnvVars      map[string]string
}

// NewRunnerConfig fills in the documented defaults: a 120s timeout and the
// standard HOME/PATH/TERM/USER/LANG env whitelist.
func NewRunnerConfig(binaryPath string) RunnerConfig {
	return RunnerConfig{
		BinaryPath:     binaryPath,
		Timeout:        DefaultTimeout,
		AllowedEnvKeys: []string{"HOME", "PATH", "TERM", "USER", "LANG"},
	}
}
