package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/container"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/sandbox"
	"go.uber.org/zap"
)

// BuildCommand constructs the *exec.Cmd for one adapter invocation, choosing
// between a direct sandboxed host process and a docker-container-backed one
// based on config.ContainerImage. The returned cleanup func must be called
// exactly once the command — or, for a streaming invocation, the stream
// built from it — has finished; it is a no-op on the host-direct path.
func BuildCommand(ctx context.Context, config llm.RunnerConfig, args []string, logger *zap.Logger) (*exec.Cmd, func(), error) {
	noop := func() {}

	if config.ContainerImage == "" {
		cmd := exec.CommandContext(ctx, config.BinaryPath, args...)
		if policy, err := sandbox.BuildPolicy(config.WorkingDirectory, config.AllowedEnvKeys); err == nil {
			sandbox.Apply(cmd, policy, logger)
		}
		return cmd, noop, nil
	}

	scratchDir, err := os.MkdirTemp("", "cliwire-scratch-*")
	if err != nil {
		return nil, noop, cliwireerr.Wrap(cliwireerr.KindInternal, err, "creating container scratch directory")
	}

	containerConfig := container.Config{
		Image:       config.ContainerImage,
		MemoryLimit: config.ContainerMemoryLimit,
		PIDsLimit:   config.ContainerPIDsLimit,
		NetworkMode: config.ContainerNetworkMode,
		ExtraMounts: config.ContainerExtraMounts,
		EnvVars:     config.ContainerEnvVars,
	}
	cmd := container.Build(ctx, containerConfig, scratchDir, filepath.Base(config.BinaryPath), args)
	cleanup := func() { _ = os.RemoveAll(scratchDir) }
	return cmd, cleanup, nil
}
