// Package container builds docker-wrapped commands for CLI runners that opt
// into sandboxed container execution instead of running directly on the
// host. It only builds the command — starting and waiting on it is the
// same runner.Run / guardedstream.New contract every host-direct adapter
// already uses.
package container

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
)

// NetworkMode selects the container's network namespace. The zero value
// behaves as NetworkNone, matching the original sandbox's network-off
// default.
type NetworkMode string

const (
	NetworkNone NetworkMode = "none"
	NetworkHost NetworkMode = "host"
)

// Mount is one extra bind mount beyond the mandatory scratch mount.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Config describes how a single CLI invocation should be wrapped in a
// container.
type Config struct {
	Image       string
	MemoryLimit string // docker --memory value, e.g. "512m"; empty means unset
	PIDsLimit   int    // 0 means unset
	NetworkMode NetworkMode
	ExtraMounts []Mount
	EnvVars     map[string]string
}

// Build constructs a `docker run` command that executes binaryName inside
// config.Image with args, bind-mounting scratchDir read-write at /scratch.
// The container always runs --rm, --read-only, with all capabilities
// dropped and privilege escalation disabled; scratchDir and any ExtraMounts
// not marked ReadOnly are the only writable paths available to the CLI.
func Build(ctx context.Context, config Config, scratchDir, binaryName string, args []string) *exec.Cmd {
	dockerArgs := []string{
		"run", "--rm", "--read-only",
		"--cap-drop=ALL", "--security-opt=no-new-privileges",
	}

	if config.MemoryLimit != "" {
		dockerArgs = append(dockerArgs, "--memory="+config.MemoryLimit)
	}
	if config.PIDsLimit > 0 {
		dockerArgs = append(dockerArgs, fmt.Sprintf("--pids-limit=%d", config.PIDsLimit))
	}

	network := config.NetworkMode
	if network == "" {
		network = NetworkNone
	}
	dockerArgs = append(dockerArgs, "--network="+string(network))

	dockerArgs = append(dockerArgs, "-v", scratchDir+":/scratch")
	for _, m := range config.ExtraMounts {
		spec := m.Source + ":" + m.Target
		if m.ReadOnly {
			spec += ":ro"
		}
		dockerArgs = append(dockerArgs, "-v", spec)
	}

	// Sorted so the argv is deterministic across runs with the same
	// config, which keeps logging and tests reproducible.
	keys := make([]string, 0, len(config.EnvVars))
	for k := range config.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dockerArgs = append(dockerArgs, "-e", k+"="+config.EnvVars[k])
	}

	dockerArgs = append(dockerArgs, config.Image, binaryName)
	dockerArgs = append(dockerArgs, args...)

	return exec.CommandContext(ctx, "docker", dockerArgs...)
}
