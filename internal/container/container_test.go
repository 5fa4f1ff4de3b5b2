package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildProducesMinimalDockerInvocation(t *testing.T) {
	cmd := Build(context.Background(), Config{Image: "cliwire/copilot:latest"}, "/tmp/scratch-1", "copilot", []string{"-p", "hello"})

	assert.Equal(t, "docker", cmd.Args[0])
	assert.Contains(t, cmd.Args, "--read-only")
	assert.Contains(t, cmd.Args, "--cap-drop=ALL")
	assert.Contains(t, cmd.Args, "--security-opt=no-new-privileges")
	assert.Contains(t, cmd.Args, "--network=none")
	assert.Contains(t, cmd.Args, "/tmp/scratch-1:/scratch")

	last := cmd.Args[len(cmd.Args)-4:]
	assert.Equal(t, []string{"cliwire/copilot:latest", "copilot", "-p", "hello"}, last)
}

func TestBuildAppliesResourceLimitsAndMounts(t *testing.T) {
	cfg := Config{
		Image:       "cliwire/claude:latest",
		MemoryLimit: "512m",
		PIDsLimit:   64,
		NetworkMode: NetworkHost,
		ExtraMounts: []Mount{{Source: "/host/creds", Target: "/creds", ReadOnly: true}},
		EnvVars:     map[string]string{"ANTHROPIC_API_KEY": "secret"},
	}
	cmd := Build(context.Background(), cfg, "/tmp/scratch-2", "claude", nil)

	assert.Contains(t, cmd.Args, "--memory=512m")
	assert.Contains(t, cmd.Args, "--pids-limit=64")
	assert.Contains(t, cmd.Args, "--network=host")
	assert.Contains(t, cmd.Args, "/host/creds:/creds:ro")
	assert.Contains(t, cmd.Args, "ANTHROPIC_API_KEY=secret")
}

func TestBuildDefaultsNetworkModeToNone(t *testing.T) {
	cmd := Build(context.Background(), Config{Image: "cliwire/opencode:latest"}, "/tmp/scratch-3", "opencode", []string{"run"})
	assert.Contains(t, cmd.Args, "--network=none")
}
