package registry

import (
	"testing"
	"time"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestMergeOverrideAppliesNonZeroFields(t *testing.T) {
	base := llm.NewRunnerConfig("/usr/bin/claude")
	override := llm.RunnerConfig{
		Model:          "opus",
		Timeout:        45 * time.Second,
		ContainerImage: "cliwire/claude:latest",
	}

	merged := mergeOverride(base, override)

	assert.Equal(t, "opus", merged.Model)
	assert.Equal(t, 45*time.Second, merged.Timeout)
	assert.Equal(t, "cliwire/claude:latest", merged.ContainerImage)
	assert.Equal(t, "/usr/bin/claude", merged.BinaryPath)
}

func TestMergeOverrideLeavesBaseUntouchedWhenOverrideEmpty(t *testing.T) {
	base := llm.NewRunnerConfig("/usr/bin/claude")
	merged := mergeOverride(base, llm.RunnerConfig{})

	assert.Equal(t, base, merged)
}
