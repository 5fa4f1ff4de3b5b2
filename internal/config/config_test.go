package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary YAML config file with known values.
	// t.TempDir() gives us a directory that's auto-deleted after the test.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  host: 0.0.0.0
  port: 9090
  read_timeout: 10s
  write_timeout: 60s

default_provider: claude_code

providers:
  claude_code:
    binary_path: ${TEST_CLAUDE_BINARY}
    model: opus
    timeout: 90s
    allowed_env_keys:
      - HOME
      - PATH
`
	// os.WriteFile writes a byte slice to a file. The 0644 is the Unix file
	// permission (owner read/write, group and others read-only).
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err) // require stops the test immediately if this fails

	// Set the environment variable that ${TEST_CLAUDE_BINARY} should resolve to.
	// t.Setenv auto-restores the original value when the test finishes.
	t.Setenv("TEST_CLAUDE_BINARY", "/usr/local/bin/claude")

	// Load the config.
	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Assert server config values.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "claude_code", cfg.DefaultProvider)

	// Assert provider config values.
	claude, ok := cfg.Providers["claude_code"]
	assert.True(t, ok, "claude_code provider should exist")
	assert.Equal(t, "/usr/local/bin/claude", claude.BinaryPath)
	assert.Equal(t, "opus", claude.Model)
	assert.Equal(t, 90*time.Second, claude.Timeout)
	assert.Equal(t, []string{"HOME", "PATH"}, claude.AllowedEnvKeys)
}

func TestLoadEnvOverride(t *testing.T) {
	// Verify that CLIWIRE_ env vars override YAML values.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  port: 8080
  read_timeout: 30s
  write_timeout: 120s

default_provider: copilot
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// This should override server.port from 8080 to 3000.
	t.Setenv("CLIWIRE_SERVER_PORT", "3000")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "copilot", cfg.DefaultProvider)
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.DefaultProvider = "not_a_real_provider"
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	err := cfg.Validate()
	require.Error(t, err)
}

func TestRunnerOverridesResolvesKinds(t *testing.T) {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"cursor_agent": {Model: "fast", Timeout: 45 * time.Second},
	}

	overrides := cfg.RunnerOverrides()
	require.Len(t, overrides, 1)

	for kind, override := range overrides {
		assert.Equal(t, "cursor_agent", kind.String())
		assert.Equal(t, "fast", override.Model)
		assert.Equal(t, 45*time.Second, override.Timeout)
	}
}

func TestRunnerOverridesCarriesContainerImage(t *testing.T) {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"copilot": {ContainerImage: "cliwire/copilot:latest"},
	}

	overrides := cfg.RunnerOverrides()
	require.Len(t, overrides, 1)

	for _, override := range overrides {
		assert.Equal(t, "cliwire/copilot:latest", override.ContainerImage)
	}
}

func TestRunnerOverridesCarriesContainerTuning(t *testing.T) {
	cfg := Default()
	cfg.Providers = map[string]ProviderConfig{
		"opencode": {
			ContainerImage:       "cliwire/opencode:latest",
			ContainerMemoryLimit: "512m",
			ContainerPIDsLimit:   64,
			ContainerNetworkMode: "host",
			ContainerExtraMounts: []string{"/host/cache:/cache:ro", "/host/data:/data"},
			ContainerEnvVars:     map[string]string{"OPENCODE_HOME": "/scratch"},
		},
	}

	overrides := cfg.RunnerOverrides()
	require.Len(t, overrides, 1)

	for _, override := range overrides {
		assert.Equal(t, "512m", override.ContainerMemoryLimit)
		assert.Equal(t, 64, override.ContainerPIDsLimit)
		assert.EqualValues(t, "host", override.ContainerNetworkMode)
		require.Len(t, override.ContainerExtraMounts, 2)
		assert.Equal(t, "/host/cache", override.ContainerExtraMounts[0].Source)
		assert.Equal(t, "/cache", override.ContainerExtraMounts[0].Target)
		assert.True(t, override.ContainerExtraMounts[0].ReadOnly)
		assert.False(t, override.ContainerExtraMounts[1].ReadOnly)
		assert.Equal(t, "/scratch", override.ContainerEnvVars["OPENCODE_HOME"])
	}
}

func TestParseMountsSkipsMalformedEntries(t *testing.T) {
	mounts := parseMounts([]string{"not-a-mount", "/a:/b"})
	require.Len(t, mounts, 1)
	assert.Equal(t, "/a", mounts[0].Source)
	assert.Equal(t, "/b", mounts[0].Target)
}
