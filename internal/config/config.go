// Package config handles loading and validating gateway configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/howard-nolan/cliwire/internal/container"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the variable prefix that can override a config key, e.g.
// CLIWIRE_SERVER_PORT overrides server.port. Every underscore after the
// prefix becomes a key separator, so keys whose names contain an
// underscore (default_provider, server.read_timeout, ...) cannot be
// reached this way.
const envPrefix = "CLIWIRE_"

// Config is the top-level configuration for the cliwire gateway.
type Config struct {
	Server          ServerConfig              `koanf:"server"`
	DefaultProvider string                    `koanf:"default_provider"`
	Providers       map[string]ProviderConfig `koanf:"providers"`
}

// ServerConfig holds HTTP server settings for the REST front.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// ProviderConfig holds the per-provider overrides a gateway operator can
// set on top of an adapter's built-in defaults: which binary to run, what
// model to default to, how long a single invocation is allowed to run,
// which environment variables the subprocess may see, where it runs, and
// whether it should be sandboxed inside a container image instead of
// running directly on the host.
type ProviderConfig struct {
	BinaryPath       string        `koanf:"binary_path"`
	Model            string        `koanf:"model"`
	Timeout          time.Duration `koanf:"timeout"`
	ExtraArgs        []string      `koanf:"extra_args"`
	AllowedEnvKeys   []string      `koanf:"allowed_env_keys"`
	WorkingDirectory string        `koanf:"working_directory"`
	ContainerImage   string        `koanf:"container_image"`

	// The remaining fields are only meaningful once ContainerImage routes
	// this provider's invocations through docker.
	ContainerMemoryLimit string `koanf:"container_memory_limit"`
	ContainerPIDsLimit   int    `koanf:"container_pids_limit"`
	ContainerNetworkMode string `koanf:"container_network_mode"`
	// ContainerExtraMounts entries are "source:target" or
	// "source:target:ro", matching docker's own -v syntax.
	ContainerExtraMounts []string          `koanf:"container_extra_mounts"`
	ContainerEnvVars     map[string]string `koanf:"container_env_vars"`
}

// Load reads configuration from a YAML file, layers environment variable
// overrides on top, and returns a fully populated Config.
func Load(path string) (*Config, error) {
	// Load .env file into the process environment (ignored if not present).
	// This is the equivalent of require('dotenv').config() in Node.
	_ = godotenv.Load()

	// Create a new koanf instance. The "." delimiter tells koanf how to
	// separate nested keys internally (e.g., "server.port").
	k := koanf.New(".")

	cfg := Default()

	// Load the YAML config file. file.Provider reads the file,
	// yaml.Parser() decodes the YAML format into koanf's internal map.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}

	// Layer environment variables on top. An env var starting with
	// "CLIWIRE_" can override a config value whose key has no underscore
	// in it. The callback transforms the env var name into a koanf key path:
	//   CLIWIRE_SERVER_PORT -> server.port
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"_", ".",
		)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	// Unmarshal the loaded key-value pairs into our Config struct.
	// The "" means start from the root. cfg is already a pointer, so koanf
	// writes into the struct Default returned (like passing by reference
	// in Node), keeping any default the file and env leave unset.
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR_NAME} placeholders in provider binary paths, the one
	// field an operator is likely to point at a secret-bearing wrapper
	// script rather than a literal path.
	for name, p := range cfg.Providers {
		p.BinaryPath = expandEnvPlaceholder(p.BinaryPath)
		cfg.Providers[name] = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a Config with the gateway's built-in defaults, used as
// the base that Load layers a config file and env vars on top of.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		DefaultProvider: "copilot",
		Providers:       map[string]ProviderConfig{},
	}
}

// Validate checks invariants Load can't express structurally: the server
// port must be in the valid TCP range, and default_provider must name one
// of the four known CLI providers.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if _, ok := llm.ParseKind(c.DefaultProvider); !ok {
		return fmt.Errorf("default_provider %q is not one of: %s", c.DefaultProvider, llm.ValidKindNames())
	}
	return nil
}

// DefaultProviderKind resolves DefaultProvider to an llm.Kind. Callers
// should only reach this after Validate has succeeded.
func (c *Config) DefaultProviderKind() llm.Kind {
	kind, _ := llm.ParseKind(c.DefaultProvider)
	return kind
}

// RunnerOverrides converts the per-provider config entries into the
// registry's Overrides map, resolving each entry's Kind from its map key.
func (c *Config) RunnerOverrides() map[llm.Kind]llm.RunnerConfig {
	overrides := make(map[llm.Kind]llm.RunnerConfig, len(c.Providers))
	for name, p := range c.Providers {
		kind, ok := llm.ParseKind(name)
		if !ok {
			continue
		}
		overrides[kind] = llm.RunnerConfig{
			BinaryPath:            p.BinaryPath,
			Model:                 p.Model,
			Timeout:               p.Timeout,
			ExtraArgs:             p.ExtraArgs,
			AllowedEnvKeys:        p.AllowedEnvKeys,
			WorkingDirectory:      p.WorkingDirectory,
			ContainerImage:        p.ContainerImage,
			ContainerMemoryLimit:  p.ContainerMemoryLimit,
			ContainerPIDsLimit:    p.ContainerPIDsLimit,
			ContainerNetworkMode:  container.NetworkMode(p.ContainerNetworkMode),
			ContainerExtraMounts:  parseMounts(p.ContainerExtraMounts),
			ContainerEnvVars:      p.ContainerEnvVars,
		}
	}
	return overrides
}

// parseMounts turns docker -v-style "source:target" / "source:target:ro"
// strings into container.Mount values. An entry that doesn't split into at
// least source and target is skipped rather than erroring the whole config
// load over one bad mount line.
func parseMounts(specs []string) []container.Mount {
	if len(specs) == 0 {
		return nil
	}
	mounts := make([]container.Mount, 0, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 {
			continue
		}
		mounts = append(mounts, container.Mount{
			Source:   parts[0],
			Target:   parts[1],
			ReadOnly: len(parts) >= 3 && parts[2] == "ro",
		})
	}
	return mounts
}

func expandEnvPlaceholder(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		return os.Getenv(value[2 : len(value)-1])
	}
	return value
}
