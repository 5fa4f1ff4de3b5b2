// Package discovery locates CLI provider binaries on the host.
package discovery

import (
	"os"
	"os/exec"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/llm"
	"go.uber.org/zap"
)

// Resolve finds the absolute path to a provider's CLI binary.
//
// If envOverride is non-empty, it is used verbatim — but only if the path it
// names actually exists; a stale override is a config mistake, not a missing
// binary, so it fails with KindInternal rather than KindBinaryNotFound.
// Otherwise Resolve searches the process PATH using exec.LookPath, which
// already honors PATHEXT on Windows and the executable bit on Unix, so there
// is nothing for a third-party library to add here.
func Resolve(name, envOverride string) (string, error) {
	if envOverride != "" {
		if _, err := os.Stat(envOverride); err != nil {
			return "", cliwireerr.Newf(cliwireerr.KindInternal,
				"binary override %q does not exist", envOverride)
		}
		return envOverride, nil
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", cliwireerr.Wrapf(cliwireerr.KindBinaryNotFound, err,
			"binary %q not found on PATH", name)
	}
	return path, nil
}

// DiscoverDefault probes every provider in llm.AllKinds's priority order
// (Claude Code, Copilot, Cursor Agent, OpenCode) and returns the first one
// whose binary resolves, for use as the gateway's default provider when
// none is configured explicitly.
func DiscoverDefault(logger *zap.Logger) (llm.Kind, string, error) {
	for _, kind := range llm.AllKinds {
		envOverride := os.Getenv(kind.EnvOverrideKey())
		path, err := Resolve(kind.BinaryName(), envOverride)
		if err != nil {
			if logger != nil {
				logger.Debug("runner not found, trying next",
					zap.String("runner", kind.BinaryName()))
			}
			continue
		}
		if logger != nil {
			logger.Debug("discovered CLI runner",
				zap.String("runner", kind.BinaryName()),
				zap.String("path", path))
		}
		return kind, path, nil
	}
	return "", "", cliwireerr.New(cliwireerr.KindBinaryNotFound,
		"no CLI runner found; install one of: claude, copilot, cursor-agent, opencode")
}
