// Package readiness probes whether a provider's CLI is installed AND
// authenticated, distinct from capability.Probe which only checks the
// version string.
package readiness

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/runner"
	"go.uber.org/zap"
)

const (
	checkTimeout   = 15 * time.Second
	checkMaxOutput = 64 * 1024
)

// Check runs a lightweight probe command appropriate for kind and
// interprets the result. It never returns an error: a missing binary comes
// back as llm.BinaryMissing, a non-zero exit as llm.NotReady, and a spawn
// or I/O failure as llm.UnknownState.
func Check(ctx context.Context, kind llm.Kind, binaryPath string, logger *zap.Logger) llm.ReadinessStatus {
	if _, err := os.Stat(binaryPath); err != nil {
		return llm.ReadinessStatus{State: llm.BinaryMissing, Reason: "expected binary: " + binaryPath}
	}

	switch kind {
	case llm.ClaudeCode:
		return runProbe(ctx, binaryPath, []string{"auth", "status"}, "claude", logger)
	case llm.Copilot:
		// Prefer `gh auth status` when the gh CLI is on PATH — it gives a
		// real authentication signal. Fall back to --version, which only
		// proves the binary runs.
		if ghPath, err := exec.LookPath("gh"); err == nil {
			return runProbe(ctx, ghPath, []string{"auth", "status"}, "copilot", logger)
		}
		return runProbe(ctx, binaryPath, []string{"--version"}, "copilot", logger)
	case llm.CursorAgent:
		return runProbe(ctx, binaryPath, []string{"--version"}, "cursor-agent", logger)
	case llm.OpenCode:
		return runProbe(ctx, binaryPath, []string{"--version"}, "opencode", logger)
	default:
		return llm.ReadinessStatus{State: llm.UnknownState, Reason: "unrecognized provider kind"}
	}
}

func runProbe(ctx context.Context, binaryPath string, args []string, name string, logger *zap.Logger) llm.ReadinessStatus {
	cmd := exec.CommandContext(ctx, binaryPath, args...)
	out, err := runner.Run(ctx, cmd, checkTimeout, checkMaxOutput)
	if err != nil {
		if logger != nil {
			logger.Warn("readiness probe failed to run", zap.String("provider", name), zap.Error(err))
		}
		return llm.ReadinessStatus{State: llm.UnknownState, Reason: "failed to run probe: " + err.Error()}
	}
	if out.ExitCode == 0 {
		if logger != nil {
			logger.Debug("readiness probe succeeded", zap.String("provider", name))
		}
		return llm.ReadinessStatus{State: llm.Ready}
	}
	if logger != nil {
		logger.Warn("readiness probe exited non-zero",
			zap.String("provider", name), zap.Int("exit_code", out.ExitCode),
			zap.ByteString("stderr", out.Stderr))
	}
	return llm.ReadinessStatus{
		State:  llm.NotReady,
		Reason: name + " probe exited with a non-zero status",
		Action: authAction(name),
	}
}

func authAction(name string) string {
	switch name {
	case "claude":
		return "Run `claude auth login` to authenticate"
	case "copilot":
		return "Run `copilot` to complete GitHub authentication"
	default:
		return "Verify " + name + " is properly installed and authenticated"
	}
}
