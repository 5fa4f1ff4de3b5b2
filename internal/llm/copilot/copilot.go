// Package copilot adapts the `copilot` CLI to the llm.Provider contract.
package copilot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/guardedstream"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/prompt"
	"github.com/howard-nolan/cliwire/internal/runner"
	"go.uber.org/zap"
)

const (
	maxOutputBytes      = 50 * 1024 * 1024
	healthCheckTimeout  = 10 * time.Second
	healthCheckMaxBytes = 4096
	modelProbeTimeout   = 10 * time.Second
	modelProbeMaxBytes  = 16 * 1024
	defaultModel        = "claude-opus-4.6"
)

// StaticFallbackModels is used when the `gh copilot models` discovery probe
// is unavailable or fails.
var StaticFallbackModels = []string{
	"claude-sonnet-4.6",
	"claude-opus-4.6",
	"claude-opus-4.6-fast",
	"claude-sonnet-4.5",
	"claude-haiku-4.5",
	"claude-sonnet-4",
	"gpt-5.2-codex",
	"gpt-5.2",
	"gpt-5.1-codex",
	"gpt-5.1",
	"gpt-5-mini",
	"gpt-4.1",
	"gemini-3-pro-preview",
}

// Runner implements llm.Provider by delegating to the copilot binary in
// non-interactive mode. Copilot CLI emits plain text, not JSON, so the
// complete response is just trimmed stdout.
type Runner struct {
	config   llm.RunnerConfig
	logger   *zap.Logger
	modelsMu sync.Mutex
	models   []string
}

// New creates a Copilot runner and probes `gh copilot models` once, the
// one deliberate blocking call this gateway makes at adapter construction
// time. It runs a single time per process, when the registry first
// constructs the Copilot adapter on first use.
func New(ctx context.Context, config llm.RunnerConfig, logger *zap.Logger) *Runner {
	r := &Runner{config: config, logger: logger}
	r.models = discoverModels(ctx, logger)
	return r
}

func discoverModels(ctx context.Context, logger *zap.Logger) []string {
	ghPath, err := exec.LookPath("gh")
	if err != nil {
		if logger != nil {
			logger.Debug("gh not found on PATH, using static copilot model list")
		}
		return append([]string(nil), StaticFallbackModels...)
	}

	cmd := exec.CommandContext(ctx, ghPath, "copilot", "models")
	out, err := runner.Run(ctx, cmd, modelProbeTimeout, modelProbeMaxBytes)
	if err != nil || out.ExitCode != 0 {
		if logger != nil {
			logger.Debug("gh copilot models probe failed, using static copilot model list", zap.Error(err))
		}
		return append([]string(nil), StaticFallbackModels...)
	}

	var models []string
	scanner := bufio.NewScanner(bytes.NewReader(out.Stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			models = append(models, line)
		}
	}
	if len(models) == 0 {
		return append([]string(nil), StaticFallbackModels...)
	}
	return models
}

func (r *Runner) Name() string        { return "copilot" }
func (r *Runner) DisplayName() string { return "GitHub Copilot CLI" }

func (r *Runner) DefaultModel() string {
	if r.config.Model != "" {
		return r.config.Model
	}
	return defaultModel
}

func (r *Runner) AvailableModels() []string {
	r.modelsMu.Lock()
	defer r.modelsMu.Unlock()
	return append([]string(nil), r.models...)
}

func (r *Runner) Capabilities() llm.Capabilities {
	return llm.Capabilities{Runner: llm.Copilot, JSONOutput: false, Streaming: true}
}

func (r *Runner) buildCommand(ctx context.Context, userPrompt, model string, silent, streaming bool) (*exec.Cmd, func(), error) {
	if model == "" {
		model = r.DefaultModel()
	}
	args := []string{"-p", userPrompt, "--model", model,
		"--allow-all-tools", "--disable-builtin-mcps", "--no-custom-instructions",
		"--no-ask-user", "--no-color"}
	if silent {
		args = append(args, "-s")
	}
	if streaming {
		args = append(args, "--stream", "on")
	}
	args = append(args, r.config.ExtraArgs...)

	return runner.BuildCommand(ctx, r.config, args, r.logger)
}

func (r *Runner) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	logAdvisoryIgnored(r.logger, "copilot", req)

	userPrompt := prompt.BuildCombined(req.Messages)
	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, req.Model, true, false)
	if err != nil {
		return nil, errWithProvider(err)
	}
	defer cleanup()

	out, err := runner.Run(ctx, cmd, r.config.Timeout, maxOutputBytes)
	if err != nil {
		return nil, errWithProvider(err)
	}
	if out.ExitCode != 0 {
		return nil, cliwireerr.Newf(cliwireerr.KindExternalService,
			"copilot exited with code %d: %s", out.ExitCode, bytes.TrimSpace(out.Stderr)).WithProvider("copilot")
	}

	return &llm.ChatResponse{
		Content:      strings.TrimSpace(string(out.Stdout)),
		Model:        "copilot",
		FinishReason: "stop",
	}, nil
}

func (r *Runner) CompleteStream(ctx context.Context, req *llm.ChatRequest) (llm.StreamReader, error) {
	logAdvisoryIgnored(r.logger, "copilot", req)

	userPrompt := prompt.BuildCombined(req.Messages)
	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, req.Model, true, true)
	if err != nil {
		return nil, errWithProvider(err)
	}

	return guardedstream.NewWithCleanup(cmd, parseStreamLine, cleanup)
}

// parseStreamLine emits one chunk per stdout line with is_final always
// false — the end of stream is implicit in the child's stdout closing.
func parseStreamLine(line []byte) (llm.StreamChunk, bool, error) {
	return llm.StreamChunk{Delta: string(line)}, true, nil
}

func (r *Runner) HealthCheck(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, r.config.BinaryPath, "--version")
	out, err := runner.Run(ctx, cmd, healthCheckTimeout, healthCheckMaxBytes)
	if err != nil {
		return false, errWithProvider(err)
	}
	return out.ExitCode == 0, nil
}

func logAdvisoryIgnored(logger *zap.Logger, provider string, req *llm.ChatRequest) {
	if logger == nil || (req.Temperature == nil && req.MaxTokens == nil) {
		return
	}
	logger.Debug(provider+" CLI does not support temperature or max_tokens; ignoring",
		zap.Any("temperature", req.Temperature), zap.Any("max_tokens", req.MaxTokens))
}

func errWithProvider(err error) error {
	var e *cliwireerr.Error
	if errors.As(err, &e) {
		return e.WithProvider("copilot")
	}
	return err
}
