// Package opencode adapts the `opencode` CLI to the llm.Provider contract.
// OpenCode has no streaming mode; CompleteStream always fails.
package opencode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"time"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/prompt"
	"github.com/howard-nolan/cliwire/internal/runner"
	"go.uber.org/zap"
)

const (
	maxOutputBytes      = 50 * 1024 * 1024
	healthCheckTimeout  = 10 * time.Second
	healthCheckMaxBytes = 4096
	defaultModel        = "anthropic/claude-sonnet-4"
)

var fallbackModels = []string{
	"anthropic/claude-sonnet-4",
	"anthropic/claude-opus-4",
	"openai/gpt-5",
}

// Runner implements llm.Provider by delegating to `opencode run <prompt>
// --format json`. Models use "provider/model" addressing.
type Runner struct {
	config   llm.RunnerConfig
	sessions *llm.SessionCache
	logger   *zap.Logger
}

func New(config llm.RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{config: config, sessions: llm.NewSessionCache(), logger: logger}
}

func (r *Runner) Name() string        { return "opencode" }
func (r *Runner) DisplayName() string { return "OpenCode CLI" }

func (r *Runner) DefaultModel() string {
	if r.config.Model != "" {
		return r.config.Model
	}
	return defaultModel
}

func (r *Runner) AvailableModels() []string {
	return append([]string(nil), fallbackModels...)
}

func (r *Runner) Capabilities() llm.Capabilities {
	return llm.Capabilities{Runner: llm.OpenCode, JSONOutput: true, SessionResume: true}
}

func (r *Runner) buildCommand(ctx context.Context, userPrompt, model string) (*exec.Cmd, func(), error) {
	if model == "" {
		model = r.DefaultModel()
	}
	args := []string{"run", userPrompt, "--format", "json", "--model", model}
	args = append(args, r.config.ExtraArgs...)

	return runner.BuildCommand(ctx, r.config, args, r.logger)
}

type openCodeResponse struct {
	Result    *string        `json:"result"`
	IsError   bool           `json:"is_error"`
	SessionID *string        `json:"session_id"`
	Usage     *openCodeUsage `json:"usage"`
}

type openCodeUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

func parseResponse(raw []byte) (*llm.ChatResponse, string, error) {
	var parsed openCodeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, "", cliwireerr.Wrap(cliwireerr.KindInternal, err, "parsing opencode json response")
	}
	if parsed.IsError {
		msg := "unknown error from opencode"
		if parsed.Result != nil {
			msg = *parsed.Result
		}
		return nil, "", cliwireerr.New(cliwireerr.KindExternalService, msg).WithProvider("opencode")
	}

	content := ""
	if parsed.Result != nil {
		content = *parsed.Result
	}
	var usage *llm.Usage
	if parsed.Usage != nil {
		in, out := 0, 0
		if parsed.Usage.InputTokens != nil {
			in = *parsed.Usage.InputTokens
		}
		if parsed.Usage.OutputTokens != nil {
			out = *parsed.Usage.OutputTokens
		}
		usage = &llm.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
	}
	sessionID := ""
	if parsed.SessionID != nil {
		sessionID = *parsed.SessionID
	}

	return &llm.ChatResponse{
		Content:      content,
		Model:        "opencode",
		Usage:        usage,
		FinishReason: "stop",
	}, sessionID, nil
}

func (r *Runner) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	userPrompt := prompt.BuildCombined(req.Messages)
	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, req.Model)
	if err != nil {
		return nil, errWithProvider(err)
	}
	defer cleanup()
	if req.Model != "" {
		if sid, ok := r.sessions.Get(req.Model); ok {
			cmd.Args = append(cmd.Args, "--session", sid)
		}
	}

	out, err := runner.Run(ctx, cmd, r.config.Timeout, maxOutputBytes)
	if err != nil {
		return nil, errWithProvider(err)
	}
	if out.ExitCode != 0 {
		return nil, cliwireerr.Newf(cliwireerr.KindExternalService,
			"opencode exited with code %d: %s", out.ExitCode, bytes.TrimSpace(out.Stderr)).WithProvider("opencode")
	}

	resp, sessionID, err := parseResponse(out.Stdout)
	if err != nil {
		return nil, err
	}
	if sessionID != "" && req.Model != "" {
		r.sessions.Set(req.Model, sessionID)
	}
	return resp, nil
}

func (r *Runner) CompleteStream(ctx context.Context, req *llm.ChatRequest) (llm.StreamReader, error) {
	return nil, cliwireerr.New(cliwireerr.KindInternal, "opencode CLI does not support streaming responses").WithProvider("opencode")
}

func (r *Runner) HealthCheck(ctx context.Context) (bool, error) {
	cmd := exec.CommandContext(ctx, r.config.BinaryPath, "--version")
	out, err := runner.Run(ctx, cmd, healthCheckTimeout, healthCheckMaxBytes)
	if err != nil {
		return false, errWithProvider(err)
	}
	return out.ExitCode == 0, nil
}

func errWithProvider(err error) error {
	var e *cliwireerr.Error
	if errors.As(err, &e) {
		return e.WithProvider("opencode")
	}
	return err
}
