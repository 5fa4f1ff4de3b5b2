// Package cursoragent adapts the `cursor-agent` CLI to the llm.Provider
// contract.
package cursoragent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
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
	defaultModel        = "sonnet-4"
)

var fallbackModels = []string{"sonnet-4", "gpt-5", "gemini-2.5-pro"}

// Runner implements llm.Provider by delegating to the cursor-agent binary
// with --output-format json/stream-json and --approve-mcps.
type Runner struct {
	config   llm.RunnerConfig
	sessions *llm.SessionCache
	logger   *zap.Logger
}

func New(config llm.RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{config: config, sessions: llm.NewSessionCache(), logger: logger}
}

func (r *Runner) Name() string        { return "cursor-agent" }
func (r *Runner) DisplayName() string { return "Cursor Agent CLI" }

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
	return llm.Capabilities{Runner: llm.CursorAgent, JSONOutput: true, Streaming: true, SessionResume: true}
}

func (r *Runner) buildCommand(ctx context.Context, userPrompt, outputFormat, model string) (*exec.Cmd, func(), error) {
	if model == "" {
		model = r.DefaultModel()
	}
	args := []string{"-p", userPrompt, "--output-format", outputFormat, "--approve-mcps",
		"--model", model}
	args = append(args, r.config.ExtraArgs...)

	return runner.BuildCommand(ctx, r.config, args, r.logger)
}

type cursorResponse struct {
	Result    *string      `json:"result"`
	IsError   bool         `json:"is_error"`
	SessionID *string      `json:"session_id"`
	Usage     *cursorUsage `json:"usage"`
}

type cursorUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

func parseResponse(raw []byte) (*llm.ChatResponse, string, error) {
	var parsed cursorResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, "", cliwireerr.Wrap(cliwireerr.KindInternal, err, "parsing cursor agent json response")
	}
	if parsed.IsError {
		msg := "unknown error from cursor agent"
		if parsed.Result != nil {
			msg = *parsed.Result
		}
		return nil, "", cliwireerr.New(cliwireerr.KindExternalService, msg).WithProvider("cursor-agent")
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
		Model:        "cursor-agent",
		Usage:        usage,
		FinishReason: "stop",
	}, sessionID, nil
}

func (r *Runner) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if r.logger != nil && (req.Temperature != nil || req.MaxTokens != nil) {
		r.logger.Debug("cursor agent CLI does not support temperature or max_tokens; ignoring")
	}

	userPrompt := prompt.BuildCombined(req.Messages)
	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, "json", req.Model)
	if err != nil {
		return nil, errWithProvider(err)
	}
	defer cleanup()
	if req.Model != "" {
		if sid, ok := r.sessions.Get(req.Model); ok {
			cmd.Args = append(cmd.Args, "--resume", sid)
		}
	}

	out, err := runner.Run(ctx, cmd, r.config.Timeout, maxOutputBytes)
	if err != nil {
		return nil, errWithProvider(err)
	}
	if out.ExitCode != 0 {
		detail := out.Stderr
		if len(bytes.TrimSpace(detail)) == 0 {
			detail = out.Stdout
		}
		return nil, cliwireerr.Newf(cliwireerr.KindExternalService,
			"cursor-agent exited with code %d: %s", out.ExitCode, bytes.TrimSpace(detail)).WithProvider("cursor-agent")
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
	userPrompt := prompt.BuildCombined(req.Messages)
	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, "stream-json", req.Model)
	if err != nil {
		return nil, errWithProvider(err)
	}
	if req.Model != "" {
		if sid, ok := r.sessions.Get(req.Model); ok {
			cmd.Args = append(cmd.Args, "--resume", sid)
		}
	}
	return guardedstream.NewWithCleanup(cmd, parseStreamLine, cleanup)
}

type cursorStreamEvent struct {
	Type    string `json:"type"`
	Result  string `json:"result"`
	Content string `json:"content"`
}

func parseStreamLine(line []byte) (llm.StreamChunk, bool, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return llm.StreamChunk{}, true, nil
	}
	var evt cursorStreamEvent
	if err := json.Unmarshal(line, &evt); err != nil {
		return llm.StreamChunk{}, false, cliwireerr.Wrap(cliwireerr.KindInternal, err, "invalid json in cursor-agent stream")
	}
	switch evt.Type {
	case "result":
		return llm.StreamChunk{Delta: evt.Result, IsFinal: true, FinishReason: "stop"}, true, nil
	case "content":
		return llm.StreamChunk{Delta: evt.Content}, true, nil
	default:
		return llm.StreamChunk{}, true, nil
	}
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
		return e.WithProvider("cursor-agent")
	}
	return err
}
