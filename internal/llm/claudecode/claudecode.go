// Package claudecode adapts the `claude` CLI to the llm.Provider contract.
package claudecode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
	"strings"
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
	defaultModel        = "opus"
)

var fallbackModels = []string{"sonnet", "opus", "haiku"}

// Runner implements llm.Provider by delegating to the claude binary with
// --output-format json for complete responses and --output-format
// stream-json for streaming ones.
type Runner struct {
	config   llm.RunnerConfig
	sessions *llm.SessionCache
	logger   *zap.Logger
}

// New creates a Claude Code runner. If config.Model is empty, defaultModel
// is used.
func New(config llm.RunnerConfig, logger *zap.Logger) *Runner {
	return &Runner{config: config, sessions: llm.NewSessionCache(), logger: logger}
}

func (r *Runner) Name() string        { return "claude-code" }
func (r *Runner) DisplayName() string { return "Claude Code CLI" }

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
	return llm.Capabilities{
		Runner:        llm.ClaudeCode,
		JSONOutput:    true,
		Streaming:     true,
		SystemPrompt:  true,
		SessionResume: true,
	}
}

func (r *Runner) buildCommand(ctx context.Context, prompt, systemPrompt, outputFormat, model string, maxTokens *int) (*exec.Cmd, func(), error) {
	if model == "" {
		model = r.DefaultModel()
	}
	args := []string{"-p", prompt, "--output-format", outputFormat}
	if outputFormat == "stream-json" {
		// stream-json requires --verbose in the claude CLI.
		args = append(args, "--verbose")
	}
	if systemPrompt != "" {
		args = append(args, "--system-prompt", systemPrompt)
	}
	args = append(args, "--model", model)
	// Disable Claude Code's own MCP servers so it relies on the tool
	// catalog injected via the system prompt instead.
	args = append(args, "--strict-mcp-config", "{}")
	args = append(args, r.config.ExtraArgs...)

	cmd, cleanup, err := runner.BuildCommand(ctx, r.config, args, r.logger)
	if err != nil {
		return nil, nil, err
	}
	if maxTokens != nil {
		cmd.Env = append(cmd.Env, "CLAUDE_CODE_MAX_OUTPUT_TOKENS="+strconv.Itoa(*maxTokens))
	}
	return cmd, cleanup, nil
}

type claudeResponse struct {
	Result    *string     `json:"result"`
	IsError   bool        `json:"is_error"`
	SessionID *string     `json:"session_id"`
	Usage     *claudeUsage `json:"usage"`
}

type claudeUsage struct {
	InputTokens  *int `json:"input_tokens"`
	OutputTokens *int `json:"output_tokens"`
}

func parseResponse(raw []byte) (*llm.ChatResponse, string, error) {
	var parsed claudeResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, "", cliwireerr.Wrap(cliwireerr.KindInternal, err, "parsing claude code json response")
	}
	if parsed.IsError {
		msg := "unknown error from claude code"
		if parsed.Result != nil {
			msg = *parsed.Result
		}
		return nil, "", cliwireerr.New(cliwireerr.KindExternalService, msg).WithProvider("claude-code")
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
		Model:        "claude-code",
		Usage:        usage,
		FinishReason: "stop",
	}, sessionID, nil
}

func (r *Runner) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	system, _ := prompt.ExtractSystemMessage(req.Messages)
	userPrompt := prompt.BuildUserPrompt(req.Messages)

	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, system, "json", req.Model, req.MaxTokens)
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
		return nil, cliwireerr.Newf(cliwireerr.KindExternalService,
			"claude exited with code %d: %s", out.ExitCode, bytes.TrimSpace(out.Stderr)).WithProvider("claude-code")
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
	system, _ := prompt.ExtractSystemMessage(req.Messages)
	userPrompt := prompt.BuildUserPrompt(req.Messages)

	cmd, cleanup, err := r.buildCommand(ctx, userPrompt, system, "stream-json", req.Model, req.MaxTokens)
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

type claudeStreamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

func parseStreamLine(line []byte) (llm.StreamChunk, bool, error) {
	if len(bytes.TrimSpace(line)) == 0 {
		return llm.StreamChunk{}, true, nil
	}
	var evt claudeStreamEvent
	if err := json.Unmarshal(line, &evt); err != nil {
		return llm.StreamChunk{}, false, cliwireerr.Wrap(cliwireerr.KindInternal, err, "invalid json in claude stream")
	}
	switch evt.Type {
	case "result":
		return llm.StreamChunk{IsFinal: true, FinishReason: "stop"}, true, nil
	case "assistant":
		if evt.Message == nil {
			return llm.StreamChunk{}, true, nil
		}
		var b strings.Builder
		for _, part := range evt.Message.Content {
			if part.Type == "text" {
				b.WriteString(part.Text)
			}
		}
		return llm.StreamChunk{Delta: b.String()}, true, nil
	default:
		// system, rate_limit_event, and other event types carry no text;
		// they yield an empty-delta placeholder chunk.
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
		return e.WithProvider("claude-code")
	}
	return err
}
