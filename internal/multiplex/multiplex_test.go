package multiplex

import (
	"context"
	"testing"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a canned response or error, ignoring the request.
type fakeProvider struct {
	resp *llm.ChatResponse
	err  error
}

func (f *fakeProvider) Name() string                                  { return "fake" }
func (f *fakeProvider) DisplayName() string                           { return "Fake" }
func (f *fakeProvider) Capabilities() llm.Capabilities                { return llm.Capabilities{} }
func (f *fakeProvider) DefaultModel() string                          { return "fake-model" }
func (f *fakeProvider) AvailableModels() []string                     { return nil }
func (f *fakeProvider) HealthCheck(ctx context.Context) (bool, error) { return true, nil }

func (f *fakeProvider) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeProvider) CompleteStream(ctx context.Context, req *llm.ChatRequest) (llm.StreamReader, error) {
	return nil, cliwireerr.New(cliwireerr.KindInternal, "not implemented in fake")
}

// fakeLookup resolves a kind to a canned provider or a canned error,
// mirroring what a real registry does when a binary can't be found.
type fakeLookup struct {
	byKind map[llm.Kind]llm.Provider
	errs   map[llm.Kind]error
}

func (f *fakeLookup) Get(kind llm.Kind) (llm.Provider, error) {
	if err, ok := f.errs[kind]; ok {
		return nil, err
	}
	return f.byKind[kind], nil
}

func TestExecutePreservesInputOrder(t *testing.T) {
	lookup := &fakeLookup{
		byKind: map[llm.Kind]llm.Provider{
			llm.Copilot: &fakeProvider{resp: &llm.ChatResponse{Content: "hi from copilot", Model: "copilot-model"}},
		},
		errs: map[llm.Kind]error{
			llm.ClaudeCode: cliwireerr.New(cliwireerr.KindBinaryNotFound, "claude not found"),
		},
	}

	result := Execute(context.Background(), lookup, []llm.Kind{llm.Copilot, llm.ClaudeCode}, &llm.ChatRequest{})

	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, llm.Copilot, result.Outcomes[0].Provider)
	assert.NoError(t, result.Outcomes[0].Err)
	assert.Equal(t, "hi from copilot", result.Outcomes[0].Content)

	assert.Equal(t, llm.ClaudeCode, result.Outcomes[1].Provider)
	assert.Error(t, result.Outcomes[1].Err)
	assert.Equal(t, cliwireerr.KindBinaryNotFound, cliwireerr.KindOf(result.Outcomes[1].Err))

	assert.Equal(t, "1 succeeded, 1 failed out of 2 providers", result.Summary)
}

func TestExecuteAllSucceed(t *testing.T) {
	lookup := &fakeLookup{
		byKind: map[llm.Kind]llm.Provider{
			llm.Copilot:    &fakeProvider{resp: &llm.ChatResponse{Content: "a"}},
			llm.ClaudeCode: &fakeProvider{resp: &llm.ChatResponse{Content: "b"}},
		},
	}

	result := Execute(context.Background(), lookup, []llm.Kind{llm.Copilot, llm.ClaudeCode}, &llm.ChatRequest{})
	assert.Equal(t, "2 succeeded, 0 failed out of 2 providers", result.Summary)
}
