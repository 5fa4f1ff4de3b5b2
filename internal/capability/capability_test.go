package capability

import (
	"testing"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestProbeMatchesSpecFeatureTable(t *testing.T) {
	cases := []struct {
		kind          llm.Kind
		jsonOutput    bool
		streaming     bool
		systemPrompt  bool
		sessionResume bool
	}{
		{llm.ClaudeCode, true, true, true, true},
		{llm.Copilot, false, true, false, false},
		{llm.CursorAgent, true, true, false, true},
		{llm.OpenCode, true, false, false, true},
	}

	for _, tc := range cases {
		caps := Probe(tc.kind, "1.2.3")
		assert.Equal(t, tc.jsonOutput, caps.JSONOutput, "%s JSONOutput", tc.kind)
		assert.Equal(t, tc.streaming, caps.Streaming, "%s Streaming", tc.kind)
		assert.Equal(t, tc.systemPrompt, caps.SystemPrompt, "%s SystemPrompt", tc.kind)
		assert.Equal(t, tc.sessionResume, caps.SessionResume, "%s SessionResume", tc.kind)
	}
}

func TestProbeParsesVersionAndChecksMinimum(t *testing.T) {
	caps := Probe(llm.ClaudeCode, "claude-code v1.5.2 (build 99)")
	assert.True(t, caps.HasParsedVersion)
	assert.Equal(t, [3]int{1, 5, 2}, caps.MajorMinorPatch)
	assert.True(t, caps.MeetsMinimumVersion)
}

func TestProbeBelowMinimumVersion(t *testing.T) {
	caps := Probe(llm.OpenCode, "0.1.0")
	assert.True(t, caps.HasParsedVersion)
	assert.False(t, caps.MeetsMinimumVersion)
}

func TestProbeUnparsableVersionLeavesMeetsMinimumFalse(t *testing.T) {
	caps := Probe(llm.Copilot, "no version info here")
	assert.False(t, caps.HasParsedVersion)
	assert.False(t, caps.MeetsMinimumVersion)
	assert.True(t, caps.Streaming)
}

func TestVersionArgsUsesBareSubcommandForOpenCode(t *testing.T) {
	assert.Equal(t, []string{"version"}, VersionArgs(llm.OpenCode))
	assert.Equal(t, []string{"--version"}, VersionArgs(llm.ClaudeCode))
}
