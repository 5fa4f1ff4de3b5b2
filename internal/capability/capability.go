// Package capability probes a provider CLI's version string and derives
// what features it supports, per spec §4.2.
//
// Version parsing is hand-rolled against the stdlib rather than pulled from
// a semver library: every provider CLI here emits its version in a loose,
// slightly different one-line format ("1.2.3", "v1.2.3", "cursor-agent
// 1.2.3 (build 456)"), and none of them promise real semver. A semver
// library buys correctness on a format these tools don't actually commit
// to; a tolerant regex-free scanner over three dot-separated integers
// covers every provider in spec §4.6 with less surface area.
package capability

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/howard-nolan/cliwire/internal/llm"
	"github.com/howard-nolan/cliwire/internal/runner"
)

const (
	probeTimeout   = 15 * time.Second
	probeMaxOutput = 64 * 1024
)

// Run spawns the provider's version subcommand and derives Capabilities
// from its output. A failure to run the probe at all (not a non-zero
// exit — CLIs often print version info and still exit non-zero) is
// returned as an unparsed Capabilities value with HasParsedVersion false.
func Run(ctx context.Context, kind llm.Kind, binaryPath string) llm.Capabilities {
	cmd := exec.CommandContext(ctx, binaryPath, VersionArgs(kind)...)
	out, err := runner.Run(ctx, cmd, probeTimeout, probeMaxOutput)
	if err != nil {
		return llm.Capabilities{Runner: kind}
	}
	raw := string(out.Stdout)
	if strings.TrimSpace(raw) == "" {
		raw = string(out.Stderr)
	}
	return Probe(kind, raw)
}

// MinimumVersions is the floor each provider's CLI must meet to be
// considered capable of structured, scriptable output.
var MinimumVersions = map[llm.Kind][3]int{
	llm.ClaudeCode:  {1, 0, 0},
	llm.Copilot:     {0, 9, 0},
	llm.CursorAgent: {1, 0, 0},
	llm.OpenCode:    {0, 5, 0},
}

// VersionArgs returns the argument list used to invoke a provider's version
// subcommand for the capability probe. Every provider uses --version except
// OpenCode, which exposes version as a bare subcommand.
func VersionArgs(kind llm.Kind) []string {
	if kind == llm.OpenCode {
		return []string{"version"}
	}
	return []string{"--version"}
}

// featureTable is the per-provider feature matrix: Claude Code supports all
// four features, Copilot only streaming, Cursor Agent json+streaming+resume,
// and OpenCode json+resume. This mirrors each adapter's own Capabilities()
// method exactly. The flags are fixed per provider kind: they do not
// depend on the probed version string, and nothing here measures them.
var featureTable = map[llm.Kind]llm.Capabilities{
	llm.ClaudeCode:  {JSONOutput: true, Streaming: true, SystemPrompt: true, SessionResume: true},
	llm.Copilot:     {Streaming: true},
	llm.CursorAgent: {JSONOutput: true, Streaming: true, SessionResume: true},
	llm.OpenCode:    {JSONOutput: true, SessionResume: true},
}

// Probe parses a raw version string (the first line of output from the
// provider's version subcommand) into Capabilities.
func Probe(kind llm.Kind, rawVersion string) llm.Capabilities {
	version, ok := parseVersion(rawVersion)
	caps := featureTable[kind]
	caps.Runner = kind
	caps.VersionString = strings.TrimSpace(rawVersion)
	caps.HasParsedVersion = ok
	if ok {
		caps.MajorMinorPatch = version
		if min, known := MinimumVersions[kind]; known {
			caps.MeetsMinimumVersion = atLeast(version, min)
		}
	}
	return caps
}

// atLeast reports whether v is >= min in lexicographic (major, minor,
// patch) order.
func atLeast(v, min [3]int) bool {
	for i := 0; i < 3; i++ {
		if v[i] != min[i] {
			return v[i] > min[i]
		}
	}
	return true
}

// parseVersion scans the first run of N.N.N-shaped digits found anywhere in
// s — tolerating a leading "v", a leading binary name, and trailing build
// metadata, which is the shape every provider's --version output takes.
func parseVersion(s string) ([3]int, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9') && r != '.'
	})
	for _, f := range fields {
		f = strings.TrimPrefix(f, "v")
		parts := strings.Split(f, ".")
		if len(parts) < 2 {
			continue
		}
		var out [3]int
		valid := true
		for i := 0; i < 3; i++ {
			if i >= len(parts) {
				break
			}
			n, err := strconv.Atoi(parts[i])
			if err != nil {
				valid = false
				break
			}
			out[i] = n
		}
		if valid {
			return out, true
		}
	}
	return [3]int{}, false
}
