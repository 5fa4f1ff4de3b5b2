// Package sandbox builds the restricted environment a provider CLI runs in.
package sandbox

import (
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// DefaultAllowedEnvKeys is the whitelist every RunnerConfig starts from
// unless overridden: enough for a CLI to find its own config, locate a
// terminal, and resolve the invoking user, nothing else.
var DefaultAllowedEnvKeys = []string{"HOME", "PATH", "TERM", "USER", "LANG"}

// Policy is the resolved sandboxing decision for one subprocess invocation:
// a concrete working directory and a concrete list of env keys to forward.
type Policy struct {
	WorkingDirectory string
	AllowedEnvKeys   []string
}

// BuildPolicy resolves a working directory and env whitelist into a Policy.
// If cwd is non-empty and exists, it's used as-is; otherwise the policy
// falls back to the process's own working directory, which must exist.
func BuildPolicy(cwd string, allowedEnvKeys []string) (Policy, error) {
	dir := cwd
	if dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			dir = ""
		}
	}
	if dir == "" {
		procCwd, err := os.Getwd()
		if err != nil {
			return Policy{}, err
		}
		dir = procCwd
	}

	keys := allowedEnvKeys
	if len(keys) == 0 {
		keys = DefaultAllowedEnvKeys
	}

	return Policy{WorkingDirectory: dir, AllowedEnvKeys: keys}, nil
}

// Apply clears cmd's environment, re-injects each whitelisted key that is
// set in the parent process's environment, and pins cmd's working
// directory. Missing keys are not an error — they're logged at debug level
// and skipped, matching the original CLI sandbox's non-fatal behaviour.
func Apply(cmd *exec.Cmd, policy Policy, logger *zap.Logger) {
	cmd.Env = []string{} // clear: do not inherit the gateway's own environment (a nil Env would)

	var resolved, missing []string
	for _, key := range policy.AllowedEnvKeys {
		if val, ok := os.LookupEnv(key); ok {
			cmd.Env = append(cmd.Env, key+"="+val)
			resolved = append(resolved, key)
		} else {
			missing = append(missing, key)
		}
	}

	cmd.Dir = policy.WorkingDirectory

	if logger != nil {
		logger.Debug("applied sandbox policy",
			zap.Strings("resolved_env_keys", resolved),
			zap.Strings("missing_env_keys", missing),
			zap.String("working_directory", policy.WorkingDirectory),
		)
	}
}
