// Package runner executes a sandboxed CLI subprocess under a wall-clock
// timeout and a per-stream output cap.
//
// This is the component with the sharpest failure modes in the whole
// gateway: a child that never exits must still return to the caller on
// time, and a child that writes gigabytes to stdout must not be allowed to
// exhaust memory or block forever on a full pipe.
package runner

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/howard-nolan/cliwire/internal/cliwireerr"
)

// DefaultMaxOutputBytes is used whenever a caller passes 0 for maxBytes —
// "use the component default" per spec §4.3.
const DefaultMaxOutputBytes = 10 * 1024 * 1024

// Output is the result of one bounded invocation.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// cappedWriter accumulates up to limit bytes into buf, then silently
// discards everything past the cap. This is the "read-loop into a capped
// buffer, keep reading and discarding once full" pattern spec §9 calls out:
// the point isn't to stop reading — it's to stop the child from blocking on
// a full pipe while keeping memory bounded.
type cappedWriter struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	remaining := c.limit - c.buf.Len()
	if remaining > 0 {
		n := len(p)
		if n > remaining {
			n = remaining
		}
		c.buf.Write(p[:n])
	}
	return len(p), nil
}

// Run spawns cmd with piped stdout/stderr, drains both concurrently into
// capped buffers, and waits for exit bounded by timeout.
//
// Exit code != 0 is NOT itself an error here — per spec §4.3, that decision
// belongs to the caller (the adapter), which knows how to interpret a given
// CLI's exit codes and stderr text.
func Run(ctx context.Context, cmd *exec.Cmd, timeout time.Duration, maxBytes int) (Output, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}

	stdoutCap := &cappedWriter{limit: maxBytes}
	stderrCap := &cappedWriter{limit: maxBytes}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Output{}, cliwireerr.Wrap(cliwireerr.KindInternal, err, "creating stdout pipe")
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Output{}, cliwireerr.Wrap(cliwireerr.KindInternal, err, "creating stderr pipe")
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Output{}, cliwireerr.Wrap(cliwireerr.KindInternal, err, "spawning subprocess")
	}

	// Drain both pipes concurrently so the child never blocks trying to
	// write to a full pipe buffer while we're still reading the other one.
	done := make(chan struct{}, 2)
	go func() { io.Copy(stdoutCap, stdoutPipe); done <- struct{}{} }()
	go func() { io.Copy(stderrCap, stderrPipe); done <- struct{}{} }()

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case waitErr := <-waitDone:
		<-done
		<-done
		duration := time.Since(start)
		exitCode := 0
		if waitErr != nil {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			} else {
				return Output{}, cliwireerr.Wrap(cliwireerr.KindInternal, waitErr, "waiting for subprocess")
			}
		}
		return Output{
			Stdout:   stdoutCap.buf.Bytes(),
			Stderr:   stderrCap.buf.Bytes(),
			ExitCode: exitCode,
			Duration: duration,
		}, nil

	case <-timer.C:
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitDone
		<-done
		<-done
		return Output{}, cliwireerr.Newf(cliwireerr.KindTimeout,
			"subprocess exceeded %s timeout", timeout)

	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitDone
		<-done
		<-done
		return Output{}, cliwireerr.Wrap(cliwireerr.KindInternal, ctx.Err(), "subprocess cancelled")
	}
}
