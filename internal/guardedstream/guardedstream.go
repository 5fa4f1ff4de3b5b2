// Package guardedstream owns a streaming CLI subprocess for the lifetime of
// one response: it drains the child's stdout into parsed chunks, drains
// stderr in the background so the child never blocks on a full pipe, and
// guarantees the child is killed exactly once no matter how the stream
// ends — natural EOF, a parse error, or the caller giving up early.
//
// Go has no destructors, so the "kill on drop" behaviour a guard object
// gets for free in other languages is modeled here as an explicit,
// idempotent Close method. Every terminal path — Next returning io.EOF or
// an error, and the caller's own defer — must call it.
package guardedstream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"

	"github.com/howard-nolan/cliwire/internal/llm"
)

// MaxStreamingStderrBytes caps how much stderr is buffered while a stream
// is live, mirroring the bounded-output-runner's cap for non-streaming
// invocations.
const MaxStreamingStderrBytes = 1 * 1024 * 1024

// ChunkParser turns one line of a child's stdout into a StreamChunk. A
// return of ok=false makes the stream skip the line without ending. The
// adapters' parsers instead return ok=true with an empty Delta for blank
// lines and events that carry no text; consumers tolerate such chunks.
type ChunkParser func(line []byte) (chunk llm.StreamChunk, ok bool, err error)

// Stream wraps a live child process and implements llm.StreamReader.
type Stream struct {
	cmd       *exec.Cmd
	stdout    *bufio.Scanner
	parse     ChunkParser
	stderrBuf *stderrDrain
	cleanup   func()
	closeOnce sync.Once
	closeErr  error
	finished  bool
}

type stderrDrain struct {
	mu   sync.Mutex
	buf  []byte
	done chan struct{}
}

func newStderrDrain(r io.Reader) *stderrDrain {
	d := &stderrDrain{done: make(chan struct{})}
	go func() {
		defer close(d.done)
		capped := &boundedWriter{limit: MaxStreamingStderrBytes}
		_, _ = io.Copy(capped, r)
		d.mu.Lock()
		d.buf = capped.buf
		d.mu.Unlock()
	}()
	return d
}

func (d *stderrDrain) bytes() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf
}

type boundedWriter struct {
	buf   []byte
	limit int
}

func (w *boundedWriter) Write(p []byte) (int, error) {
	remaining := w.limit - len(w.buf)
	if remaining > 0 {
		n := len(p)
		if n > remaining {
			n = remaining
		}
		w.buf = append(w.buf, p[:n]...)
	}
	return len(p), nil
}

// New starts cmd with piped stdout/stderr, begins draining stderr in the
// background, and returns a Stream that parses stdout line by line with
// parse. The caller must have configured cmd's Env/Dir (sandbox.Apply)
// before calling New, and must not call cmd.Start itself.
func New(cmd *exec.Cmd, parse ChunkParser) (*Stream, error) {
	return NewWithCleanup(cmd, parse, nil)
}

// NewWithCleanup is New plus a cleanup func that runs once, after the
// child has been killed and waited on, when Close returns. Adapters that
// route a streaming invocation through a container pass the scratch
// directory's removal here, since the directory must outlive the command
// for as long as the stream is being read.
func NewWithCleanup(cmd *exec.Cmd, parse ChunkParser, cleanup func()) (*Stream, error) {
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &Stream{
		cmd:       cmd,
		stdout:    scanner,
		parse:     parse,
		stderrBuf: newStderrDrain(stderrPipe),
		cleanup:   cleanup,
	}, nil
}

// Next returns the next parsed chunk, skipping lines the parser rejects.
// It returns io.EOF (and has already called Close) once the child's
// stdout closes with no further chunks.
func (s *Stream) Next(ctx context.Context) (llm.StreamChunk, error) {
	if s.finished {
		return llm.StreamChunk{}, io.EOF
	}

	type result struct {
		chunk llm.StreamChunk
		ok    bool
		err   error
		eof   bool
	}
	resultCh := make(chan result, 1)

	go func() {
		for s.stdout.Scan() {
			chunk, ok, err := s.parse(s.stdout.Bytes())
			if err != nil {
				resultCh <- result{err: err}
				return
			}
			if ok {
				resultCh <- result{chunk: chunk, ok: true}
				return
			}
		}
		if err := s.stdout.Err(); err != nil {
			resultCh <- result{err: err}
			return
		}
		resultCh <- result{eof: true}
	}()

	select {
	case <-ctx.Done():
		_ = s.Close()
		s.finished = true
		return llm.StreamChunk{}, ctx.Err()
	case r := <-resultCh:
		if r.err != nil {
			_ = s.Close()
			s.finished = true
			return llm.StreamChunk{}, r.err
		}
		if r.eof {
			_ = s.Close()
			s.finished = true
			return llm.StreamChunk{}, io.EOF
		}
		if r.chunk.IsFinal {
			_ = s.Close()
			s.finished = true
		}
		return r.chunk, nil
	}
}

// Close kills the child process and waits for it to exit, exactly once no
// matter how many times Close is called. This is the Go analogue of the
// reference implementation's Drop impl: there is no destructor here, so
// every terminal path in Next, plus the caller's own defer, funnels
// through this one idempotent method.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		s.closeErr = s.cmd.Wait()
		if s.stderrBuf != nil {
			<-s.stderrBuf.done
		}
		if s.cleanup != nil {
			s.cleanup()
		}
	})
	if s.closeErr != nil && isBenignWaitError(s.closeErr) {
		return nil
	}
	return s.closeErr
}

// StderrTail returns whatever stderr was captured before the stream
// closed, for inclusion in error messages when a stream ends abnormally.
func (s *Stream) StderrTail() []byte {
	if s.stderrBuf == nil {
		return nil
	}
	return s.stderrBuf.bytes()
}

func isBenignWaitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
