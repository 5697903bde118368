// Package proc is a thin, opinionated wrapper around os/exec used to invoke
// the BLAST+ binaries.
//
// Every Command runs synchronously:
//   - an optional per-command timeout kills the process
//   - stdout is captured into a buffer
//   - stderr is split into lines, each line is passed to a StderrFunc and
//     the last one is kept so a failure can be reported with its reason
//
// A non zero exit is reported in Result.Err wrapping *exec.ExitError.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var ErrEmptyCommand = errors.New("empty command")

type StderrFunc func(ctx context.Context, line string)

// Executor runs a single command to its completion
type Executor interface {
	Run(ctx context.Context, cmd Command) Result
}

type Command struct {
	Path    string
	Args    []string
	Env     []string // added to the environment of the current process
	Dir     string
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

type Result struct {
	Path    string
	Args    []string
	Started time.Time
	Stopped time.Time
	State   *os.ProcessState
	Stdout  *bytes.Buffer
	Stderr  string // last non empty line written to stderr
	Err     error
}

// ExitCode returns the exit code of the process or -1 if it did not exit
func (r Result) ExitCode() int {
	if r.State == nil {
		return -1
	}
	return r.State.ExitCode()
}

// Runner implements Executor with os/exec
type Runner struct {
	stderrFunc StderrFunc
}

func NewRunner() Runner {
	return Runner{}
}

// WithStderrFunc returns a runner passing every stderr line to fn
func (r Runner) WithStderrFunc(fn StderrFunc) Runner {
	r.stderrFunc = fn
	return r
}

// DebugStderr logs stderr lines at debug level
func DebugStderr(ctx context.Context, line string) {
	slog.DebugContext(ctx, "stderr", "line", line)
}

// Run starts the command and waits for it to finish.
func (r Runner) Run(ctx context.Context, proto Command) Result {
	res := Result{
		Path: proto.Path,
		Args: append([]string(nil), proto.Args...),
	}
	if proto.Path == "" {
		res.Err = ErrEmptyCommand
		return res
	}

	if proto.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, proto.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, res.Path, res.Args...)
	if len(proto.Env) > 0 {
		cmd.Env = append(os.Environ(), proto.Env...)
	}
	cmd.Dir = proto.Dir

	var stdout bytes.Buffer
	stderr := &lineWriter{ctx: ctx, fn: r.stderrFunc}
	res.Stdout = &stdout
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	slog.DebugContext(ctx, "running", "cmd", proto.String())
	res.Started = time.Now().UTC()
	err := cmd.Run()
	res.Stopped = time.Now().UTC()
	stderr.flush()

	res.State = cmd.ProcessState
	res.Stderr = stderr.last
	if err != nil {
		if res.Stderr != "" {
			err = fmt.Errorf("%w: %s", err, res.Stderr)
		}
		res.Err = err
	}
	return res
}

// lineWriter splits everything written into lines. os/exec writes to it
// from a single goroutine, so it needs no locking.
type lineWriter struct {
	ctx  context.Context
	fn   StderrFunc
	buf  []byte
	last string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.line(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if len(w.buf) > 0 {
		w.line(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) line(s string) {
	s = strings.TrimRight(s, "\r")
	if strings.TrimSpace(s) != "" {
		w.last = strings.TrimSpace(s)
	}
	if w.fn != nil {
		w.fn(w.ctx, s)
	}
}
