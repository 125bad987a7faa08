package process

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"time"
)

// Defaults for Run.
const (
	DefaultGrace     = 2 * time.Second
	DefaultMaxOutput = 1 << 20
)

// Spec describes one process to run to completion.
type Spec struct {
	Name string
	Path string
	Args []string
	Dir  string

	// Env is the complete environment. Nil inherits the current process
	// environment.
	Env []string

	Stdin io.Reader

	// Timeout bounds the run. Zero means no timeout beyond ctx.
	Timeout time.Duration

	// Grace is the delay between SIGTERM and SIGKILL.
	Grace time.Duration

	// MaxOutput caps each captured stream, in bytes.
	MaxOutput int
}

// Result is the outcome of Run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	// Killed is set when SIGKILL had to be sent.
	Killed   bool
	Duration time.Duration
}

// Success reports a zero exit code without a timeout.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Run starts the process described by spec and waits for it. If the
// timeout elapses or ctx is cancelled, the process group receives SIGTERM
// and, after the grace period, SIGKILL. A non-nil error means the process
// could not be started.
func (s *Supervisor) Run(ctx context.Context, spec Spec) (*Result, error) {
	grace := spec.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	limit := spec.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = spec.Stdin
	stdout := &cappedBuffer{limit: limit}
	stderr := &cappedBuffer{limit: limit}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Grandchildren holding the pipes open must not block Wait forever.
	cmd.WaitDelay = grace

	name := spec.Name
	if name == "" {
		name = spec.Path
	}

	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	proc, err := s.Start(name, cmd)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	select {
	case <-proc.Done():
	case <-ctx.Done():
		res.TimedOut = true
		res.Killed = s.Stop(proc, grace)
	}

	res.Duration = proc.Runtime()
	res.ExitCode = proc.ExitCode()
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res, nil
}

// Stop terminates proc and kills it if it outlives grace. It reports
// whether SIGKILL was sent.
func (s *Supervisor) Stop(proc *Process, grace time.Duration) bool {
	s.logger.Debug("stopping %s, sending SIGTERM", proc.Name)
	_ = proc.Terminate()

	select {
	case <-proc.Done():
		return false
	case <-time.After(grace):
	}

	s.logger.Warn("%s ignored SIGTERM, sending SIGKILL", proc.Name)
	_ = proc.Kill()

	select {
	case <-proc.Done():
	case <-time.After(grace):
		s.logger.Warn("%s not reaped after SIGKILL", proc.Name)
	}
	return true
}

// ShellCommand returns the program and arguments that run script under
// shell, or under /bin/sh when shell is empty.
func ShellCommand(shell, script string) (string, []string) {
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, []string{"-c", script}
}

// cappedBuffer is a concurrency-safe buffer that drops writes past limit.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
