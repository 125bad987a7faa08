package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dshills/glance/internal/integration/process"
	"github.com/dshills/glance/internal/logging"
	"github.com/dshills/glance/internal/plugin/bridge"
)

// BridgeCommand is the hidden subcommand a child process runs.
const BridgeCommand = "bridge-lua"

// Result is the outcome of running a snippet.
type Result struct {
	// Output is everything the snippet printed.
	Output string
	// Status is the status line left published, if any.
	Status *bridge.Status
	// StatusCalls counts status updates and clears.
	StatusCalls int
	TimedOut    bool
	Duration    time.Duration
}

// Runner executes snippets against a snapshot. The returned result is
// never nil; a non-nil error means the snippet failed.
type Runner interface {
	Run(ctx context.Context, sn Snippet, snap bridge.Snapshot) (*Result, error)
}

// RunnerOption configures a runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	logger    *logging.Logger
	grace     time.Duration
	maxOutput int
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) RunnerOption {
	return func(c *runnerConfig) {
		c.logger = l
	}
}

// WithGrace sets the delay between SIGTERM and SIGKILL for child runs.
func WithGrace(d time.Duration) RunnerOption {
	return func(c *runnerConfig) {
		if d > 0 {
			c.grace = d
		}
	}
}

// WithMaxOutput caps captured output, in bytes.
func WithMaxOutput(n int) RunnerOption {
	return func(c *runnerConfig) {
		if n > 0 {
			c.maxOutput = n
		}
	}
}

func newRunnerConfig(opts []RunnerOption) runnerConfig {
	c := runnerConfig{
		grace:     process.DefaultGrace,
		maxOutput: process.DefaultMaxOutput,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.logger = c.logger.WithComponent("lua")
	return c
}

func collect(host *bridge.Host, res *Result) {
	if st, ok := host.Status(); ok {
		res.Status = &st
	}
	res.StatusCalls = host.Updates()
}

// InProcess runs snippets on a fresh sandboxed state in this process. The
// snippet still reaches the host only through the bridge protocol.
type InProcess struct {
	cfg runnerConfig
}

// NewInProcess creates an in-process runner.
func NewInProcess(opts ...RunnerOption) *InProcess {
	return &InProcess{cfg: newRunnerConfig(opts)}
}

// Run implements Runner.
func (r *InProcess) Run(ctx context.Context, sn Snippet, snap bridge.Snapshot) (*Result, error) {
	start := time.Now()
	res := &Result{}

	host := bridge.NewHost(snap, bridge.WithLogger(r.cfg.logger))
	client, closeBridge := bridge.Pipe(ctx, host)

	out := &limitedBuffer{limit: r.cfg.maxOutput}
	state := NewState(client, WithOutput(out))

	r.cfg.logger.Debug("running %s in process", sn)
	err := state.Run(ctx, sn)

	state.Close()
	_ = closeBridge()

	res.Output = out.String()
	res.Duration = time.Since(start)
	res.TimedOut = errors.Is(err, ErrExecutionTimeout)
	collect(host, res)
	return res, err
}

// Subprocess runs each snippet in a child process started as
// "<exe> bridge-lua". The child speaks the bridge protocol on its stdin and
// stdout and prints to stderr.
type Subprocess struct {
	exe string
	sup *process.Supervisor
	cfg runnerConfig
}

// NewSubprocess creates a runner that spawns exe under sup.
func NewSubprocess(exe string, sup *process.Supervisor, opts ...RunnerOption) *Subprocess {
	return &Subprocess{exe: exe, sup: sup, cfg: newRunnerConfig(opts)}
}

// Args returns the child's argument vector for sn.
func Args(sn Snippet) []string {
	if sn.Path != "" {
		return []string{BridgeCommand, "--file", sn.Path}
	}
	return []string{BridgeCommand, "--source", sn.Code}
}

// Run implements Runner.
func (r *Subprocess) Run(ctx context.Context, sn Snippet, snap bridge.Snapshot) (*Result, error) {
	res := &Result{}
	if sn.Path == "" && sn.Code == "" {
		return res, ErrEmptySnippet
	}

	host := bridge.NewHost(snap, bridge.WithLogger(r.cfg.logger))
	pr, err := r.sup.Converse(ctx, process.Spec{
		Name:      "lua " + sn.String(),
		Path:      r.exe,
		Args:      Args(sn),
		Grace:     r.cfg.grace,
		MaxOutput: r.cfg.maxOutput,
	}, func(ctx context.Context, stdout io.Reader, stdin io.Writer) error {
		return host.Serve(ctx, stdout, stdin)
	})
	if pr == nil {
		return res, fmt.Errorf("starting lua runner: %w", err)
	}

	res.Duration = pr.Duration
	res.TimedOut = pr.TimedOut
	collect(host, res)

	switch {
	case pr.TimedOut:
		res.Output = pr.Stderr
		return res, ErrExecutionTimeout
	case err != nil:
		res.Output = pr.Stderr
		return res, err
	case pr.ExitCode != 0:
		if msg := strings.TrimSpace(pr.Stderr); msg != "" {
			return res, errors.New(msg)
		}
		return res, fmt.Errorf("lua runner exited with code %d", pr.ExitCode)
	}
	res.Output = pr.Stderr
	return res, nil
}

// ServeStdio is the child side of Subprocess: it runs sn with the bridge
// on stdin and stdout and prints to stderr.
func ServeStdio(ctx context.Context, sn Snippet, stdin io.Reader, stdout, stderr io.Writer) error {
	state := NewState(bridge.NewClient(stdin, stdout), WithOutput(stderr))
	defer state.Close()
	return state.Run(ctx, sn)
}

// limitedBuffer keeps at most limit bytes.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       strings.Builder
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	if len(p) > room {
		if room > 0 {
			b.buf.Write(p[:room])
		}
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return b.buf.String() + "\n[output truncated]"
	}
	return b.buf.String()
}
