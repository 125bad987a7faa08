// Package executor runs actions.
//
// Execute walks a fixed sequence for every invocation: validate the
// action, ask for confirmation when it is dangerous, then dispatch on the
// command kind. Whatever happens, including panics in builtin handlers,
// the caller gets a handler.ExecutionResult back; no execution failure is
// returned as a Go error.
package executor

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/actionctx"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
	"github.com/dshills/glance/internal/integration/process"
	"github.com/dshills/glance/internal/logging"
	"github.com/dshills/glance/internal/plugin/lua"
)

// DefaultTimeout bounds process-backed commands that set no timeout.
const DefaultTimeout = 30 * time.Second

// ConfirmFunc asks the user whether to run a dangerous action. It may
// block until the user answers.
type ConfirmFunc func(ctx context.Context, def *action.Definition, prompt string) (bool, error)

// Executor runs action definitions. It is safe for concurrent use.
type Executor struct {
	builtins       handler.Table
	allowDangerous bool
	confirm        ConfirmFunc

	timeout   time.Duration
	grace     time.Duration
	shell     string
	maxOutput int

	variables map[string]string
	environ   func() []string

	runner  lua.Runner
	sup     *process.Supervisor
	ownsSup bool

	metrics *Metrics
	logger  *logging.Logger

	closed atomic.Bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithBuiltins sets the builtin handler table.
func WithBuiltins(t handler.Table) Option {
	return func(e *Executor) {
		e.builtins = t
	}
}

// WithAllowDangerous turns dangerous actions on or off. They are on by
// default and always go through the confirmation callback.
func WithAllowDangerous(allow bool) Option {
	return func(e *Executor) {
		e.allowDangerous = allow
	}
}

// WithConfirm sets the confirmation callback. Without one, dangerous
// actions are cancelled.
func WithConfirm(fn ConfirmFunc) Option {
	return func(e *Executor) {
		e.confirm = fn
	}
}

// WithTimeout sets the default command timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithGrace sets the delay between SIGTERM and SIGKILL.
func WithGrace(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.grace = d
		}
	}
}

// WithShell sets the shell used for string scripts. Empty means the
// platform default.
func WithShell(shell string) Option {
	return func(e *Executor) {
		e.shell = shell
	}
}

// WithMaxOutput caps captured output per stream, in bytes.
func WithMaxOutput(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxOutput = n
		}
	}
}

// WithVariables sets the configuration-level environment variables.
func WithVariables(vars map[string]string) Option {
	return func(e *Executor) {
		e.variables = vars
	}
}

// WithEnviron sets the source of the ambient environment. The default is
// os.Environ.
func WithEnviron(fn func() []string) Option {
	return func(e *Executor) {
		if fn != nil {
			e.environ = fn
		}
	}
}

// WithLuaRunner sets how Lua snippets run. The default runs them in
// process.
func WithLuaRunner(r lua.Runner) Option {
	return func(e *Executor) {
		e.runner = r
	}
}

// WithSupervisor sets the process supervisor. A supervisor passed in is
// not shut down by Close.
func WithSupervisor(s *process.Supervisor) Option {
	return func(e *Executor) {
		e.sup = s
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		builtins:       handler.Defaults(),
		allowDangerous: true,
		timeout:        DefaultTimeout,
		grace:          process.DefaultGrace,
		maxOutput:      process.DefaultMaxOutput,
		environ:        os.Environ,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.WithComponent("executor")

	if e.sup == nil {
		e.sup = process.NewSupervisor(process.WithLogger(e.logger))
		e.ownsSup = true
	}
	if e.runner == nil {
		e.runner = lua.NewInProcess(
			lua.WithLogger(e.logger),
			lua.WithGrace(e.grace),
			lua.WithMaxOutput(e.maxOutput),
		)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics()
	}
	return e
}

// Metrics returns the dispatch metrics.
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

// Builtins returns the builtin handler table.
func (e *Executor) Builtins() handler.Table {
	return e.builtins
}

// Close terminates any process still running. Execute fails afterwards.
func (e *Executor) Close() {
	if e.closed.Swap(true) {
		return
	}
	if e.ownsSup {
		e.sup.Shutdown(e.grace)
	}
}

// Execute runs def against ec and reports the outcome.
func (e *Executor) Execute(ctx context.Context, def *action.Definition, ec *execctx.ExecutionContext) handler.ExecutionResult {
	start := time.Now()
	result := e.execute(ctx, def, ec)
	result.Duration = time.Since(start)

	id := "<invalid>"
	if def != nil && def.ID != "" {
		id = def.ID
	}
	e.metrics.RecordDispatch(id, result.Duration, result)
	if result.IsError() {
		e.logger.Warn("%s failed: %s", id, result.Message)
	} else {
		e.logger.Debug("%s finished in %s (%s)", id, result.Duration, result.MessageType)
	}
	return result
}

func (e *Executor) execute(ctx context.Context, def *action.Definition, ec *execctx.ExecutionContext) handler.ExecutionResult {
	if e.closed.Load() {
		return handler.Failed(ErrClosed)
	}

	// Validate
	if def == nil || def.ID == "" {
		return handler.Failed(fmt.Errorf("%w: missing id", ErrInvalidAction))
	}
	if def.Script.IsZero() {
		return handler.Failed(fmt.Errorf("%w: %s has no script", ErrInvalidAction, def.ID))
	}
	if err := def.Script.Validate(); err != nil {
		return handler.Failed(fmt.Errorf("%w: %s: %v", ErrInvalidAction, def.ID, err))
	}
	if !def.IsEnabled() {
		return handler.Warning(fmt.Sprintf("%s is disabled", def.DisplayName()))
	}

	if ec == nil {
		ec = execctx.New()
	}
	ac := actionctx.FromExecution(ec)

	// Confirm
	if def.Dangerous {
		if !e.allowDangerous {
			return handler.Failed(fmt.Errorf("%w: %s", ErrDangerousDisabled, def.ID))
		}
		ok, err := e.askConfirm(ctx, def, ac.Substitute(def.ConfirmationPrompt()))
		if err != nil {
			return handler.Failed(fmt.Errorf("confirming %s: %w", def.ID, err))
		}
		if !ok {
			return handler.Cancelled(fmt.Sprintf("%s cancelled", def.DisplayName()))
		}
	}

	// Dispatch
	e.logger.Debug("dispatching %s (%s)", def.ID, def.Script.Kind)
	return e.run(ctx, def, def.Script, ac, ec)
}

func (e *Executor) askConfirm(ctx context.Context, def *action.Definition, prompt string) (ok bool, err error) {
	if e.confirm == nil {
		e.logger.Info("no confirmation callback, cancelling %s", def.ID)
		return false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("confirmation panic: %v", r)
		}
	}()
	return e.confirm(ctx, def, prompt)
}

// run dispatches one command. Sequences call back into run for each step.
func (e *Executor) run(ctx context.Context, def *action.Definition, cmd action.Command, ac actionctx.Context, ec *execctx.ExecutionContext) handler.ExecutionResult {
	switch cmd.Kind {
	case action.KindShell, action.KindScript:
		return e.runString(ctx, def, cmd, ac, ec)
	case action.KindBuiltin:
		return e.runBuiltin(ctx, cmd.Name, ec)
	case action.KindExternal:
		return e.runExternal(ctx, def, cmd, ac)
	case action.KindSequence:
		return e.runSequence(ctx, def, cmd, ac, ec)
	default:
		return handler.Failed(fmt.Errorf("%w: %q", action.ErrUnknownCommandType, string(cmd.Kind)))
	}
}

func (e *Executor) runBuiltin(ctx context.Context, name string, ec *execctx.ExecutionContext) handler.ExecutionResult {
	fn, ok := e.builtins.Lookup(name)
	if !ok {
		return handler.Failed(fmt.Errorf("%w: %q", ErrUnknownBuiltin, name))
	}
	return e.callWithRecovery(ctx, name, fn, ec)
}

// callWithRecovery executes a handler with panic recovery.
func (e *Executor) callWithRecovery(ctx context.Context, name string, fn handler.Func, ec *execctx.ExecutionContext) (result handler.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)

			e.logger.Error("builtin %s panicked: %v\n%s", name, r, stack[:n])
			result = handler.Failedf("builtin %s panicked: %v", name, r)
			e.metrics.RecordPanic()
		}
	}()

	return fn(ctx, ec)
}

// timeoutFor returns the command's own timeout or the default.
func (e *Executor) timeoutFor(cmd action.Command) time.Duration {
	if t := cmd.Timeout(); t > 0 {
		return t
	}
	return e.timeout
}
