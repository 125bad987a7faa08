package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/actionctx"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
	"github.com/dshills/glance/internal/integration/process"
	"github.com/dshills/glance/internal/plugin/bridge"
	"github.com/dshills/glance/internal/plugin/lua"
)

// maxMessageLen bounds status messages taken from command output.
const maxMessageLen = 120

// runString handles plain string scripts and the script kind. The script
// is substituted first and then sent either to the Lua runner or to the
// shell.
func (e *Executor) runString(ctx context.Context, def *action.Definition, cmd action.Command, ac actionctx.Context, ec *execctx.ExecutionContext) handler.ExecutionResult {
	script := ac.Substitute(cmd.Command)

	if sn, ok := lua.Classify(script); ok {
		return e.runLua(ctx, def, cmd, sn, ec)
	}

	path, args := process.ShellCommand(e.shell, script)
	return e.runProcess(ctx, def, cmd, process.Spec{
		Name: def.ID,
		Path: path,
		Args: args,
		Env:  e.environment(cmd, ac),
	})
}

func (e *Executor) runExternal(ctx context.Context, def *action.Definition, cmd action.Command, ac actionctx.Context) handler.ExecutionResult {
	// Each argument is substituted on its own so values with spaces stay
	// one argument.
	args := make([]string, len(cmd.Args))
	for i, a := range cmd.Args {
		args[i] = ac.Substitute(a)
	}
	return e.runProcess(ctx, def, cmd, process.Spec{
		Name: def.ID,
		Path: ac.Substitute(cmd.Command),
		Args: args,
		Dir:  ac.Substitute(cmd.Cwd),
		Env:  e.environment(cmd, ac),
	})
}

func (e *Executor) runProcess(ctx context.Context, def *action.Definition, cmd action.Command, spec process.Spec) handler.ExecutionResult {
	spec.Timeout = e.timeoutFor(cmd)
	spec.Grace = e.grace
	spec.MaxOutput = e.maxOutput

	pr, err := e.sup.Run(ctx, spec)
	if err != nil {
		return handler.Failed(fmt.Errorf("starting %s: %w", spec.Path, err))
	}
	return processResult(def, cmd, pr, spec.Timeout)
}

// processResult normalizes a finished process: success means exit code 0
// without a timeout; stderr is preferred as the failure text.
func processResult(def *action.Definition, cmd action.Command, pr *process.Result, timeout time.Duration) handler.ExecutionResult {
	var r handler.ExecutionResult

	switch {
	case pr.TimedOut:
		r = handler.Failed(fmt.Errorf("%w after %s", ErrTimeout, timeout))
	case pr.ExitCode != 0:
		if stderr := strings.TrimSpace(pr.Stderr); stderr != "" {
			r = handler.Failed(errors.New(stderr))
		} else {
			r = handler.Failed(fmt.Errorf("%w: exit code %d", ErrCommandFailed, pr.ExitCode))
		}
		r.Message = summarize(r.Message)
	default:
		msg := summarize(pr.Stdout)
		if msg == "" {
			msg = def.DisplayName() + " completed"
		}
		r = handler.Succeeded(msg)
	}

	r.ExitCode = pr.ExitCode
	r.TimedOut = pr.TimedOut
	if cmd.Captures() {
		r.Output = pr.Stdout
	}
	return r
}

// summarize returns the first non-blank line of s, shortened.
func summarize(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxMessageLen {
			line = truncate(line, maxMessageLen-3) + "..."
		}
		return line
	}
	return ""
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// environment builds a process environment. Precedence from low to high:
// ambient environment, configuration variables, action context values,
// the command's own env.
func (e *Executor) environment(cmd action.Command, ac actionctx.Context) []string {
	env := make(map[string]string)

	for _, kv := range e.environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	for k, v := range e.variables {
		env[k] = ac.Substitute(v)
	}
	for k, v := range ac.Env() {
		env[k] = v
	}
	for k, v := range cmd.Env {
		env[k] = ac.Substitute(v)
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(env))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// runLua runs a snippet through the bridge. The last status the snippet
// left published becomes the result message.
func (e *Executor) runLua(ctx context.Context, def *action.Definition, cmd action.Command, sn lua.Snippet, ec *execctx.ExecutionContext) handler.ExecutionResult {
	timeout := e.timeoutFor(cmd)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lr, err := e.runner.Run(ctx, sn, bridge.SnapshotOf(ec))
	if lr == nil {
		lr = &lua.Result{}
	}

	var r handler.ExecutionResult
	switch {
	case lr.TimedOut:
		r = handler.Failed(fmt.Errorf("%w after %s", ErrTimeout, timeout))
		r.TimedOut = true
	case err != nil:
		r = handler.Failed(err)
		r.Message = summarize(r.Message)
	default:
		r = handler.Succeeded(def.DisplayName() + " completed")
		r.ExitCode = 0
		if lr.Status != nil {
			r.Message = lr.Status.Message
			r.MessageType = messageType(lr.Status.Severity)
			r.MessageTimeout = lr.Status.Timeout
		}
	}

	if lr.StatusCalls > 0 {
		r.RefreshRequired = true
	}
	if cmd.Captures() {
		r.Output = lr.Output
	}
	return r
}

func messageType(sev bridge.Severity) handler.MessageType {
	switch sev {
	case bridge.SeveritySuccess:
		return handler.MessageSuccess
	case bridge.SeverityWarning:
		return handler.MessageWarning
	case bridge.SeverityError:
		return handler.MessageError
	default:
		return handler.MessageInfo
	}
}
