package executor_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
	"github.com/dshills/glance/internal/executor"
)

// recorder is a builtin table that logs the names it was called with.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) builtin(name string, res handler.ExecutionResult) handler.Func {
	return func(context.Context, *execctx.ExecutionContext) handler.ExecutionResult {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return res
	}
}

func (r *recorder) table() handler.Table {
	return handler.Defaults().With(handler.Table{
		"a":    r.builtin("a", handler.Succeeded("a done").WithOutput("out-a")),
		"b":    r.builtin("b", handler.Succeeded("b done").WithOutput("out-b\n")),
		"c":    r.builtin("c", handler.Succeeded("c done").WithOutput("out-c")),
		"fail": r.builtin("fail", handler.Failedf("fail broke")),
		"boom": func(context.Context, *execctx.ExecutionContext) handler.ExecutionResult {
			panic("kaboom")
		},
	})
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newExecutor(t *testing.T, opts ...executor.Option) *executor.Executor {
	t.Helper()
	base := []executor.Option{
		executor.WithGrace(300 * time.Millisecond),
		executor.WithEnviron(func() []string { return []string{"PATH=/usr/bin:/bin"} }),
	}
	e := executor.New(append(base, opts...)...)
	t.Cleanup(e.Close)
	return e
}

func testContext() *execctx.ExecutionContext {
	return execctx.New().
		WithFile("/tmp/notes file.txt", []string{"alpha", "beta", "gamma", "delta"}).
		WithCursor(2, 1).
		WithSelection([]int{2, 4}).
		WithMetadata(&execctx.FileMetadata{Language: "text"})
}

func def(id string, cmd action.Command) *action.Definition {
	return &action.Definition{ID: id, Description: id, Key: "x", Script: cmd}
}

func TestExecuteInvalid(t *testing.T) {
	e := newExecutor(t)

	tests := []struct {
		name string
		def  *action.Definition
	}{
		{"nil", nil},
		{"no id", &action.Definition{Script: action.Shell("true")}},
		{"no script", &action.Definition{ID: "x"}},
		{"bad command", def("x", action.External(""))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Execute(context.Background(), tc.def, testContext())
			assert.False(t, res.Success)
			assert.True(t, res.IsError())
			assert.ErrorIs(t, res.Error, executor.ErrInvalidAction)
		})
	}
}

func TestExecuteDisabled(t *testing.T) {
	rec := &recorder{}
	e := newExecutor(t, executor.WithBuiltins(rec.table()))

	off := false
	d := def("quiet", action.Builtin("a"))
	d.Enabled = &off

	res := e.Execute(context.Background(), d, testContext())
	assert.False(t, res.Success)
	assert.False(t, res.IsError())
	assert.Equal(t, handler.MessageWarning, res.MessageType)
	assert.Empty(t, rec.Calls())
}

func TestExecuteDangerousGate(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		rec := &recorder{}
		var prompt string
		e := newExecutor(t,
			executor.WithBuiltins(rec.table()),
			executor.WithConfirm(func(_ context.Context, _ *action.Definition, p string) (bool, error) {
				prompt = p
				return false, nil
			}),
		)
		d := def("wipe", action.Builtin("a"))
		d.Dangerous = true
		d.ConfirmPrompt = "Delete {{filePath}}?"

		res := e.Execute(context.Background(), d, testContext())
		assert.False(t, res.Success)
		assert.False(t, res.IsError())
		assert.NoError(t, res.Error)
		assert.Equal(t, handler.MessageInfo, res.MessageType)
		assert.Equal(t, "Delete /tmp/notes file.txt?", prompt)
		assert.Empty(t, rec.Calls())
	})

	t.Run("accepted", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t,
			executor.WithBuiltins(rec.table()),
			executor.WithConfirm(func(context.Context, *action.Definition, string) (bool, error) { return true, nil }),
		)
		d := def("wipe", action.Builtin("a"))
		d.Dangerous = true

		res := e.Execute(context.Background(), d, testContext())
		assert.True(t, res.Success)
		assert.Equal(t, []string{"a"}, rec.Calls())
	})

	t.Run("no callback", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t, executor.WithBuiltins(rec.table()))
		d := def("wipe", action.Builtin("a"))
		d.Dangerous = true

		res := e.Execute(context.Background(), d, testContext())
		assert.False(t, res.Success)
		assert.False(t, res.IsError())
		assert.Empty(t, rec.Calls())
	})

	t.Run("callback error", func(t *testing.T) {
		e := newExecutor(t, executor.WithConfirm(func(context.Context, *action.Definition, string) (bool, error) {
			return false, errors.New("ui gone")
		}))
		d := def("wipe", action.Builtin("quit"))
		d.Dangerous = true

		res := e.Execute(context.Background(), d, testContext())
		assert.True(t, res.IsError())
		assert.Contains(t, res.Message, "ui gone")
	})

	t.Run("disabled globally", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t,
			executor.WithBuiltins(rec.table()),
			executor.WithAllowDangerous(false),
			executor.WithConfirm(func(context.Context, *action.Definition, string) (bool, error) { return true, nil }),
		)
		d := def("wipe", action.Builtin("a"))
		d.Dangerous = true

		res := e.Execute(context.Background(), d, testContext())
		assert.True(t, res.IsError())
		assert.ErrorIs(t, res.Error, executor.ErrDangerousDisabled)
		assert.Empty(t, rec.Calls())
	})
}

func TestExecuteShell(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("show", action.Shell(`echo "{{filePath}}:{{lineStart}}-{{lineEnd}}"`)), testContext())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "/tmp/notes file.txt:2-4\n", res.Output)
	assert.Equal(t, "/tmp/notes file.txt:2-4", res.Message)
	assert.Equal(t, handler.MessageSuccess, res.MessageType)
	assert.Equal(t, 0, res.ExitCode)
	assert.Positive(t, res.Duration)
}

func TestExecuteShellContextEnv(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("env", action.Shell(`printf '%s|%s|%s' "$GLANCE_SELECTED_TEXT" "$GLANCE_SELECTION_COUNT" "$GLANCE_LANGUAGE"`)), testContext())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "beta\ndelta|2|text", res.Output)
}

func TestExecuteLongMessageKeepsRunes(t *testing.T) {
	e := newExecutor(t)

	long := strings.Repeat("é", 100)
	res := e.Execute(context.Background(), def("accents", action.Shell("printf '%s' '"+long+"'")), testContext())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, long, res.Output)
	assert.True(t, utf8.ValidString(res.Message), "%q", res.Message)
	assert.True(t, strings.HasSuffix(res.Message, "..."))
	assert.LessOrEqual(t, len(res.Message), 120)
}

func TestExecuteShellFailure(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("bad", action.Shell(`echo partial; echo "it broke" >&2; exit 3`)), testContext())
	assert.False(t, res.Success)
	assert.True(t, res.IsError())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "it broke", res.Error.Error())
	assert.Equal(t, "partial\n", res.Output)

	res = e.Execute(context.Background(), def("silent-fail", action.Shell(`exit 4`)), testContext())
	assert.ErrorIs(t, res.Error, executor.ErrCommandFailed)
	assert.Equal(t, 4, res.ExitCode)
}

func TestExecuteTimeoutEscalation(t *testing.T) {
	grace := 300 * time.Millisecond
	e := newExecutor(t, executor.WithGrace(grace))

	cmd := action.Shell(`trap '' TERM; sleep 30`)
	cmd.TimeoutMS = 50

	start := time.Now()
	res := e.Execute(context.Background(), def("stuck", cmd), testContext())
	elapsed := time.Since(start)

	assert.False(t, res.Success)
	assert.True(t, res.TimedOut)
	assert.ErrorIs(t, res.Error, executor.ErrTimeout)
	assert.Less(t, elapsed, 50*time.Millisecond+2*grace+time.Second)
	assert.Equal(t, uint64(1), e.Metrics().TotalTimeouts())
}

func TestExecuteDefaultTimeout(t *testing.T) {
	e := newExecutor(t, executor.WithTimeout(50*time.Millisecond))

	res := e.Execute(context.Background(), def("nap", action.Shell(`sleep 30`)), testContext())
	assert.True(t, res.TimedOut)
	assert.False(t, res.Success)
}

func TestExecuteCaptureOutputOff(t *testing.T) {
	e := newExecutor(t)

	off := false
	cmd := action.Shell(`echo hidden`)
	cmd.CaptureOutput = &off

	res := e.Execute(context.Background(), def("quiet", cmd), testContext())
	require.True(t, res.Success)
	assert.Empty(t, res.Output)
}

func TestExecuteScriptAlias(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("alias", action.Script(`echo {{totalLines}}`)), testContext())
	require.True(t, res.Success)
	assert.Equal(t, "4\n", res.Output)
}

func TestExecuteExternal(t *testing.T) {
	e := newExecutor(t)

	// The substituted path contains a space and must stay one argument.
	cmd := action.External("/bin/sh", "-c", `printf '%s|%s' "$0" "$#"`, "{{filePath}}")
	res := e.Execute(context.Background(), def("ext", cmd), testContext())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "/tmp/notes file.txt|0", res.Output)
}

func TestExecuteExternalCwd(t *testing.T) {
	e := newExecutor(t)
	dir := t.TempDir()

	cmd := action.External("/bin/sh", "-c", "pwd -P")
	cmd.Cwd = dir
	res := e.Execute(context.Background(), def("cwd", cmd), testContext())
	require.True(t, res.Success, res.Message)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(res.Output), dir[strings.LastIndex(dir, "/"):]), res.Output)
}

func TestExecuteEnvironmentPrecedence(t *testing.T) {
	e := newExecutor(t,
		executor.WithEnviron(func() []string {
			return []string{"A=ambient", "B=ambient", "C=ambient", "GLANCE_FILE_PATH=ambient", "D=ambient"}
		}),
		executor.WithVariables(map[string]string{"B": "config", "C": "config", "GLANCE_FILE_PATH": "config", "D": "line {{currentLine}}"}),
	)

	cmd := action.External("/bin/sh", "-c", `printf '%s|%s|%s|%s|%s' "$A" "$B" "$C" "$GLANCE_FILE_PATH" "$D"`)
	cmd.Env = map[string]string{"C": "command"}

	res := e.Execute(context.Background(), def("env", cmd), testContext())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "ambient|config|command|/tmp/notes file.txt|line 2", res.Output)
}

func TestExecuteStartFailure(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("missing", action.External("/no/such/program")), testContext())
	assert.True(t, res.IsError())
	assert.Equal(t, -1, res.ExitCode)
}

func TestExecuteBuiltin(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("bye", action.Builtin("quit")), testContext())
	assert.True(t, res.Success)
	assert.Equal(t, handler.EffectQuit, res.Effect)

	res = e.Execute(context.Background(), def("down", action.Builtin("scrollDown")), testContext())
	require.True(t, res.Success)
	require.NotNil(t, res.View.ScrollTo)
	assert.Equal(t, 3, *res.View.ScrollTo)
}

func TestExecuteUnknownBuiltin(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("nope", action.Builtin("teleport")), testContext())
	assert.True(t, res.IsError())
	assert.ErrorIs(t, res.Error, executor.ErrUnknownBuiltin)
	assert.Contains(t, res.Message, "teleport")
}

func TestExecuteBuiltinPanic(t *testing.T) {
	rec := &recorder{}
	e := newExecutor(t, executor.WithBuiltins(rec.table()))

	res := e.Execute(context.Background(), def("crash", action.Builtin("boom")), testContext())
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message, "kaboom")
	assert.Equal(t, uint64(1), e.Metrics().TotalPanics())
}

func TestExecuteSequence(t *testing.T) {
	t.Run("short circuit", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t, executor.WithBuiltins(rec.table()))
		onFailure := action.Builtin("c")
		cmd := action.Sequence(action.Builtin("fail"), action.Builtin("b"))
		cmd.OnFailure = &onFailure

		res := e.Execute(context.Background(), def("seq", cmd), testContext())
		assert.False(t, res.Success)
		assert.True(t, res.IsError())
		assert.Equal(t, []string{"fail", "c"}, rec.Calls())
		assert.Contains(t, res.Message, "step 1")
	})

	t.Run("on success", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t, executor.WithBuiltins(rec.table()))
		onSuccess := action.Builtin("c")
		onFailure := action.Builtin("fail")
		cmd := action.Sequence(action.Builtin("a"), action.Builtin("b"))
		cmd.OnSuccess = &onSuccess
		cmd.OnFailure = &onFailure

		res := e.Execute(context.Background(), def("seq", cmd), testContext())
		assert.True(t, res.Success)
		assert.Equal(t, []string{"a", "b", "c"}, rec.Calls())
		assert.Equal(t, "out-a\nout-b\nout-c\n", res.Output)
		assert.Equal(t, "c done", res.Message)
	})

	t.Run("silent steps", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t, executor.WithBuiltins(rec.table()))
		quiet := action.Builtin("a")
		quiet.Silent = true
		cmd := action.Sequence(quiet, action.Builtin("b"))

		res := e.Execute(context.Background(), def("seq", cmd), testContext())
		assert.True(t, res.Success)
		assert.Equal(t, "out-b\n", res.Output)
	})

	t.Run("on success failure keeps success", func(t *testing.T) {
		rec := &recorder{}
		e := newExecutor(t, executor.WithBuiltins(rec.table()))
		onSuccess := action.Builtin("fail")
		cmd := action.Sequence(action.Builtin("a"))
		cmd.OnSuccess = &onSuccess

		res := e.Execute(context.Background(), def("seq", cmd), testContext())
		assert.True(t, res.Success)
		assert.Equal(t, handler.MessageWarning, res.MessageType)
	})

	t.Run("effects carry", func(t *testing.T) {
		e := newExecutor(t)
		cmd := action.Sequence(action.Builtin("goToEnd"), action.Builtin("reload"))

		res := e.Execute(context.Background(), def("seq", cmd), testContext())
		require.True(t, res.Success)
		assert.Equal(t, handler.EffectReload, res.Effect)
		require.NotNil(t, res.View.ScrollTo)
		assert.Equal(t, 4, *res.View.ScrollTo)
	})
}

func TestExecuteSequenceShell(t *testing.T) {
	e := newExecutor(t)

	cmd := action.Sequence(action.Shell("echo one"), action.Shell("false"), action.Shell("echo never"))
	res := e.Execute(context.Background(), def("seq", cmd), testContext())
	assert.False(t, res.Success)
	assert.Equal(t, "one\n", res.Output)
}

func TestExecuteLuaSnippet(t *testing.T) {
	e := newExecutor(t)

	script := `local s = glance.selection()
print(s.text)
glance.status("{{language}}: " .. s.count .. " lines", "warning", 2000)`
	res := e.Execute(context.Background(), def("lua", action.Shell(script)), testContext())
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "text: 2 lines", res.Message)
	assert.Equal(t, handler.MessageWarning, res.MessageType)
	assert.Equal(t, 2*time.Second, res.MessageTimeout)
	assert.Equal(t, "beta\ndelta\n", res.Output)
	assert.True(t, res.RefreshRequired)
}

func TestExecuteLuaError(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("lua", action.Shell(`glance.status("x") error("nope")`)), testContext())
	assert.True(t, res.IsError())
	assert.Contains(t, res.Message, "nope")
}

func TestExecuteLuaTimeout(t *testing.T) {
	e := newExecutor(t)

	cmd := action.Shell(`glance.clear_status() while true do end`)
	cmd.TimeoutMS = 50
	res := e.Execute(context.Background(), def("spin", cmd), testContext())
	assert.True(t, res.TimedOut)
	assert.ErrorIs(t, res.Error, executor.ErrTimeout)
}

func TestExecuteNilContext(t *testing.T) {
	e := newExecutor(t)

	res := e.Execute(context.Background(), def("top", action.Builtin("goToStart")), nil)
	assert.True(t, res.Success)
}

func TestMetricsRecorded(t *testing.T) {
	rec := &recorder{}
	e := newExecutor(t, executor.WithBuiltins(rec.table()))

	e.Execute(context.Background(), def("a", action.Builtin("a")), testContext())
	e.Execute(context.Background(), def("a", action.Builtin("a")), testContext())
	e.Execute(context.Background(), def("f", action.Builtin("fail")), testContext())

	m := e.Metrics()
	assert.Equal(t, uint64(3), m.TotalDispatches())
	assert.Equal(t, uint64(1), m.TotalErrors())

	stats := m.ActionStats("a")
	require.NotNil(t, stats)
	assert.Equal(t, uint64(2), stats.DispatchCount)
	assert.Equal(t, handler.MessageSuccess, stats.LastType)

	top := m.TopActions(1)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].ID)

	m.Reset()
	assert.Zero(t, m.TotalDispatches())
	assert.Nil(t, m.ActionStats("a"))
}

func TestExecuteAfterClose(t *testing.T) {
	e := executor.New()
	e.Close()
	e.Close()

	res := e.Execute(context.Background(), def("q", action.Builtin("quit")), testContext())
	assert.ErrorIs(t, res.Error, executor.ErrClosed)
}
