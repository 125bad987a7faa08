package lua

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/glance/internal/integration/process"
	"github.com/dshills/glance/internal/plugin/bridge"
)

// TestMain lets the test binary act as the bridge-lua child.
func TestMain(m *testing.M) {
	if len(os.Args) == 4 && os.Args[1] == BridgeCommand {
		sn := Snippet{Code: os.Args[3]}
		if os.Args[2] == "--file" {
			sn = Snippet{Path: os.Args[3]}
		}
		if err := ServeStdio(context.Background(), sn, os.Stdin, os.Stdout, os.Stderr); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func testSnapshot() bridge.Snapshot {
	return bridge.Snapshot{
		File: bridge.FileInfo{Path: "/src/app.py", Language: "python", TotalLines: 40, CurrentLine: 12},
		Selection: bridge.Selection{
			Lines: []int{3, 4},
			Count: 2,
			Text:  "import os\nimport sys",
		},
	}
}

func TestSandboxInstall(t *testing.T) {
	state := NewState(nil)
	defer state.Close()

	for _, name := range blockedGlobals {
		if v := state.GetGlobal(name); v != glua.LNil {
			t.Errorf("%s should be removed, got %T", name, v)
		}
	}
	for _, name := range []string{"io", "os", "debug", "package"} {
		if v := state.GetGlobal(name); v != glua.LNil {
			t.Errorf("library %s should not be open", name)
		}
	}
	for _, name := range []string{"string", "table", "math", "pairs"} {
		if v := state.GetGlobal(name); v == glua.LNil {
			t.Errorf("%s should be available", name)
		}
	}
}

func TestStatePrintCaptured(t *testing.T) {
	var out bytes.Buffer
	state := NewState(nil, WithOutput(&out))
	defer state.Close()

	if err := state.DoString(context.Background(), `print("a", 1, true) print(string.upper("b"))`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := out.String(); got != "a\t1\ttrue\nB\n" {
		t.Errorf("output = %q", got)
	}
}

func TestStateScriptError(t *testing.T) {
	state := NewState(nil)
	defer state.Close()

	err := state.DoString(context.Background(), `error("boom")`)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("DoString() error = %v, want boom", err)
	}

	err = state.DoString(context.Background(), `dofile("/etc/passwd")`)
	if err == nil {
		t.Error("dofile should not be callable")
	}
}

func TestStateTimeout(t *testing.T) {
	state := NewState(nil)
	defer state.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := state.DoString(ctx, `while true do end`)
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("DoString() error = %v, want timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestStateClosed(t *testing.T) {
	state := NewState(nil)
	state.Close()
	state.Close()

	if !state.IsClosed() {
		t.Error("state should be closed")
	}
	if err := state.DoString(context.Background(), `x = 1`); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() error = %v, want ErrStateClosed", err)
	}
	if err := state.Run(context.Background(), Snippet{}); !errors.Is(err, ErrStateClosed) && !errors.Is(err, ErrEmptySnippet) {
		t.Errorf("Run() error = %v", err)
	}
}

func TestSnippetStringKeepsRunes(t *testing.T) {
	sn := Snippet{Code: "a" + strings.Repeat("é", 30) + "\nglance.status('x')"}
	got := sn.String()
	if !utf8.ValidString(got) {
		t.Fatalf("String() = %q, not valid UTF-8", got)
	}
	if !strings.HasSuffix(got, "...") || len(got) > 43 {
		t.Errorf("String() = %q", got)
	}

	short := Snippet{Code: "glance.status('hé')\nmore"}
	if got := short.String(); got != "glance.status('hé')" {
		t.Errorf("String() = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		script string
		want   bool
		path   string
	}{
		{`glance.status("hi")`, true, ""},
		{`local f = glance.file_info() print(f.path)`, true, ""},
		{`glance.clear_status()`, true, ""},
		{`print(glance.selection().count)`, true, ""},
		{`scripts/wc.lua`, true, "scripts/wc.lua"},
		{`  ~/tools/Count.LUA `, true, "~/tools/Count.LUA"},
		{`lua scripts/wc.lua`, false, ""},
		{`echo glance.status`, false, ""},
		{`wc -l "{{filePath}}"`, false, ""},
		{``, false, ""},
	}

	for _, tc := range tests {
		sn, ok := Classify(tc.script)
		if ok != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.script, ok, tc.want)
			continue
		}
		if sn.Path != tc.path {
			t.Errorf("Classify(%q).Path = %q, want %q", tc.script, sn.Path, tc.path)
		}
	}
}

const apiSnippet = `
local f = glance.file_info()
local s = glance.selection()
print(f.path, f.language, f.total_lines, f.current_line)
print(s.count, s.lines[1], s.lines[2])
print(s.text)
glance.status("checked " .. s.count .. " lines", "success", 1500)
`

func checkAPIResult(t *testing.T, res *Result, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := "/src/app.py\tpython\t40\t12\n2\t3\t4\nimport os\nimport sys\n"
	if res.Output != want {
		t.Errorf("Output = %q, want %q", res.Output, want)
	}
	if res.Status == nil {
		t.Fatal("expected a status")
	}
	if res.Status.Message != "checked 2 lines" || res.Status.Severity != bridge.SeveritySuccess || res.Status.Timeout != 1500*time.Millisecond {
		t.Errorf("Status = %+v", *res.Status)
	}
	if res.StatusCalls != 1 {
		t.Errorf("StatusCalls = %d", res.StatusCalls)
	}
}

func TestInProcessAPI(t *testing.T) {
	res, err := NewInProcess().Run(context.Background(), Snippet{Code: apiSnippet}, testSnapshot())
	checkAPIResult(t, res, err)
}

func TestInProcessClearStatus(t *testing.T) {
	res, err := NewInProcess().Run(context.Background(), Snippet{Code: `glance.status("x") glance.clear_status()`}, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != nil {
		t.Errorf("cleared status should not be reported, got %+v", *res.Status)
	}
	if res.StatusCalls != 2 {
		t.Errorf("StatusCalls = %d", res.StatusCalls)
	}
}

func TestInProcessBadSeverity(t *testing.T) {
	_, err := NewInProcess().Run(context.Background(), Snippet{Code: `glance.status("x", "loud")`}, testSnapshot())
	if err == nil || !strings.Contains(err.Error(), "severity") {
		t.Errorf("Run() error = %v", err)
	}
}

func TestInProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "count.lua")
	if err := os.WriteFile(path, []byte(`print(glance.selection().count)`), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewInProcess().Run(context.Background(), Snippet{Path: path}, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "2\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestInProcessTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := NewInProcess().Run(ctx, Snippet{Code: `print("start") while true do end`}, testSnapshot())
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if res.Output != "start\n" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestInProcessOutputCap(t *testing.T) {
	res, err := NewInProcess(WithMaxOutput(4)).Run(context.Background(), Snippet{Code: `print("0123456789")`}, testSnapshot())
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "0123\n[output truncated]" {
		t.Errorf("Output = %q", res.Output)
	}
}

func TestServeStdio(t *testing.T) {
	host := bridge.NewHost(testSnapshot())
	childIn, hostOut := io.Pipe()
	hostIn, childOut := io.Pipe()

	served := make(chan error, 1)
	go func() {
		served <- host.Serve(context.Background(), hostIn, hostOut)
	}()

	var stderr bytes.Buffer
	err := ServeStdio(context.Background(), Snippet{Code: `glance.status(glance.file_info().language)`}, childIn, childOut, &stderr)
	childOut.Close()
	if err != nil {
		t.Fatalf("ServeStdio() error = %v", err)
	}
	if err := <-served; err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	st, ok := host.Status()
	if !ok || st.Message != "python" {
		t.Errorf("Status = %+v, %v", st, ok)
	}
}

func newSubprocess(t *testing.T) *Subprocess {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skip("no test executable:", err)
	}
	sup := process.NewSupervisor()
	t.Cleanup(func() { sup.Shutdown(time.Second) })
	return NewSubprocess(exe, sup, WithGrace(500*time.Millisecond))
}

func TestSubprocessAPI(t *testing.T) {
	res, err := newSubprocess(t).Run(context.Background(), Snippet{Code: apiSnippet}, testSnapshot())
	checkAPIResult(t, res, err)
}

func TestSubprocessScriptError(t *testing.T) {
	res, err := newSubprocess(t).Run(context.Background(), Snippet{Code: `glance.status("half") error("broken")`}, testSnapshot())
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Status == nil || res.Status.Message != "half" {
		t.Errorf("status published before the failure should survive, got %+v", res.Status)
	}
}

func TestSubprocessTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := newSubprocess(t).Run(ctx, Snippet{Code: `while true do end`}, testSnapshot())
	if !errors.Is(err, ErrExecutionTimeout) || !res.TimedOut {
		t.Fatalf("Run() = %+v, %v", res, err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestArgs(t *testing.T) {
	if got := Args(Snippet{Path: "x.lua"}); strings.Join(got, " ") != "bridge-lua --file x.lua" {
		t.Errorf("Args(path) = %v", got)
	}
	if got := Args(Snippet{Code: "print(1)"}); strings.Join(got, " ") != "bridge-lua --source print(1)" {
		t.Errorf("Args(code) = %v", got)
	}
}
