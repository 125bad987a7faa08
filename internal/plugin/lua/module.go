package lua

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/glance/internal/plugin/bridge"
)

// GlanceModule implements the glance API module.
type GlanceModule struct {
	client *bridge.Client
}

// NewGlanceModule creates the module backed by client.
func NewGlanceModule(client *bridge.Client) *GlanceModule {
	return &GlanceModule{client: client}
}

// Name returns the module name.
func (m *GlanceModule) Name() string {
	return "glance"
}

// Register installs the module as a global table.
func (m *GlanceModule) Register(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "status", L.NewFunction(m.status))
	L.SetField(mod, "clear_status", L.NewFunction(m.clearStatus))
	L.SetField(mod, "file_info", L.NewFunction(m.fileInfo))
	L.SetField(mod, "selection", L.NewFunction(m.selection))
	L.SetGlobal(m.Name(), mod)
}

// status(message [, severity [, timeout_ms]])
func (m *GlanceModule) status(L *lua.LState) int {
	msg := L.CheckString(1)
	sev, err := bridge.ParseSeverity(L.OptString(2, ""))
	if err != nil {
		L.ArgError(2, err.Error())
		return 0
	}
	timeout := L.OptInt(3, 0)
	if timeout < 0 {
		L.ArgError(3, "timeout must be non-negative")
		return 0
	}

	err = m.client.UpdateStatus(bridge.Status{
		Message:  msg,
		Severity: sev,
		Timeout:  time.Duration(timeout) * time.Millisecond,
	})
	if err != nil {
		L.RaiseError("status: %v", err)
	}
	return 0
}

// clear_status()
func (m *GlanceModule) clearStatus(L *lua.LState) int {
	if err := m.client.ClearStatus(); err != nil {
		L.RaiseError("clear_status: %v", err)
	}
	return 0
}

// file_info() -> {path, language, total_lines, current_line}
func (m *GlanceModule) fileInfo(L *lua.LState) int {
	fi, err := m.client.FileInfo()
	if err != nil {
		L.RaiseError("file_info: %v", err)
		return 0
	}

	t := L.NewTable()
	t.RawSetString("path", lua.LString(fi.Path))
	t.RawSetString("language", lua.LString(fi.Language))
	t.RawSetString("total_lines", lua.LNumber(fi.TotalLines))
	t.RawSetString("current_line", lua.LNumber(fi.CurrentLine))
	L.Push(t)
	return 1
}

// selection() -> {lines, count, text}
func (m *GlanceModule) selection(L *lua.LState) int {
	sel, err := m.client.Selection()
	if err != nil {
		L.RaiseError("selection: %v", err)
		return 0
	}

	lines := L.CreateTable(len(sel.Lines), 0)
	for i, n := range sel.Lines {
		lines.RawSetInt(i+1, lua.LNumber(n))
	}
	t := L.NewTable()
	t.RawSetString("lines", lines)
	t.RawSetString("count", lua.LNumber(sel.Count))
	t.RawSetString("text", lua.LString(sel.Text))
	L.Push(t)
	return 1
}
