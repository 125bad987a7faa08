package bridge_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/plugin/bridge"
)

func testSnapshot() bridge.Snapshot {
	ec := execctx.New().
		WithFile("/src/main.go", []string{"package main", "", "func main() {", "}"}).
		WithCursor(3, 1).
		WithSelection([]int{3, 1, 9}).
		WithMetadata(&execctx.FileMetadata{Language: "go"})
	return bridge.SnapshotOf(ec)
}

func TestSnapshotOf(t *testing.T) {
	snap := testSnapshot()

	assert.Equal(t, bridge.FileInfo{Path: "/src/main.go", Language: "go", TotalLines: 4, CurrentLine: 3}, snap.File)
	assert.Equal(t, []int{1, 3}, snap.Selection.Lines)
	assert.Equal(t, 2, snap.Selection.Count)
	assert.Equal(t, "package main\nfunc main() {", snap.Selection.Text)
}

func TestSnapshotOfNil(t *testing.T) {
	snap := bridge.SnapshotOf(nil)
	assert.Equal(t, "unknown", snap.File.Language)
	assert.Zero(t, snap.Selection.Count)
}

func TestHostHandle(t *testing.T) {
	h := bridge.NewHost(testSnapshot())

	tests := []struct {
		name string
		req  string
		ok   bool
		want map[string]any
	}{
		{"file info", `{"id":1,"op":"file.info"}`, true, map[string]any{"result.path": "/src/main.go", "result.totalLines": float64(4)}},
		{"selection", `{"id":2,"op":"selection.get"}`, true, map[string]any{"result.count": float64(2), "result.lines.1": float64(3)}},
		{"status", `{"id":3,"op":"status.update","args":{"message":"hi"}}`, true, nil},
		{"bad severity", `{"id":4,"op":"status.update","args":{"message":"hi","severity":"loud"}}`, false, nil},
		{"missing message", `{"id":5,"op":"status.update","args":{}}`, false, nil},
		{"unknown op", `{"id":6,"op":"fs.write"}`, false, nil},
		{"missing op", `{"id":7}`, false, nil},
		{"not json", `{{{`, false, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reply := gjson.ParseBytes(h.Handle([]byte(tc.req)))
			assert.Equal(t, tc.ok, reply.Get("ok").Bool(), reply.Raw)
			if !tc.ok {
				assert.NotEmpty(t, reply.Get("error").String())
			}
			for path, v := range tc.want {
				assert.Equal(t, v, reply.Get(path).Value(), path)
			}
		})
	}
}

func TestHostStatusLifecycle(t *testing.T) {
	h := bridge.NewHost(bridge.Snapshot{})

	_, ok := h.Status()
	assert.False(t, ok)

	h.Handle([]byte(`{"id":1,"op":"status.update","args":{"message":"working","severity":"warning","timeoutMs":1500}}`))
	st, ok := h.Status()
	require.True(t, ok)
	assert.Equal(t, bridge.Status{Message: "working", Severity: bridge.SeverityWarning, Timeout: 1500 * time.Millisecond}, st)

	h.Handle([]byte(`{"id":2,"op":"status.clear"}`))
	_, ok = h.Status()
	assert.False(t, ok)
	assert.Equal(t, 2, h.Updates())
}

func TestServe(t *testing.T) {
	h := bridge.NewHost(testSnapshot())
	in := strings.NewReader("{\"id\":1,\"op\":\"file.info\"}\n\n{\"id\":2,\"op\":\"status.clear\"}\n")
	var out bytes.Buffer

	require.NoError(t, h.Serve(context.Background(), in, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, int64(1), gjson.Get(lines[0], "id").Int())
	assert.Equal(t, "go", gjson.Get(lines[0], "result.language").String())
	assert.True(t, gjson.Get(lines[1], "ok").Bool())
}

func TestClientOverPipe(t *testing.T) {
	h := bridge.NewHost(testSnapshot())
	c, closeFn := bridge.Pipe(context.Background(), h)

	fi, err := c.FileInfo()
	require.NoError(t, err)
	assert.Equal(t, "go", fi.Language)
	assert.Equal(t, 3, fi.CurrentLine)

	sel, err := c.Selection()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, sel.Lines)
	assert.Equal(t, "package main\nfunc main() {", sel.Text)

	require.NoError(t, c.UpdateStatus(bridge.Status{Message: "done", Severity: bridge.SeveritySuccess}))
	st, ok := h.Status()
	require.True(t, ok)
	assert.Equal(t, "done", st.Message)

	err = c.UpdateStatus(bridge.Status{Message: "x", Severity: "loud"})
	var remote *bridge.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, bridge.OpStatusUpdate, remote.Op)

	require.NoError(t, c.ClearStatus())
	_, ok = h.Status()
	assert.False(t, ok)

	require.NoError(t, closeFn())
	require.NoError(t, closeFn())

	_, err = c.FileInfo()
	assert.ErrorIs(t, err, bridge.ErrClosed)
}

func TestEmptySelectionEncodesArray(t *testing.T) {
	h := bridge.NewHost(bridge.Snapshot{})
	reply := gjson.ParseBytes(h.Handle([]byte(`{"id":1,"op":"selection.get"}`)))
	assert.True(t, reply.Get("result.lines").IsArray())
	assert.Equal(t, "", reply.Get("result.text").String())
}

func TestParseSeverity(t *testing.T) {
	sev, err := bridge.ParseSeverity("")
	require.NoError(t, err)
	assert.Equal(t, bridge.SeverityInfo, sev)

	_, err = bridge.ParseSeverity("fatal")
	assert.Error(t, err)
}
