package actionctx_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/glance/internal/actionctx"
	"github.com/dshills/glance/internal/dispatcher/execctx"
)

func tenLines() []string {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "line " + string(rune('1'+i))
	}
	lines[9] = "line 10"
	return lines
}

func TestBuildSelectionRoundTrip(t *testing.T) {
	c := actionctx.Build([]int{9, 2, 5}, actionctx.File{Path: "/tmp/f.txt", Lines: tenLines()}, 5)

	assert.Equal(t, "line 2\nline 5\nline 9", c.SelectedText)
	assert.Equal(t, "2", c.LineStart)
	assert.Equal(t, "9", c.LineEnd)
	assert.Equal(t, "3", c.SelectionCount)
	assert.Equal(t, "10", c.TotalLines)
	assert.Equal(t, "5", c.CurrentLine)
	assert.Equal(t, "/tmp/f.txt", c.FilePath)
	assert.Equal(t, actionctx.UnknownLanguage, c.Language)
}

func TestBuildEmptySelection(t *testing.T) {
	c := actionctx.Build(nil, actionctx.File{Lines: tenLines(), Language: "go"}, 1)

	assert.Empty(t, c.SelectedText)
	assert.Empty(t, c.LineStart)
	assert.Empty(t, c.LineEnd)
	assert.Equal(t, "0", c.SelectionCount)
	assert.Equal(t, "go", c.Language)
}

func TestBuildDropsOutOfRange(t *testing.T) {
	c := actionctx.Build([]int{0, 3, 3, 11, -2}, actionctx.File{Lines: tenLines()}, 1)

	assert.Equal(t, "line 3", c.SelectedText)
	assert.Equal(t, "3", c.LineStart)
	assert.Equal(t, "3", c.LineEnd)
	assert.Equal(t, "1", c.SelectionCount)
}

func TestNamingsStayIdentical(t *testing.T) {
	c := actionctx.Build([]int{1, 4}, actionctx.File{Path: "a b.txt", Lines: tenLines(), Language: "text"}, 4)
	env := c.Env()
	tmpl := c.Template()

	require.Len(t, env, 8)
	require.Len(t, tmpl, 8)
	for _, v := range actionctx.Variables {
		assert.Equal(t, env[v.Env], tmpl[v.Template], v.Template)
		got, ok := c.Lookup(v.Template)
		assert.True(t, ok)
		assert.Equal(t, tmpl[v.Template], got)
	}
	_, ok := c.Lookup("nope")
	assert.False(t, ok)
}

func TestFromExecution(t *testing.T) {
	ec := execctx.New().
		WithFile("/src/x.go", []string{"a", "b", "c"}).
		WithCursor(2, 1).
		WithSelection([]int{3, 1}).
		WithMetadata(&execctx.FileMetadata{Language: "go"})

	c := actionctx.FromExecution(ec)
	assert.Equal(t, "a\nc", c.SelectedText)
	assert.Equal(t, "go", c.Language)
	assert.Equal(t, "2", c.CurrentLine)

	empty := actionctx.FromExecution(nil)
	assert.Equal(t, "0", empty.TotalLines)
}

func TestSubstitute(t *testing.T) {
	vars := map[string]string{
		"filePath":  "/tmp/my file.txt",
		"lineStart": "3",
		"nested":    "{{lineStart}}",
		"loop":      "{{loop}}",
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "echo hi", "echo hi"},
		{"single", "cat {{filePath}}", "cat /tmp/my file.txt"},
		{"trimmed", "sed -n '{{ lineStart }}p'", "sed -n '3p'"},
		{"repeated", "{{lineStart}}-{{lineStart}}", "3-3"},
		{"unknown untouched", "echo {{ nope }} {{}}", "echo {{ nope }} {{}}"},
		{"nested", "{{nested}}", "3"},
		{"self reference stops", "{{loop}}", "{{loop}}"},
		{"mixed", "{{nope}} {{lineStart}}", "{{nope}} 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, actionctx.Substitute(tt.in, vars))
		})
	}
}

func TestSubstituteUnknownIsIdentity(t *testing.T) {
	in := "{{a}} {{ b }} {{c.d}} text {{"
	assert.Equal(t, in, actionctx.Substitute(in, map[string]string{"x": "y"}))
}

func TestSubstitutePassBound(t *testing.T) {
	// Each pass uncovers one more level; only MaxPasses levels expand.
	vars := map[string]string{}
	for i := 0; i < 10; i++ {
		vars["v"+string(rune('0'+i))] = "{{v" + string(rune('0'+i+1)) + "}}"
	}
	got := actionctx.Substitute("{{v0}}", vars)
	assert.Equal(t, "{{v"+string(rune('0'+actionctx.MaxPasses))+"}}", got)
}

func TestContextSubstitute(t *testing.T) {
	c := actionctx.Build([]int{2}, actionctx.File{Path: "/f", Lines: []string{"x", "hello"}}, 2)
	out := c.Substitute("grep -n '{{selectedText}}' {{filePath}} # {{currentLine}}/{{totalLines}}")
	assert.Equal(t, "grep -n 'hello' /f # 2/2", out)
	assert.False(t, strings.Contains(out, "{{"))
}

func TestPlaceholders(t *testing.T) {
	got := actionctx.Placeholders("{{ a }} {{b}} {{a}} {{}}")
	assert.Equal(t, []string{"a", "b"}, got)
}
