// Package actionctx derives the values exposed to actions from the current
// file and selection, and substitutes them into command templates.
//
// Every value is published twice: under an upper-snake environment name for
// spawned processes and under a camel-case template name for {{name}}
// placeholders. Both come from the same field, so they cannot diverge.
package actionctx

import (
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/glance/internal/dispatcher/execctx"
)

// UnknownLanguage is reported when no language was detected.
const UnknownLanguage = "unknown"

// Context holds the per-invocation action values, already rendered as
// strings.
type Context struct {
	SelectedText   string
	FilePath       string
	LineStart      string
	LineEnd        string
	Language       string
	SelectionCount string
	TotalLines     string
	CurrentLine    string
}

// Variable names one context value under both conventions.
type Variable struct {
	Env      string
	Template string
	get      func(*Context) string
}

// Variables lists every context value in a fixed order.
var Variables = []Variable{
	{"GLANCE_SELECTED_TEXT", "selectedText", func(c *Context) string { return c.SelectedText }},
	{"GLANCE_FILE_PATH", "filePath", func(c *Context) string { return c.FilePath }},
	{"GLANCE_LINE_START", "lineStart", func(c *Context) string { return c.LineStart }},
	{"GLANCE_LINE_END", "lineEnd", func(c *Context) string { return c.LineEnd }},
	{"GLANCE_LANGUAGE", "language", func(c *Context) string { return c.Language }},
	{"GLANCE_SELECTION_COUNT", "selectionCount", func(c *Context) string { return c.SelectionCount }},
	{"GLANCE_TOTAL_LINES", "totalLines", func(c *Context) string { return c.TotalLines }},
	{"GLANCE_CURRENT_LINE", "currentLine", func(c *Context) string { return c.CurrentLine }},
}

// File is the read-only file snapshot a context is built from.
type File struct {
	Path     string
	Lines    []string
	Language string
}

// Build derives the action context. Selected line numbers outside
// [1, len(file.Lines)] are ignored; an empty selection yields empty line
// bounds rather than zeros.
func Build(selection []int, file File, currentLine int) Context {
	total := len(file.Lines)

	lines := make([]int, 0, len(selection))
	for _, n := range selection {
		if n >= 1 && n <= total {
			lines = append(lines, n)
		}
	}
	sort.Ints(lines)
	lines = dedupe(lines)

	texts := make([]string, len(lines))
	for i, n := range lines {
		texts[i] = file.Lines[n-1]
	}

	c := Context{
		SelectedText:   strings.Join(texts, "\n"),
		FilePath:       file.Path,
		Language:       file.Language,
		SelectionCount: strconv.Itoa(len(lines)),
		TotalLines:     strconv.Itoa(total),
		CurrentLine:    strconv.Itoa(currentLine),
	}
	if c.Language == "" {
		c.Language = UnknownLanguage
	}
	if len(lines) > 0 {
		c.LineStart = strconv.Itoa(lines[0])
		c.LineEnd = strconv.Itoa(lines[len(lines)-1])
	}
	return c
}

// FromExecution builds the action context from an execution snapshot.
func FromExecution(ec *execctx.ExecutionContext) Context {
	if ec == nil {
		return Build(nil, File{}, 0)
	}
	return Build(ec.SelectedLines, File{
		Path:     ec.CurrentFile,
		Lines:    ec.Lines,
		Language: ec.Language(),
	}, ec.CurrentLine)
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, n := range sorted {
		if i > 0 && n == sorted[i-1] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Env returns the values keyed by environment name.
func (c Context) Env() map[string]string {
	out := make(map[string]string, len(Variables))
	for _, v := range Variables {
		out[v.Env] = v.get(&c)
	}
	return out
}

// Template returns the values keyed by template name.
func (c Context) Template() map[string]string {
	out := make(map[string]string, len(Variables))
	for _, v := range Variables {
		out[v.Template] = v.get(&c)
	}
	return out
}

// Lookup returns the value for a template name.
func (c Context) Lookup(name string) (string, bool) {
	for _, v := range Variables {
		if v.Template == name {
			return v.get(&c), true
		}
	}
	return "", false
}

// Substitute replaces {{name}} placeholders with context values.
func (c Context) Substitute(template string) string {
	return Substitute(template, c.Template())
}
