// Package execctx provides the runtime snapshot handed to builtin handlers
// and availability predicates.
package execctx

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/glance/internal/action"
)

// FileMetadata describes the file being viewed.
type FileMetadata struct {
	Size     int64
	Encoding string
	IsBinary bool
	Language string
}

// Viewport is the visible line range, 1-based and inclusive.
type Viewport struct {
	Start int
	End   int
}

// Height returns the number of visible lines.
func (v Viewport) Height() int {
	if v.End < v.Start {
		return 0
	}
	return v.End - v.Start + 1
}

// ExecutionContext is a snapshot of viewer state at the moment an action is
// invoked. It is created per key press and never shared between
// invocations.
type ExecutionContext struct {
	// CurrentFile is the path of the file being viewed.
	CurrentFile string

	// CurrentLine and CurrentColumn are 1-based.
	CurrentLine   int
	CurrentColumn int

	// SelectedLines holds selected line numbers in ascending order.
	SelectedLines []int

	// Lines is the file content, one entry per line.
	Lines []string

	TotalLines int
	Viewport   Viewport
	Theme      string
	Mode       action.Mode

	// Metadata is optional.
	Metadata *FileMetadata

	// Data holds host-specific values.
	Data map[string]any
}

// New creates an empty execution context.
func New() *ExecutionContext {
	return &ExecutionContext{
		CurrentLine: 1,
		Mode:        action.ModeInteractive,
		Data:        make(map[string]any),
	}
}

// WithFile returns the context with the file path and content set.
func (ctx *ExecutionContext) WithFile(path string, lines []string) *ExecutionContext {
	ctx.CurrentFile = path
	ctx.Lines = lines
	ctx.TotalLines = len(lines)
	return ctx
}

// WithCursor returns the context with the cursor position set.
func (ctx *ExecutionContext) WithCursor(line, col int) *ExecutionContext {
	ctx.CurrentLine = line
	ctx.CurrentColumn = col
	return ctx
}

// WithSelection returns the context with the selection set. Lines are
// sorted and deduplicated.
func (ctx *ExecutionContext) WithSelection(lines []int) *ExecutionContext {
	sel := append([]int(nil), lines...)
	sort.Ints(sel)
	out := sel[:0]
	for i, n := range sel {
		if i > 0 && n == sel[i-1] {
			continue
		}
		out = append(out, n)
	}
	ctx.SelectedLines = out
	return ctx
}

// WithViewport returns the context with the visible range set.
func (ctx *ExecutionContext) WithViewport(start, end int) *ExecutionContext {
	ctx.Viewport = Viewport{Start: start, End: end}
	return ctx
}

// WithMode returns the context with the viewer mode set.
func (ctx *ExecutionContext) WithMode(m action.Mode) *ExecutionContext {
	ctx.Mode = m
	return ctx
}

// WithTheme returns the context with the theme name set.
func (ctx *ExecutionContext) WithTheme(theme string) *ExecutionContext {
	ctx.Theme = theme
	return ctx
}

// WithMetadata returns the context with file metadata set.
func (ctx *ExecutionContext) WithMetadata(md *FileMetadata) *ExecutionContext {
	ctx.Metadata = md
	return ctx
}

// FileName returns the base name of the current file.
func (ctx *ExecutionContext) FileName() string {
	if ctx.CurrentFile == "" {
		return ""
	}
	return filepath.Base(ctx.CurrentFile)
}

// FileDir returns the directory of the current file.
func (ctx *ExecutionContext) FileDir() string {
	if ctx.CurrentFile == "" {
		return ""
	}
	return filepath.Dir(ctx.CurrentFile)
}

// HasSelection reports whether any line is selected.
func (ctx *ExecutionContext) HasSelection() bool {
	return len(ctx.SelectedLines) > 0
}

// Language returns the detected language, or the empty string.
func (ctx *ExecutionContext) Language() string {
	if ctx.Metadata == nil {
		return ""
	}
	return ctx.Metadata.Language
}

// SelectedText joins the selected lines that fall inside the file.
func (ctx *ExecutionContext) SelectedText() string {
	var parts []string
	for _, n := range ctx.SelectedLines {
		if n >= 1 && n <= len(ctx.Lines) {
			parts = append(parts, ctx.Lines[n-1])
		}
	}
	return strings.Join(parts, "\n")
}

// Facts returns the values availability predicates are evaluated against.
func (ctx *ExecutionContext) Facts() action.Facts {
	return action.Facts{
		FileName:     ctx.FileName(),
		Language:     ctx.Language(),
		HasSelection: ctx.HasSelection(),
		TotalLines:   ctx.TotalLines,
		Mode:         ctx.Mode,
	}
}

// Clone returns a copy that shares no slices or maps with ctx.
func (ctx *ExecutionContext) Clone() *ExecutionContext {
	out := *ctx
	out.SelectedLines = append([]int(nil), ctx.SelectedLines...)
	out.Lines = append([]string(nil), ctx.Lines...)
	if ctx.Metadata != nil {
		md := *ctx.Metadata
		out.Metadata = &md
	}
	out.Data = make(map[string]any, len(ctx.Data))
	for k, v := range ctx.Data {
		out.Data[k] = v
	}
	return &out
}

// SetData sets a context data value.
func (ctx *ExecutionContext) SetData(key string, value any) {
	if ctx.Data == nil {
		ctx.Data = make(map[string]any)
	}
	ctx.Data[key] = value
}

// GetData retrieves a context data value.
func (ctx *ExecutionContext) GetData(key string) (any, bool) {
	if ctx.Data == nil {
		return nil, false
	}
	v, ok := ctx.Data[key]
	return v, ok
}

// GetDataString retrieves a string value from context data.
func (ctx *ExecutionContext) GetDataString(key string) string {
	if v, ok := ctx.GetData(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Validate checks that the cursor and selection fit the file.
func (ctx *ExecutionContext) Validate() error {
	if ctx.TotalLines < 0 {
		return ErrInvalidLineCount
	}
	if ctx.TotalLines > 0 && (ctx.CurrentLine < 1 || ctx.CurrentLine > ctx.TotalLines) {
		return ErrCursorOutOfRange
	}
	return nil
}
