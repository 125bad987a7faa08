package handler

import (
	"context"
	"sort"

	"github.com/dshills/glance/internal/dispatcher/execctx"
)

// Builtin handler names.
const (
	Quit            = "quit"
	ShowHelp        = "showHelp"
	Reload          = "reload"
	ScrollUp        = "scrollUp"
	ScrollDown      = "scrollDown"
	PageUp          = "pageUp"
	PageDown        = "pageDown"
	GoToStart       = "goToStart"
	GoToEnd         = "goToEnd"
	ToggleSelection = "toggleSelection"
	SelectRange     = "selectRange"
	SelectAll       = "selectAll"
	ClearSelection  = "clearSelection"
)

// defaultPageSize is used when the viewport height is unknown.
const defaultPageSize = 20

// Defaults returns handlers for every builtin that compute their effect
// from the snapshot alone. Hosts apply the returned ViewUpdate and Effect,
// or replace entries with handlers bound to their own state.
func Defaults() Table {
	return Table{
		Quit:            quit,
		ShowHelp:        showHelp,
		Reload:          reload,
		ScrollUp:        scrollBy(-1),
		ScrollDown:      scrollBy(1),
		PageUp:          pageBy(-1),
		PageDown:        pageBy(1),
		GoToStart:       goToStart,
		GoToEnd:         goToEnd,
		ToggleSelection: toggleSelection,
		SelectRange:     selectRange,
		SelectAll:       selectAll,
		ClearSelection:  clearSelection,
	}
}

func quit(context.Context, *execctx.ExecutionContext) ExecutionResult {
	return Info("Quitting").WithEffect(EffectQuit)
}

func showHelp(context.Context, *execctx.ExecutionContext) ExecutionResult {
	return Info("Help").WithEffect(EffectShowHelp).WithRefresh()
}

func reload(context.Context, *execctx.ExecutionContext) ExecutionResult {
	return Info("Reloading actions").WithEffect(EffectReload)
}

func clamp(line, total int) int {
	if line > total {
		line = total
	}
	if line < 1 {
		line = 1
	}
	return line
}

func scrollBy(delta int) Func {
	return func(_ context.Context, ec *execctx.ExecutionContext) ExecutionResult {
		return Info("").WithScrollTo(clamp(ec.CurrentLine+delta, ec.TotalLines))
	}
}

func pageBy(dir int) Func {
	return func(_ context.Context, ec *execctx.ExecutionContext) ExecutionResult {
		page := ec.Viewport.Height()
		if page <= 0 {
			page = defaultPageSize
		}
		return Info("").WithScrollTo(clamp(ec.CurrentLine+dir*page, ec.TotalLines))
	}
}

func goToStart(context.Context, *execctx.ExecutionContext) ExecutionResult {
	return Info("").WithScrollTo(1)
}

func goToEnd(_ context.Context, ec *execctx.ExecutionContext) ExecutionResult {
	return Info("").WithScrollTo(clamp(ec.TotalLines, ec.TotalLines))
}

func toggleSelection(_ context.Context, ec *execctx.ExecutionContext) ExecutionResult {
	line := ec.CurrentLine
	sel := make([]int, 0, len(ec.SelectedLines)+1)
	found := false
	for _, n := range ec.SelectedLines {
		if n == line {
			found = true
			continue
		}
		sel = append(sel, n)
	}
	if !found {
		sel = append(sel, line)
		sort.Ints(sel)
	}
	return Info("").WithSelection(sel)
}

// selectRange extends the selection from the nearest selected line to the
// current line.
func selectRange(_ context.Context, ec *execctx.ExecutionContext) ExecutionResult {
	line := ec.CurrentLine
	if len(ec.SelectedLines) == 0 {
		return Info("").WithSelection([]int{line})
	}
	anchor := ec.SelectedLines[0]
	for _, n := range ec.SelectedLines {
		if abs(n-line) < abs(anchor-line) {
			anchor = n
		}
	}
	lo, hi := anchor, line
	if lo > hi {
		lo, hi = hi, lo
	}

	seen := make(map[int]bool, len(ec.SelectedLines)+hi-lo+1)
	sel := make([]int, 0, len(ec.SelectedLines)+hi-lo+1)
	for _, n := range ec.SelectedLines {
		seen[n] = true
		sel = append(sel, n)
	}
	for n := lo; n <= hi; n++ {
		if !seen[n] {
			sel = append(sel, n)
		}
	}
	sort.Ints(sel)
	return Info("").WithSelection(sel)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// selectAll selects every line in the viewport.
func selectAll(_ context.Context, ec *execctx.ExecutionContext) ExecutionResult {
	start, end := ec.Viewport.Start, ec.Viewport.End
	if ec.Viewport.Height() == 0 {
		start, end = 1, ec.TotalLines
	}
	start = clamp(start, ec.TotalLines)
	end = clamp(end, ec.TotalLines)

	sel := make([]int, 0, end-start+1)
	for n := start; n <= end && ec.TotalLines > 0; n++ {
		sel = append(sel, n)
	}
	return Info("").WithSelection(sel)
}

func clearSelection(context.Context, *execctx.ExecutionContext) ExecutionResult {
	return Info("").WithSelection(nil)
}
