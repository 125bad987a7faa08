package handler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
)

func TestMessageType(t *testing.T) {
	tests := []struct {
		mt       handler.MessageType
		expected string
	}{
		{handler.MessageInfo, "info"},
		{handler.MessageSuccess, "success"},
		{handler.MessageWarning, "warning"},
		{handler.MessageError, "error"},
		{handler.MessageType(99), "unknown"},
	}

	for _, tc := range tests {
		if tc.mt.String() != tc.expected {
			t.Errorf("MessageType(%d).String() = %q, want %q", tc.mt, tc.mt.String(), tc.expected)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	if r := handler.Succeeded("done"); !r.Success || r.MessageType != handler.MessageSuccess {
		t.Errorf("Succeeded() = %+v", r)
	}
	if r := handler.Warning("disabled"); r.Success || r.IsError() {
		t.Errorf("Warning() should be a non-error failure: %+v", r)
	}
	if r := handler.Cancelled("cancelled"); r.Success || r.IsError() || r.MessageType != handler.MessageInfo {
		t.Errorf("Cancelled() = %+v", r)
	}

	err := errors.New("boom")
	r := handler.Failed(err)
	if !r.IsError() || r.Error != err || r.Message != "boom" || r.ExitCode != -1 {
		t.Errorf("Failed() = %+v", r)
	}
	if r := handler.Failedf("x %d", 1); r.Message != "x 1" {
		t.Errorf("Failedf() message = %q", r.Message)
	}
}

func TestResultBuilders(t *testing.T) {
	r := handler.Info("").WithScrollTo(4).WithOutput("out").WithEffect(handler.EffectReload)
	if r.View.ScrollTo == nil || *r.View.ScrollTo != 4 || !r.RefreshRequired {
		t.Errorf("WithScrollTo() = %+v", r.View)
	}
	if r.Output != "out" || r.Effect != handler.EffectReload {
		t.Errorf("unexpected result %+v", r)
	}
	if !handler.Info("").View.IsZero() {
		t.Error("expected zero view update")
	}
	if r := handler.Info("").WithSelection(nil); !r.View.SelectionChanged || len(r.View.Selection) != 0 {
		t.Errorf("WithSelection(nil) = %+v", r.View)
	}
}

func TestTable(t *testing.T) {
	base := handler.Defaults()
	custom := handler.Table{
		handler.Quit: func(context.Context, *execctx.ExecutionContext) handler.ExecutionResult {
			return handler.Info("custom quit")
		},
		"extra": nil,
	}
	merged := base.With(custom)

	fn, ok := merged.Lookup(handler.Quit)
	if !ok {
		t.Fatal("quit not found")
	}
	if got := fn(context.Background(), execctx.New()).Message; got != "custom quit" {
		t.Errorf("override not applied, got %q", got)
	}
	if _, ok := merged.Lookup("extra"); ok {
		t.Error("nil handler should not be found")
	}
	if _, ok := base.Lookup("missing"); ok {
		t.Error("missing handler found")
	}
	if len(base) != len(handler.Defaults()) {
		t.Error("With() modified the receiver")
	}

	names := base.Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}

func tenLines() *execctx.ExecutionContext {
	lines := make([]string, 10)
	return execctx.New().WithFile("f.txt", lines).WithViewport(3, 6)
}

func run(name string, ec *execctx.ExecutionContext) handler.ExecutionResult {
	fn, _ := handler.Defaults().Lookup(name)
	return fn(context.Background(), ec)
}

func TestDefaultNavigation(t *testing.T) {
	tests := []struct {
		name string
		line int
		want int
	}{
		{handler.ScrollDown, 5, 6},
		{handler.ScrollDown, 10, 10},
		{handler.ScrollUp, 1, 1},
		{handler.ScrollUp, 5, 4},
		{handler.PageDown, 5, 9},
		{handler.PageDown, 8, 10},
		{handler.PageUp, 3, 1},
		{handler.GoToStart, 7, 1},
		{handler.GoToEnd, 2, 10},
	}

	for _, tc := range tests {
		r := run(tc.name, tenLines().WithCursor(tc.line, 1))
		if !r.Success || r.View.ScrollTo == nil {
			t.Fatalf("%s: unexpected result %+v", tc.name, r)
		}
		if *r.View.ScrollTo != tc.want {
			t.Errorf("%s from %d = %d, want %d", tc.name, tc.line, *r.View.ScrollTo, tc.want)
		}
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDefaultSelection(t *testing.T) {
	tests := []struct {
		name     string
		builtin  string
		line     int
		selected []int
		want     []int
	}{
		{"toggle on", handler.ToggleSelection, 4, []int{2}, []int{2, 4}},
		{"toggle off", handler.ToggleSelection, 2, []int{2, 4}, []int{4}},
		{"range from empty", handler.SelectRange, 5, nil, []int{5}},
		{"range down", handler.SelectRange, 6, []int{3}, []int{3, 4, 5, 6}},
		{"range up", handler.SelectRange, 1, []int{3, 9}, []int{1, 2, 3, 9}},
		{"select viewport", handler.SelectAll, 1, nil, []int{3, 4, 5, 6}},
		{"clear", handler.ClearSelection, 1, []int{1, 2}, []int{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := run(tc.builtin, tenLines().WithCursor(tc.line, 1).WithSelection(tc.selected))
			if !r.View.SelectionChanged {
				t.Fatal("expected selection change")
			}
			if !equalInts(r.View.Selection, tc.want) {
				t.Errorf("selection = %v, want %v", r.View.Selection, tc.want)
			}
		})
	}
}

func TestDefaultEffects(t *testing.T) {
	tests := []struct {
		name string
		want handler.Effect
	}{
		{handler.Quit, handler.EffectQuit},
		{handler.ShowHelp, handler.EffectShowHelp},
		{handler.Reload, handler.EffectReload},
	}

	for _, tc := range tests {
		if got := run(tc.name, execctx.New()).Effect; got != tc.want {
			t.Errorf("%s effect = %v, want %v", tc.name, got, tc.want)
		}
	}
}
