package execctx_test

import (
	"testing"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/dispatcher/execctx"
)

func TestNew(t *testing.T) {
	ctx := execctx.New()

	if ctx.CurrentLine != 1 {
		t.Errorf("expected default CurrentLine 1, got %d", ctx.CurrentLine)
	}
	if ctx.Mode != action.ModeInteractive {
		t.Errorf("expected interactive mode, got %q", ctx.Mode)
	}
	if ctx.Data == nil {
		t.Error("expected Data to be initialized")
	}
}

func TestWithBuilders(t *testing.T) {
	ctx := execctx.New().
		WithFile("/src/main.go", []string{"package main", "", "func main() {}"}).
		WithCursor(3, 5).
		WithSelection([]int{3, 1, 3}).
		WithViewport(1, 24).
		WithMode(action.ModeStatic).
		WithTheme("monokai").
		WithMetadata(&execctx.FileMetadata{Language: "go", Size: 30})

	if ctx.TotalLines != 3 {
		t.Errorf("expected TotalLines 3, got %d", ctx.TotalLines)
	}
	if got := ctx.SelectedLines; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected sorted unique selection [1 3], got %v", got)
	}
	if ctx.FileName() != "main.go" {
		t.Errorf("expected FileName main.go, got %q", ctx.FileName())
	}
	if ctx.FileDir() != "/src" {
		t.Errorf("expected FileDir /src, got %q", ctx.FileDir())
	}
	if ctx.Viewport.Height() != 24 {
		t.Errorf("expected viewport height 24, got %d", ctx.Viewport.Height())
	}
	if ctx.SelectedText() != "package main\nfunc main() {}" {
		t.Errorf("unexpected SelectedText %q", ctx.SelectedText())
	}

	facts := ctx.Facts()
	if !facts.HasSelection || facts.Language != "go" || facts.Mode != action.ModeStatic || facts.TotalLines != 3 {
		t.Errorf("unexpected facts %+v", facts)
	}
}

func TestSelectedTextSkipsOutOfRange(t *testing.T) {
	ctx := execctx.New().
		WithFile("a.txt", []string{"one", "two"}).
		WithSelection([]int{0, 2, 7})

	if got := ctx.SelectedText(); got != "two" {
		t.Errorf("expected %q, got %q", "two", got)
	}
}

func TestClone(t *testing.T) {
	ctx := execctx.New().
		WithFile("a.txt", []string{"one"}).
		WithSelection([]int{1}).
		WithMetadata(&execctx.FileMetadata{Language: "text"})
	ctx.SetData("k", "v")

	c := ctx.Clone()
	c.SelectedLines[0] = 9
	c.Lines[0] = "changed"
	c.Metadata.Language = "go"
	c.SetData("k", "other")

	if ctx.SelectedLines[0] != 1 || ctx.Lines[0] != "one" || ctx.Metadata.Language != "text" {
		t.Error("clone shares state with original")
	}
	if ctx.GetDataString("k") != "v" {
		t.Error("clone shares data map with original")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		ctx     *execctx.ExecutionContext
		wantErr error
	}{
		{"empty", execctx.New(), nil},
		{"in range", execctx.New().WithFile("a", []string{"x", "y"}).WithCursor(2, 1), nil},
		{"out of range", execctx.New().WithFile("a", []string{"x"}).WithCursor(4, 1), execctx.ErrCursorOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ctx.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDataAccessors(t *testing.T) {
	ctx := &execctx.ExecutionContext{}

	if _, ok := ctx.GetData("missing"); ok {
		t.Error("expected missing key")
	}
	ctx.SetData("name", "value")
	ctx.SetData("n", 3)

	if ctx.GetDataString("name") != "value" {
		t.Error("expected string value")
	}
	if ctx.GetDataString("n") != "" {
		t.Error("expected empty string for non-string value")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		file    string
		content string
		want    string
	}{
		{"main.go", "", "go"},
		{"script.py", "", "python"},
		{"", "", ""},
		{"notes.unknownext", "", ""},
	}

	for _, tt := range tests {
		if got := execctx.DetectLanguage(tt.file, tt.content); got != tt.want {
			t.Errorf("DetectLanguage(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestIsBinary(t *testing.T) {
	if execctx.IsBinary([]byte("plain text\n")) {
		t.Error("text reported as binary")
	}
	if !execctx.IsBinary([]byte{'a', 0, 'b'}) {
		t.Error("NUL byte not reported as binary")
	}
}
