package viewer

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/app"
	"github.com/dshills/glance/internal/config"
	"github.com/dshills/glance/internal/config/loader"
	"github.com/dshills/glance/internal/logging"
)

const pagerDoc = `{
  "actions": [
    {"id": "count", "description": "Count selection", "key": "C", "script": "echo {{selectionCount}} selected"},
    {"id": "nuke", "description": "Dangerous", "key": "X", "script": "echo boom", "dangerous": true,
     "confirmPrompt": "Really nuke {{filePath}}?"}
  ]
}`

type harness struct {
	pager   *Pager
	screen  tcell.SimulationScreen
	prompts []string
}

func newHarness(t *testing.T, content string) *harness {
	t.Helper()
	h := &harness{}

	fsys := loader.NewMemFS()
	fsys.AddFile("/home/u/.config/glance/actions.json", pagerDoc)
	settings := config.DefaultSettings()

	a, err := app.New(app.Options{
		FS:       fsys,
		UserDir:  "/home/u/.config/glance",
		WorkDir:  "/work",
		Settings: &settings,
		Logger:   logging.Null(),
		Confirm: func(ctx context.Context, def *action.Definition, prompt string) (bool, error) {
			h.prompts = append(h.prompts, prompt)
			return h.pager.Confirm(ctx, def, prompt)
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	h.screen = tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, h.screen.Init())
	h.screen.SetSize(60, 10)
	t.Cleanup(h.screen.Fini)

	h.pager = NewPager(a, h.screen, NewDocument("/tmp/notes.txt", []byte(content)))
	return h
}

func (h *harness) keys(runes string) {
	for _, r := range runes {
		h.screen.InjectKey(tcell.KeyRune, r, tcell.ModNone)
	}
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.pager.Run(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("pager did not stop")
	}
}

func (h *harness) row(y int) string {
	cells, w, _ := h.screen.GetContents()
	var b strings.Builder
	for x := 0; x < w; x++ {
		c := cells[y*w+x]
		if len(c.Runes) > 0 {
			b.WriteRune(c.Runes[0])
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func TestPagerNavigatesAndSelects(t *testing.T) {
	h := newHarness(t, "one\ntwo\nthree\nfour\n")
	h.keys("jjvCq")
	h.run(t)

	s := h.pager.State()
	assert.Equal(t, 3, s.Current())
	assert.Equal(t, []int{3}, s.Selection())
	assert.Equal(t, "1 selected", s.Status().Text)
}

func TestPagerConfirmDangerous(t *testing.T) {
	h := newHarness(t, "alpha\n")
	h.keys("Xyq")
	h.run(t)

	require.Len(t, h.prompts, 1)
	assert.Equal(t, "Really nuke /tmp/notes.txt?", h.prompts[0])
	assert.Equal(t, "boom", h.pager.State().Status().Text)
}

func TestPagerDeclineDangerous(t *testing.T) {
	h := newHarness(t, "alpha\n")
	h.keys("Xnq")
	h.run(t)

	assert.Contains(t, h.pager.State().Status().Text, "cancelled")
}

func TestPagerUnboundKeyAndHelp(t *testing.T) {
	h := newHarness(t, "alpha\n")
	h.keys("?")
	h.screen.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	h.keys("Zq")
	h.run(t)

	s := h.pager.State()
	assert.False(t, s.HelpVisible())
	assert.Equal(t, "Z is not bound", s.Status().Text)
}

func TestPagerDraw(t *testing.T) {
	h := newHarness(t, "alpha\nbeta\n")
	h.pager.draw()

	assert.Equal(t, "1 alpha", h.row(0))
	assert.Equal(t, "2 beta", h.row(1))
	assert.Equal(t, "~", h.row(2))
	assert.Contains(t, h.row(9), "notes.txt")
	assert.Contains(t, h.row(9), "1/2")
}

func TestPagerStopsOnCancel(t *testing.T) {
	h := newHarness(t, "alpha\n")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.pager.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pager ignored cancellation")
	}
}
