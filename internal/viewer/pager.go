package viewer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/app"
	"github.com/dshills/glance/internal/config/notify"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
	"github.com/dshills/glance/internal/input/key"
	"github.com/dshills/glance/internal/logging"
)

// notBoundTimeout is how long the "not bound" hint stays up.
const notBoundTimeout = 2 * time.Second

// reloadTimeout is how long reload notices stay up.
const reloadTimeout = 3 * time.Second

// Engine is the part of the action engine the pager drives.
type Engine interface {
	DispatchEvent(ctx context.Context, ev key.Event, ec *execctx.ExecutionContext) (handler.ExecutionResult, error)
	State() *app.State
	Subscribe(obs notify.Observer) *notify.Subscription
}

// Pager shows a document on a terminal screen and dispatches keys.
type Pager struct {
	engine   Engine
	screen   tcell.Screen
	state    *State
	theme    Theme
	segments [][]Segment
	logger   *logging.Logger
	now      func() time.Time
}

// PagerOption configures a Pager.
type PagerOption func(*Pager)

// WithTheme sets the color theme.
func WithTheme(t Theme) PagerOption {
	return func(p *Pager) { p.theme = t }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) PagerOption {
	return func(p *Pager) { p.logger = l }
}

// NewPager creates a pager over an initialized screen.
func NewPager(engine Engine, screen tcell.Screen, doc *Document, opts ...PagerOption) *Pager {
	p := &Pager{
		engine: engine,
		screen: screen,
		state:  NewState(doc),
		theme:  DefaultTheme(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithComponent("viewer")
	p.segments = Highlight(p.theme, doc.Language(), doc.Path, doc.Lines)
	return p
}

// State returns the view state.
func (p *Pager) State() *State {
	return p.state
}

// Run shows the document until a quit effect or ctx is cancelled. The
// caller initializes and finalizes the screen.
func (p *Pager) Run(ctx context.Context) error {
	sub := p.engine.Subscribe(func(c notify.Change) {
		_ = p.screen.PostEvent(tcell.NewEventInterrupt(c))
	})
	defer sub.Unsubscribe()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = p.screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
		case <-stop:
		}
	}()

	for {
		p.draw()

		switch ev := p.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			p.screen.Sync()
		case *tcell.EventInterrupt:
			switch d := ev.Data().(type) {
			case error:
				return nil
			case notify.Change:
				p.onReload(d)
			}
		case *tcell.EventKey:
			if p.handleKey(ctx, ev) {
				return nil
			}
		}
	}
}

// handleKey dispatches one key. It reports whether to quit.
func (p *Pager) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	k := key.FromTcell(ev)
	if k.IsZero() {
		return false
	}

	// Esc closes an open panel before it reaches the bindings.
	if k.String() == "esc" && p.state.Dismiss() {
		return false
	}

	r, err := p.engine.DispatchEvent(ctx, k, p.state.Context())
	switch {
	case errors.Is(err, app.ErrUnboundKey):
		p.state.SetStatus(k.String()+" is not bound", handler.MessageInfo, notBoundTimeout, p.now())
		p.expireLater(notBoundTimeout)
		return false
	case err != nil:
		p.state.SetStatus(err.Error(), handler.MessageError, 0, p.now())
		return false
	}

	if r.IsError() {
		p.logger.Debug("%s: %s", k, r.Message)
	}
	if r.MessageTimeout > 0 {
		p.expireLater(r.MessageTimeout)
	}
	return p.state.Apply(r, p.now())
}

// expireLater wakes the loop so an expired message is cleared.
func (p *Pager) expireLater(d time.Duration) {
	time.AfterFunc(d, func() {
		_ = p.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
}

func (p *Pager) onReload(c notify.Change) {
	// Reloads started by an action report through the action result.
	if c.Source == "action" {
		return
	}
	now := p.now()
	switch c.Type {
	case notify.ChangeReload:
		p.state.SetStatus(fmt.Sprintf("Reloaded %d actions", c.Actions), handler.MessageSuccess, reloadTimeout, now)
		p.expireLater(reloadTimeout)
	case notify.ChangeFailed:
		p.state.SetStatus("Reload failed: "+c.Err.Error(), handler.MessageError, 0, now)
	case notify.ChangeFallback:
		p.state.SetStatus("Using built-in actions: "+c.Err.Error(), handler.MessageWarning, 0, now)
	}
}

// Confirm asks a yes/no question on the status line. It must be called
// from the goroutine running Run, which is where dispatches happen.
func (p *Pager) Confirm(ctx context.Context, _ *action.Definition, prompt string) (bool, error) {
	p.state.SetStatus(prompt+" [y/N]", handler.MessageWarning, 0, p.now())
	defer p.state.SetStatus("", handler.MessageInfo, 0, p.now())

	for {
		p.draw()
		switch ev := p.screen.PollEvent().(type) {
		case nil:
			return false, context.Canceled
		case *tcell.EventResize:
			p.screen.Sync()
		case *tcell.EventInterrupt:
			if err, ok := ev.Data().(error); ok {
				return false, err
			}
		case *tcell.EventKey:
			switch key.FromTcell(ev).String() {
			case "y", "Y":
				return true, nil
			case "n", "N", "esc", "enter", "q":
				return false, nil
			}
		}
		if err := ctx.Err(); err != nil {
			return false, err
		}
	}
}

func (p *Pager) draw() {
	p.screen.Clear()
	w, h := p.screen.Size()
	if w <= 0 || h <= 0 {
		return
	}
	rows := h - 1
	p.state.SetHeight(rows)

	switch {
	case p.state.HelpVisible():
		p.drawHelp(w, rows)
	case p.state.Output() != nil:
		p.drawPanel(w, rows, "Output (esc to close)", p.state.Output())
	default:
		p.drawText(w, rows)
	}
	p.drawStatus(w, h-1)
	p.screen.Show()
}

func (p *Pager) drawText(w, rows int) {
	doc := p.state.Document()
	if doc.Metadata != nil && doc.Metadata.IsBinary {
		p.puts(0, 0, w, fmt.Sprintf("[binary file, %d bytes]", doc.Metadata.Size), p.theme.Comment)
		return
	}

	total := len(doc.Lines)
	gutter := len(strconv.Itoa(total)) + 1
	for y := 0; y < rows; y++ {
		line := p.state.Top() + y
		if line > total {
			p.puts(0, y, w, "~", p.theme.Comment)
			continue
		}

		selected := p.state.IsSelected(line)
		numStyle := p.theme.Comment
		if line == p.state.Current() {
			numStyle = p.theme.Keyword
		}
		p.puts(0, y, gutter, fmt.Sprintf("%*d", gutter-1, line), numStyle)

		x := gutter
		for _, seg := range p.segments[line-1] {
			style := seg.Style
			if selected {
				style = style.Reverse(true)
			}
			x = p.putsAt(x, y, w, seg.Text, style)
			if x >= w {
				break
			}
		}
	}
}

func (p *Pager) drawHelp(w, rows int) {
	reg := p.engine.State().Registry
	lines := make([]string, 0, reg.Len())
	for _, b := range reg.Bindings() {
		name := b.ActionID
		if def, ok := reg.ByID(b.ActionID); ok {
			name = def.DisplayName()
		}
		lines = append(lines, fmt.Sprintf("%-12s %s", b.Key, name))
	}
	p.drawPanel(w, rows, "Key bindings (esc to close)", lines)
}

func (p *Pager) drawPanel(w, rows int, title string, lines []string) {
	p.puts(0, 0, w, title, p.theme.Keyword)
	for i, l := range lines {
		if i+1 >= rows {
			break
		}
		p.puts(0, i+1, w, l, p.theme.Text)
	}
}

func (p *Pager) drawStatus(w, y int) {
	base := tcell.StyleDefault.Reverse(true)
	for x := 0; x < w; x++ {
		p.screen.SetContent(x, y, ' ', nil, base)
	}

	doc := p.state.Document()
	right := fmt.Sprintf(" %d/%d ", p.state.Current(), len(doc.Lines))
	if n := len(p.state.Selection()); n > 0 {
		right = fmt.Sprintf(" sel %d |%s", n, right)
	}

	left := " " + filepath.Base(doc.Path)
	style := base
	if st := p.state.Status(); st.Visible(p.now()) {
		left = " " + st.Text
		style = statusStyle(st.Type)
	}

	p.puts(0, y, w-len(right), left, style)
	p.puts(w-len(right), y, w, right, base)
}

func statusStyle(t handler.MessageType) tcell.Style {
	switch t {
	case handler.MessageError:
		return tcell.StyleDefault.Background(tcell.ColorMaroon).Foreground(tcell.ColorWhite)
	case handler.MessageWarning:
		return tcell.StyleDefault.Background(tcell.ColorOlive).Foreground(tcell.ColorBlack)
	case handler.MessageSuccess:
		return tcell.StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	default:
		return tcell.StyleDefault.Reverse(true)
	}
}

func (p *Pager) puts(x, y, maxX int, s string, style tcell.Style) {
	p.putsAt(x, y, maxX, s, style)
}

// putsAt draws s from column x, stopping at maxX, and returns the next
// column. Tabs expand to four spaces.
func (p *Pager) putsAt(x, y, maxX int, s string, style tcell.Style) int {
	for _, r := range s {
		if r == '\t' {
			for i := 0; i < 4 && x < maxX; i++ {
				p.screen.SetContent(x, y, ' ', nil, style)
				x++
			}
			continue
		}
		if x >= maxX {
			return x
		}
		p.screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
