package viewer

import (
	"strings"
	"time"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
)

// Status is the message on the status line.
type Status struct {
	Text    string
	Type    handler.MessageType
	Expires time.Time // zero means until replaced
}

// Visible reports whether the status should still be shown.
func (s Status) Visible(now time.Time) bool {
	if s.Text == "" {
		return false
	}
	return s.Expires.IsZero() || now.Before(s.Expires)
}

// State is the view model: the current line, the scroll position, the
// selection and the panels shown over the text. It has no terminal
// dependency.
type State struct {
	doc *Document

	current   int // 1-based
	top       int // first visible line, 1-based
	height    int // text rows
	selection []int

	status Status
	output []string
	help   bool

	mode  action.Mode
	theme string
}

// NewState creates a view over doc.
func NewState(doc *Document) *State {
	return &State{
		doc:     doc,
		current: 1,
		top:     1,
		height:  1,
		mode:    action.ModeInteractive,
		theme:   "default",
	}
}

// Document returns the viewed document.
func (s *State) Document() *Document { return s.doc }

// Current returns the current line.
func (s *State) Current() int { return s.current }

// Top returns the first visible line.
func (s *State) Top() int { return s.top }

// Selection returns the selected lines in ascending order.
func (s *State) Selection() []int { return s.selection }

// Status returns the status message.
func (s *State) Status() Status { return s.status }

// Output returns the output panel lines, if shown.
func (s *State) Output() []string { return s.output }

// HelpVisible reports whether the key help panel is shown.
func (s *State) HelpVisible() bool { return s.help }

// SetHeight sets the number of text rows and keeps the current line
// visible.
func (s *State) SetHeight(h int) {
	if h < 1 {
		h = 1
	}
	s.height = h
	s.follow()
}

// SetStatus replaces the status message.
func (s *State) SetStatus(text string, typ handler.MessageType, timeout time.Duration, now time.Time) {
	s.status = Status{Text: text, Type: typ}
	if timeout > 0 {
		s.status.Expires = now.Add(timeout)
	}
}

// Dismiss closes the help and output panels. It reports whether anything
// was open.
func (s *State) Dismiss() bool {
	open := s.help || s.output != nil
	s.help = false
	s.output = nil
	return open
}

// Context snapshots the view for one dispatch.
func (s *State) Context() *execctx.ExecutionContext {
	ec := execctx.New().
		WithFile(s.doc.Path, s.doc.Lines).
		WithCursor(s.current, 1).
		WithSelection(s.selection).
		WithViewport(s.top, s.bottom()).
		WithMode(s.mode).
		WithTheme(s.theme).
		WithMetadata(s.doc.Metadata)
	return ec
}

// Apply folds a result into the view. It reports whether the host should
// quit.
func (s *State) Apply(r handler.ExecutionResult, now time.Time) bool {
	if r.Effect == handler.EffectQuit {
		return true
	}
	if r.View.ScrollTo != nil {
		s.scrollTo(*r.View.ScrollTo)
	}
	if r.View.SelectionChanged {
		s.selection = append([]int(nil), r.View.Selection...)
	}
	if r.Message != "" {
		s.SetStatus(r.Message, r.MessageType, r.MessageTimeout, now)
	}
	if out := strings.TrimRight(r.Output, "\n"); out != "" {
		s.output = strings.Split(out, "\n")
	}

	if r.Effect == handler.EffectShowHelp {
		s.help = !s.help
	}
	return false
}

func (s *State) total() int { return len(s.doc.Lines) }

func (s *State) bottom() int {
	b := s.top + s.height - 1
	if b > s.total() {
		b = s.total()
	}
	return b
}

func (s *State) scrollTo(line int) {
	if line > s.total() {
		line = s.total()
	}
	if line < 1 {
		line = 1
	}
	s.current = line
	s.follow()
}

// follow moves the window so the current line is visible.
func (s *State) follow() {
	if s.current < s.top {
		s.top = s.current
	}
	if s.current > s.top+s.height-1 {
		s.top = s.current - s.height + 1
	}
	if s.top < 1 {
		s.top = 1
	}
}

// IsSelected reports whether line is selected.
func (s *State) IsSelected(line int) bool {
	for _, n := range s.selection {
		if n == line {
			return true
		}
		if n > line {
			return false
		}
	}
	return false
}
