package key_test

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"

	"github.com/dshills/glance/internal/input/key"
)

func TestFromTcell(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want string
	}{
		{"rune", tcell.NewEventKey(tcell.KeyRune, 'j', tcell.ModNone), "j"},
		{"upper rune", tcell.NewEventKey(tcell.KeyRune, 'G', tcell.ModShift), "G"},
		{"space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), "space"},
		{"ctrl letter", tcell.NewEventKey(tcell.KeyCtrlR, 0, tcell.ModCtrl), "ctrl+r"},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), "esc"},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), "enter"},
		{"page up", tcell.NewEventKey(tcell.KeyPgUp, 0, tcell.ModNone), "pgup"},
		{"arrow", tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), "down"},
		{"alt rune", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModAlt), "alt+x"},
		{"f-key", tcell.NewEventKey(tcell.KeyF2, 0, tcell.ModNone), "f2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, key.StringFromTcell(tc.ev))
		})
	}
}

func TestFromTcellMatchesConfig(t *testing.T) {
	ev := tcell.NewEventKey(tcell.KeyCtrlA, 0, tcell.ModCtrl)
	assert.True(t, key.FromTcell(ev).Equals(key.MustParse("Ctrl+A")))
	assert.True(t, key.FromTcell(nil).IsZero())
}
