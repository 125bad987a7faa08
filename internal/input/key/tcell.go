package key

import "github.com/gdamore/tcell/v2"

// tcellSpecial lists named tcell keys. Ctrl+H, Ctrl+I and Ctrl+M share
// codes with backspace, tab and enter and resolve to the latter.
var tcellSpecial = []struct {
	from tcell.Key
	to   Key
}{
	{tcell.KeyEscape, KeyEscape},
	{tcell.KeyEnter, KeyEnter},
	{tcell.KeyTab, KeyTab},
	{tcell.KeyBacktab, KeyTab},
	{tcell.KeyBackspace, KeyBackspace},
	{tcell.KeyBackspace2, KeyBackspace},
	{tcell.KeyDelete, KeyDelete},
	{tcell.KeyInsert, KeyInsert},
	{tcell.KeyHome, KeyHome},
	{tcell.KeyEnd, KeyEnd},
	{tcell.KeyPgUp, KeyPageUp},
	{tcell.KeyPgDn, KeyPageDown},
	{tcell.KeyUp, KeyUp},
	{tcell.KeyDown, KeyDown},
	{tcell.KeyLeft, KeyLeft},
	{tcell.KeyRight, KeyRight},
	{tcell.KeyF1, KeyF1},
	{tcell.KeyF2, KeyF2},
	{tcell.KeyF3, KeyF3},
	{tcell.KeyF4, KeyF4},
	{tcell.KeyF5, KeyF5},
	{tcell.KeyF6, KeyF6},
	{tcell.KeyF7, KeyF7},
	{tcell.KeyF8, KeyF8},
	{tcell.KeyF9, KeyF9},
	{tcell.KeyF10, KeyF10},
	{tcell.KeyF11, KeyF11},
	{tcell.KeyF12, KeyF12},
}

// FromTcell converts a terminal key event. Unknown keys yield the zero Event.
func FromTcell(ev *tcell.EventKey) Event {
	if ev == nil {
		return Event{}
	}
	mods := fromTcellMods(ev.Modifiers())
	k := ev.Key()

	if k == tcell.KeyRune {
		return NewRuneEvent(ev.Rune(), mods).canonical()
	}
	if k == tcell.KeyBacktab {
		mods = mods.With(ModShift)
	}
	for _, s := range tcellSpecial {
		if s.from == k {
			return NewSpecialEvent(s.to, mods)
		}
	}
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		r := rune('a' + int(k-tcell.KeyCtrlA))
		return NewRuneEvent(r, mods.With(ModCtrl))
	}
	if k == tcell.KeyCtrlSpace {
		return NewRuneEvent(' ', mods.With(ModCtrl))
	}
	return Event{}
}

// StringFromTcell converts a terminal key event straight to its canonical key string.
func StringFromTcell(ev *tcell.EventKey) string {
	return FromTcell(ev).String()
}

func fromTcellMods(m tcell.ModMask) Modifier {
	var mods Modifier
	if m&tcell.ModCtrl != 0 {
		mods = mods.With(ModCtrl)
	}
	if m&tcell.ModAlt != 0 {
		mods = mods.With(ModAlt)
	}
	if m&tcell.ModShift != 0 {
		mods = mods.With(ModShift)
	}
	if m&tcell.ModMeta != 0 {
		mods = mods.With(ModMeta)
	}
	return mods
}
