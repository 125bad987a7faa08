package key

import (
	"unicode"
)

// Event is a single key press.
type Event struct {
	Key       Key
	Rune      rune
	Modifiers Modifier
}

// NewRuneEvent returns a character key event.
func NewRuneEvent(r rune, mods Modifier) Event {
	return Event{Key: KeyRune, Rune: r, Modifiers: mods}
}

// NewSpecialEvent returns a named key event.
func NewSpecialEvent(k Key, mods Modifier) Event {
	return Event{Key: k, Modifiers: mods}
}

// IsZero reports whether the event carries no key.
func (e Event) IsZero() bool {
	return e.Key == KeyNone || (e.Key == KeyRune && e.Rune == 0)
}

// canonical folds shift into characters pressed without other modifiers
// and lowercases characters in a ctrl, alt or meta chord.
func (e Event) canonical() Event {
	if e.Key != KeyRune {
		return e
	}
	chord := e.Modifiers.Has(ModCtrl) || e.Modifiers.Has(ModAlt) || e.Modifiers.Has(ModMeta)
	if !chord {
		if e.Modifiers.Has(ModShift) {
			e.Rune = unicode.ToUpper(e.Rune)
		}
		e.Modifiers = e.Modifiers.Without(ModShift)
		return e
	}
	e.Rune = unicode.ToLower(e.Rune)
	return e
}

// String returns the canonical key string.
func (e Event) String() string {
	if e.IsZero() {
		return ""
	}
	c := e.canonical()

	var name string
	switch {
	case c.Key != KeyRune:
		name = c.Key.String()
	case c.Rune == ' ':
		name = "space"
	case c.Rune == '+' && c.Modifiers != ModNone:
		name = "plus"
	default:
		name = string(c.Rune)
	}

	if mods := c.Modifiers.String(); mods != "" {
		return mods + "+" + name
	}
	return name
}

// Equals reports whether two events are the same key press.
func (e Event) Equals(other Event) bool {
	return e.String() == other.String()
}
