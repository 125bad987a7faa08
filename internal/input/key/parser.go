package key

import (
	"errors"
	"fmt"
	"strings"
)

// Parse errors.
var (
	ErrEmptySpec   = errors.New("empty key specification")
	ErrInvalidSpec = errors.New("invalid key specification")
)

// Parse parses a key specification.
//
// Supported formats:
//   - Single character: "a", "G", "?", "+"
//   - Named keys: "Enter", "Esc", "PageUp", "F5", "Space"
//   - With modifiers: "Ctrl+R", "alt+shift+x", "Ctrl+Plus"
//   - Vim-style: "<C-r>", "<A-S-x>", "<CR>", "<Esc>", "C-r"
func Parse(spec string) (Event, error) {
	if spec == " " {
		return NewRuneEvent(' ', ModNone), nil
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Event{}, ErrEmptySpec
	}

	if len(spec) > 2 && strings.HasPrefix(spec, "<") && strings.HasSuffix(spec, ">") {
		return parseChord(spec[1:len(spec)-1], "-")
	}
	if len([]rune(spec)) == 1 {
		return parseName(spec, ModNone)
	}
	if strings.Contains(spec, "+") {
		return parseChord(spec, "+")
	}
	if len(spec) > 2 && spec[1] == '-' && ModifierFromName(spec[:1]) != ModNone {
		return parseChord(spec, "-")
	}
	return parseName(spec, ModNone)
}

// parseChord parses modifiers separated by sep followed by a key name.
// A trailing separator names the separator character itself ("ctrl++").
func parseChord(spec, sep string) (Event, error) {
	var keyPart string
	head := spec
	if strings.HasSuffix(spec, sep+sep) {
		keyPart = sep
		head = strings.TrimSuffix(spec, sep+sep)
	} else {
		i := strings.LastIndex(spec, sep)
		if i < 0 {
			return parseName(spec, ModNone)
		}
		head, keyPart = spec[:i], spec[i+1:]
	}

	var mods Modifier
	if head != "" {
		for _, p := range strings.Split(head, sep) {
			mod := ModifierFromName(p)
			if mod == ModNone {
				return Event{}, fmt.Errorf("%w: unknown modifier %q in %q", ErrInvalidSpec, p, spec)
			}
			mods = mods.With(mod)
		}
	}
	return parseName(keyPart, mods)
}

// parseName parses a single key name or character.
func parseName(name string, mods Modifier) (Event, error) {
	if name == "" {
		return Event{}, ErrInvalidSpec
	}
	if runes := []rune(name); len(runes) == 1 {
		return NewRuneEvent(runes[0], mods).canonical(), nil
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if k, ok := aliases[lower]; ok {
		return NewSpecialEvent(k, mods), nil
	}
	if r, ok := runeAliases[lower]; ok {
		return NewRuneEvent(r, mods).canonical(), nil
	}
	return Event{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSpec, name)
}

// MustParse parses spec and panics on error. Use only for literal specs.
func MustParse(spec string) Event {
	e, err := Parse(spec)
	if err != nil {
		panic("invalid key specification " + spec + ": " + err.Error())
	}
	return e
}

// Normalize returns the canonical form of spec.
func Normalize(spec string) (string, error) {
	e, err := Parse(spec)
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

// NormalizeOrSelf returns the canonical form of spec, or spec itself
// (trimmed) when it cannot be parsed.
func NormalizeOrSelf(spec string) string {
	if n, err := Normalize(spec); err == nil {
		return n
	}
	return strings.TrimSpace(spec)
}
