// Package key parses and normalizes key specifications.
//
// Every binding in the action engine is stored under a canonical key
// string so that equivalent spellings collide:
//
//	"Ctrl+R", "ctrl+r", "<C-r>", "C-r"  -> "ctrl+r"
//	"Shift+g", "G"                      -> "G"
//	"PageUp", "pgup", "<PageUp>"        -> "pgup"
//	" ", "Space", "<Space>"             -> "space"
//
// Modifiers are written in the fixed order ctrl, alt, shift, meta. Shift is
// folded into the character for printable keys without other modifiers.
//
// FromTcell converts terminal key events into the same canonical form, so
// the host loop and the configuration agree on every key string.
package key
