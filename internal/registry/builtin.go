package registry

import (
	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/dispatcher/handler"
)

// Categories of built-in actions.
const (
	CategoryNavigation  = "navigation"
	CategorySelection   = "selection"
	CategoryApplication = "application"
)

// criticalIDs may never be redefined by configuration.
var criticalIDs = map[string]bool{
	handler.Quit:     true,
	handler.ShowHelp: true,
}

// IsCritical reports whether id names a protected built-in.
func IsCritical(id string) bool {
	return criticalIDs[id]
}

func builtin(id, name, desc, category string, keys ...string) action.Definition {
	d := action.Definition{
		ID:          id,
		Name:        name,
		Description: desc,
		Key:         keys[0],
		Script:      action.Builtin(id),
		Category:    category,
	}
	if len(keys) > 1 {
		d.AlternativeKeys = keys[1:]
	}
	return d
}

// Builtins returns the built-in action table in registration order.
func Builtins() []action.Definition {
	return []action.Definition{
		// Navigation
		builtin(handler.ScrollUp, "Scroll up", "Move up one line", CategoryNavigation, "k", "up"),
		builtin(handler.ScrollDown, "Scroll down", "Move down one line", CategoryNavigation, "j", "down"),
		builtin(handler.PageUp, "Page up", "Move up one page", CategoryNavigation, "pgup", "b"),
		builtin(handler.PageDown, "Page down", "Move down one page", CategoryNavigation, "pgdn", "space"),
		builtin(handler.GoToStart, "Go to start", "Jump to the first line", CategoryNavigation, "g", "home"),
		builtin(handler.GoToEnd, "Go to end", "Jump to the last line", CategoryNavigation, "G", "end"),

		// Selection
		builtin(handler.ToggleSelection, "Toggle selection", "Select or deselect the current line", CategorySelection, "v"),
		builtin(handler.SelectRange, "Select range", "Extend the selection to the current line", CategorySelection, "V"),
		builtin(handler.SelectAll, "Select all", "Select every visible line", CategorySelection, "ctrl+a"),
		builtin(handler.ClearSelection, "Clear selection", "Deselect all lines", CategorySelection, "esc"),

		// Application
		builtin(handler.Quit, "Quit", "Exit the viewer", CategoryApplication, "q"),
		builtin(handler.ShowHelp, "Help", "Show key bindings", CategoryApplication, "?"),
		builtin(handler.Reload, "Reload actions", "Reload action configuration", CategoryApplication, "ctrl+r"),
	}
}
