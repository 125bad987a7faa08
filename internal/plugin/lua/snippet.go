package lua

import (
	"strings"
	"unicode/utf8"
)

// callMarkers identify source that calls the glance module.
var callMarkers = []string{
	"glance.status(",
	"glance.clear_status(",
	"glance.file_info(",
	"glance.selection(",
}

// Snippet is Lua to run: inline source or a script path.
type Snippet struct {
	Code string
	Path string
}

// String returns a short description for logs.
func (s Snippet) String() string {
	if s.Path != "" {
		return s.Path
	}
	first, _, _ := strings.Cut(strings.TrimSpace(s.Code), "\n")
	if len(first) > 40 {
		n := 40
		for n > 0 && !utf8.RuneStart(first[n]) {
			n--
		}
		first = first[:n] + "..."
	}
	return first
}

// Classify reports whether script is a Lua snippet rather than a shell
// command. A script is Lua when it calls the glance module or when it is
// a single path ending in .lua.
func Classify(script string) (Snippet, bool) {
	trimmed := strings.TrimSpace(script)
	if trimmed == "" {
		return Snippet{}, false
	}
	if isScriptPath(trimmed) {
		return Snippet{Path: trimmed}, true
	}
	for _, m := range callMarkers {
		if strings.Contains(trimmed, m) {
			return Snippet{Code: script}, true
		}
	}
	return Snippet{}, false
}

func isScriptPath(s string) bool {
	return strings.HasSuffix(strings.ToLower(s), ".lua") && !strings.ContainsAny(s, " \t\n;|&<>")
}
