package actionctx

import (
	"regexp"
	"strings"
)

// MaxPasses bounds how many times substitution re-scans its own output.
const MaxPasses = 5

var placeholder = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Substitute replaces every {{name}} whose trimmed name is in vars.
// Unknown names are left as written. Values that themselves contain
// placeholders are expanded on the next pass, for at most MaxPasses passes;
// a pass that replaces nothing ends substitution.
func Substitute(template string, vars map[string]string) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	out := template
	for pass := 0; pass < MaxPasses; pass++ {
		replaced := 0
		out = placeholder.ReplaceAllStringFunc(out, func(m string) string {
			name := strings.TrimSpace(m[2 : len(m)-2])
			if v, ok := vars[name]; ok {
				replaced++
				return v
			}
			return m
		})
		if replaced == 0 {
			break
		}
	}
	return out
}

// Placeholders returns the distinct trimmed names referenced by template,
// in order of first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
