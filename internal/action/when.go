package action

import (
	"path/filepath"
	"strings"
)

// Mode is the host viewer mode.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeStatic      Mode = "static"
	ModeAny         Mode = "any"
)

// When is an applicability predicate. Every present condition must hold.
type When struct {
	FileTypes    []string `json:"fileTypes,omitempty"`
	HasSelection *bool    `json:"hasSelection,omitempty"`
	MinLines     *int     `json:"minLines,omitempty"`
	MaxLines     *int     `json:"maxLines,omitempty"`
	Mode         Mode     `json:"mode,omitempty"`
}

// Facts are the runtime values a When predicate is evaluated against.
type Facts struct {
	FileName     string
	Language     string
	HasSelection bool
	TotalLines   int
	Mode         Mode
}

// Matches evaluates the predicate. A nil predicate always matches.
func (w *When) Matches(f Facts) bool {
	if w == nil {
		return true
	}
	if len(w.FileTypes) > 0 && !matchFileType(w.FileTypes, f.FileName, f.Language) {
		return false
	}
	if w.HasSelection != nil && *w.HasSelection != f.HasSelection {
		return false
	}
	if w.MinLines != nil && f.TotalLines < *w.MinLines {
		return false
	}
	if w.MaxLines != nil && f.TotalLines > *w.MaxLines {
		return false
	}
	return matchMode(w.Mode, f.Mode)
}

// matchMode reports whether an action declaring want may run in mode have.
// An empty host mode is treated as interactive.
func matchMode(want, have Mode) bool {
	if have == "" {
		have = ModeInteractive
	}
	switch want {
	case "", ModeAny:
		return true
	default:
		return want == have
	}
}

// matchFileType matches each entry against the file name suffix and the
// detected language, ignoring case and a leading dot.
func matchFileType(types []string, fileName, language string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	base := strings.ToLower(filepath.Base(fileName))
	lang := strings.ToLower(language)

	for _, t := range types {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		bare := strings.TrimPrefix(t, ".")
		if ext != "" && bare == ext {
			return true
		}
		if base != "" && strings.HasSuffix(base, t) {
			return true
		}
		if lang != "" && bare == lang {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the predicate.
func (w When) Clone() When {
	out := w
	if w.FileTypes != nil {
		out.FileTypes = append([]string(nil), w.FileTypes...)
	}
	if w.HasSelection != nil {
		v := *w.HasSelection
		out.HasSelection = &v
	}
	if w.MinLines != nil {
		v := *w.MinLines
		out.MinLines = &v
	}
	if w.MaxLines != nil {
		v := *w.MaxLines
		out.MaxLines = &v
	}
	return out
}
