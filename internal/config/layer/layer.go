// Package layer tracks where action configuration came from and merges
// sources into one effective configuration.
//
// Each discovered source becomes a Layer with a priority. Merging applies
// layers from the lowest priority to the highest and records a Conflict
// whenever a later layer overrides something an earlier one defined.
package layer

import (
	"fmt"

	"github.com/dshills/glance/internal/action"
)

// Source indicates where a configuration layer came from.
type Source uint8

const (
	// SourceBuiltin represents the built-in action table.
	SourceBuiltin Source = iota
	// SourceUser represents the user config (~/.config/glance/).
	SourceUser
	// SourceProject represents the nearest project config (.glance/).
	SourceProject
	// SourceOverride represents an explicitly supplied config path.
	SourceOverride
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceUser:
		return "user"
	case SourceProject:
		return "project"
	case SourceOverride:
		return "override"
	default:
		return "unknown"
	}
}

// Standard priority levels. Higher values override lower values.
const (
	PriorityBuiltin  = 0
	PriorityUser     = 100
	PriorityProject  = 200
	PriorityOverride = 1000
)

// DefaultPriority returns the default priority for a given source.
func DefaultPriority(source Source) int {
	switch source {
	case SourceUser:
		return PriorityUser
	case SourceProject:
		return PriorityProject
	case SourceOverride:
		return PriorityOverride
	default:
		return PriorityBuiltin
	}
}

// Layer is one configuration source.
type Layer struct {
	// Source indicates the kind of source.
	Source Source

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Path is the file the layer was loaded from.
	Path string

	// Config is the decoded document.
	Config *action.Config
}

// NewLayer creates a layer with the default priority for source.
func NewLayer(source Source, path string, cfg *action.Config) *Layer {
	return &Layer{
		Source:   source,
		Priority: DefaultPriority(source),
		Path:     path,
		Config:   cfg,
	}
}

// Label identifies the layer in conflict records and diagnostics.
func (l *Layer) Label() string {
	if l.Path == "" {
		return l.Source.String()
	}
	return fmt.Sprintf("%s:%s", l.Source, l.Path)
}
