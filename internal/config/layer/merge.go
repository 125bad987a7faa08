package layer

import (
	"fmt"
	"sort"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/input/key"
)

// ConflictType classifies a merge conflict.
type ConflictType string

const (
	ConflictDuplicateActionID   ConflictType = "duplicate_action_id"
	ConflictDuplicateKey        ConflictType = "duplicate_key_binding"
	ConflictEnvironmentVariable ConflictType = "conflicting_environment_var"
)

// Conflict records one override between layers.
type Conflict struct {
	Type ConflictType
	// Key is the action id, key string or variable name in conflict.
	Key string
	// Sources lists the overridden source first and the winner last.
	Sources []string
	// Resolution states which source's value was kept.
	Resolution string
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s %q: %s", c.Type, c.Key, c.Resolution)
}

// keyClaim is a binding of a normalized key to an action id.
type keyClaim struct {
	id    string
	layer int
	label string
}

// Merge combines layers into one configuration. Layers are applied in
// ascending priority; layers with equal priority keep their given order.
//
// Actions are keyed by id: the first occurrence fixes the position and a
// later definition replaces it in place. Key strings are compared in
// normalized form. When layers disagree about a key, the later layer wins
// and the winner is written to the merged KeyBindings so it survives
// registry construction. Collisions within a single layer are left for
// the registry to judge.
func Merge(layers []*Layer) (*action.Config, []Conflict) {
	ordered := make([]*Layer, 0, len(layers))
	for _, l := range layers {
		if l != nil && l.Config != nil {
			ordered = append(ordered, l)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	merged := &action.Config{}
	var conflicts []Conflict

	owners, actionConflicts := mergeActions(merged, ordered)
	conflicts = append(conflicts, actionConflicts...)
	conflicts = append(conflicts, mergeKeys(merged, owners, ordered)...)
	conflicts = append(conflicts, mergeEnvironment(merged, ordered)...)
	mergeScalars(merged, ordered)

	return merged, conflicts
}

// mergeActions returns, for each merged action, the index of the layer
// that supplied it.
func mergeActions(merged *action.Config, layers []*Layer) ([]int, []Conflict) {
	var conflicts []Conflict
	var owners []int
	index := make(map[string]int)

	for li, l := range layers {
		label := l.Label()
		for _, def := range l.Config.Actions {
			def = def.Clone()
			def.Source = label

			if pos, ok := index[def.ID]; ok {
				prev := merged.Actions[pos].Source
				merged.Actions[pos] = def
				owners[pos] = li
				conflicts = append(conflicts, Conflict{
					Type:       ConflictDuplicateActionID,
					Key:        def.ID,
					Sources:    []string{prev, label},
					Resolution: "kept " + label,
				})
				continue
			}
			index[def.ID] = len(merged.Actions)
			merged.Actions = append(merged.Actions, def)
			owners = append(owners, li)
		}
	}
	return owners, conflicts
}

func mergeKeys(merged *action.Config, actionOwners []int, layers []*Layer) []Conflict {
	var conflicts []Conflict
	owners := make(map[string]keyClaim)
	bindings := make(map[string]string)

	claim := func(k string, c keyClaim, explicit bool) {
		norm := key.NormalizeOrSelf(k)
		if norm == "" {
			return
		}
		prev, taken := owners[norm]
		owners[norm] = c

		crossLayer := taken && prev.id != c.id && prev.layer != c.layer
		if explicit || crossLayer {
			bindings[norm] = c.id
		}
		if crossLayer {
			conflicts = append(conflicts, Conflict{
				Type:       ConflictDuplicateKey,
				Key:        norm,
				Sources:    []string{prev.label, c.label},
				Resolution: fmt.Sprintf("kept %s (%s)", c.label, c.id),
			})
		}
	}

	for i, l := range layers {
		label := l.Label()
		for pos, def := range merged.Actions {
			if actionOwners[pos] != i {
				continue
			}
			for _, k := range def.Keys() {
				claim(k, keyClaim{id: def.ID, layer: i, label: label}, false)
			}
		}

		names := make([]string, 0, len(l.Config.KeyBindings))
		for k := range l.Config.KeyBindings {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			claim(k, keyClaim{id: l.Config.KeyBindings[k], layer: i, label: label}, true)
		}
	}

	if len(bindings) > 0 {
		merged.KeyBindings = bindings
	}
	return conflicts
}

func mergeEnvironment(merged *action.Config, layers []*Layer) []Conflict {
	var conflicts []Conflict
	owner := make(map[string]string)

	for _, l := range layers {
		label := l.Label()
		names := make([]string, 0, len(l.Config.Environment.Variables))
		for name := range l.Config.Environment.Variables {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			value := l.Config.Environment.Variables[name]
			if merged.Environment.Variables == nil {
				merged.Environment.Variables = make(map[string]string)
			}
			if prev, ok := merged.Environment.Variables[name]; ok && prev != value {
				conflicts = append(conflicts, Conflict{
					Type:       ConflictEnvironmentVariable,
					Key:        name,
					Sources:    []string{owner[name], label},
					Resolution: "kept " + label,
				})
			}
			merged.Environment.Variables[name] = value
			owner[name] = label
		}
	}
	return conflicts
}

// mergeScalars takes each scalar from the highest-priority layer that
// defines it.
func mergeScalars(merged *action.Config, layers []*Layer) {
	for _, l := range layers {
		cfg := l.Config
		if cfg.Version != "" {
			merged.Version = cfg.Version
		}
		if cfg.Metadata != nil {
			merged.Metadata = make(map[string]any, len(cfg.Metadata))
			for k, v := range cfg.Metadata {
				merged.Metadata[k] = v
			}
		}
		if cfg.Environment.TimeoutMS != nil {
			t := *cfg.Environment.TimeoutMS
			merged.Environment.TimeoutMS = &t
		}
		if cfg.Environment.Shell != "" {
			merged.Environment.Shell = cfg.Environment.Shell
		}
	}
}
