package action

import (
	"regexp"
	"strings"
)

// IDPattern is the allowed shape of an action id.
var IDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Definition is a key-bound action.
type Definition struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Description     string   `json:"description"`
	Key             string   `json:"key"`
	AlternativeKeys []string `json:"alternativeKeys,omitempty"`
	Script          Command  `json:"script"`
	When            *When    `json:"when,omitempty"`
	Dangerous       bool     `json:"dangerous,omitempty"`
	ConfirmPrompt   string   `json:"confirmPrompt,omitempty"`
	Category        string   `json:"category,omitempty"`
	Priority        int      `json:"priority,omitempty"`
	Enabled         *bool    `json:"enabled,omitempty"`

	// Source names the configuration source the definition came from.
	// Empty for built-in actions.
	Source string `json:"-"`
}

// IsEnabled reports whether the action is enabled. Unset means enabled.
func (d *Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// IsBuiltin reports whether the definition did not come from a config source.
func (d *Definition) IsBuiltin() bool {
	return d.Source == ""
}

// DisplayName returns the name, falling back to the description and then the id.
func (d *Definition) DisplayName() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Description != "":
		return d.Description
	default:
		return d.ID
	}
}

// Keys returns the primary key followed by the alternative keys,
// skipping blanks.
func (d *Definition) Keys() []string {
	keys := make([]string, 0, 1+len(d.AlternativeKeys))
	if strings.TrimSpace(d.Key) != "" {
		keys = append(keys, d.Key)
	}
	for _, k := range d.AlternativeKeys {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ConfirmationPrompt returns the prompt shown before a dangerous action runs.
func (d *Definition) ConfirmationPrompt() string {
	if d.ConfirmPrompt != "" {
		return d.ConfirmPrompt
	}
	return "Run " + d.DisplayName() + "? This action is marked dangerous."
}

// Clone returns a deep copy of the definition.
func (d Definition) Clone() Definition {
	out := d
	if d.AlternativeKeys != nil {
		out.AlternativeKeys = append([]string(nil), d.AlternativeKeys...)
	}
	out.Script = d.Script.Clone()
	if d.When != nil {
		w := d.When.Clone()
		out.When = &w
	}
	if d.Enabled != nil {
		v := *d.Enabled
		out.Enabled = &v
	}
	return out
}
