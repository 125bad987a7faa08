package action

import (
	"bytes"
	"encoding/json"
	"time"
)

// Version is a document version. Documents may write it as a string or
// a number.
type Version string

// UnmarshalJSON accepts a JSON string or number.
func (v *Version) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Version(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = Version(n.String())
	return nil
}

// Environment holds process settings shared by every action in a document.
type Environment struct {
	Variables map[string]string `json:"variables,omitempty"`
	// TimeoutMS is the default process timeout in milliseconds.
	TimeoutMS *int   `json:"timeout,omitempty"`
	Shell     string `json:"shell,omitempty"`
}

// Timeout returns the configured timeout, or zero when unset.
func (e Environment) Timeout() time.Duration {
	if e.TimeoutMS == nil || *e.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(*e.TimeoutMS) * time.Millisecond
}

// Config is one configuration document, or the merged effective configuration.
type Config struct {
	Version     Version           `json:"version,omitempty"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	Actions     []Definition      `json:"actions"`
	KeyBindings map[string]string `json:"keyBindings,omitempty"`
	Environment Environment       `json:"environment,omitempty"`
}

// Action returns the action with the given id, or nil.
func (c *Config) Action(id string) *Definition {
	for i := range c.Actions {
		if c.Actions[i].ID == id {
			return &c.Actions[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration. Metadata values are
// copied shallowly.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{Version: c.Version}
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	if c.Actions != nil {
		out.Actions = make([]Definition, len(c.Actions))
		for i, a := range c.Actions {
			out.Actions[i] = a.Clone()
		}
	}
	if c.KeyBindings != nil {
		out.KeyBindings = make(map[string]string, len(c.KeyBindings))
		for k, v := range c.KeyBindings {
			out.KeyBindings[k] = v
		}
	}
	out.Environment.Shell = c.Environment.Shell
	if c.Environment.TimeoutMS != nil {
		t := *c.Environment.TimeoutMS
		out.Environment.TimeoutMS = &t
	}
	if c.Environment.Variables != nil {
		out.Environment.Variables = make(map[string]string, len(c.Environment.Variables))
		for k, v := range c.Environment.Variables {
			out.Environment.Variables[k] = v
		}
	}
	return out
}
