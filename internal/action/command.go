package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind identifies the variant of a Command.
type Kind string

const (
	// KindNone is the zero Command.
	KindNone Kind = ""
	// KindShell is a plain string script run through the shell
	// (or the embedded runtime, when it looks like a snippet).
	KindShell Kind = "shell"
	// KindBuiltin delegates to a host-supplied handler.
	KindBuiltin Kind = "builtin"
	// KindExternal spawns a program directly with an argument vector.
	KindExternal Kind = "external"
	// KindScript forwards its command string through the shell path.
	KindScript Kind = "script"
	// KindSequence runs a list of commands in order.
	KindSequence Kind = "sequence"
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

// Command is the payload of an action.
//
// In documents a command is either a bare string (KindShell) or an object
// with a "type" field selecting the variant. Fields that do not belong to
// the selected variant are ignored.
type Command struct {
	Kind Kind

	// Name is the builtin handler name (KindBuiltin).
	Name string

	// Command is the shell snippet (KindShell, KindScript) or the program
	// to execute (KindExternal).
	Command string

	// Args are the program arguments (KindExternal). Each argument is
	// substituted independently and never re-split.
	Args []string

	// Env overrides environment variables for this command only.
	Env map[string]string

	// Cwd is the working directory (KindExternal).
	Cwd string

	// TimeoutMS overrides the executor default timeout, in milliseconds.
	TimeoutMS int

	// CaptureOutput controls whether stdout is returned in the result.
	// Nil means true.
	CaptureOutput *bool

	// Silent excludes this command's output from an enclosing sequence.
	Silent bool

	// Steps are run in order (KindSequence).
	Steps []Command

	// OnSuccess runs after every step succeeded (KindSequence).
	OnSuccess *Command

	// OnFailure runs after the first failing step (KindSequence).
	OnFailure *Command
}

// Shell returns a plain string command.
func Shell(script string) Command {
	return Command{Kind: KindShell, Command: script}
}

// Builtin returns a command bound to a host handler.
func Builtin(name string) Command {
	return Command{Kind: KindBuiltin, Name: name}
}

// External returns a command that spawns program with args.
func External(program string, args ...string) Command {
	return Command{Kind: KindExternal, Command: program, Args: args}
}

// Script returns a command that forwards to the shell path.
func Script(command string) Command {
	return Command{Kind: KindScript, Command: command}
}

// Sequence returns a command that runs steps in order.
func Sequence(steps ...Command) Command {
	return Command{Kind: KindSequence, Steps: steps}
}

// IsZero reports whether the command is unset.
func (c Command) IsZero() bool {
	return c.Kind == KindNone
}

// Timeout returns the command-specific timeout, or zero when unset.
func (c Command) Timeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Captures reports whether stdout should be returned in the result.
func (c Command) Captures() bool {
	return c.CaptureOutput == nil || *c.CaptureOutput
}

// Validate checks the command and any nested commands for missing fields.
func (c Command) Validate() error {
	switch c.Kind {
	case KindNone:
		return ErrEmptyCommand
	case KindShell, KindScript:
		if c.Command == "" {
			return fmt.Errorf("%w: %s command has no script", ErrInvalidCommand, c.Kind)
		}
	case KindBuiltin:
		if c.Name == "" {
			return fmt.Errorf("%w: builtin command has no name", ErrInvalidCommand)
		}
	case KindExternal:
		if c.Command == "" {
			return fmt.Errorf("%w: external command has no program", ErrInvalidCommand)
		}
	case KindSequence:
		if len(c.Steps) == 0 {
			return fmt.Errorf("%w: sequence has no steps", ErrInvalidCommand)
		}
		for i, step := range c.Steps {
			if err := step.Validate(); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}
		if c.OnSuccess != nil {
			if err := c.OnSuccess.Validate(); err != nil {
				return fmt.Errorf("onSuccess: %w", err)
			}
		}
		if c.OnFailure != nil {
			if err := c.OnFailure.Validate(); err != nil {
				return fmt.Errorf("onFailure: %w", err)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommandType, string(c.Kind))
	}
	return nil
}

// Clone returns a deep copy of the command.
func (c Command) Clone() Command {
	out := c
	if c.Args != nil {
		out.Args = append([]string(nil), c.Args...)
	}
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	if c.CaptureOutput != nil {
		v := *c.CaptureOutput
		out.CaptureOutput = &v
	}
	if c.Steps != nil {
		out.Steps = make([]Command, len(c.Steps))
		for i, s := range c.Steps {
			out.Steps[i] = s.Clone()
		}
	}
	if c.OnSuccess != nil {
		s := c.OnSuccess.Clone()
		out.OnSuccess = &s
	}
	if c.OnFailure != nil {
		f := c.OnFailure.Clone()
		out.OnFailure = &f
	}
	return out
}

// rawCommand is the object form of a command in documents.
type rawCommand struct {
	Type          string            `json:"type"`
	Name          string            `json:"name,omitempty"`
	Command       string            `json:"command,omitempty"`
	Args          []string          `json:"args,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	Cwd           string            `json:"cwd,omitempty"`
	Timeout       int               `json:"timeout,omitempty"`
	CaptureOutput *bool             `json:"captureOutput,omitempty"`
	Silent        bool              `json:"silent,omitempty"`
	Steps         []Command         `json:"steps,omitempty"`
	OnSuccess     *Command          `json:"onSuccess,omitempty"`
	OnFailure     *Command          `json:"onFailure,omitempty"`
}

// UnmarshalJSON accepts either a string or an object with a "type" field.
func (c *Command) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Command{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Shell(s)
		return nil
	}

	var raw rawCommand
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind := Kind(raw.Type)
	switch kind {
	case KindBuiltin, KindExternal, KindScript, KindSequence:
	case KindShell:
		// Accepted for symmetry with MarshalJSON of silent shell steps.
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommandType, raw.Type)
	}

	*c = Command{
		Kind:          kind,
		Name:          raw.Name,
		Command:       raw.Command,
		Args:          raw.Args,
		Env:           raw.Env,
		Cwd:           raw.Cwd,
		TimeoutMS:     raw.Timeout,
		CaptureOutput: raw.CaptureOutput,
		Silent:        raw.Silent,
		Steps:         raw.Steps,
		OnSuccess:     raw.OnSuccess,
		OnFailure:     raw.OnFailure,
	}
	return nil
}

// MarshalJSON writes plain shell commands as strings and everything else
// as objects.
func (c Command) MarshalJSON() ([]byte, error) {
	switch {
	case c.Kind == KindNone:
		return []byte("null"), nil
	case c.Kind == KindShell && !c.Silent && len(c.Env) == 0 && c.TimeoutMS == 0:
		return json.Marshal(c.Command)
	}

	return json.Marshal(rawCommand{
		Type:          string(c.Kind),
		Name:          c.Name,
		Command:       c.Command,
		Args:          c.Args,
		Env:           c.Env,
		Cwd:           c.Cwd,
		Timeout:       c.TimeoutMS,
		CaptureOutput: c.CaptureOutput,
		Silent:        c.Silent,
		Steps:         c.Steps,
		OnSuccess:     c.OnSuccess,
		OnFailure:     c.OnFailure,
	})
}
