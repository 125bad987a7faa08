package handler

import (
	"fmt"
	"time"
)

// MessageType is the severity of a result message.
type MessageType uint8

const (
	// MessageInfo is neutral feedback.
	MessageInfo MessageType = iota
	// MessageSuccess reports a completed action.
	MessageSuccess
	// MessageWarning reports a non-error refusal or skip.
	MessageWarning
	// MessageError reports a failure.
	MessageError
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageInfo:
		return "info"
	case MessageSuccess:
		return "success"
	case MessageWarning:
		return "warning"
	case MessageError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m MessageType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Effect is a host-level side effect requested by a builtin.
type Effect uint8

const (
	EffectNone Effect = iota
	EffectQuit
	EffectShowHelp
	EffectReload
)

// String returns the effect name.
func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectQuit:
		return "quit"
	case EffectShowHelp:
		return "showHelp"
	case EffectReload:
		return "reload"
	default:
		return "unknown"
	}
}

// ViewUpdate describes changes the host should apply to its view.
type ViewUpdate struct {
	// ScrollTo is the new current line, 1-based.
	ScrollTo *int
	// Selection replaces the selection when SelectionChanged is set.
	Selection        []int
	SelectionChanged bool
}

// IsZero reports whether the update changes nothing.
func (v ViewUpdate) IsZero() bool {
	return v.ScrollTo == nil && !v.SelectionChanged
}

// ExecutionResult is the uniform outcome of every dispatch.
type ExecutionResult struct {
	Success bool

	// Error is set when Success is false and the failure is an error
	// rather than a refusal.
	Error error

	// Output is captured standard output.
	Output string

	// Message is the short status line shown to the user.
	Message     string
	MessageType MessageType
	// MessageTimeout is how long to show Message. Zero means until
	// replaced.
	MessageTimeout time.Duration

	// RefreshRequired asks the host to redraw.
	RefreshRequired bool

	// ExitCode is the process exit code, or -1 when no process ran to
	// completion.
	ExitCode int
	TimedOut bool
	Duration time.Duration

	Effect Effect
	View   ViewUpdate
}

// IsError returns true if the result carries an error.
func (r ExecutionResult) IsError() bool {
	return !r.Success && r.MessageType == MessageError
}

// Succeeded creates a successful result.
func Succeeded(msg string) ExecutionResult {
	return ExecutionResult{Success: true, Message: msg, MessageType: MessageSuccess}
}

// Info creates a successful result with an informational message.
func Info(msg string) ExecutionResult {
	return ExecutionResult{Success: true, Message: msg, MessageType: MessageInfo}
}

// Warning creates an unsuccessful, non-error result.
func Warning(msg string) ExecutionResult {
	return ExecutionResult{Message: msg, MessageType: MessageWarning}
}

// Cancelled creates the result of a declined confirmation. It is not an
// error.
func Cancelled(msg string) ExecutionResult {
	return ExecutionResult{Message: msg, MessageType: MessageInfo}
}

// Failed creates an error result. The message defaults to the error text.
func Failed(err error) ExecutionResult {
	r := ExecutionResult{Error: err, MessageType: MessageError, ExitCode: -1}
	if err != nil {
		r.Message = err.Error()
	}
	return r
}

// Failedf creates an error result with a formatted message.
func Failedf(format string, args ...any) ExecutionResult {
	return Failed(fmt.Errorf(format, args...))
}

// WithMessage returns a copy of the result with the specified message.
func (r ExecutionResult) WithMessage(msg string) ExecutionResult {
	r.Message = msg
	return r
}

// WithOutput returns a copy of the result with captured output.
func (r ExecutionResult) WithOutput(out string) ExecutionResult {
	r.Output = out
	return r
}

// WithRefresh returns a copy of the result requesting a redraw.
func (r ExecutionResult) WithRefresh() ExecutionResult {
	r.RefreshRequired = true
	return r
}

// WithEffect returns a copy of the result with a host effect.
func (r ExecutionResult) WithEffect(e Effect) ExecutionResult {
	r.Effect = e
	return r
}

// WithScrollTo returns a copy of the result moving the current line.
func (r ExecutionResult) WithScrollTo(line int) ExecutionResult {
	r.View.ScrollTo = &line
	r.RefreshRequired = true
	return r
}

// WithSelection returns a copy of the result replacing the selection.
func (r ExecutionResult) WithSelection(lines []int) ExecutionResult {
	r.View.Selection = append([]int{}, lines...)
	r.View.SelectionChanged = true
	r.RefreshRequired = true
	return r
}
