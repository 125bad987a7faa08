package executor

import "errors"

// Execution errors. They are carried in ExecutionResult.Error; Execute
// never returns them directly.
var (
	// ErrInvalidAction indicates an action with no id or no script.
	ErrInvalidAction = errors.New("executor: invalid action")

	// ErrDangerousDisabled indicates a dangerous action while dangerous
	// actions are turned off.
	ErrDangerousDisabled = errors.New("executor: dangerous actions are disabled")

	// ErrUnknownBuiltin indicates a builtin name with no handler.
	ErrUnknownBuiltin = errors.New("executor: unknown builtin")

	// ErrTimeout indicates a command outlived its timeout.
	ErrTimeout = errors.New("executor: command timed out")

	// ErrCommandFailed indicates a non-zero exit with no stderr.
	ErrCommandFailed = errors.New("executor: command failed")

	// ErrClosed indicates the executor was closed.
	ErrClosed = errors.New("executor: closed")
)
