package action

import "errors"

// Model errors.
var (
	// ErrEmptyCommand indicates an action has no script.
	ErrEmptyCommand = errors.New("action: empty command")

	// ErrInvalidCommand indicates a command variant is missing a required field.
	ErrInvalidCommand = errors.New("action: invalid command")

	// ErrUnknownCommandType indicates an object command with an unrecognized type.
	ErrUnknownCommandType = errors.New("action: unknown command type")
)
