package lua

import "errors"

// Errors for snippet execution.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when a snippet outlives its deadline.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrEmptySnippet is returned for a snippet with neither code nor path.
	ErrEmptySnippet = errors.New("lua snippet is empty")
)
