package execctx

import "errors"

// Context validation errors.
var (
	// ErrInvalidLineCount indicates a negative total line count.
	ErrInvalidLineCount = errors.New("execution context: invalid line count")

	// ErrCursorOutOfRange indicates the current line is outside the file.
	ErrCursorOutOfRange = errors.New("execution context: cursor out of range")
)
