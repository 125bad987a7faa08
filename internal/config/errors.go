package config

import (
	"errors"
	"fmt"

	"github.com/dshills/glance/internal/config/layer"
)

// Errors returned by configuration operations.
var (
	// ErrSourceTooLarge indicates a source or the sum of all sources
	// exceeded its size limit.
	ErrSourceTooLarge = errors.New("config: source too large")

	// ErrInvalidSource indicates a source failed to parse or validate.
	ErrInvalidSource = errors.New("config: invalid source")

	// ErrOverrideNotFound indicates an explicit override path does not exist.
	ErrOverrideNotFound = errors.New("config: override file not found")
)

// SourceError ties a failure to the source it came from.
type SourceError struct {
	Source layer.Source
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s config %s: %v", e.Source, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SourceError) Unwrap() error {
	return e.Err
}
