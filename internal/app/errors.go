package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("app: closed")

	// ErrAlreadyWatching indicates Watch was called twice.
	ErrAlreadyWatching = errors.New("app: already watching")

	// ErrUnboundKey indicates no action is bound to a key.
	ErrUnboundKey = errors.New("app: key not bound")

	// ErrUnknownAction indicates no action has an id.
	ErrUnknownAction = errors.New("app: unknown action")
)

// InitError reports a component that failed while the engine was being
// built.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("initializing %s", e.Component)
	}
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ReloadError reports a reload that failed. The previous engine state
// stays in effect.
type ReloadError struct {
	Source string
	Err    error
}

func (e *ReloadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Source == "" {
		return fmt.Sprintf("reload: %v", e.Err)
	}
	return fmt.Sprintf("reload (%s): %v", e.Source, e.Err)
}

func (e *ReloadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
