package registry

import "errors"

// Registry construction errors.
var (
	// ErrCriticalOverride indicates a custom action reuses a protected id.
	ErrCriticalOverride = errors.New("registry: critical built-in cannot be redefined")

	// ErrKeyConflict indicates two custom actions claim the same key.
	ErrKeyConflict = errors.New("registry: key bound to more than one action")

	// ErrUnknownTarget indicates a key binding names an action that does
	// not exist.
	ErrUnknownTarget = errors.New("registry: key binding targets unknown action")

	// ErrInvalidKey indicates a key spec that cannot be parsed.
	ErrInvalidKey = errors.New("registry: invalid key")

	// ErrInvalidAction indicates a custom action missing required fields.
	ErrInvalidAction = errors.New("registry: invalid action")
)
