package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/glance/internal/plugin/bridge"
)

// DefaultCallStackSize bounds snippet recursion.
const DefaultCallStackSize = 256

// State is a sandboxed Lua state wired to a bridge client.
//
// gopher-lua's LState is not goroutine-safe. State serializes access with
// a mutex; a snippet runs to completion before the next call starts.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	out    io.Writer
	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithOutput sets where print writes.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.out = w
	}
}

// NewState creates a sandboxed state whose glance module calls client.
// A nil client leaves the glance module out.
func NewState(client *bridge.Client, opts ...StateOption) *State {
	s := &State{out: io.Discard}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: DefaultCallStackSize,
	})
	openSafeLibraries(L)
	NewSandbox(L, s.out).Install()
	if client != nil {
		NewGlanceModule(client).Register(L)
	}

	s.L = L
	return s
}

// Run executes a snippet. The context bounds execution: once it is done
// the running code is aborted and ErrExecutionTimeout is returned.
func (s *State) Run(ctx context.Context, sn Snippet) error {
	switch {
	case sn.Path != "":
		return s.exec(ctx, func() error { return s.L.DoFile(sn.Path) })
	case sn.Code != "":
		return s.exec(ctx, func() error { return s.L.DoString(sn.Code) })
	default:
		return ErrEmptySnippet
	}
}

// DoString executes Lua source.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.exec(ctx, func() error { return s.L.DoString(code) })
}

func (s *State) exec(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := doWithRecovery(fn)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return timeoutError(ctxErr)
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("lua: %s", apiErr.Object.String())
	}
	return fmt.Errorf("lua: %w", err)
}

func timeoutError(cause error) error {
	return fmt.Errorf("%w: %v", ErrExecutionTimeout, cause)
}

// doWithRecovery executes a function with panic recovery.
func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. It is safe to call more than once.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
