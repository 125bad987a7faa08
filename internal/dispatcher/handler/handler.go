// Package handler defines the uniform execution result and the table of
// host-supplied builtin handlers.
package handler

import (
	"context"
	"sort"

	"github.com/dshills/glance/internal/dispatcher/execctx"
)

// Func handles one builtin. It may block, for example while waiting on the
// user, and should honor ctx.
type Func func(ctx context.Context, ec *execctx.ExecutionContext) ExecutionResult

// Table maps builtin names to handlers.
type Table map[string]Func

// Lookup returns the handler registered under name.
func (t Table) Lookup(name string) (Func, bool) {
	fn, ok := t[name]
	return fn, ok && fn != nil
}

// Names returns the registered names, sorted.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a new table holding t's entries overridden by other's.
func (t Table) With(other Table) Table {
	out := make(Table, len(t)+len(other))
	for name, fn := range t {
		out[name] = fn
	}
	for name, fn := range other {
		out[name] = fn
	}
	return out
}
