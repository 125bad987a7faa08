package app

import (
	"github.com/dshills/glance/internal/config/watcher"
)

// Watch reloads configuration whenever a watched source file changes.
// Only files whose directory exists can be watched; Reload re-registers
// paths so a project directory created later is picked up on the next
// reload.
func (a *App) Watch() error {
	if a.closed.Load() {
		return ErrClosed
	}

	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	if a.watcher != nil {
		return ErrAlreadyWatching
	}

	opts := []watcher.Option{watcher.WithLogger(a.logger)}
	if a.opts.Debounce > 0 {
		opts = append(opts, watcher.WithDebounce(a.opts.Debounce))
	}
	w, err := watcher.New(opts...)
	if err != nil {
		return &InitError{Component: "watcher", Err: err}
	}

	n := w.WatchAll(a.resolver.WatchPaths())
	w.OnChange(func(ev watcher.Event) {
		a.logger.Debug("%s %s", ev.Op, ev.Path)
		// Failures are logged and published by Reload.
		_ = a.Reload(ev.Path)
	})
	w.Start()

	a.watcher = w
	a.logger.Info("watching %d configuration paths", n)
	return nil
}

// Watching reports whether Watch is active.
func (a *App) Watching() bool {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	return a.watcher != nil
}

// rewatch adds paths that became watchable since Watch was called.
func (a *App) rewatch() {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watcher == nil {
		return
	}
	a.watcher.WatchAll(a.resolver.WatchPaths())
}
