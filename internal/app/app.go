// Package app wires settings, action configuration, the action registry
// and the executor into the engine a viewer host talks to.
//
// The engine state (registry plus executor) is immutable and swapped
// atomically on reload. A reload that fails leaves the previous state in
// effect. If no configuration can be loaded at startup the engine still
// comes up with the built-in actions only, and State().Err says why.
package app

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/config"
	"github.com/dshills/glance/internal/config/loader"
	"github.com/dshills/glance/internal/config/notify"
	"github.com/dshills/glance/internal/config/watcher"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/dispatcher/handler"
	"github.com/dshills/glance/internal/executor"
	"github.com/dshills/glance/internal/input/key"
	"github.com/dshills/glance/internal/integration/process"
	"github.com/dshills/glance/internal/logging"
	"github.com/dshills/glance/internal/plugin/lua"
	"github.com/dshills/glance/internal/registry"
)

// Options configures the application.
type Options struct {
	// WorkDir is where project configuration discovery starts. Empty
	// means the process working directory.
	WorkDir string

	// UserDir replaces the user configuration directory.
	UserDir string

	// Override is an explicit configuration file that replaces discovery.
	Override string

	// Settings replaces loading settings from SettingsPaths.
	Settings *config.Settings

	// SettingsPaths lists settings files in ascending precedence. Nil
	// means config.SettingsPaths(WorkDir).
	SettingsPaths []string

	// FS replaces the file system used to read action configuration.
	FS loader.FileSystem

	// Logger replaces the logger built from settings.
	Logger *logging.Logger

	// Confirm answers confirmation prompts for dangerous actions.
	Confirm executor.ConfirmFunc

	// Builtins are merged over the default builtin handlers.
	Builtins handler.Table

	// LuaRunner replaces the in-process Lua runner.
	LuaRunner lua.Runner

	// Debounce is the quiet period for configuration file changes.
	Debounce time.Duration
}

// State is one immutable engine generation.
type State struct {
	Registry *registry.Registry
	Executor *executor.Executor

	// Resolution is nil when the engine fell back to built-ins.
	Resolution *config.Result

	// Err explains a fallback to built-ins.
	Err error

	Generation uint64
	LoadedAt   time.Time
}

// Fallback reports whether only built-in actions are available.
func (s *State) Fallback() bool {
	return s.Err != nil
}

// Warnings returns configuration and registry warnings.
func (s *State) Warnings() []string {
	var out []string
	if s.Resolution != nil {
		out = append(out, s.Resolution.Warnings...)
	}
	return append(out, s.Registry.Warnings()...)
}

// App is the action engine.
type App struct {
	opts       Options
	settings   config.Settings
	logger     *logging.Logger
	ownsLogger bool

	resolver *config.Resolver
	sup      *process.Supervisor
	metrics  *executor.Metrics
	notifier *notify.Notifier

	reloadMu   sync.Mutex
	state      atomic.Pointer[State]
	generation uint64

	watchMu sync.Mutex
	watcher *watcher.Watcher

	closed atomic.Bool
}

// New builds the engine. Only a settings failure is returned as an error;
// configuration problems produce a built-ins fallback instead.
func New(opts Options) (*App, error) {
	a := &App{
		opts:     opts,
		metrics:  executor.NewMetrics(),
		notifier: notify.New(),
	}

	if err := a.initSettings(); err != nil {
		return nil, err
	}
	a.initLogger()

	a.sup = process.NewSupervisor(
		process.WithLogger(a.logger),
		process.WithMaxProcesses(a.settings.Executor.MaxProcesses),
	)
	a.resolver = config.NewResolver(a.resolverOptions()...)

	st, err := a.build()
	if err != nil {
		a.logger.Error("action configuration failed, using built-ins only: %v", err)
		st, err = a.fallback(err)
		if err != nil {
			a.sup.Shutdown(a.settings.Executor.Grace())
			return nil, &InitError{Component: "registry", Err: err}
		}
		a.publish(notify.Change{Type: notify.ChangeFallback, Source: "startup", Actions: st.Registry.Len(), Err: st.Err})
	} else {
		a.publish(notify.Change{Type: notify.ChangeReload, Source: "startup", Actions: st.Registry.Len(), Warnings: st.Warnings()})
	}
	a.state.Store(st)
	return a, nil
}

func (a *App) initSettings() error {
	if a.opts.Settings != nil {
		a.settings = *a.opts.Settings
		return nil
	}
	paths := a.opts.SettingsPaths
	if paths == nil {
		workDir := a.opts.WorkDir
		if workDir == "" {
			workDir, _ = os.Getwd()
		}
		paths = config.SettingsPaths(workDir)
	}
	s, err := config.LoadSettings(paths...)
	if err != nil {
		return &InitError{Component: "settings", Err: err}
	}
	a.settings = s
	return nil
}

func (a *App) initLogger() {
	if a.opts.Logger != nil {
		a.logger = a.opts.Logger
		return
	}
	ls := a.settings.Log
	level := logging.ParseLevel(ls.Level)
	if ls.File != "" {
		a.logger = logging.NewFile(level, logging.FileConfig{
			Path:       ls.File,
			MaxSizeMB:  ls.MaxSizeMB,
			MaxBackups: ls.MaxBackups,
			MaxAgeDays: ls.MaxAgeDays,
		})
	} else {
		cfg := logging.DefaultConfig()
		cfg.Level = level
		a.logger = logging.New(cfg)
	}
	a.ownsLogger = true
}

func (a *App) resolverOptions() []config.Option {
	cs := a.settings.Config
	opts := []config.Option{
		config.WithMode(cs.ResolverMode()),
		config.WithLogger(a.logger),
	}
	if cs.MaxSourceBytes > 0 {
		opts = append(opts, config.WithMaxSourceBytes(cs.MaxSourceBytes))
	}
	if cs.MaxTotalBytes > 0 {
		opts = append(opts, config.WithMaxTotalBytes(cs.MaxTotalBytes))
	}
	if a.opts.FS != nil {
		opts = append(opts, config.WithFS(a.opts.FS))
	}
	if a.opts.UserDir != "" {
		opts = append(opts, config.WithUserDir(a.opts.UserDir))
	}
	if a.opts.WorkDir != "" {
		opts = append(opts, config.WithWorkDir(a.opts.WorkDir))
	}
	if a.opts.Override != "" {
		opts = append(opts, config.WithOverride(a.opts.Override))
	}
	return opts
}

// build resolves configuration and constructs a new state.
func (a *App) build() (*State, error) {
	res, err := a.resolver.Resolve()
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(res.Config,
		registry.WithStrict(a.resolver.Mode() == config.Strict),
		registry.WithLogger(a.logger),
	)
	if err != nil {
		return nil, err
	}
	return a.newState(reg, res, nil), nil
}

// fallback constructs a built-ins only state.
func (a *App) fallback(cause error) (*State, error) {
	reg, err := registry.New(nil, registry.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	return a.newState(reg, nil, cause), nil
}

func (a *App) newState(reg *registry.Registry, res *config.Result, cause error) *State {
	var env action.Environment
	if res != nil && res.Config != nil {
		env = res.Config.Environment
	}
	return &State{
		Registry:   reg,
		Executor:   a.newExecutor(env),
		Resolution: res,
		Err:        cause,
		Generation: atomic.AddUint64(&a.generation, 1),
		LoadedAt:   time.Now(),
	}
}

// newExecutor builds an executor. The configuration's environment wins
// over settings for timeout and shell.
func (a *App) newExecutor(env action.Environment) *executor.Executor {
	es := a.settings.Executor

	timeout := es.Timeout()
	if t := env.Timeout(); t > 0 {
		timeout = t
	}
	shell := es.Shell
	if env.Shell != "" {
		shell = env.Shell
	}

	builtins := handler.Defaults()
	if a.opts.Builtins != nil {
		builtins = builtins.With(a.opts.Builtins)
	}

	opts := []executor.Option{
		executor.WithBuiltins(builtins),
		executor.WithAllowDangerous(es.AllowDangerous),
		executor.WithConfirm(a.opts.Confirm),
		executor.WithTimeout(timeout),
		executor.WithGrace(es.Grace()),
		executor.WithShell(shell),
		executor.WithVariables(env.Variables),
		executor.WithSupervisor(a.sup),
		executor.WithMetrics(a.metrics),
		executor.WithLogger(a.logger),
	}
	if a.opts.LuaRunner != nil {
		opts = append(opts, executor.WithLuaRunner(a.opts.LuaRunner))
	}
	return executor.New(opts...)
}

// State returns the current engine state.
func (a *App) State() *State {
	return a.state.Load()
}

// Settings returns the engine settings.
func (a *App) Settings() config.Settings {
	return a.settings
}

// Logger returns the engine logger.
func (a *App) Logger() *logging.Logger {
	return a.logger
}

// Metrics returns dispatch metrics shared across reloads.
func (a *App) Metrics() *executor.Metrics {
	return a.metrics
}

// Resolver returns the configuration resolver.
func (a *App) Resolver() *config.Resolver {
	return a.resolver
}

// Subscribe registers an observer for reload events.
func (a *App) Subscribe(obs notify.Observer) *notify.Subscription {
	return a.notifier.Subscribe(obs)
}

func (a *App) publish(c notify.Change) {
	a.notifier.Notify(c)
}

// Available returns the actions applicable to ec.
func (a *App) Available(ec *execctx.ExecutionContext) []*action.Definition {
	return a.State().Registry.Available(ec)
}

// Dispatch runs the action bound to a key. It returns ErrUnboundKey when
// no action is bound; every other outcome is in the result.
func (a *App) Dispatch(ctx context.Context, keySpec string, ec *execctx.ExecutionContext) (handler.ExecutionResult, error) {
	if a.closed.Load() {
		return handler.ExecutionResult{}, ErrClosed
	}
	st := a.State()
	def, ok := st.Registry.ByKey(keySpec)
	if !ok {
		return handler.ExecutionResult{}, fmt.Errorf("%w: %s", ErrUnboundKey, keySpec)
	}
	return a.execute(ctx, st, def, ec), nil
}

// DispatchEvent runs the action bound to a key event.
func (a *App) DispatchEvent(ctx context.Context, ev key.Event, ec *execctx.ExecutionContext) (handler.ExecutionResult, error) {
	if a.closed.Load() {
		return handler.ExecutionResult{}, ErrClosed
	}
	st := a.State()
	def, ok := st.Registry.ByEvent(ev)
	if !ok {
		return handler.ExecutionResult{}, fmt.Errorf("%w: %s", ErrUnboundKey, ev)
	}
	return a.execute(ctx, st, def, ec), nil
}

// Run runs an action by id.
func (a *App) Run(ctx context.Context, id string, ec *execctx.ExecutionContext) (handler.ExecutionResult, error) {
	if a.closed.Load() {
		return handler.ExecutionResult{}, ErrClosed
	}
	st := a.State()
	def, ok := st.Registry.ByID(id)
	if !ok {
		return handler.ExecutionResult{}, fmt.Errorf("%w: %s", ErrUnknownAction, id)
	}
	return a.execute(ctx, st, def, ec), nil
}

// execute applies the availability predicate, runs def, and carries out
// a reload requested by the result.
func (a *App) execute(ctx context.Context, st *State, def *action.Definition, ec *execctx.ExecutionContext) handler.ExecutionResult {
	if ec == nil {
		ec = execctx.New()
	}
	if def.IsEnabled() && !def.When.Matches(ec.Facts()) {
		return handler.Info(fmt.Sprintf("%s is not available here", def.DisplayName()))
	}

	result := st.Executor.Execute(ctx, def, ec)
	if result.Effect == handler.EffectReload {
		result = a.applyReload(result)
	}
	return result
}

func (a *App) applyReload(r handler.ExecutionResult) handler.ExecutionResult {
	err := a.Reload("action")
	if err != nil {
		out := handler.Failed(err)
		out.Effect = handler.EffectReload
		return out
	}
	st := a.State()
	r.Message = fmt.Sprintf("Reloaded %d actions", st.Registry.Len())
	r.MessageType = handler.MessageSuccess
	if w := st.Warnings(); len(w) > 0 {
		r.Message = fmt.Sprintf("%s (%d warnings)", r.Message, len(w))
		r.MessageType = handler.MessageWarning
	}
	r.RefreshRequired = true
	return r
}

// Reload resolves configuration again and swaps the engine state. On
// failure the previous state stays in effect and a *ReloadError is
// returned.
func (a *App) Reload(source string) error {
	if a.closed.Load() {
		return ErrClosed
	}

	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	st, err := a.build()
	if err != nil {
		a.logger.Warn("reload from %s failed, keeping generation %d: %v", source, a.State().Generation, err)
		a.publish(notify.Change{Type: notify.ChangeFailed, Source: source, Actions: a.State().Registry.Len(), Err: err})
		return &ReloadError{Source: source, Err: err}
	}

	a.state.Store(st)
	a.logger.Info("reloaded %d actions from %s (generation %d)", st.Registry.Len(), source, st.Generation)
	a.publish(notify.Change{Type: notify.ChangeReload, Source: source, Actions: st.Registry.Len(), Warnings: st.Warnings()})
	a.rewatch()
	return nil
}

// Close stops watching, terminates running commands and closes the
// logger if the app created it. It is safe to call Close more than once.
func (a *App) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	// Stop outside watchMu: a handler in flight may be inside Reload.
	a.watchMu.Lock()
	w := a.watcher
	a.watcher = nil
	a.watchMu.Unlock()

	var werr error
	if w != nil {
		werr = w.Stop()
	}

	a.sup.Shutdown(a.settings.Executor.Grace())
	a.notifier.Close()

	if a.ownsLogger {
		if err := a.logger.Close(); err != nil && werr == nil {
			werr = err
		}
	}
	return werr
}
