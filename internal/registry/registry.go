// Package registry indexes built-in and configured actions by id and by key.
//
// A Registry is built once from an effective configuration and never
// changes afterwards; reloading configuration builds a new Registry. All
// methods are safe for concurrent use.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/dispatcher/execctx"
	"github.com/dshills/glance/internal/input/key"
	"github.com/dshills/glance/internal/logging"
)

// Registry is the immutable action index used by the host loop.
type Registry struct {
	actions  []*action.Definition
	byID     map[string]*action.Definition
	bindings map[string]string
	warnings []string
}

type options struct {
	strict bool
	logger *logging.Logger
}

// Option configures registry construction.
type Option func(*options)

// WithStrict selects whether key conflicts and dangling key bindings fail
// construction (true, the default) or are recorded as warnings.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// keyOwner tracks which action holds a key during construction.
type keyOwner struct {
	id      string
	builtin bool
}

// builder accumulates state while a Registry is constructed.
type builder struct {
	opts     options
	reg      *Registry
	owners   map[string]keyOwner
	explicit map[string]bool
}

// New builds a registry from the built-in table and cfg. A nil cfg yields
// a registry with only built-ins.
//
// Keys are registered in a fixed order: built-ins, then custom actions in
// configuration order, then cfg.KeyBindings, which may repoint a key to
// any known action.
func New(cfg *action.Config, opts ...Option) (*Registry, error) {
	o := options{strict: true}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.WithComponent("registry")

	b := &builder{
		opts: o,
		reg: &Registry{
			byID:     make(map[string]*action.Definition),
			bindings: make(map[string]string),
		},
		owners:   make(map[string]keyOwner),
		explicit: make(map[string]bool),
	}

	var custom []action.Definition
	var bindings map[string]string
	if cfg != nil {
		custom = cfg.Actions
		bindings = cfg.KeyBindings
	}

	builtins := Builtins()
	for i := range builtins {
		b.addAction(builtins[i])
	}
	for _, def := range custom {
		if err := b.checkCustom(def); err != nil {
			return nil, err
		}
		def = def.Clone()
		if def.Source == "" {
			def.Source = "config"
		}
		b.addAction(def)
	}

	for k := range bindings {
		if norm, err := key.Normalize(k); err == nil {
			b.explicit[norm] = true
		}
	}

	// Built-ins still in effect bind first. Custom definitions follow in
	// configuration order, including those that took a built-in's slot.
	for _, def := range b.reg.actions {
		if !def.IsBuiltin() {
			continue
		}
		if err := b.bindAll(def); err != nil {
			return nil, err
		}
	}
	bound := make(map[string]bool, len(custom))
	for _, c := range custom {
		if bound[c.ID] {
			continue
		}
		bound[c.ID] = true
		if err := b.bindAll(b.reg.byID[c.ID]); err != nil {
			return nil, err
		}
	}
	if err := b.applyBindings(bindings); err != nil {
		return nil, err
	}

	o.logger.Debug("registered %d actions, %d keys", len(b.reg.actions), len(b.reg.bindings))
	return b.reg, nil
}

func (b *builder) checkCustom(def action.Definition) error {
	if IsCritical(def.ID) {
		return fmt.Errorf("%w: %q", ErrCriticalOverride, def.ID)
	}
	if strings.TrimSpace(def.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAction)
	}
	return nil
}

// addAction inserts def, replacing an earlier definition with the same id
// in place.
func (b *builder) addAction(def action.Definition) {
	d := &def
	if prev, ok := b.reg.byID[def.ID]; ok {
		for i, a := range b.reg.actions {
			if a == prev {
				b.reg.actions[i] = d
				break
			}
		}
		b.opts.logger.Debug("action %q from %s replaces %s", def.ID, sourceName(d), sourceName(prev))
	} else {
		b.reg.actions = append(b.reg.actions, d)
	}
	b.reg.byID[def.ID] = d
}

// problem fails in strict mode and records a warning otherwise.
func (b *builder) problem(err error) error {
	if b.opts.strict {
		return err
	}
	b.reg.warnings = append(b.reg.warnings, err.Error())
	b.opts.logger.Warn("%v", err)
	return nil
}

func (b *builder) bindAll(def *action.Definition) error {
	for _, k := range def.Keys() {
		if err := b.bindKey(k, def); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) bindKey(spec string, def *action.Definition) error {
	norm, err := key.Normalize(spec)
	if err != nil {
		return b.problem(fmt.Errorf("%w: action %q key %q: %v", ErrInvalidKey, def.ID, spec, err))
	}

	prev, taken := b.owners[norm]
	if taken && prev.id != def.ID && !prev.builtin && !b.explicit[norm] {
		err := fmt.Errorf("%w: %q is bound to %q and %q", ErrKeyConflict, norm, prev.id, def.ID)
		if perr := b.problem(err); perr != nil {
			return perr
		}
	}

	b.owners[norm] = keyOwner{id: def.ID, builtin: def.IsBuiltin()}
	b.reg.bindings[norm] = def.ID
	return nil
}

func (b *builder) applyBindings(bindings map[string]string) error {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		id := bindings[k]
		norm, err := key.Normalize(k)
		if err != nil {
			if perr := b.problem(fmt.Errorf("%w: binding %q: %v", ErrInvalidKey, k, err)); perr != nil {
				return perr
			}
			continue
		}
		if _, ok := b.reg.byID[id]; !ok {
			if perr := b.problem(fmt.Errorf("%w: %q -> %q", ErrUnknownTarget, norm, id)); perr != nil {
				return perr
			}
			continue
		}
		b.reg.bindings[norm] = id
	}
	return nil
}

func sourceName(d *action.Definition) string {
	if d.IsBuiltin() {
		return "builtin"
	}
	return d.Source
}

// ByID returns the action with the given id.
func (r *Registry) ByID(id string) (*action.Definition, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ByKey returns the action bound to a key. The key is normalized first;
// an unknown or unparsable key yields false.
func (r *Registry) ByKey(spec string) (*action.Definition, bool) {
	norm, err := key.Normalize(spec)
	if err != nil {
		return nil, false
	}
	id, ok := r.bindings[norm]
	if !ok {
		return nil, false
	}
	return r.ByID(id)
}

// ByEvent returns the action bound to a key event.
func (r *Registry) ByEvent(ev key.Event) (*action.Definition, bool) {
	if ev.IsZero() {
		return nil, false
	}
	id, ok := r.bindings[ev.String()]
	if !ok {
		return nil, false
	}
	return r.ByID(id)
}

// All returns every action in registration order.
func (r *Registry) All() []*action.Definition {
	out := make([]*action.Definition, len(r.actions))
	copy(out, r.actions)
	return out
}

// Custom returns the actions that came from configuration.
func (r *Registry) Custom() []*action.Definition {
	var out []*action.Definition
	for _, d := range r.actions {
		if !d.IsBuiltin() {
			out = append(out, d)
		}
	}
	return out
}

// Available returns the enabled actions whose predicate holds for ec.
func (r *Registry) Available(ec *execctx.ExecutionContext) []*action.Definition {
	facts := action.Facts{}
	if ec != nil {
		facts = ec.Facts()
	}
	var out []*action.Definition
	for _, d := range r.actions {
		if !d.IsEnabled() {
			continue
		}
		if !d.When.Matches(facts) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Keys returns the normalized keys that resolve to id, sorted.
func (r *Registry) Keys(id string) []string {
	var keys []string
	for k, target := range r.bindings {
		if target == id {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Binding is one key resolution.
type Binding struct {
	Key      string
	ActionID string
}

// Bindings returns every key binding sorted by key.
func (r *Registry) Bindings() []Binding {
	out := make([]Binding, 0, len(r.bindings))
	for k, id := range r.bindings {
		out = append(out, Binding{Key: k, ActionID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Warnings returns problems tolerated during lenient construction.
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// Len returns the number of actions.
func (r *Registry) Len() int {
	return len(r.actions)
}

// searchSource adapts actions to fuzzy.Source.
type searchSource []*action.Definition

func (s searchSource) String(i int) string {
	d := s[i]
	return d.ID + " " + d.DisplayName() + " " + d.Description
}

func (s searchSource) Len() int { return len(s) }

// Search fuzzy-matches query against action ids, names and descriptions
// and returns matches best first. An empty query returns all actions.
func (r *Registry) Search(query string) []*action.Definition {
	if strings.TrimSpace(query) == "" {
		return r.All()
	}
	src := searchSource(r.actions)
	matches := fuzzy.FindFrom(query, src)
	out := make([]*action.Definition, 0, len(matches))
	for _, m := range matches {
		out = append(out, src[m.Index])
	}
	return out
}
