package schema

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/glance/internal/action"
	"github.com/dshills/glance/internal/input/key"
)

// DefaultMaxErrors is the default cap on collected errors.
const DefaultMaxErrors = 100

var commandTypes = map[string]bool{
	string(action.KindBuiltin):  true,
	string(action.KindExternal): true,
	string(action.KindScript):   true,
	string(action.KindSequence): true,
	string(action.KindShell):    true,
}

var modes = map[string]bool{
	string(action.ModeInteractive): true,
	string(action.ModeStatic):      true,
	string(action.ModeAny):         true,
}

// Validator checks action documents.
type Validator struct {
	maxErrors int
	checkKeys bool
}

// NewValidator creates a validator that collects up to DefaultMaxErrors
// errors and checks key specifications.
func NewValidator() *Validator {
	return &Validator{maxErrors: DefaultMaxErrors, checkKeys: true}
}

// WithMaxErrors sets the maximum number of errors to collect (0 = unlimited).
func (v *Validator) WithMaxErrors(n int) *Validator {
	v.maxErrors = n
	return v
}

// WithKeyCheck sets whether key strings must parse as key specifications.
func (v *Validator) WithKeyCheck(check bool) *Validator {
	v.checkKeys = check
	return v
}

// run is the state of one validation pass.
type run struct {
	v    *Validator
	errs *ValidationErrors
}

func (r *run) full() bool {
	return r.v.maxErrors > 0 && r.errs.Len() >= r.v.maxErrors
}

func (r *run) add(err *ValidationError) {
	if !r.full() {
		r.errs.Errors = append(r.errs.Errors, err)
	}
}

func (r *run) addf(path, format string, args ...any) {
	r.add(&ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate checks a canonical JSON document. source labels the errors.
func (v *Validator) Validate(source string, doc []byte) error {
	r := &run{v: v, errs: &ValidationErrors{Source: source}}

	if !gjson.ValidBytes(doc) {
		r.addf("", "document is not valid JSON")
		return r.errs.AsError()
	}
	root := gjson.ParseBytes(doc)
	if !root.IsObject() {
		r.add(typeError("", "object", root.Type))
		return r.errs.AsError()
	}

	r.actions(root.Get("actions"))
	r.keyBindings(root.Get("keyBindings"))
	r.environment(root.Get("environment"))

	return r.errs.AsError()
}

func (r *run) actions(actions gjson.Result) {
	if !actions.Exists() {
		r.add(requiredError("actions"))
		return
	}
	if !actions.IsArray() {
		r.add(typeError("actions", "array", actions.Type))
		return
	}

	seen := make(map[string]int)
	for i, a := range actions.Array() {
		if r.full() {
			return
		}
		path := fmt.Sprintf("actions[%d]", i)
		r.action(path, a)

		id := a.Get("id").String()
		if id == "" {
			continue
		}
		if first, dup := seen[id]; dup {
			r.addf(path+".id", "duplicate action id %q (first defined at actions[%d])", id, first)
			continue
		}
		seen[id] = i
	}
}

func (r *run) action(path string, a gjson.Result) {
	if !a.IsObject() {
		r.add(typeError(path, "object", a.Type))
		return
	}

	id := r.requiredString(path+".id", a.Get("id"))
	if id != "" && !action.IDPattern.MatchString(id) {
		r.add(&ValidationError{
			Path:    path + ".id",
			Message: "value does not match pattern: " + action.IDPattern.String(),
			Value:   id,
		})
	}

	if k := r.requiredString(path+".key", a.Get("key")); k != "" {
		r.keySpec(path+".key", k)
	}
	r.requiredString(path+".description", a.Get("description"))

	script := a.Get("script")
	if !script.Exists() {
		r.add(requiredError(path + ".script"))
	} else {
		r.command(path+".script", script)
	}

	if alts := a.Get("alternativeKeys"); alts.Exists() {
		if !alts.IsArray() {
			r.add(typeError(path+".alternativeKeys", "array", alts.Type))
		} else {
			for i, k := range alts.Array() {
				p := fmt.Sprintf("%s.alternativeKeys[%d]", path, i)
				if k.Type != gjson.String {
					r.add(typeError(p, "string", k.Type))
					continue
				}
				if k.String() != "" {
					r.keySpec(p, k.String())
				}
			}
		}
	}

	r.optional(path+".name", a.Get("name"), gjson.String)
	r.optional(path+".confirmPrompt", a.Get("confirmPrompt"), gjson.String)
	r.optional(path+".category", a.Get("category"), gjson.String)
	r.optional(path+".priority", a.Get("priority"), gjson.Number)
	r.optionalBool(path+".dangerous", a.Get("dangerous"))
	r.optionalBool(path+".enabled", a.Get("enabled"))

	if when := a.Get("when"); when.Exists() {
		r.when(path+".when", when)
	}
}

func (r *run) command(path string, c gjson.Result) {
	switch {
	case c.Type == gjson.String:
		if strings.TrimSpace(c.String()) == "" {
			r.addf(path, "script must not be empty")
		}
		return
	case !c.IsObject():
		r.add(typeError(path, "string or object", c.Type))
		return
	}

	typ := c.Get("type")
	if !typ.Exists() {
		r.add(requiredError(path + ".type"))
		return
	}
	if !commandTypes[typ.String()] {
		r.add(&ValidationError{
			Path:    path + ".type",
			Message: fmt.Sprintf("unknown command type %q", typ.String()),
			Value:   typ.String(),
		})
		return
	}

	switch action.Kind(typ.String()) {
	case action.KindBuiltin:
		r.requiredString(path+".name", c.Get("name"))
	case action.KindExternal, action.KindScript, action.KindShell:
		r.requiredString(path+".command", c.Get("command"))
	case action.KindSequence:
		steps := c.Get("steps")
		switch {
		case !steps.Exists():
			r.add(requiredError(path + ".steps"))
		case !steps.IsArray():
			r.add(typeError(path+".steps", "array", steps.Type))
		case len(steps.Array()) == 0:
			r.addf(path+".steps", "sequence must have at least one step")
		default:
			for i, s := range steps.Array() {
				r.command(fmt.Sprintf("%s.steps[%d]", path, i), s)
			}
		}
		if s := c.Get("onSuccess"); s.Exists() {
			r.command(path+".onSuccess", s)
		}
		if f := c.Get("onFailure"); f.Exists() {
			r.command(path+".onFailure", f)
		}
	}

	if args := c.Get("args"); args.Exists() {
		if !args.IsArray() {
			r.add(typeError(path+".args", "array", args.Type))
		} else {
			for i, a := range args.Array() {
				if a.Type != gjson.String {
					r.add(typeError(fmt.Sprintf("%s.args[%d]", path, i), "string", a.Type))
				}
			}
		}
	}
	r.stringMap(path+".env", c.Get("env"))
	r.optional(path+".cwd", c.Get("cwd"), gjson.String)
	r.nonNegative(path+".timeout", c.Get("timeout"))
	r.optionalBool(path+".captureOutput", c.Get("captureOutput"))
	r.optionalBool(path+".silent", c.Get("silent"))
}

func (r *run) when(path string, w gjson.Result) {
	if !w.IsObject() {
		r.add(typeError(path, "object", w.Type))
		return
	}
	if ft := w.Get("fileTypes"); ft.Exists() {
		if !ft.IsArray() {
			r.add(typeError(path+".fileTypes", "array", ft.Type))
		} else {
			for i, t := range ft.Array() {
				if t.Type != gjson.String {
					r.add(typeError(fmt.Sprintf("%s.fileTypes[%d]", path, i), "string", t.Type))
				}
			}
		}
	}
	r.optionalBool(path+".hasSelection", w.Get("hasSelection"))
	r.nonNegative(path+".minLines", w.Get("minLines"))
	r.nonNegative(path+".maxLines", w.Get("maxLines"))

	lo, hi := w.Get("minLines"), w.Get("maxLines")
	if lo.Type == gjson.Number && hi.Type == gjson.Number && lo.Int() > hi.Int() {
		r.addf(path, "minLines (%d) is greater than maxLines (%d)", lo.Int(), hi.Int())
	}

	if m := w.Get("mode"); m.Exists() {
		if m.Type != gjson.String || !modes[m.String()] {
			r.add(&ValidationError{
				Path:    path + ".mode",
				Message: "value is not one of allowed values: interactive, static, any",
				Value:   m.Value(),
			})
		}
	}
}

func (r *run) keyBindings(kb gjson.Result) {
	if !kb.Exists() {
		return
	}
	if !kb.IsObject() {
		r.add(typeError("keyBindings", "object", kb.Type))
		return
	}
	kb.ForEach(func(k, v gjson.Result) bool {
		path := "keyBindings." + k.String()
		if v.Type != gjson.String || v.String() == "" {
			r.add(typeError(path, "non-empty action id", v.Type))
		}
		r.keySpec(path, k.String())
		return !r.full()
	})
}

func (r *run) environment(env gjson.Result) {
	if !env.Exists() {
		return
	}
	if !env.IsObject() {
		r.add(typeError("environment", "object", env.Type))
		return
	}
	r.stringMap("environment.variables", env.Get("variables"))
	r.nonNegative("environment.timeout", env.Get("timeout"))
	r.optional("environment.shell", env.Get("shell"), gjson.String)
}

func (r *run) requiredString(path string, v gjson.Result) string {
	if !v.Exists() {
		r.add(requiredError(path))
		return ""
	}
	if v.Type != gjson.String {
		r.add(typeError(path, "string", v.Type))
		return ""
	}
	if strings.TrimSpace(v.String()) == "" {
		r.addf(path, "must not be empty")
		return ""
	}
	return v.String()
}

func (r *run) optional(path string, v gjson.Result, want gjson.Type) {
	if v.Exists() && v.Type != want {
		r.add(typeError(path, strings.ToLower(want.String()), v.Type))
	}
}

func (r *run) optionalBool(path string, v gjson.Result) {
	if v.Exists() && v.Type != gjson.True && v.Type != gjson.False {
		r.add(typeError(path, "boolean", v.Type))
	}
}

func (r *run) nonNegative(path string, v gjson.Result) {
	if !v.Exists() {
		return
	}
	if v.Type != gjson.Number {
		r.add(typeError(path, "number", v.Type))
		return
	}
	if v.Float() < 0 {
		r.add(&ValidationError{Path: path, Message: "must not be negative", Value: v.Float()})
	}
}

func (r *run) stringMap(path string, m gjson.Result) {
	if !m.Exists() {
		return
	}
	if !m.IsObject() {
		r.add(typeError(path, "object", m.Type))
		return
	}
	m.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.String {
			r.add(typeError(path+"."+k.String(), "string", v.Type))
		}
		return true
	})
}

func (r *run) keySpec(path, spec string) {
	if !r.v.checkKeys {
		return
	}
	if _, err := key.Parse(spec); err != nil {
		r.add(&ValidationError{Path: path, Message: err.Error(), Value: spec})
	}
}
