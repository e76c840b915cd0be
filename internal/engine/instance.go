package engine

import (
	"errors"
	"slices"

	"github.com/roach88/typekit/internal/ir"
)

// InitializeMember is the member invoked with the constructor arguments
// before any init hook runs.
const InitializeMember = "initialize"

// Instance is an object constructed from a Type. Its own state starts empty;
// every member resolves through its Type until the instance sets a field.
type Instance struct {
	id       string
	typ      *Type
	seq      int64
	fields   ir.IRObject
	options  ir.IRObject
	hooksRun bool
	runs     []HookRun
}

// New constructs an instance: initialize (if the template has one) is
// called with args, then the type's init hooks run exactly once.
func (t *Type) New(args ...ir.IRValue) (*Instance, error) {
	inst, err := t.construct(args)
	if err != nil {
		return nil, err
	}
	if err := inst.CallInitHooks(); err != nil {
		return nil, err
	}
	return inst, nil
}

// NewWithoutHooks constructs an instance and calls initialize but leaves
// the hooks pending. They run on the first CallInitHooks.
func (t *Type) NewWithoutHooks(args ...ir.IRValue) (*Instance, error) {
	return t.construct(args)
}

func (t *Type) construct(args []ir.IRValue) (*Instance, error) {
	inst := &Instance{
		id:     t.reg.ids.Generate(),
		typ:    t,
		seq:    t.reg.clock.Next(),
		fields: make(ir.IRObject),
	}
	t.reg.logger.Debug("constructing instance", "type", t.String(), "instance", inst.id, "seq", inst.seq)

	m, ok := t.Member(InitializeMember)
	if !ok {
		return inst, nil
	}
	initialize, ok := m.(Method)
	if !ok {
		err := newNotAMethodError(t.String(), InitializeMember)
		err.Instance = inst.id
		return nil, err
	}
	if _, err := initialize(inst, args...); err != nil {
		return nil, inst.wrapError(ErrCodeInitializeFailed, "initialize failed", "", err)
	}
	return inst, nil
}

// CallInitHooks runs the type's init hooks in order with the instance as
// receiver. It is a no-op once hooks have run, or when the type has none.
// The one-shot flag is set before the first hook runs, so a hook that
// re-enters CallInitHooks does not run the list again.
func (i *Instance) CallInitHooks() error {
	if i.hooksRun || len(i.typ.hooks) == 0 {
		return nil
	}
	i.hooksRun = true

	hooks := slices.Clone(i.typ.hooks)
	for n, h := range hooks {
		seq := i.typ.reg.clock.Next()
		i.typ.reg.logger.Debug("running init hook",
			"type", i.typ.String(), "instance", i.id, "hook", h.Label(), "ordinal", n, "seq", seq)
		if err := h.run(i); err != nil {
			return i.wrapError(ErrCodeHookFailed, "init hook failed", h.Label(), err)
		}
		i.runs = append(i.runs, HookRun{Ordinal: n, Label: h.Label(), Seq: seq})
	}
	return nil
}

// wrapError keeps RuntimeErrors raised by the engine itself (a missing
// member, a nested construction failure) and wraps anything else under code.
func (i *Instance) wrapError(code RuntimeErrorCode, msg, hook string, err error) error {
	var re *RuntimeError
	if errors.As(err, &re) {
		if re.Instance == "" {
			re.Instance = i.id
		}
		if re.Hook == "" {
			re.Hook = hook
		}
		return err
	}
	return &RuntimeError{
		Code:     code,
		Message:  msg,
		Type:     i.typ.String(),
		Instance: i.id,
		Hook:     hook,
		Err:      err,
	}
}

// ID returns the instance ID.
func (i *Instance) ID() string { return i.id }

// Type returns the type the instance was constructed from.
func (i *Instance) Type() *Type { return i.typ }

// Seq returns the logical time of construction.
func (i *Instance) Seq() int64 { return i.seq }

// HooksRun reports whether the one-shot hook transition has happened.
func (i *Instance) HooksRun() bool { return i.hooksRun }

// HookRuns returns the hooks executed on this instance, in order.
func (i *Instance) HookRuns() []HookRun {
	return slices.Clone(i.runs)
}

// IsA reports whether the instance's type is t or derives from it.
func (i *Instance) IsA(t *Type) bool {
	return i.typ.IsA(t)
}

// Call invokes the named Method member.
func (i *Instance) Call(name string, args ...ir.IRValue) (ir.IRValue, error) {
	m, ok := i.typ.Member(name)
	if !ok {
		return nil, newMissingMethodError(i.typ.String(), name)
	}
	method, ok := m.(Method)
	if !ok {
		return nil, newNotAMethodError(i.typ.String(), name)
	}
	return method(i, args...)
}

// Get resolves a field: the instance's own value first, then the template.
func (i *Instance) Get(name string) (ir.IRValue, bool) {
	if v, ok := i.fields[name]; ok {
		return v, true
	}
	if m, ok := i.typ.Member(name); ok {
		if f, ok := m.(Field); ok {
			return f.Value, true
		}
	}
	return nil, false
}

// Set stores a field on the instance itself, shadowing the template.
func (i *Instance) Set(name string, v ir.IRValue) {
	i.fields[name] = v
}

// Fields returns a copy of the instance's own fields.
func (i *Instance) Fields() ir.IRObject {
	return i.fields.Clone()
}

// SetOptions overlays partial onto the instance's own configuration. The
// type's defaults are untouched.
func (i *Instance) SetOptions(partial ir.IRObject) {
	if i.options == nil {
		i.options = make(ir.IRObject, len(partial))
	}
	i.options.Extend(partial)
}

// Option resolves key: instance overrides first, then the type defaults.
func (i *Instance) Option(key string) (ir.IRValue, bool) {
	if v, ok := i.options[key]; ok {
		return v, true
	}
	return i.typ.DefaultOption(key)
}

// Options returns a snapshot of the effective configuration. Later
// MergeOptions calls on the type do not change a snapshot already taken.
func (i *Instance) Options() ir.IRObject {
	return i.typ.DefaultOptions().Extend(i.options)
}
