package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/typekit/internal/ir"
)

// Descriptor declares a derivation. It is read once by Extend and not
// retained; mutating it afterwards has no effect on the derived Type.
type Descriptor struct {
	// Name is optional. Named types are indexed by the registry.
	Name string

	// Statics are merged into the new type's static registry ahead of the
	// inherited ones.
	Statics ir.IRObject

	// Includes are mixins merged into the template in order, last wins.
	Includes []Mixin

	// Options overlay the inherited default configuration. nil means the
	// descriptor carries no options.
	Options ir.IRObject

	// Members are merged last and override everything included.
	Members Members
}

// reservedStatics are type-machinery names that never enter a static
// registry, whichever source they come from.
var reservedStatics = map[string]bool{
	"prototype":         true,
	"__proto__":         true,
	"__super__":         true,
	"constructor":       true,
	"name":              true,
	"length":            true,
	"caller":            true,
	"arguments":         true,
	"extend":            true,
	"include":           true,
	"mergeOptions":      true,
	"addInitHook":       true,
	"setDefaultOptions": true,
}

// IsReservedStatic reports whether name can never be a static.
func IsReservedStatic(name string) bool {
	return reservedStatics[name]
}

// Type is a node in the single-inheritance tree of a Registry.
//
// It owns its instance template (members, falling back to the base's),
// its static registry, its default-configuration layer and its init-hook
// list. None of these are shared with the base or with siblings.
type Type struct {
	id      TypeID
	name    string
	base    *Type
	reg     *Registry
	members Members
	statics ir.IRObject
	options *Options
	hooks   []Hook
}

// ID returns the type's arena index.
func (t *Type) ID() TypeID { return t.id }

// Name returns the declared name, which may be empty.
func (t *Type) Name() string { return t.name }

// Base returns the base type, or nil for the root.
func (t *Type) Base() *Type { return t.base }

// Registry returns the owning registry.
func (t *Type) Registry() *Registry { return t.reg }

// IsRoot reports whether t is the registry root.
func (t *Type) IsRoot() bool { return t.base == nil }

// String returns the name, or "type#<id>" for anonymous types.
func (t *Type) String() string {
	if t.name != "" {
		return t.name
	}
	return fmt.Sprintf("type#%d", t.id)
}

// Extend derives a new type from t.
//
// Order of construction:
//  1. statics: desc.Statics, then t's statics; the first writer of a name wins
//  2. mixins: desc.Includes in order, last wins
//  3. options: a fresh layer over t's layer holding the mixins' options,
//     then desc.Options on top
//  4. members: desc.Members, overriding mixins
//  5. hooks: a private copy of t's current hook list
func (t *Type) Extend(desc Descriptor) *Type {
	child := &Type{
		name:    desc.Name,
		base:    t,
		reg:     t.reg,
		members: make(Members),
		statics: make(ir.IRObject),
	}

	for _, src := range []ir.IRObject{desc.Statics, t.statics} {
		for k, v := range src {
			if reservedStatics[k] {
				continue
			}
			if _, taken := child.statics[k]; taken {
				continue
			}
			child.statics[k] = v
		}
	}

	var overlay ir.IRObject
	for _, mixin := range desc.Includes {
		child.members.merge(mixin.Members)
		overlay = overlayOptions(overlay, mixin.Options)
	}
	overlay = overlayOptions(overlay, desc.Options)

	if inherited := t.nearestOptions(); inherited != nil || overlay != nil {
		child.options = newOptions(inherited, overlay)
	}

	child.members.merge(desc.Members)

	// Eager copy: hooks added to child later never reach t or its other
	// children, and hooks added to t later never reach child.
	child.hooks = slices.Clone(t.hooks)

	t.reg.register(child)
	t.reg.logger.Debug("derived type",
		"type", child.String(),
		"id", int(child.id),
		"base", t.String(),
		"statics", len(child.statics),
		"mixins", len(desc.Includes),
		"hooks", len(child.hooks),
	)
	return child
}

// overlayOptions applies src on top of dst, allocating dst on first use.
// A nil result means no source carried options.
func overlayOptions(dst, src ir.IRObject) ir.IRObject {
	if src == nil {
		return dst
	}
	if dst == nil {
		dst = make(ir.IRObject, len(src))
	}
	return dst.Extend(src)
}

// MergeOptions merges partial into t's own default configuration in place,
// new keys winning. Instances and subtypes that read through t's layer see
// the change. Returns t for chaining.
func (t *Type) MergeOptions(partial ir.IRObject) *Type {
	if t.options == nil {
		t.options = newOptions(t.base.nearestOptions(), nil)
	}
	t.options.merge(partial)
	return t
}

// SetDefaultOptions makes t's defaults the current effective defaults plus
// opts, and stops t from reading through to its base's layer. The layer
// object itself is kept.
func (t *Type) SetDefaultOptions(opts ir.IRObject) *Type {
	if t.options == nil {
		t.options = newOptions(t.base.nearestOptions(), nil)
	}
	t.options.reset(opts)
	return t
}

// Include merges mixin into t's own template, last write wins. Options
// carried by the mixin are merged into t's default configuration as by
// MergeOptions. Returns t for chaining.
func (t *Type) Include(mixin Mixin) *Type {
	t.members.merge(mixin.Members)
	if mixin.Options != nil {
		t.MergeOptions(mixin.Options)
	}
	return t
}

// AddInitHook appends a hook to t's own list. spec is an InitFunc, or a
// MethodName invoked with args on the instance when hooks run. A nil spec
// is recorded and fails with ErrCodeHookFailed when hooks run.
// Returns t for chaining.
func (t *Type) AddInitHook(spec HookSpec, args ...ir.IRValue) *Type {
	h := newHook(spec, args)
	t.hooks = append(t.hooks, h)
	t.reg.logger.Debug("added init hook", "type", t.String(), "hook", h.Label(), "position", len(t.hooks))
	return t
}

// Member resolves name on t's template, falling back through the base chain.
func (t *Type) Member(name string) (Member, bool) {
	for n := t; n != nil; n = n.base {
		if m, ok := n.members[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// OwnMembers returns a copy of the members set directly on t.
func (t *Type) OwnMembers() Members {
	out := make(Members, len(t.members))
	out.merge(t.members)
	return out
}

// Members returns the flattened template: every resolvable member.
func (t *Type) Members() Members {
	chain := t.Chain()
	out := make(Members)
	for _, n := range chain {
		out.merge(n.members)
	}
	return out
}

// Static returns a static value.
func (t *Type) Static(name string) (ir.IRValue, bool) {
	v, ok := t.statics[name]
	return v, ok
}

// Statics returns a copy of t's static registry.
func (t *Type) Statics() ir.IRObject {
	out := make(ir.IRObject, len(t.statics))
	return out.Extend(t.statics)
}

// Options returns t's own default-configuration layer, or nil if t never
// received one.
func (t *Type) Options() *Options {
	return t.options
}

// DefaultOptions returns the effective defaults as a fresh object. A type
// without its own layer reads its nearest ancestor's.
func (t *Type) DefaultOptions() ir.IRObject {
	return t.nearestOptions().Effective()
}

// DefaultOption resolves one default-configuration key.
func (t *Type) DefaultOption(key string) (ir.IRValue, bool) {
	return t.nearestOptions().Get(key)
}

// Hooks returns a copy of t's hook list in run order.
func (t *Type) Hooks() []Hook {
	return slices.Clone(t.hooks)
}

// Chain returns the inheritance path from the root to t.
func (t *Type) Chain() []*Type {
	var chain []*Type
	for n := t; n != nil; n = n.base {
		chain = append(chain, n)
	}
	slices.Reverse(chain)
	return chain
}

// IsA reports whether t is other or derives from it.
func (t *Type) IsA(other *Type) bool {
	for n := t; n != nil; n = n.base {
		if n == other {
			return true
		}
	}
	return false
}

func (t *Type) nearestOptions() *Options {
	for n := t; n != nil; n = n.base {
		if n.options != nil {
			return n.options
		}
	}
	return nil
}
