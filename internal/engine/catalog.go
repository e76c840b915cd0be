package engine

import (
	"fmt"

	"github.com/roach88/typekit/internal/ir"
)

// Build materializes a compiled catalog into a new Registry.
//
// Mixins are bound first, then types are derived in catalog order, each
// immediately followed by its hooks. Catalog order must place every base
// before the types extending it; the compiler guarantees this.
func Build(cat *ir.Catalog, lib Library, opts ...Option) (*Registry, error) {
	reg := NewRegistry(opts...)

	mixins := make(map[string]Mixin, len(cat.Mixins))
	for _, ms := range cat.Mixins {
		m, err := MixinFromSpec(ms, lib)
		if err != nil {
			return nil, err
		}
		mixins[ms.Name] = m
	}

	for _, ts := range cat.Types {
		if _, err := DeriveFromSpec(reg, ts, mixins, lib); err != nil {
			return nil, err
		}
	}

	reg.logger.Info("catalog built", "types", len(cat.Types), "mixins", len(cat.Mixins))
	return reg, nil
}

// DeriveFromSpec derives one declared type into reg and registers its hooks.
// spec.Extends must name a type already in reg; empty means the root.
func DeriveFromSpec(reg *Registry, spec ir.TypeSpec, mixins map[string]Mixin, lib Library) (*Type, error) {
	base := reg.Root()
	if spec.Extends != "" {
		b, ok := reg.Lookup(spec.Extends)
		if !ok {
			return nil, &RuntimeError{
				Code:    ErrCodeUnknownType,
				Message: fmt.Sprintf("base type %q is not declared", spec.Extends),
				Type:    spec.Name,
			}
		}
		base = b
	}

	desc, err := DescriptorFromSpec(spec, mixins, lib)
	if err != nil {
		return nil, err
	}

	t := base.Extend(desc)
	for _, h := range spec.Hooks {
		t.AddInitHook(MethodName(h.Method), h.Args...)
	}
	return t, nil
}

// DescriptorFromSpec turns a declarative type spec into a Descriptor,
// resolving mixin names and binding methods to lib.
func DescriptorFromSpec(spec ir.TypeSpec, mixins map[string]Mixin, lib Library) (Descriptor, error) {
	desc := Descriptor{
		Name:    spec.Name,
		Statics: spec.Statics.Clone(),
		Options: spec.Options.Clone(),
	}

	for _, name := range spec.Includes {
		m, ok := mixins[name]
		if !ok {
			return Descriptor{}, &RuntimeError{
				Code:    ErrCodeUnknownMixin,
				Message: fmt.Sprintf("mixin %q is not declared", name),
				Type:    spec.Name,
			}
		}
		desc.Includes = append(desc.Includes, m)
	}

	members, err := MembersFromSpec(spec.Fields, spec.Methods, lib)
	if err != nil {
		return Descriptor{}, fmt.Errorf("type %s: %w", spec.Name, err)
	}
	desc.Members = members
	return desc, nil
}

// MixinFromSpec binds a declared mixin's methods to lib.
func MixinFromSpec(ms ir.MixinSpec, lib Library) (Mixin, error) {
	members, err := MembersFromSpec(ms.Fields, ms.Methods, lib)
	if err != nil {
		return Mixin{}, fmt.Errorf("mixin %s: %w", ms.Name, err)
	}
	return Mixin{Members: members, Options: ms.Options.Clone()}, nil
}

// MembersFromSpec builds a behavior set from declared fields and method
// bindings. A member declared as both resolves to the method.
func MembersFromSpec(fields ir.IRObject, methods map[string]string, lib Library) (Members, error) {
	m := FieldsOf(fields)
	for name, builtin := range methods {
		fn, ok := lib[builtin]
		if !ok {
			return nil, &RuntimeError{
				Code:    ErrCodeUnknownBuiltin,
				Message: fmt.Sprintf("member %q is bound to unknown builtin %q", name, builtin),
			}
		}
		m[name] = fn
	}
	return m, nil
}
