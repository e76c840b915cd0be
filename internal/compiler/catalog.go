package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/typekit/internal/ir"
)

// CompileCatalog compiles a whole CUE catalog value: every field under
// `mixin` and every field under `type`. Mixins keep declaration order;
// types are reordered so each base precedes the types extending it.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`type: Path: { options: {weight: 3} }`)
//	cat, err := CompileCatalog(v)
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &ir.Catalog{}

	if mixins := v.LookupPath(cue.ParsePath("mixin")); mixins.Exists() {
		iter, err := mixins.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			ms, err := CompileMixin(iter.Value())
			if err != nil {
				return nil, err
			}
			cat.Mixins = append(cat.Mixins, *ms)
		}
	}

	if types := v.LookupPath(cue.ParsePath("type")); types.Exists() {
		iter, err := types.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var specs []ir.TypeSpec
		for iter.Next() {
			ts, err := CompileType(iter.Value())
			if err != nil {
				return nil, err
			}
			specs = append(specs, *ts)
		}
		cat.Types = OrderTypes(specs)
	}

	if len(cat.Mixins) == 0 && len(cat.Types) == 0 {
		return nil, &CompileError{
			Field:   "catalog",
			Message: "no mixin or type declarations found",
			Pos:     v.Pos(),
		}
	}
	return cat, nil
}

// CompileMixin parses one `mixin: Name: {...}` value.
func CompileMixin(v cue.Value) (*ir.MixinSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ms := &ir.MixinSpec{Name: labelOf(v)}

	var err error
	if ms.Options, err = parseObject(v, "options"); err != nil {
		return nil, err
	}
	if ms.Fields, err = parseObject(v, "fields"); err != nil {
		return nil, err
	}
	if ms.Methods, err = parseStringMap(v, "methods"); err != nil {
		return nil, err
	}
	return ms, nil
}

// CompileType parses one `type: Name: {...}` value into a TypeSpec.
// The type name is the struct label.
func CompileType(v cue.Value) (*ir.TypeSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	ts := &ir.TypeSpec{Name: labelOf(v)}

	var err error
	if ts.Extends, err = parseOptionalString(v, "extends"); err != nil {
		return nil, err
	}
	if ts.Includes, err = parseStringList(v, "includes"); err != nil {
		return nil, err
	}
	if ts.Statics, err = parseObject(v, "statics"); err != nil {
		return nil, err
	}
	if ts.Options, err = parseObject(v, "options"); err != nil {
		return nil, err
	}
	if ts.Fields, err = parseObject(v, "fields"); err != nil {
		return nil, err
	}
	if ts.Methods, err = parseStringMap(v, "methods"); err != nil {
		return nil, err
	}
	if ts.Hooks, err = parseHooks(v); err != nil {
		return nil, err
	}
	return ts, nil
}

func labelOf(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].Unquoted()
}

func parseOptionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: fmt.Sprintf("%s must be a string", field), Pos: fv.Pos()}
	}
	return s, nil
}

func parseStringList(v cue.Value, field string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("%s must be a list of names", field), Pos: fv.Pos()}
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{Field: field, Message: fmt.Sprintf("%s entries must be strings", field), Pos: iter.Value().Pos()}
		}
		out = append(out, s)
	}
	return out, nil
}

func parseStringMap(v cue.Value, field string) (map[string]string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.Fields()
	if err != nil {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("%s must be a struct", field), Pos: fv.Pos()}
	}
	out := make(map[string]string)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("%s.%s must name a builtin", field, iter.Selector().Unquoted()),
				Pos:     iter.Value().Pos(),
			}
		}
		out[iter.Selector().Unquoted()] = s
	}
	return out, nil
}

func parseObject(v cue.Value, field string) (ir.IRObject, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return nil, nil
	}
	if fv.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: fmt.Sprintf("%s must be a struct", field), Pos: fv.Pos()}
	}
	val, err := valueToIR(fv, field)
	if err != nil {
		return nil, err
	}
	return val.(ir.IRObject), nil
}

// parseHooks parses the ordered hook list. An entry is either a method name
// or a struct {method, args}.
func parseHooks(v cue.Value) ([]ir.HookSpec, error) {
	fv := v.LookupPath(cue.ParsePath("hooks"))
	if !fv.Exists() {
		return nil, nil
	}
	iter, err := fv.List()
	if err != nil {
		return nil, &CompileError{Field: "hooks", Message: "hooks must be a list", Pos: fv.Pos()}
	}

	var hooks []ir.HookSpec
	for i := 0; iter.Next(); i++ {
		hv := iter.Value()
		if name, err := hv.String(); err == nil {
			hooks = append(hooks, ir.HookSpec{Method: name})
			continue
		}

		method, err := parseOptionalString(hv, "method")
		if err != nil {
			return nil, err
		}
		if method == "" {
			return nil, &CompileError{
				Field:   "hooks",
				Message: fmt.Sprintf("hooks[%d]: method is required", i),
				Pos:     hv.Pos(),
			}
		}
		h := ir.HookSpec{Method: method}

		if av := hv.LookupPath(cue.ParsePath("args")); av.Exists() {
			args, err := valueToIR(av, fmt.Sprintf("hooks[%d].args", i))
			if err != nil {
				return nil, err
			}
			arr, ok := args.(ir.IRArray)
			if !ok {
				return nil, &CompileError{
					Field:   "hooks",
					Message: fmt.Sprintf("hooks[%d].args must be a list", i),
					Pos:     av.Pos(),
				}
			}
			h.Args = arr
		}
		hooks = append(hooks, h)
	}
	return hooks, nil
}

// valueToIR converts a concrete CUE value to an IRValue. Floats, nulls and
// non-concrete values are rejected.
func valueToIR(v cue.Value, path string) (ir.IRValue, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, notConcrete(v, path)
		}
		return ir.IRString(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, notConcrete(v, path)
		}
		return ir.IRInt(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, notConcrete(v, path)
		}
		return ir.IRBool(b), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("%s: floats are not allowed, use int", path),
			Pos:     v.Pos(),
		}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		arr := ir.IRArray{}
		for i := 0; iter.Next(); i++ {
			elem, err := valueToIR(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			key := iter.Selector().Unquoted()
			elem, err := valueToIR(iter.Value(), path+"."+key)
			if err != nil {
				return nil, err
			}
			obj[key] = elem
		}
		return obj, nil
	case cue.NullKind:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("%s: null is not allowed", path),
			Pos:     v.Pos(),
		}
	default:
		return nil, notConcrete(v, path)
	}
}

func notConcrete(v cue.Value, path string) error {
	return &CompileError{
		Field:   "value",
		Message: fmt.Sprintf("%s: value must be concrete", path),
		Pos:     v.Pos(),
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
