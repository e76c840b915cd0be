package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrDuplicateType    = "E101" // two types share a name
	ErrDuplicateMixin   = "E102" // two mixins share a name
	ErrUnknownBase      = "E103" // extends names an undeclared type
	ErrUnknownMixin     = "E104" // includes names an undeclared mixin
	ErrUnknownBuiltin   = "E105" // a method is bound to a builtin the library lacks
	ErrReservedStatic   = "E106" // a static uses a reserved name
	ErrInheritanceCycle = "E107" // extends chain loops
	ErrEmptyHookMethod  = "E108" // hook has no method name
	ErrEmptyName        = "E109" // type or mixin without a name
)

// ValidationError represents a catalog validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled catalog against the library of builtins it
// will be bound to. Returns all errors found (does not fail-fast).
//
// Hook method names are not checked: a hook naming a missing member is
// legal to declare and fails when an instance runs it.
func Validate(cat *ir.Catalog, builtins []string) []ValidationError {
	var errs []ValidationError

	lib := make(map[string]bool, len(builtins))
	for _, b := range builtins {
		lib[b] = true
	}

	mixins := make(map[string]bool, len(cat.Mixins))
	for i, m := range cat.Mixins {
		field := fmt.Sprintf("mixin.%s", m.Name)
		if strings.TrimSpace(m.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("mixins[%d]", i),
				Message: "mixin name is required",
				Code:    ErrEmptyName,
			})
		}
		if mixins[m.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate mixin name: %q", m.Name),
				Code:    ErrDuplicateMixin,
			})
		}
		mixins[m.Name] = true
		errs = append(errs, validateMethods(field, m.Methods, lib)...)
	}

	types := make(map[string]bool, len(cat.Types))
	for _, t := range cat.Types {
		types[t.Name] = true
	}

	seen := make(map[string]bool, len(cat.Types))
	for i, t := range cat.Types {
		field := fmt.Sprintf("type.%s", t.Name)
		if strings.TrimSpace(t.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("types[%d]", i),
				Message: "type name is required",
				Code:    ErrEmptyName,
			})
		}
		if seen[t.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate type name: %q", t.Name),
				Code:    ErrDuplicateType,
			})
		}
		seen[t.Name] = true

		if t.Extends != "" && !types[t.Extends] {
			errs = append(errs, ValidationError{
				Field:   field + ".extends",
				Message: fmt.Sprintf("base type %q is not declared", t.Extends),
				Code:    ErrUnknownBase,
			})
		}

		for j, inc := range t.Includes {
			if !mixins[inc] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.includes[%d]", field, j),
					Message: fmt.Sprintf("mixin %q is not declared", inc),
					Code:    ErrUnknownMixin,
				})
			}
		}

		for _, name := range t.Statics.SortedKeys() {
			if engine.IsReservedStatic(name) {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.statics.%s", field, name),
					Message: fmt.Sprintf("static name %q is reserved and would be ignored", name),
					Code:    ErrReservedStatic,
				})
			}
		}

		errs = append(errs, validateMethods(field, t.Methods, lib)...)

		for j, h := range t.Hooks {
			if strings.TrimSpace(h.Method) == "" {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.hooks[%d]", field, j),
					Message: "hook method is required",
					Code:    ErrEmptyHookMethod,
				})
			}
		}
	}

	for _, c := range FindInheritanceCycles(cat.Types) {
		errs = append(errs, ValidationError{
			Field:   fmt.Sprintf("type.%s.extends", c.Path[0]),
			Message: c.Message,
			Code:    ErrInheritanceCycle,
		})
	}

	return errs
}

func validateMethods(field string, methods map[string]string, lib map[string]bool) []ValidationError {
	var errs []ValidationError
	for _, name := range slices.Sorted(maps.Keys(methods)) {
		builtin := methods[name]
		if !lib[builtin] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.methods.%s", field, name),
				Message: fmt.Sprintf("unknown builtin %q", builtin),
				Code:    ErrUnknownBuiltin,
			})
		}
	}
	return errs
}
