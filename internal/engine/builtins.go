package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/typekit/internal/ir"
)

// Library maps builtin names to Methods. Declarative catalogs bind member
// names to entries of a Library because they cannot carry Go code.
type Library map[string]Method

// With returns a copy of l with name bound to m.
func (l Library) With(name string, m Method) Library {
	out := maps.Clone(l)
	if out == nil {
		out = make(Library)
	}
	out[name] = m
	return out
}

// Names returns the builtin names in sorted order.
func (l Library) Names() []string {
	return slices.Sorted(maps.Keys(l))
}

// Builtins returns the standard library of catalog methods:
//
//	noop                     does nothing
//	set(name, value)         sets an instance field
//	get(name)                returns a field value
//	append(name, values...)  appends to a list field, creating it if absent
//	assign_options(object?)  overlays the object onto the instance options
//	copy_option(key, name)   copies an effective option into a field
//	fail(message)            returns an error
func Builtins() Library {
	return Library{
		"noop":           builtinNoop,
		"set":            builtinSet,
		"get":            builtinGet,
		"append":         builtinAppend,
		"assign_options": builtinAssignOptions,
		"copy_option":    builtinCopyOption,
		"fail":           builtinFail,
	}
}

func builtinNoop(_ *Instance, _ ...ir.IRValue) (ir.IRValue, error) {
	return ir.IRNull{}, nil
}

func builtinSet(self *Instance, args ...ir.IRValue) (ir.IRValue, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("set: expected (name, value), got %d args", len(args))
	}
	name, err := stringArg("set", args[0])
	if err != nil {
		return nil, err
	}
	self.Set(name, args[1])
	return args[1], nil
}

func builtinGet(self *Instance, args ...ir.IRValue) (ir.IRValue, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("get: expected (name), got %d args", len(args))
	}
	name, err := stringArg("get", args[0])
	if err != nil {
		return nil, err
	}
	v, ok := self.Get(name)
	if !ok {
		return ir.IRNull{}, nil
	}
	return v, nil
}

func builtinAppend(self *Instance, args ...ir.IRValue) (ir.IRValue, error) {
	if len(args) < 1 {
		return nil, errors.New("append: expected (name, values...)")
	}
	name, err := stringArg("append", args[0])
	if err != nil {
		return nil, err
	}

	var list ir.IRArray
	if cur, ok := self.Get(name); ok {
		arr, ok := cur.(ir.IRArray)
		if !ok {
			return nil, fmt.Errorf("append: field %q is %T, not a list", name, cur)
		}
		// Copy: the current value may be a template field shared by every instance.
		list = slices.Clone(arr)
	}
	list = append(list, args[1:]...)
	self.Set(name, list)
	return list, nil
}

func builtinAssignOptions(self *Instance, args ...ir.IRValue) (ir.IRValue, error) {
	if len(args) == 0 {
		return ir.IRNull{}, nil
	}
	obj, ok := args[0].(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("assign_options: expected an object, got %T", args[0])
	}
	self.SetOptions(obj)
	return ir.IRNull{}, nil
}

func builtinCopyOption(self *Instance, args ...ir.IRValue) (ir.IRValue, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("copy_option: expected (key, name), got %d args", len(args))
	}
	key, err := stringArg("copy_option", args[0])
	if err != nil {
		return nil, err
	}
	name, err := stringArg("copy_option", args[1])
	if err != nil {
		return nil, err
	}
	v, ok := self.Option(key)
	if !ok {
		return nil, fmt.Errorf("copy_option: no option %q", key)
	}
	self.Set(name, v)
	return v, nil
}

func builtinFail(_ *Instance, args ...ir.IRValue) (ir.IRValue, error) {
	msg := "fail"
	if len(args) > 0 {
		if s, ok := args[0].(ir.IRString); ok {
			msg = string(s)
		}
	}
	return nil, errors.New(msg)
}

func stringArg(builtin string, v ir.IRValue) (string, error) {
	s, ok := v.(ir.IRString)
	if !ok {
		return "", fmt.Errorf("%s: expected a string name, got %T", builtin, v)
	}
	return string(s), nil
}
