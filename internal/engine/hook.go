package engine

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/roach88/typekit/internal/ir"
)

// HookSpec is accepted by AddInitHook: either an InitFunc called directly,
// or a MethodName resolved on the instance when hooks run.
type HookSpec interface {
	hookSpec()
}

// InitFunc is a hook called with the new instance as receiver.
type InitFunc func(self *Instance) error

func (InitFunc) hookSpec() {}

// MethodName names a Method member looked up on the instance at run time.
// The lookup is deferred: a missing member is reported when the hook runs,
// not when it is registered.
type MethodName string

func (MethodName) hookSpec() {}

// Hook is a registered init hook. Immutable once created.
type Hook struct {
	fn     InitFunc
	method string
	args   ir.IRArray
	label  string
}

// nilHookLabel labels a hook registered with a nil spec or nil InitFunc.
const nilHookLabel = "<nil>"

var errNilHook = errors.New("nil init hook")

// newHook binds spec. A nil spec or nil InitFunc is kept as a hook that
// fails when run, so registration never panics.
func newHook(spec HookSpec, args []ir.IRValue) Hook {
	switch s := spec.(type) {
	case InitFunc:
		if s == nil {
			return nilHook()
		}
		return Hook{fn: s, label: funcLabel(s)}
	case MethodName:
		bound := append(ir.IRArray(nil), args...)
		return Hook{method: string(s), args: bound, label: methodLabel(string(s), bound)}
	case nil:
		return nilHook()
	default:
		panic(fmt.Sprintf("engine: unsupported hook spec %T", spec))
	}
}

func nilHook() Hook {
	return Hook{fn: func(*Instance) error { return errNilHook }, label: nilHookLabel}
}

// Label identifies the hook in traces: "set(\"_ready\",true)" for method
// hooks, the Go function name for InitFuncs.
func (h Hook) Label() string {
	return h.label
}

// Method returns the method name and bound args; ok is false for InitFuncs.
func (h Hook) Method() (name string, args ir.IRArray, ok bool) {
	if h.fn != nil {
		return "", nil, false
	}
	return h.method, h.args, true
}

func (h Hook) run(self *Instance) error {
	if h.fn != nil {
		return h.fn(self)
	}
	_, err := self.Call(h.method, h.args...)
	return err
}

// HookRun records one executed hook on an instance.
type HookRun struct {
	Ordinal int    `json:"ordinal"`
	Label   string `json:"label"`
	Seq     int64  `json:"seq"`
}

func methodLabel(name string, args ir.IRArray) string {
	if len(args) == 0 {
		return name + "()"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := ir.MarshalCanonical(a)
		if err != nil {
			b, _ = ir.MarshalIRValue(a)
		}
		parts[i] = string(b)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

func funcLabel(fn InitFunc) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return "func"
}
