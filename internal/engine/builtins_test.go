package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typekit/internal/ir"
)

func newBuiltinInstance(t *testing.T, desc Descriptor) *Instance {
	t.Helper()
	reg := newTestRegistry("b1")
	typ := reg.Root().Extend(desc).Include(Mixin{Members: mapMethods(Builtins())})
	inst, err := typ.NewWithoutHooks()
	require.NoError(t, err)
	return inst
}

func mapMethods(lib Library) Members {
	m := make(Members, len(lib))
	for name, fn := range lib {
		m[name] = fn
	}
	return m
}

func TestLibrary_NamesSorted(t *testing.T) {
	assert.Equal(t,
		[]string{"append", "assign_options", "copy_option", "fail", "get", "noop", "set"},
		Builtins().Names())
}

func TestLibrary_WithCopies(t *testing.T) {
	base := Builtins()
	extended := base.With("custom", builtinNoop)

	_, ok := base["custom"]
	assert.False(t, ok)
	_, ok = extended["custom"]
	assert.True(t, ok)

	var empty Library
	assert.Len(t, empty.With("x", builtinNoop), 1)
}

func TestBuiltin_SetAndGet(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{})

	v, err := inst.Call("set", ir.IRString("_ready"), ir.IRBool(true))
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(true), v)

	v, err = inst.Call("get", ir.IRString("_ready"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRBool(true), v)

	v, err = inst.Call("get", ir.IRString("absent"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRNull{}, v)
}

func TestBuiltin_SetRejectsBadArgs(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{})

	_, err := inst.Call("set", ir.IRString("only-name"))
	assert.ErrorContains(t, err, "expected (name, value)")

	_, err = inst.Call("set", ir.IRInt(1), ir.IRInt(2))
	assert.ErrorContains(t, err, "expected a string name")
}

func TestBuiltin_AppendDoesNotMutateTemplate(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{Members: Members{
		"trace": Field{Value: ir.IRArray{ir.IRString("template")}},
	}})

	v, err := inst.Call("append", ir.IRString("trace"), ir.IRString("H1"), ir.IRString("H2"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRArray{ir.IRString("template"), ir.IRString("H1"), ir.IRString("H2")}, v)

	m, _ := inst.Type().Member("trace")
	assert.Equal(t, Field{Value: ir.IRArray{ir.IRString("template")}}, m)
}

func TestBuiltin_AppendCreatesList(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{})

	_, err := inst.Call("append", ir.IRString("trace"), ir.IRString("H1"))
	require.NoError(t, err)

	v, ok := inst.Get("trace")
	require.True(t, ok)
	assert.Equal(t, ir.IRArray{ir.IRString("H1")}, v)
}

func TestBuiltin_AppendToScalarFails(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{})
	inst.Set("n", ir.IRInt(1))

	_, err := inst.Call("append", ir.IRString("n"), ir.IRInt(2))
	assert.ErrorContains(t, err, "not a list")
}

func TestBuiltin_AssignAndCopyOption(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{Options: ir.IRObject{"radius": ir.IRInt(10)}})

	_, err := inst.Call("assign_options", ir.IRObject{"radius": ir.IRInt(25)})
	require.NoError(t, err)

	v, err := inst.Call("copy_option", ir.IRString("radius"), ir.IRString("_mRadius"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(25), v)

	_, err = inst.Call("copy_option", ir.IRString("missing"), ir.IRString("x"))
	assert.ErrorContains(t, err, `no option "missing"`)

	_, err = inst.Call("assign_options", ir.IRInt(3))
	assert.ErrorContains(t, err, "expected an object")

	_, err = inst.Call("assign_options")
	assert.NoError(t, err)
}

func TestBuiltin_Fail(t *testing.T) {
	inst := newBuiltinInstance(t, Descriptor{})

	_, err := inst.Call("fail", ir.IRString("container not found"))
	assert.EqualError(t, err, "container not found")

	_, err = inst.Call("fail")
	assert.EqualError(t, err, "fail")
}
