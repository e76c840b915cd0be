package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typekit/internal/ir"
)

// recorder collects hook executions across instances.
type recorder struct {
	calls []string
}

func (r *recorder) hook(name string) InitFunc {
	return func(self *Instance) error {
		r.calls = append(r.calls, fmt.Sprintf("%s@%s", name, self.ID()))
		return nil
	}
}

// Hooks compose down the hierarchy without leaking sideways.
func TestInitHooks_ComposeWithoutLeakingToSiblings(t *testing.T) {
	reg := newTestRegistry("child-1", "sibling-1", "base-1")
	rec := &recorder{}

	base := reg.Root().Extend(Descriptor{Name: "Base"})
	base.AddInitHook(rec.hook("H1"))

	child := base.Extend(Descriptor{Name: "Child"})
	child.AddInitHook(rec.hook("H2"))

	_, err := child.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"H1@child-1", "H2@child-1"}, rec.calls)

	rec.calls = nil
	sibling := base.Extend(Descriptor{Name: "Sibling"})
	_, err = sibling.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"H1@sibling-1"}, rec.calls, "a sibling must not inherit hooks added to Child")

	rec.calls = nil
	_, err = base.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"H1@base-1"}, rec.calls, "the base must not see hooks added to Child")
}

func TestInitHooks_ChildWithoutOwnHooksNeverMutatesBase(t *testing.T) {
	reg := newTestRegistry()
	rec := &recorder{}

	base := reg.Root().Extend(Descriptor{Name: "Base"})
	child := base.Extend(Descriptor{Name: "Child"})

	// child has never registered a hook of its own; the append still stays local.
	child.AddInitHook(rec.hook("C"))

	assert.Empty(t, base.Hooks())
	assert.Len(t, child.Hooks(), 1)
}

func TestInitHooks_CopiedAtDerivation(t *testing.T) {
	reg := newTestRegistry("i1")
	rec := &recorder{}

	base := reg.Root().Extend(Descriptor{Name: "Base"})
	base.AddInitHook(rec.hook("early"))
	child := base.Extend(Descriptor{Name: "Child"})
	base.AddInitHook(rec.hook("late"))

	_, err := child.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"early@i1"}, rec.calls)
}

func TestAddInitHook_Chaining(t *testing.T) {
	reg := newTestRegistry()
	typ := reg.Root().Extend(Descriptor{})

	got := typ.AddInitHook(MethodName("noop")).AddInitHook(MethodName("set"), ir.IRString("x"), ir.IRInt(1))
	assert.Same(t, typ, got)

	hooks := typ.Hooks()
	require.Len(t, hooks, 2)
	assert.Equal(t, "noop()", hooks[0].Label())
	assert.Equal(t, `set("x",1)`, hooks[1].Label())

	name, args, ok := hooks[1].Method()
	require.True(t, ok)
	assert.Equal(t, "set", name)
	assert.Equal(t, ir.IRArray{ir.IRString("x"), ir.IRInt(1)}, args)
}

func TestAddInitHook_BoundArgsNotAliased(t *testing.T) {
	reg := newTestRegistry()
	typ := reg.Root().Extend(Descriptor{})

	args := []ir.IRValue{ir.IRString("a")}
	typ.AddInitHook(MethodName("noop"), args...)
	args[0] = ir.IRString("b")

	_, bound, _ := typ.Hooks()[0].Method()
	assert.Equal(t, ir.IRArray{ir.IRString("a")}, bound)
}

func TestCallInitHooks_Idempotent(t *testing.T) {
	reg := newTestRegistry("i1")
	count := 0
	typ := reg.Root().Extend(Descriptor{})
	typ.AddInitHook(InitFunc(func(*Instance) error {
		count++
		return nil
	}))

	inst, err := typ.New()
	require.NoError(t, err)
	require.True(t, inst.HooksRun())

	require.NoError(t, inst.CallInitHooks())
	require.NoError(t, inst.CallInitHooks())

	assert.Equal(t, 1, count)
	assert.Len(t, inst.HookRuns(), 1)
}

func TestCallInitHooks_CalledFromInitialize(t *testing.T) {
	// A constructor may run hooks early; New must not run them a second time.
	reg := newTestRegistry("i1")
	var order []string

	typ := reg.Root().Extend(Descriptor{Members: Members{
		InitializeMember: Method(func(self *Instance, _ ...ir.IRValue) (ir.IRValue, error) {
			order = append(order, "initialize:start")
			if err := self.CallInitHooks(); err != nil {
				return nil, err
			}
			order = append(order, "initialize:end")
			return nil, nil
		}),
	}})
	typ.AddInitHook(InitFunc(func(*Instance) error {
		order = append(order, "hook")
		return nil
	}))

	_, err := typ.New()
	require.NoError(t, err)
	assert.Equal(t, []string{"initialize:start", "hook", "initialize:end"}, order)
}

func TestCallInitHooks_FlagSetBeforeRunning(t *testing.T) {
	reg := newTestRegistry("i1")
	runs := 0
	typ := reg.Root().Extend(Descriptor{})
	typ.AddInitHook(InitFunc(func(self *Instance) error {
		runs++
		assert.True(t, self.HooksRun())
		return self.CallInitHooks()
	}))

	_, err := typ.New()
	require.NoError(t, err)
	assert.Equal(t, 1, runs)
}

func TestCallInitHooks_NoHooksIsNoop(t *testing.T) {
	reg := newTestRegistry("i1")
	typ := reg.Root().Extend(Descriptor{})

	inst, err := typ.New()
	require.NoError(t, err)
	assert.False(t, inst.HooksRun())
	assert.Empty(t, inst.HookRuns())
}

func TestNew_InitializeReceivesArgsBeforeHooks(t *testing.T) {
	reg := newTestRegistry("c1")
	circle := reg.Root().Extend(Descriptor{
		Name:    "Circle",
		Options: ir.IRObject{"radius": ir.IRInt(10)},
		Members: Members{
			InitializeMember: Builtins()["assign_options"],
			"copy_option":    Builtins()["copy_option"],
		},
	})
	circle.AddInitHook(MethodName("copy_option"), ir.IRString("radius"), ir.IRString("_mRadius"))

	inst, err := circle.New(ir.IRObject{"radius": ir.IRInt(200)})
	require.NoError(t, err)

	v, ok := inst.Get("_mRadius")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(200), v)

	v, _ = circle.DefaultOption("radius")
	assert.Equal(t, ir.IRInt(10), v, "instance options never write to type defaults")
}

func TestNew_DefaultRadiusWhenNotGiven(t *testing.T) {
	reg := newTestRegistry("c1")
	circle := reg.Root().Extend(Descriptor{
		Name:    "Circle",
		Options: ir.IRObject{"radius": ir.IRInt(10)},
		Members: Members{InitializeMember: Builtins()["assign_options"]},
	})

	inst, err := circle.New()
	require.NoError(t, err)
	v, ok := inst.Option("radius")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(10), v)
}

func TestNew_InitializeErrorIsFatal(t *testing.T) {
	reg := newTestRegistry("c1")
	boom := errors.New("radius cannot be negative")
	hookRan := false

	circle := reg.Root().Extend(Descriptor{Name: "Circle", Members: Members{
		InitializeMember: Method(func(*Instance, ...ir.IRValue) (ir.IRValue, error) {
			return nil, boom
		}),
	}})
	circle.AddInitHook(InitFunc(func(*Instance) error {
		hookRan = true
		return nil
	}))

	inst, err := circle.New()
	require.Error(t, err)
	assert.Nil(t, inst)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrCodeInitializeFailed, CodeOf(err))
	assert.False(t, hookRan)
}

func TestNew_InitializeFieldIsNotAMethod(t *testing.T) {
	reg := newTestRegistry("c1")
	typ := reg.Root().Extend(Descriptor{Members: Members{InitializeMember: Field{Value: ir.IRInt(1)}}})

	_, err := typ.New()
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotAMethod, CodeOf(err))
}

func TestNew_MissingHookMethodSurfacesAtConstruction(t *testing.T) {
	reg := newTestRegistry("m1")
	typ := reg.Root().Extend(Descriptor{Name: "Map"})

	// Registration never validates the name.
	typ.AddInitHook(MethodName("_initContainer"))

	_, err := typ.New()
	require.Error(t, err)
	assert.True(t, IsMissingMethod(err))
	assert.False(t, IsHookFailure(err))

	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "m1", re.Instance)
	assert.Equal(t, "_initContainer()", re.Hook)
	assert.Equal(t, "Map", re.Type)
}

func TestNew_HookNamingFieldIsLookupFailure(t *testing.T) {
	reg := newTestRegistry("m1")
	typ := reg.Root().Extend(Descriptor{Members: Members{"_zoom": Field{Value: ir.IRInt(3)}}})
	typ.AddInitHook(MethodName("_zoom"))

	_, err := typ.New()
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotAMethod, CodeOf(err))
	assert.True(t, IsMissingMethod(err))
}

func TestNew_HookErrorStopsRemainingHooks(t *testing.T) {
	reg := newTestRegistry("i1")
	rec := &recorder{}
	boom := errors.New("container not found")

	typ := reg.Root().Extend(Descriptor{Name: "Map"})
	typ.AddInitHook(rec.hook("first"))
	typ.AddInitHook(InitFunc(func(*Instance) error { return boom }))
	typ.AddInitHook(rec.hook("never"))

	_, err := typ.New()
	require.Error(t, err)
	assert.True(t, IsHookFailure(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first@i1"}, rec.calls)
}

func TestAddInitHook_NilFailsAtConstruction(t *testing.T) {
	tests := []struct {
		name string
		spec HookSpec
	}{
		{"nil spec", nil},
		{"nil InitFunc", InitFunc(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newTestRegistry("i1")
			rec := &recorder{}
			typ := reg.Root().Extend(Descriptor{Name: "Map"})

			require.NotPanics(t, func() { typ.AddInitHook(tt.spec) })
			typ.AddInitHook(rec.hook("never"))

			hooks := typ.Hooks()
			require.Len(t, hooks, 2)
			assert.Equal(t, "<nil>", hooks[0].Label())
			_, _, isMethod := hooks[0].Method()
			assert.False(t, isMethod)

			_, err := typ.New()
			require.Error(t, err)
			assert.True(t, IsHookFailure(err))
			assert.False(t, IsMissingMethod(err))
			var re *RuntimeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, "<nil>", re.Hook)
			assert.Contains(t, err.Error(), "nil init hook")
			assert.Empty(t, rec.calls)
		})
	}
}

func TestNewWithoutHooks(t *testing.T) {
	reg := newTestRegistry("i1")
	rec := &recorder{}
	typ := reg.Root().Extend(Descriptor{})
	typ.AddInitHook(rec.hook("H"))

	inst, err := typ.NewWithoutHooks()
	require.NoError(t, err)
	assert.False(t, inst.HooksRun())
	assert.Empty(t, rec.calls)

	require.NoError(t, inst.CallInitHooks())
	require.NoError(t, inst.CallInitHooks())
	assert.Equal(t, []string{"H@i1"}, rec.calls)
}

func TestHookRuns_StampedWithClock(t *testing.T) {
	clock := NewClockAt(100)
	reg := NewRegistry(WithClock(clock), WithIDGenerator(NewFixedGenerator("i1")))

	typ := reg.Root().Extend(Descriptor{Members: Members{"ready": Method(builtinNoop)}})
	typ.AddInitHook(MethodName("ready"))
	typ.AddInitHook(MethodName("set"), ir.IRString("x"), ir.IRBool(true))
	typ.Include(Mixin{Members: Members{"set": Builtins()["set"]}})

	inst, err := typ.New()
	require.NoError(t, err)

	assert.Equal(t, int64(101), inst.Seq())
	assert.Equal(t, []HookRun{
		{Ordinal: 0, Label: "ready()", Seq: 102},
		{Ordinal: 1, Label: `set("x",true)`, Seq: 103},
	}, inst.HookRuns())
}

func TestInstance_FieldsShadowTemplate(t *testing.T) {
	reg := newTestRegistry("a", "b")
	typ := reg.Root().Extend(Descriptor{Members: Members{"zoom": Field{Value: ir.IRInt(1)}}})

	a, err := typ.New()
	require.NoError(t, err)
	b, err := typ.New()
	require.NoError(t, err)

	a.Set("zoom", ir.IRInt(5))

	v, _ := a.Get("zoom")
	assert.Equal(t, ir.IRInt(5), v)
	v, _ = b.Get("zoom")
	assert.Equal(t, ir.IRInt(1), v)
	assert.Equal(t, ir.IRObject{"zoom": ir.IRInt(5)}, a.Fields())
	assert.Empty(t, b.Fields(), "an instance's own state starts empty")

	_, ok := a.Get("missing")
	assert.False(t, ok)
}

func TestInstance_CallMissing(t *testing.T) {
	reg := newTestRegistry("a")
	typ := reg.Root().Extend(Descriptor{Name: "Layer"})
	inst, err := typ.New()
	require.NoError(t, err)

	_, err = inst.Call("onAdd")
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingMethod, CodeOf(err))
	assert.Contains(t, err.Error(), "onAdd")
}

func TestInstance_OptionsSnapshot(t *testing.T) {
	reg := newTestRegistry("a")
	typ := reg.Root().Extend(Descriptor{Options: ir.IRObject{"weight": ir.IRInt(3)}})

	inst, err := typ.New()
	require.NoError(t, err)
	inst.SetOptions(ir.IRObject{"color": ir.IRString("red")})

	snapshot := inst.Options()
	typ.MergeOptions(ir.IRObject{"weight": ir.IRInt(8)})

	assert.Equal(t, ir.IRObject{"weight": ir.IRInt(3), "color": ir.IRString("red")}, snapshot)

	v, _ := inst.Option("weight")
	assert.Equal(t, ir.IRInt(8), v, "live lookups see the merge")
}

func TestInstance_IsA(t *testing.T) {
	reg := newTestRegistry("a")
	layer := reg.Root().Extend(Descriptor{Name: "Layer"})
	marker := layer.Extend(Descriptor{Name: "Marker"})

	inst, err := marker.New()
	require.NoError(t, err)
	assert.True(t, inst.IsA(layer))
	assert.True(t, inst.IsA(reg.Root()))
	assert.Same(t, marker, inst.Type())
}
