package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typekit/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src, cue.Filename("catalog.cue"))
	require.NoError(t, v.Err())
	return v
}

func TestCompileCatalog_Basic(t *testing.T) {
	v := compileString(t, `
		mixin: Evented: {
			fields: {listeners: []}
			methods: {fire: "noop"}
		}

		type: Path: {
			includes: ["Evented"]
			statics: {KIND: "path"}
			options: {stroke: true, weight: 3, color: "#3388ff"}
			methods: {initialize: "assign_options"}
			hooks: [
				{method: "set", args: ["_ready", true]},
				"noop",
			]
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	require.Len(t, cat.Mixins, 1)
	assert.Equal(t, ir.MixinSpec{
		Name:    "Evented",
		Fields:  ir.IRObject{"listeners": ir.IRArray{}},
		Methods: map[string]string{"fire": "noop"},
	}, cat.Mixins[0])

	require.Len(t, cat.Types, 1)
	path := cat.Types[0]
	assert.Equal(t, "Path", path.Name)
	assert.Empty(t, path.Extends)
	assert.Equal(t, []string{"Evented"}, path.Includes)
	assert.Equal(t, ir.IRObject{"KIND": ir.IRString("path")}, path.Statics)
	assert.Equal(t, ir.IRObject{
		"stroke": ir.IRBool(true),
		"weight": ir.IRInt(3),
		"color":  ir.IRString("#3388ff"),
	}, path.Options)
	assert.Equal(t, map[string]string{"initialize": "assign_options"}, path.Methods)
	assert.Equal(t, []ir.HookSpec{
		{Method: "set", Args: ir.IRArray{ir.IRString("_ready"), ir.IRBool(true)}},
		{Method: "noop"},
	}, path.Hooks)
}

func TestCompileCatalog_OrdersBasesFirst(t *testing.T) {
	v := compileString(t, `
		type: Circle: {extends: "CircleMarker", options: {radius: 10}}
		type: CircleMarker: {extends: "Path"}
		type: Path: {}
		type: Marker: {}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	var names []string
	for _, ts := range cat.Types {
		names = append(names, ts.Name)
	}
	assert.Equal(t, []string{"Path", "Marker", "CircleMarker", "Circle"}, names)
}

func TestCompileCatalog_MixinOptions(t *testing.T) {
	v := compileString(t, `
		mixin: Styled: {
			options: {color: "red", weight: 2}
			methods: {restyle: "assign_options"}
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)
	require.Len(t, cat.Mixins, 1)
	assert.Equal(t, ir.MixinSpec{
		Name:    "Styled",
		Options: ir.IRObject{"color": ir.IRString("red"), "weight": ir.IRInt(2)},
		Methods: map[string]string{"restyle": "assign_options"},
	}, cat.Mixins[0])
}

func TestCompileCatalog_MixinOptionsMustBeStruct(t *testing.T) {
	v := compileString(t, `mixin: Styled: {options: [1, 2]}`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options must be a struct")
}

func TestCompileCatalog_NestedValues(t *testing.T) {
	v := compileString(t, `
		type: Map: {
			options: {
				crs: {code: "EPSG:3857", bounds: [[0, 0], [256, 256]]}
				zoomSnap: 1
			}
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	assert.Equal(t, ir.IRObject{
		"crs": ir.IRObject{
			"code":   ir.IRString("EPSG:3857"),
			"bounds": ir.IRArray{ir.IRArray{ir.IRInt(0), ir.IRInt(0)}, ir.IRArray{ir.IRInt(256), ir.IRInt(256)}},
		},
		"zoomSnap": ir.IRInt(1),
	}, cat.Types[0].Options)
}

func TestCompileCatalog_RejectsFloats(t *testing.T) {
	v := compileString(t, `
		type: Path: {options: {opacity: 0.5}}
	`)

	_, err := CompileCatalog(v)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "value", ce.Field)
	assert.Contains(t, ce.Message, "options.opacity")
	assert.Contains(t, ce.Message, "floats are not allowed")
	assert.True(t, ce.Pos.IsValid())
	assert.Equal(t, 2, ce.Pos.Line())
}

func TestCompileCatalog_RejectsNull(t *testing.T) {
	v := compileString(t, `type: Path: {statics: {X: null}}`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is not allowed")
}

func TestCompileCatalog_RejectsNonConcrete(t *testing.T) {
	v := compileString(t, `type: Path: {options: {weight: int}}`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value must be concrete")
}

func TestCompileCatalog_HookWithoutMethod(t *testing.T) {
	v := compileString(t, `type: Map: {hooks: [{args: [1]}]}`)

	_, err := CompileCatalog(v)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "hooks", ce.Field)
	assert.Contains(t, ce.Message, "hooks[0]: method is required")
}

func TestCompileCatalog_MethodsMustNameBuiltins(t *testing.T) {
	v := compileString(t, `type: Map: {methods: {initialize: 3}}`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "methods.initialize must name a builtin")
}

func TestCompileCatalog_Empty(t *testing.T) {
	v := compileString(t, `other: 1`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mixin or type declarations found")
}

func TestCompileCatalog_HashStableAcrossFieldOrder(t *testing.T) {
	a := compileString(t, `type: Path: {options: {weight: 3, stroke: true}}`)
	b := compileString(t, `type: Path: {options: {stroke: true, weight: 3}}`)

	catA, err := CompileCatalog(a)
	require.NoError(t, err)
	catB, err := CompileCatalog(b)
	require.NoError(t, err)

	assert.Equal(t, ir.MustCatalogHash(*catA), ir.MustCatalogHash(*catB))
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "extends", Message: "extends must be a string"}
	assert.Equal(t, "extends: extends must be a string", err.Error())
}
