package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typekit/internal/ir"
)

// writeScenario writes content to dir/name and returns the path.
func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/hooks_compose.yaml")
	require.NoError(t, err)

	assert.Equal(t, "hooks_compose", scenario.Name)
	assert.Equal(t, "m", scenario.IDPrefix)
	assert.Len(t, scenario.Steps, 8)
	assert.Len(t, scenario.Assertions, 5)

	require.NotNil(t, scenario.Steps[0].Derive)
	assert.Equal(t, "Base", scenario.Steps[0].Derive.Name)
	assert.Equal(t, map[string]string{"append": "append"}, scenario.Steps[0].Derive.Methods)

	require.NotNil(t, scenario.Steps[1].AddInitHook)
	assert.Equal(t, []any{"trace", "H1"}, scenario.Steps[1].AddInitHook.Args)
	assert.Equal(t, ActionAddInitHook, scenario.Steps[1].Action())
	assert.Equal(t, ActionNew, scenario.Steps[4].Action())
}

func TestLoadScenario_ResolvesCatalogRelativeToFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/catalog_shapes.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "shapes.cue"), scenario.Catalog)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "typo.yaml", `
name: typo
description: "misspelled step field"
steps:
  - derive: {name: Base, option: {radius: 1}}
assertions:
  - {type: static_absent, on: Base, key: X}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_MissingCatalog(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "cat.yaml", `
name: cat
description: "catalog does not exist"
catalog: missing.cue
steps:
  - new: {type: Path, as: p}
assertions:
  - {type: hook_count, instance: p, count: 0}
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog file not found")
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		return &Scenario{
			Name:        "s",
			Description: "d",
			Steps:       []Step{{Derive: &TypeDecl{Name: "Base"}}},
			Assertions:  []Assertion{{Type: AssertStaticAbsent, On: "Base", Key: "X"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *Scenario)
		wantErr string
	}{
		{"valid", func(*Scenario) {}, ""},
		{"missing name", func(s *Scenario) { s.Name = "" }, "name is required"},
		{"missing description", func(s *Scenario) { s.Description = "" }, "description is required"},
		{"no steps", func(s *Scenario) { s.Steps = nil }, "steps list is required"},
		{"no assertions", func(s *Scenario) { s.Assertions = nil }, "assertions list is required"},
		{"unnamed mixin", func(s *Scenario) { s.Mixins = []MixinDecl{{}} }, "mixins[0]: name is required"},
		{"empty step", func(s *Scenario) { s.Steps = []Step{{}} }, "steps[0]: an action is required"},
		{"two actions", func(s *Scenario) {
			s.Steps = []Step{{Derive: &TypeDecl{Name: "A"}, New: &NewStep{Type: "A", As: "a"}}}
		}, "exactly one action allowed"},
		{"derive without name", func(s *Scenario) { s.Steps = []Step{{Derive: &TypeDecl{}}} }, "derive: name is required"},
		{"derive hook without method", func(s *Scenario) {
			s.Steps = []Step{{Derive: &TypeDecl{Name: "A", Hooks: []HookDecl{{}}}}}
		}, "hooks[0]: method is required"},
		{"merge without options", func(s *Scenario) {
			s.Steps = []Step{{MergeOptions: &OptionsStep{Type: "A"}}}
		}, "merge_options: options is required"},
		{"set defaults without type", func(s *Scenario) {
			s.Steps = []Step{{SetDefaultOptions: &OptionsStep{Options: map[string]any{}}}}
		}, "set_default_options: type is required"},
		{"include without mixin", func(s *Scenario) {
			s.Steps = []Step{{Include: &IncludeStep{Type: "A"}}}
		}, "type and mixin are required"},
		{"hook without method", func(s *Scenario) {
			s.Steps = []Step{{AddInitHook: &HookStep{Type: "A"}}}
		}, "type and method are required"},
		{"new without alias", func(s *Scenario) {
			s.Steps = []Step{{New: &NewStep{Type: "A"}}}
		}, "type and as are required"},
		{"call hooks without instance", func(s *Scenario) {
			s.Steps = []Step{{CallInitHooks: &InstanceStep{}}}
		}, "call_init_hooks: instance is required"},
		{"set options without options", func(s *Scenario) {
			s.Steps = []Step{{SetOptions: &InstanceOptions{Instance: "a"}}}
		}, "instance and options are required"},
		{"assertion without type", func(s *Scenario) { s.Assertions = []Assertion{{}} }, "assertions[0]: type is required"},
		{"unknown assertion", func(s *Scenario) { s.Assertions = []Assertion{{Type: "trace_contains"}} }, `unknown assertion type "trace_contains"`},
		{"option on both targets", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertOptionEquals, On: "A", Instance: "a", Key: "k", Value: 1}}
		}, "exactly one of on or instance"},
		{"option without value", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertOptionEquals, On: "A", Key: "k"}}
		}, "key and value are required"},
		{"static without on", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertStaticEquals, Key: "k", Value: 1}}
		}, "on, key and value are required"},
		{"field without instance", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertFieldEquals, Key: "k", Value: 1}}
		}, "instance, key and value are required"},
		{"negative hook count", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertHookCount, Instance: "a", Count: -1}}
		}, "count must be non-negative"},
		{"is_a without type", func(s *Scenario) {
			s.Assertions = []Assertion{{Type: AssertIsA, Instance: "a"}}
		}, "instance and on are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := validateScenario(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTypeDecl_ToTypeSpec(t *testing.T) {
	decl := TypeDecl{
		Name:     "Circle",
		Extends:  "Path",
		Statics:  map[string]any{"KIND": "circle"},
		Includes: []string{"Evented"},
		Options:  map[string]any{"radius": 10, "nested": map[string]any{"on": true}},
		Methods:  map[string]string{"initialize": "assign_options"},
		Hooks: []HookDecl{
			{Method: "set", Args: []any{"_ready", true}},
			{Method: "noop"},
		},
	}

	spec, err := decl.ToTypeSpec()
	require.NoError(t, err)
	assert.Equal(t, ir.TypeSpec{
		Name:     "Circle",
		Extends:  "Path",
		Statics:  ir.IRObject{"KIND": ir.IRString("circle")},
		Includes: []string{"Evented"},
		Options: ir.IRObject{
			"radius": ir.IRInt(10),
			"nested": ir.IRObject{"on": ir.IRBool(true)},
		},
		Methods: map[string]string{"initialize": "assign_options"},
		Hooks: []ir.HookSpec{
			{Method: "set", Args: ir.IRArray{ir.IRString("_ready"), ir.IRBool(true)}},
			{Method: "noop"},
		},
	}, spec)
}

func TestTypeDecl_ToTypeSpec_RejectsFloats(t *testing.T) {
	_, err := TypeDecl{Name: "A", Options: map[string]any{"opacity": 0.5}}.ToTypeSpec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options")
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = TypeDecl{Name: "A", Hooks: []HookDecl{{Method: "set", Args: []any{"x", nil}}}}.ToTypeSpec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hooks[0]")
}

func TestMixinDecl_ToMixinSpec(t *testing.T) {
	spec, err := MixinDecl{
		Name:    "Evented",
		Fields:  map[string]any{"listeners": 0},
		Methods: map[string]string{"fire": "noop"},
	}.ToMixinSpec()
	require.NoError(t, err)
	assert.Equal(t, ir.MixinSpec{
		Name:    "Evented",
		Fields:  ir.IRObject{"listeners": ir.IRInt(0)},
		Methods: map[string]string{"fire": "noop"},
	}, spec)
}

func TestMixinDecl_ToMixinSpecOptions(t *testing.T) {
	spec, err := MixinDecl{Name: "Styled", Options: map[string]any{"color": "red"}}.ToMixinSpec()
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"color": ir.IRString("red")}, spec.Options)

	_, err = MixinDecl{Name: "Styled", Options: map[string]any{"w": 1.5}}.ToMixinSpec()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options")
}
