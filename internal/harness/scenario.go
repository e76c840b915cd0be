package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/typekit/internal/ir"
)

// Scenario is a declarative conformance test: a sequence of engine
// operations followed by assertions over the resulting types and instances.
type Scenario struct {
	// Name is the scenario identifier, also used for golden file names.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Catalog optionally names a CUE catalog file, relative to the scenario
	// file. Its mixins and types are built before the first step runs.
	Catalog string `yaml:"catalog,omitempty"`

	// IDPrefix seeds deterministic instance IDs ("<prefix>-1", ...).
	// Defaults to "inst".
	IDPrefix string `yaml:"id_prefix,omitempty"`

	// Mixins declared inline, available to derive and include steps.
	Mixins []MixinDecl `yaml:"mixins,omitempty"`

	// Steps run in order against a fresh registry.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after all steps have run.
	Assertions []Assertion `yaml:"assertions"`
}

// MixinDecl declares a named behavior set.
type MixinDecl struct {
	Name    string            `yaml:"name"`
	Options map[string]any    `yaml:"options,omitempty"`
	Fields  map[string]any    `yaml:"fields,omitempty"`
	Methods map[string]string `yaml:"methods,omitempty"`
}

// TypeDecl declares a derivation. Methods bind member names to builtins.
type TypeDecl struct {
	Name     string            `yaml:"name"`
	Extends  string            `yaml:"extends,omitempty"`
	Statics  map[string]any    `yaml:"statics,omitempty"`
	Includes []string          `yaml:"includes,omitempty"`
	Options  map[string]any    `yaml:"options,omitempty"`
	Fields   map[string]any    `yaml:"fields,omitempty"`
	Methods  map[string]string `yaml:"methods,omitempty"`
	Hooks    []HookDecl        `yaml:"hooks,omitempty"`
}

// HookDecl names a method and its bound arguments.
type HookDecl struct {
	Method string `yaml:"method"`
	Args   []any  `yaml:"args,omitempty"`
}

// Step is one engine operation. Exactly one action field is set.
type Step struct {
	Derive            *TypeDecl        `yaml:"derive,omitempty"`
	MergeOptions      *OptionsStep     `yaml:"merge_options,omitempty"`
	SetDefaultOptions *OptionsStep     `yaml:"set_default_options,omitempty"`
	Include           *IncludeStep     `yaml:"include,omitempty"`
	AddInitHook       *HookStep        `yaml:"add_init_hook,omitempty"`
	New               *NewStep         `yaml:"new,omitempty"`
	CallInitHooks     *InstanceStep    `yaml:"call_init_hooks,omitempty"`
	SetOptions        *InstanceOptions `yaml:"set_options,omitempty"`

	// ExpectError is the runtime error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// OptionsStep targets a type's default configuration.
type OptionsStep struct {
	Type    string         `yaml:"type"`
	Options map[string]any `yaml:"options"`
}

// IncludeStep merges a declared mixin into a type.
type IncludeStep struct {
	Type  string `yaml:"type"`
	Mixin string `yaml:"mixin"`
}

// HookStep appends a method hook to a type.
type HookStep struct {
	Type   string `yaml:"type"`
	Method string `yaml:"method"`
	Args   []any  `yaml:"args,omitempty"`
}

// NewStep constructs an instance and binds it to an alias.
type NewStep struct {
	Type      string `yaml:"type"`
	As        string `yaml:"as"`
	Args      []any  `yaml:"args,omitempty"`
	SkipHooks bool   `yaml:"skip_hooks,omitempty"`
}

// InstanceStep targets an aliased instance.
type InstanceStep struct {
	Instance string `yaml:"instance"`
}

// InstanceOptions overlays options onto an aliased instance.
type InstanceOptions struct {
	Instance string         `yaml:"instance"`
	Options  map[string]any `yaml:"options"`
}

// Assertion is a check against the final registry and instances.
type Assertion struct {
	Type string `yaml:"type"`

	// On names a type; Instance names an instance alias.
	On       string `yaml:"on,omitempty"`
	Instance string `yaml:"instance,omitempty"`

	Key   string   `yaml:"key,omitempty"`
	Value any      `yaml:"value,omitempty"`
	Hooks []string `yaml:"hooks,omitempty"`
	Count int      `yaml:"count,omitempty"`
}

// Step action names, as reported in traces and errors.
const (
	ActionDerive            = "derive"
	ActionMergeOptions      = "merge_options"
	ActionSetDefaultOptions = "set_default_options"
	ActionInclude           = "include"
	ActionAddInitHook       = "add_init_hook"
	ActionNew               = "new"
	ActionCallInitHooks     = "call_init_hooks"
	ActionSetOptions        = "set_options"
)

// Action returns the name of the step's action, or "" when none is set.
// A step with several actions reports the first in declaration order.
func (s Step) Action() string {
	if actions := s.actions(); len(actions) > 0 {
		return actions[0]
	}
	return ""
}

func (s Step) actions() []string {
	var out []string
	if s.Derive != nil {
		out = append(out, ActionDerive)
	}
	if s.MergeOptions != nil {
		out = append(out, ActionMergeOptions)
	}
	if s.SetDefaultOptions != nil {
		out = append(out, ActionSetDefaultOptions)
	}
	if s.Include != nil {
		out = append(out, ActionInclude)
	}
	if s.AddInitHook != nil {
		out = append(out, ActionAddInitHook)
	}
	if s.New != nil {
		out = append(out, ActionNew)
	}
	if s.CallInitHooks != nil {
		out = append(out, ActionCallInitHooks)
	}
	if s.SetOptions != nil {
		out = append(out, ActionSetOptions)
	}
	return out
}

// ToTypeSpec converts the declaration into compiled form.
func (d TypeDecl) ToTypeSpec() (ir.TypeSpec, error) {
	spec := ir.TypeSpec{
		Name:     d.Name,
		Extends:  d.Extends,
		Includes: d.Includes,
		Methods:  d.Methods,
	}

	var err error
	if spec.Statics, err = ir.ObjectFromAny(d.Statics); err != nil {
		return ir.TypeSpec{}, fmt.Errorf("statics: %w", err)
	}
	if spec.Options, err = ir.ObjectFromAny(d.Options); err != nil {
		return ir.TypeSpec{}, fmt.Errorf("options: %w", err)
	}
	if spec.Fields, err = ir.ObjectFromAny(d.Fields); err != nil {
		return ir.TypeSpec{}, fmt.Errorf("fields: %w", err)
	}
	for i, h := range d.Hooks {
		args, err := arrayFromAny(h.Args)
		if err != nil {
			return ir.TypeSpec{}, fmt.Errorf("hooks[%d]: %w", i, err)
		}
		spec.Hooks = append(spec.Hooks, ir.HookSpec{Method: h.Method, Args: args})
	}
	return spec, nil
}

// ToMixinSpec converts the declaration into compiled form.
func (d MixinDecl) ToMixinSpec() (ir.MixinSpec, error) {
	options, err := ir.ObjectFromAny(d.Options)
	if err != nil {
		return ir.MixinSpec{}, fmt.Errorf("options: %w", err)
	}
	fields, err := ir.ObjectFromAny(d.Fields)
	if err != nil {
		return ir.MixinSpec{}, fmt.Errorf("fields: %w", err)
	}
	return ir.MixinSpec{Name: d.Name, Options: options, Fields: fields, Methods: d.Methods}, nil
}

func arrayFromAny(values []any) (ir.IRArray, error) {
	if len(values) == 0 {
		return nil, nil
	}
	v, err := ir.FromAny(values)
	if err != nil {
		return nil, err
	}
	return v.(ir.IRArray), nil
}

// LoadScenario reads and validates a scenario file. The catalog path is
// resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath is LoadScenario with an explicit base directory
// for resolving the catalog path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Catalog != "" {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	for i, m := range s.Mixins {
		if m.Name == "" {
			return fmt.Errorf("mixins[%d]: name is required", i)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks that exactly one action is set and its required
// fields are present.
func validateStep(index int, s *Step) error {
	actions := s.actions()
	switch len(actions) {
	case 0:
		return fmt.Errorf("steps[%d]: an action is required", index)
	case 1:
	default:
		return fmt.Errorf("steps[%d]: exactly one action allowed, got %v", index, actions)
	}

	switch {
	case s.Derive != nil:
		if s.Derive.Name == "" {
			return fmt.Errorf("steps[%d].derive: name is required", index)
		}
		for j, h := range s.Derive.Hooks {
			if h.Method == "" {
				return fmt.Errorf("steps[%d].derive.hooks[%d]: method is required", index, j)
			}
		}
	case s.MergeOptions != nil:
		return requireTypeAndOptions(index, ActionMergeOptions, s.MergeOptions)
	case s.SetDefaultOptions != nil:
		return requireTypeAndOptions(index, ActionSetDefaultOptions, s.SetDefaultOptions)
	case s.Include != nil:
		if s.Include.Type == "" || s.Include.Mixin == "" {
			return fmt.Errorf("steps[%d].include: type and mixin are required", index)
		}
	case s.AddInitHook != nil:
		if s.AddInitHook.Type == "" || s.AddInitHook.Method == "" {
			return fmt.Errorf("steps[%d].add_init_hook: type and method are required", index)
		}
	case s.New != nil:
		if s.New.Type == "" || s.New.As == "" {
			return fmt.Errorf("steps[%d].new: type and as are required", index)
		}
	case s.CallInitHooks != nil:
		if s.CallInitHooks.Instance == "" {
			return fmt.Errorf("steps[%d].call_init_hooks: instance is required", index)
		}
	case s.SetOptions != nil:
		if s.SetOptions.Instance == "" || s.SetOptions.Options == nil {
			return fmt.Errorf("steps[%d].set_options: instance and options are required", index)
		}
	}
	return nil
}

func requireTypeAndOptions(index int, action string, s *OptionsStep) error {
	if s.Type == "" {
		return fmt.Errorf("steps[%d].%s: type is required", index, action)
	}
	if s.Options == nil {
		return fmt.Errorf("steps[%d].%s: options is required (use {} for none)", index, action)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOptionEquals:
		if (a.On == "") == (a.Instance == "") {
			return fmt.Errorf("assertions[%d]: exactly one of on or instance is required for %s", index, a.Type)
		}
		if a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: key and value are required for %s", index, a.Type)
		}
	case AssertOptionAbsent:
		if (a.On == "") == (a.Instance == "") {
			return fmt.Errorf("assertions[%d]: exactly one of on or instance is required for %s", index, a.Type)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for %s", index, a.Type)
		}
	case AssertStaticEquals:
		if a.On == "" || a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: on, key and value are required for %s", index, a.Type)
		}
	case AssertStaticAbsent:
		if a.On == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: on and key are required for %s", index, a.Type)
		}
	case AssertFieldEquals:
		if a.Instance == "" || a.Key == "" || a.Value == nil {
			return fmt.Errorf("assertions[%d]: instance, key and value are required for %s", index, a.Type)
		}
	case AssertHookOrder:
		if a.Instance == "" {
			return fmt.Errorf("assertions[%d]: instance is required for %s", index, a.Type)
		}
	case AssertHookCount:
		if a.Instance == "" {
			return fmt.Errorf("assertions[%d]: instance is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertIsA:
		if a.Instance == "" || a.On == "" {
			return fmt.Errorf("assertions[%d]: instance and on are required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
