package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/typekit/internal/compiler"
	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
	"github.com/roach88/typekit/internal/testutil"
)

// Harness is the scenario execution engine. It drives a real registry with
// a deterministic clock and sequential instance IDs.
type Harness struct {
	reg       *engine.Registry
	lib       engine.Library
	mixins    map[string]engine.Mixin
	instances map[string]*engine.Instance
	clock     *testutil.DeterministicClock
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh registry for isolation.
// Execution flow:
//  1. Build the catalog (if any) and the inline mixins
//  2. Execute steps in order, checking expect_error
//  3. Evaluate assertions against the final registry and instances
//
// A step failure is recorded in the result, not returned. The error return
// is reserved for scenarios that cannot be set up at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, nil)
}

// RunWithLogger is Run with engine and harness logging sent to logger.
// A nil logger discards.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	h, err := newHarness(scenario, logger)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(i, step, result)
	}

	actx := &AssertionContext{
		Registry:  h.reg,
		Instances: h.instances,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"events", len(result.Trace),
		"seq", h.clock.Current(),
	)
	return result, nil
}

func newHarness(s *Scenario, logger *slog.Logger) (*Harness, error) {
	h := &Harness{
		lib:       engine.Builtins(),
		mixins:    make(map[string]engine.Mixin),
		instances: make(map[string]*engine.Instance),
		clock:     testutil.NewDeterministicClock(),
		logger:    logger,
	}
	opts := []engine.Option{
		engine.WithClock(h.clock),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(s.IDPrefix)),
		engine.WithLogger(logger),
	}

	if s.Catalog == "" {
		h.reg = engine.NewRegistry(opts...)
	} else {
		cat, err := LoadCatalogFile(s.Catalog)
		if err != nil {
			return nil, err
		}
		if h.reg, err = engine.Build(cat, h.lib, opts...); err != nil {
			return nil, fmt.Errorf("failed to build catalog: %w", err)
		}
		for _, ms := range cat.Mixins {
			if err := h.addMixin(ms); err != nil {
				return nil, err
			}
		}
	}

	for _, decl := range s.Mixins {
		ms, err := decl.ToMixinSpec()
		if err != nil {
			return nil, fmt.Errorf("mixin %s: %w", decl.Name, err)
		}
		if err := h.addMixin(ms); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Harness) addMixin(ms ir.MixinSpec) error {
	m, err := engine.MixinFromSpec(ms, h.lib)
	if err != nil {
		return err
	}
	h.mixins[ms.Name] = m
	return nil
}

// LoadCatalogFile compiles and validates a single CUE catalog file.
func LoadCatalogFile(path string) (*ir.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	cat, err := compiler.CompileCatalog(v)
	if err != nil {
		return nil, fmt.Errorf("failed to compile catalog %s: %w", path, err)
	}
	if errs := compiler.Validate(cat, engine.Builtins().Names()); len(errs) > 0 {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, errs[0])
	}
	return cat, nil
}

// executeStep applies one step and reconciles the outcome with the step's
// expect_error clause.
func (h *Harness) executeStep(i int, step Step, result *Result) {
	action := step.Action()
	err := h.apply(i, step, result)
	code := string(engine.CodeOf(err))

	switch {
	case err != nil && step.ExpectError == "":
		result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, action, err))
	case err != nil && code != step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %v", i, action, step.ExpectError, err))
	case err == nil && step.ExpectError != "":
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, but the step succeeded", i, action, step.ExpectError))
	}

	if err != nil {
		ev := TraceEvent{Kind: EventError, Step: i, Action: action, Code: code}
		var re *engine.RuntimeError
		if errors.As(err, &re) {
			ev.Type = re.Type
			ev.Hook = re.Hook
		}
		result.add(ev)
		h.logger.Info("step failed", "step", i, "action", action, "code", code, "error", err)
		return
	}
	h.logger.Info("step completed", "step", i, "action", action)
}

func (h *Harness) apply(i int, step Step, result *Result) error {
	switch {
	case step.Derive != nil:
		spec, err := step.Derive.ToTypeSpec()
		if err != nil {
			return err
		}
		if spec.Extends == engine.RootTypeName {
			spec.Extends = ""
		}
		t, err := engine.DeriveFromSpec(h.reg, spec, h.mixins, h.lib)
		if err != nil {
			return err
		}
		result.add(TraceEvent{Kind: EventDerive, Step: i, Type: t.String(), Base: t.Base().String()})
		return nil

	case step.MergeOptions != nil:
		t, opts, err := h.typeAndOptions(step.MergeOptions)
		if err != nil {
			return err
		}
		t.MergeOptions(opts)
		return nil

	case step.SetDefaultOptions != nil:
		t, opts, err := h.typeAndOptions(step.SetDefaultOptions)
		if err != nil {
			return err
		}
		t.SetDefaultOptions(opts)
		return nil

	case step.Include != nil:
		t, err := h.lookupType(step.Include.Type)
		if err != nil {
			return err
		}
		m, ok := h.mixins[step.Include.Mixin]
		if !ok {
			return &engine.RuntimeError{
				Code:    engine.ErrCodeUnknownMixin,
				Message: fmt.Sprintf("mixin %q is not declared", step.Include.Mixin),
				Type:    t.String(),
			}
		}
		t.Include(m)
		return nil

	case step.AddInitHook != nil:
		t, err := h.lookupType(step.AddInitHook.Type)
		if err != nil {
			return err
		}
		args, err := arrayFromAny(step.AddInitHook.Args)
		if err != nil {
			return fmt.Errorf("args: %w", err)
		}
		t.AddInitHook(engine.MethodName(step.AddInitHook.Method), args...)
		return nil

	case step.New != nil:
		return h.newInstance(i, step.New, result)

	case step.CallInitHooks != nil:
		alias := step.CallInitHooks.Instance
		inst, err := h.lookupInstance(alias)
		if err != nil {
			return err
		}
		before := len(inst.HookRuns())
		err = inst.CallInitHooks()
		h.traceHooks(i, alias, inst, before, result)
		return err

	case step.SetOptions != nil:
		inst, err := h.lookupInstance(step.SetOptions.Instance)
		if err != nil {
			return err
		}
		opts, err := ir.ObjectFromAny(step.SetOptions.Options)
		if err != nil {
			return fmt.Errorf("options: %w", err)
		}
		inst.SetOptions(opts)
		return nil
	}
	return fmt.Errorf("step has no action")
}

func (h *Harness) newInstance(i int, step *NewStep, result *Result) error {
	t, err := h.lookupType(step.Type)
	if err != nil {
		return err
	}
	args, err := arrayFromAny(step.Args)
	if err != nil {
		return fmt.Errorf("args: %w", err)
	}

	var inst *engine.Instance
	if step.SkipHooks {
		inst, err = t.NewWithoutHooks(args...)
	} else {
		inst, err = t.New(args...)
	}
	if err != nil {
		return err
	}

	h.instances[step.As] = inst
	result.add(TraceEvent{
		Kind:     EventNew,
		Step:     i,
		Type:     t.String(),
		Alias:    step.As,
		Instance: inst.ID(),
		Options:  inst.Options(),
		Fields:   inst.Fields(),
		Seq:      inst.Seq(),
	})
	h.traceHooks(i, step.As, inst, 0, result)
	return nil
}

// traceHooks records the instance's hook runs from index from onwards.
func (h *Harness) traceHooks(i int, alias string, inst *engine.Instance, from int, result *Result) {
	runs := inst.HookRuns()
	for _, run := range runs[from:] {
		result.add(TraceEvent{
			Kind:     EventHook,
			Step:     i,
			Alias:    alias,
			Instance: inst.ID(),
			Hook:     run.Label,
			Ordinal:  run.Ordinal,
			Seq:      run.Seq,
		})
	}
}

func (h *Harness) typeAndOptions(step *OptionsStep) (*engine.Type, ir.IRObject, error) {
	t, err := h.lookupType(step.Type)
	if err != nil {
		return nil, nil, err
	}
	opts, err := ir.ObjectFromAny(step.Options)
	if err != nil {
		return nil, nil, fmt.Errorf("options: %w", err)
	}
	return t, opts, nil
}

func (h *Harness) lookupType(name string) (*engine.Type, error) {
	return resolveType(h.reg, name)
}

func (h *Harness) lookupInstance(alias string) (*engine.Instance, error) {
	inst, ok := h.instances[alias]
	if !ok {
		return nil, fmt.Errorf("unknown instance %q", alias)
	}
	return inst, nil
}

// resolveType looks a type up by name; the root answers to its display name.
func resolveType(reg *engine.Registry, name string) (*engine.Type, error) {
	if name == engine.RootTypeName {
		return reg.Root(), nil
	}
	t, ok := reg.Lookup(name)
	if !ok {
		return nil, &engine.RuntimeError{
			Code:    engine.ErrCodeUnknownType,
			Message: fmt.Sprintf("type %q is not declared", name),
		}
	}
	return t, nil
}
