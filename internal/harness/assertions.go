package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/typekit/internal/engine"
	"github.com/roach88/typekit/internal/ir"
)

// Assertion types.
const (
	AssertOptionEquals = "option_equals"
	AssertOptionAbsent = "option_absent"
	AssertStaticEquals = "static_equals"
	AssertStaticAbsent = "static_absent"
	AssertFieldEquals  = "field_equals"
	AssertHookOrder    = "hook_order"
	AssertHookCount    = "hook_count"
	AssertIsA          = "is_a"
)

// AssertionContext is the final state assertions are evaluated against.
type AssertionContext struct {
	Registry  *engine.Registry
	Instances map[string]*engine.Instance
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Target   string // The type or instance checked
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s on %s\n", e.Type, e.Target)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure, in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertOptionEquals:
		return assertOption(a, actx, true)
	case AssertOptionAbsent:
		return assertOption(a, actx, false)
	case AssertStaticEquals:
		return assertStatic(a, actx, true)
	case AssertStaticAbsent:
		return assertStatic(a, actx, false)
	case AssertFieldEquals:
		return assertField(a, actx)
	case AssertHookOrder:
		return assertHookOrder(a, actx)
	case AssertHookCount:
		return assertHookCount(a, actx)
	case AssertIsA:
		return assertIsA(a, actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOption checks an effective option on a type (its defaults) or an
// instance (overrides, then defaults).
func assertOption(a Assertion, actx *AssertionContext, present bool) error {
	var (
		got    ir.IRValue
		ok     bool
		target string
	)
	if a.Instance != "" {
		inst, err := actx.instance(a.Instance)
		if err != nil {
			return err
		}
		got, ok = inst.Option(a.Key)
		target = a.Instance
	} else {
		t, err := resolveType(actx.Registry, a.On)
		if err != nil {
			return err
		}
		got, ok = t.DefaultOption(a.Key)
		target = t.String()
	}
	return compareValue(a, target, "option", got, ok, present)
}

func assertStatic(a Assertion, actx *AssertionContext, present bool) error {
	t, err := resolveType(actx.Registry, a.On)
	if err != nil {
		return err
	}
	got, ok := t.Static(a.Key)
	return compareValue(a, t.String(), "static", got, ok, present)
}

// assertField resolves a field through the instance, then its template.
func assertField(a Assertion, actx *AssertionContext) error {
	inst, err := actx.instance(a.Instance)
	if err != nil {
		return err
	}
	got, ok := inst.Get(a.Key)
	return compareValue(a, a.Instance, "field", got, ok, true)
}

func compareValue(a Assertion, target, kind string, got ir.IRValue, ok, present bool) error {
	if !present {
		if ok {
			return &AssertionError{
				Type:     a.Type,
				Target:   target,
				Expected: fmt.Sprintf("no %s %q", kind, a.Key),
				Actual:   fmt.Sprintf("%s = %s", a.Key, describe(got)),
			}
		}
		return nil
	}

	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("value: %w", err)
	}
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Target:   target,
			Expected: fmt.Sprintf("%s = %s", a.Key, describe(want)),
			Actual:   fmt.Sprintf("no %s %q", kind, a.Key),
		}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Target:   target,
			Expected: fmt.Sprintf("%s = %s", a.Key, describe(want)),
			Actual:   fmt.Sprintf("%s = %s", a.Key, describe(got)),
		}
	}
	return nil
}

// assertHookOrder checks the exact sequence of hook labels run on an
// instance.
func assertHookOrder(a Assertion, actx *AssertionContext) error {
	inst, err := actx.instance(a.Instance)
	if err != nil {
		return err
	}
	got := hookLabels(inst)
	want := a.Hooks
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Target:   a.Instance,
			Expected: fmt.Sprintf("hooks %v", want),
			Actual:   fmt.Sprintf("hooks %v", got),
		}
	}
	return nil
}

func assertHookCount(a Assertion, actx *AssertionContext) error {
	inst, err := actx.instance(a.Instance)
	if err != nil {
		return err
	}
	if n := len(inst.HookRuns()); n != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Target:   a.Instance,
			Expected: fmt.Sprintf("%d hook run(s)", a.Count),
			Actual:   fmt.Sprintf("%d hook run(s): %v", n, hookLabels(inst)),
		}
	}
	return nil
}

func assertIsA(a Assertion, actx *AssertionContext) error {
	inst, err := actx.instance(a.Instance)
	if err != nil {
		return err
	}
	t, err := resolveType(actx.Registry, a.On)
	if err != nil {
		return err
	}
	if !inst.IsA(t) {
		return &AssertionError{
			Type:     a.Type,
			Target:   a.Instance,
			Expected: fmt.Sprintf("instance of %s", t),
			Actual:   fmt.Sprintf("instance of %s", inst.Type()),
		}
	}
	return nil
}

func (actx *AssertionContext) instance(alias string) (*engine.Instance, error) {
	inst, ok := actx.Instances[alias]
	if !ok {
		return nil, fmt.Errorf("unknown instance %q", alias)
	}
	return inst, nil
}

func hookLabels(inst *engine.Instance) []string {
	runs := inst.HookRuns()
	labels := make([]string, len(runs))
	for i, r := range runs {
		labels[i] = r.Label
	}
	return labels
}

// describe renders a value as canonical JSON for messages.
func describe(v ir.IRValue) string {
	if b, err := ir.MarshalCanonical(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
