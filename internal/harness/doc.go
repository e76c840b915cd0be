// Package harness provides conformance testing for typekit type catalogs.
//
// A scenario declares engine operations step by step, runs them against a
// fresh registry and checks the final types and instances.
//
// # Scenario Format
//
//	name: hooks_compose
//	description: "Hooks added on a base reach derived types, not siblings"
//	catalog: shapes.cue          # optional, relative to the scenario file
//	id_prefix: m                 # instance IDs m-1, m-2, ...
//	mixins:
//	  - name: Evented
//	    fields: { listeners: 0 }
//	steps:
//	  - derive: { name: Base, hooks: [{method: append, args: [trace, H1]}], methods: {append: append} }
//	  - derive: { name: Child, extends: Base }
//	  - add_init_hook: { type: Child, method: append, args: [trace, H2] }
//	  - new: { type: Child, as: c }
//	  - new: { type: Missing, as: x }
//	    expect_error: UNKNOWN_TYPE
//	assertions:
//	  - type: hook_order
//	    instance: c
//	    hooks: ['append("trace","H1")', 'append("trace","H2")']
//
// Step actions: derive, merge_options, set_default_options, include,
// add_init_hook, new (optionally skip_hooks), call_init_hooks, set_options.
// A step with expect_error must fail with that runtime error code.
//
// # Assertion Types
//
//   - option_equals / option_absent: effective option on a type (on) or instance
//   - static_equals / static_absent: static registry entry of a type
//   - field_equals: field resolved through an instance
//   - hook_order: exact hook labels run on an instance
//   - hook_count: number of hook runs on an instance
//   - is_a: instance derives from a type
//
// # Deterministic Testing
//
// Every run uses testutil.DeterministicClock and
// testutil.SequentialIDGenerator, so traces are identical across runs and
// can be compared byte for byte against golden files.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/hooks.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err == nil && !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
