// Package engine implements the typekit type composition engine.
//
// Every behavior-bearing type is a Type node in a Registry arena, derived
// from a base with Extend. There is no language-level inheritance: member
// lookup walks an explicit base chain.
//
// DECLARATIVE OPERATIONS:
//
//   - Extend(desc): derive a new Type (statics, mixins, options, members)
//   - MergeOptions(partial): merge into a Type's default configuration
//   - Include(mixin): merge shared behavior into a Type's template
//   - AddInitHook(spec, args...): register a one-time per-instance hook
//   - SetDefaultOptions(opts): flatten and replace a Type's defaults
//
// LIFECYCLE OPERATION:
//
//   - Instance.CallInitHooks: run the Type's hooks exactly once per instance
//
// PRECEDENCE RULES:
//
// Statics: first writer wins. Explicit descriptor statics are written before
// inherited ones, so an explicit static shadows an ancestor's of the same
// name, and nothing inherited ever overwrites it.
//
// Members: last writer wins. Mixins are merged in list order, then the
// descriptor's own members override them.
//
// Options: each Type owns its layer. A derived layer reads through to the
// base layer for keys it does not set; writing to it never reaches the base.
//
// Hooks: each derived Type receives a private copy of its base's hook list
// when it is derived. AddInitHook only ever appends to the receiving Type's
// own list, so a hook added to one subtype is never seen by its siblings or
// ancestors.
//
// FAILURE MODEL:
//
// Declaring never fails. A hook naming a member that does not exist is
// reported when an instance runs it, as a *RuntimeError returned by New.
//
// The engine is single-threaded and synchronous: no operation suspends,
// and all hooks complete before New returns.
package engine
