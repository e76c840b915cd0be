package engine

import (
	"fmt"
	"io"
	"log/slog"
)

// TypeID is a Type's stable index in its Registry's arena.
// The root type is always 0.
type TypeID int

// RootTypeID identifies the root of every registry.
const RootTypeID TypeID = 0

// RootTypeName is the display name of the root type.
const RootTypeName = "Class"

// Registry is the arena of Types. Every Type belongs to exactly one
// Registry and is reachable by TypeID; named Types are also indexed by name.
//
// A Registry is not safe for concurrent mutation. Declare types first, then
// instantiate.
type Registry struct {
	types  []*Type
	names  map[string]TypeID
	clock  Sequencer
	ids    IDGenerator
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for derivation and hook tracing.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the logical clock stamping instances and hook runs.
func WithClock(c Sequencer) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithIDGenerator sets the instance ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) {
		if g != nil {
			r.ids = g
		}
	}
}

// NewRegistry creates a registry holding only the root type.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		names:  make(map[string]TypeID),
		clock:  NewClock(),
		ids:    UUIDv7Generator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}

	root := &Type{
		id:      RootTypeID,
		name:    RootTypeName,
		reg:     r,
		members: make(Members),
		statics: nil,
	}
	r.types = append(r.types, root)
	return r
}

// Root returns the root type.
func (r *Registry) Root() *Type {
	return r.types[RootTypeID]
}

// Derive extends the type identified by base with desc.
// It fails only when base is not in this registry.
func (r *Registry) Derive(base TypeID, desc Descriptor) (*Type, error) {
	t, ok := r.Type(base)
	if !ok {
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownType,
			Message: fmt.Sprintf("no type with id %d", base),
		}
	}
	return t.Extend(desc), nil
}

// Type returns the type with the given ID.
func (r *Registry) Type(id TypeID) (*Type, bool) {
	if id < 0 || int(id) >= len(r.types) {
		return nil, false
	}
	return r.types[id], true
}

// Lookup returns the type registered under name. When several derivations
// used the same name, the latest one wins, matching reassignment of a
// global binding.
func (r *Registry) Lookup(name string) (*Type, bool) {
	id, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.types[id], true
}

// MustLookup is like Lookup but panics when name is unknown.
// Use only in tests or with names known to be declared.
func (r *Registry) MustLookup(name string) *Type {
	t, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("engine: unknown type %q", name))
	}
	return t
}

// Types returns every type in arena order, root first.
func (r *Registry) Types() []*Type {
	return append([]*Type(nil), r.types...)
}

// Clock returns the registry's logical clock.
func (r *Registry) Clock() Sequencer {
	return r.clock
}

// Logger returns the registry's logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

func (r *Registry) register(t *Type) {
	t.id = TypeID(len(r.types))
	r.types = append(r.types, t)
	if t.name != "" {
		r.names[t.name] = t.id
	}
}
