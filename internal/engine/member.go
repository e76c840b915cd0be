package engine

import "github.com/roach88/typekit/internal/ir"

// Member is a sealed interface over instance behavior entries: a Method or
// a Field value. Members live in a Type's instance template.
type Member interface {
	member()
}

// Method is callable instance behavior. self is the receiving instance.
type Method func(self *Instance, args ...ir.IRValue) (ir.IRValue, error)

func (Method) member() {}

// Field is a data member shared through the template until an instance
// sets its own value with Instance.Set.
type Field struct {
	Value ir.IRValue
}

func (Field) member() {}

// Members is a named behavior set: the body of a descriptor or a mixin.
type Members map[string]Member

// Mixin is a reusable behavior set for Descriptor.Includes and
// Type.Include. Options, when non-nil, are default configuration the mixin
// contributes ahead of the including descriptor's own.
type Mixin struct {
	Members Members
	Options ir.IRObject
}

// FieldsOf wraps every value of obj as a Field member.
func FieldsOf(obj ir.IRObject) Members {
	m := make(Members, len(obj))
	for k, v := range obj {
		m[k] = Field{Value: v}
	}
	return m
}

// merge copies src into m, last write wins.
func (m Members) merge(src Members) {
	for name, mem := range src {
		m[name] = mem
	}
}
