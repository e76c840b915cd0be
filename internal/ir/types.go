package ir

// Catalog is a compiled set of mixins and types.
// Types are ordered so that every base precedes the types extending it.
type Catalog struct {
	Mixins []MixinSpec `json:"mixins"`
	Types  []TypeSpec  `json:"types"`
}

// TypeSpec is the declarative form of a type derivation.
type TypeSpec struct {
	Name     string            `json:"name"`
	Extends  string            `json:"extends,omitempty"` // empty means the root type
	Statics  IRObject          `json:"statics,omitempty"`
	Includes []string          `json:"includes,omitempty"` // mixin names, applied in order
	Options  IRObject          `json:"options,omitempty"`
	Fields   IRObject          `json:"fields,omitempty"`
	Methods  map[string]string `json:"methods,omitempty"` // member name -> builtin name
	Hooks    []HookSpec        `json:"hooks,omitempty"`
}

// MixinSpec is a named, reusable behavior set.
type MixinSpec struct {
	Name    string            `json:"name"`
	Options IRObject          `json:"options,omitempty"`
	Fields  IRObject          `json:"fields,omitempty"`
	Methods map[string]string `json:"methods,omitempty"`
}

// HookSpec names a method resolved on the instance when hooks run,
// plus the arguments bound at registration.
type HookSpec struct {
	Method string  `json:"method"`
	Args   IRArray `json:"args,omitempty"`
}

// Type looks up a type spec by name.
func (c *Catalog) Type(name string) (TypeSpec, bool) {
	for _, t := range c.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeSpec{}, false
}

// Mixin looks up a mixin spec by name.
func (c *Catalog) Mixin(name string) (MixinSpec, bool) {
	for _, m := range c.Mixins {
		if m.Name == name {
			return m, true
		}
	}
	return MixinSpec{}, false
}

// toIR returns the canonical object form used for hashing.
func (s TypeSpec) toIR() IRObject {
	obj := IRObject{"name": IRString(s.Name)}
	if s.Extends != "" {
		obj["extends"] = IRString(s.Extends)
	}
	if len(s.Statics) > 0 {
		obj["statics"] = s.Statics
	}
	if len(s.Includes) > 0 {
		includes := make(IRArray, len(s.Includes))
		for i, name := range s.Includes {
			includes[i] = IRString(name)
		}
		obj["includes"] = includes
	}
	if len(s.Options) > 0 {
		obj["options"] = s.Options
	}
	if len(s.Fields) > 0 {
		obj["fields"] = s.Fields
	}
	if len(s.Methods) > 0 {
		obj["methods"] = stringMap(s.Methods)
	}
	if len(s.Hooks) > 0 {
		hooks := make(IRArray, len(s.Hooks))
		for i, h := range s.Hooks {
			hook := IRObject{"method": IRString(h.Method)}
			if len(h.Args) > 0 {
				hook["args"] = h.Args
			}
			hooks[i] = hook
		}
		obj["hooks"] = hooks
	}
	return obj
}

func (m MixinSpec) toIR() IRObject {
	obj := IRObject{"name": IRString(m.Name)}
	if len(m.Options) > 0 {
		obj["options"] = m.Options
	}
	if len(m.Fields) > 0 {
		obj["fields"] = m.Fields
	}
	if len(m.Methods) > 0 {
		obj["methods"] = stringMap(m.Methods)
	}
	return obj
}

func stringMap(m map[string]string) IRObject {
	obj := make(IRObject, len(m))
	for k, v := range m {
		obj[k] = IRString(v)
	}
	return obj
}
