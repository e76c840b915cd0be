package engine

import "github.com/roach88/typekit/internal/ir"

// Options is a Type's default configuration: an own layer of values that
// falls back to the base Type's layer for keys it does not set.
//
// A layer object is created once per Type and never replaced by reference;
// MergeOptions and SetDefaultOptions only write into it. Writes never reach
// the parent layer.
type Options struct {
	own    ir.IRObject
	parent *Options
}

func newOptions(parent *Options, overlay ir.IRObject) *Options {
	own := make(ir.IRObject, len(overlay))
	own.Extend(overlay)
	return &Options{own: own, parent: parent}
}

// Get resolves key through the layer chain.
func (o *Options) Get(key string) (ir.IRValue, bool) {
	for l := o; l != nil; l = l.parent {
		if v, ok := l.own[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Own returns a copy of the keys set directly on this layer.
func (o *Options) Own() ir.IRObject {
	if o == nil {
		return nil
	}
	return o.own.Clone()
}

// Effective flattens the chain into a fresh object, nearest layer winning.
func (o *Options) Effective() ir.IRObject {
	var chain []*Options
	for l := o; l != nil; l = l.parent {
		chain = append(chain, l)
	}
	out := make(ir.IRObject)
	for i := len(chain) - 1; i >= 0; i-- {
		out.Extend(chain[i].own)
	}
	return out
}

func (o *Options) merge(partial ir.IRObject) {
	o.own.Extend(partial)
}

// reset makes this layer self-contained: it keeps its identity, absorbs the
// effective values plus extra, and stops consulting the parent.
func (o *Options) reset(extra ir.IRObject) {
	eff := o.Effective().Extend(extra)
	clear(o.own)
	o.own.Extend(eff)
	o.parent = nil
}
