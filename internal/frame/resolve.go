package frame

import (
	"github.com/roach88/dfexpr/internal/ir"
)

// resolve looks up name on v.
//
// Resolution order:
//  1. An entry already in v's override table (identity-stable memo).
//  2. The first matching alias rule.
//  3. A computed column on a pass-through ancestor, re-rooted under the
//     filters crossed on the way up.
//  4. A plain field access.
//
// Whatever steps 2-4 produce is cached on v as a non-computed entry.
func (g *Graph) resolve(v *View, name string) (*View, error) {
	if name == "" {
		return nil, &Error{Code: ErrCodeInvalidName, Message: "column name may not be empty"}
	}
	if o, ok := v.overrides[name]; ok {
		return g.materialize(v, o), nil
	}

	var result *View
	if rule := g.aliases.Lookup(v, name); rule != nil {
		out, err := g.aliases.apply(rule, v)
		if err != nil {
			return nil, err
		}
		result = out
	}

	if result == nil {
		m, err := g.findComputedAncestor(v, name)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out, err := g.reroot(m.value, m.ancestor, m.filters)
			if err != nil {
				return nil, err
			}
			result = out
		}
	}

	if result == nil {
		result = g.newView(&ir.FieldAccess{Base: v.ref(), Name: name}, nil)
	}

	// A generator may already have cached a plain lookup of the same name
	// while it ran; the outer resolution wins.
	v.overrides[name] = &override{view: result}
	return result, nil
}

// materialize returns the view an override stands for on v. A function
// override becomes Call(CallableRef(fn, v), [RootRef(v)]), built once.
func (g *Graph) materialize(v *View, o *override) *View {
	if o.view != nil {
		return o.view
	}
	if o.materialized == nil {
		o.materialized = g.newView(&ir.Call{
			Callee: o.fn.ref(v),
			Args:   []ir.Expr{v.ref()},
		}, nil)
	}
	return o.materialized
}

type ancestorMatch struct {
	value    *View
	ancestor *View
	filters  []*Predicate
}

// findComputedAncestor walks up from v through pass-through views only,
// collecting their filters, until an ancestor defines name as a computed
// column. A derivation that transforms the data ends the walk without a match.
// Filters are returned leaf first.
func (g *Graph) findComputedAncestor(v *View, name string) (*ancestorMatch, error) {
	var filters []*Predicate
	p := v
	for depth := 0; ; depth++ {
		if depth > g.maxDepth {
			return nil, depthError(g.maxDepth)
		}
		if p.filter != nil {
			filters = append(filters, p.filter)
		}
		parent, ok := p.PassThrough()
		if !ok {
			return nil, nil
		}
		if o, ok := parent.overrides[name]; ok && o.computed {
			return &ancestorMatch{
				value:    g.materialize(parent, o),
				ancestor: parent,
				filters:  filters,
			}, nil
		}
		p = parent
	}
}

// reroot rewrites value so that every reference to ancestor instead refers
// to ancestor wrapped in filters, oldest filter innermost.
//
// Only views on a path from value to ancestor are copied; everything else is
// shared with the original lineage. If value never reaches ancestor it is
// returned unchanged.
func (g *Graph) reroot(value, ancestor *View, filters []*Predicate) (*View, error) {
	chain := ancestor
	for i := len(filters) - 1; i >= 0; i-- {
		chain = g.newView(chain.ref(), filters[i])
	}
	s := &substitution{
		g:       g,
		target:  ancestor,
		replace: chain,
		views:   make(map[ir.ViewID]*View),
		preds:   make(map[ir.PredicateID]*Predicate),
	}
	return s.view(value, 0)
}

// substitution is one re-rooting pass. The memo tables keep shared
// sub-lineages shared in the output.
type substitution struct {
	g       *Graph
	target  *View
	replace *View
	views   map[ir.ViewID]*View
	preds   map[ir.PredicateID]*Predicate
}

func (s *substitution) view(v *View, depth int) (*View, error) {
	if v == s.target {
		return s.replace, nil
	}
	if out, ok := s.views[v.id]; ok {
		return out, nil
	}
	if depth > s.g.maxDepth {
		return nil, depthError(s.g.maxDepth)
	}

	derivation, err := s.expr(v.derivation, depth)
	if err != nil {
		return nil, err
	}
	filter := v.filter
	if filter != nil {
		if filter, err = s.predicate(filter, depth); err != nil {
			return nil, err
		}
	}

	out := v
	if derivation != v.derivation || filter != v.filter {
		out = s.g.newView(derivation, filter)
		// User-defined columns travel with the copy; cached lookups do not,
		// since they point at the unsubstituted lineage.
		for name, o := range v.overrides {
			if o.computed {
				out.overrides[name] = &override{view: o.view, fn: o.fn, computed: true}
			}
		}
	}
	s.views[v.id] = out
	return out, nil
}

func (s *substitution) predicate(p *Predicate, depth int) (*Predicate, error) {
	if out, ok := s.preds[p.id]; ok {
		return out, nil
	}
	expr, err := s.expr(p.expr, depth)
	if err != nil {
		return nil, err
	}
	out := p
	if expr != p.expr {
		out = s.g.newPredicate(expr)
	}
	s.preds[p.id] = out
	return out, nil
}

func (s *substitution) expr(e ir.Expr, depth int) (ir.Expr, error) {
	if e == nil {
		return nil, nil
	}
	return ir.Rewrite(e, func(n ir.Expr) (ir.Expr, error) {
		switch ref := n.(type) {
		case *ir.RootRef:
			v, err := s.view(s.g.MustView(ref.View), depth+1)
			if err != nil || v.id == ref.View {
				return n, err
			}
			return v.ref(), nil
		case *ir.PredicateRef:
			p, err := s.predicate(s.g.MustPredicate(ref.Predicate), depth+1)
			if err != nil || p.id == ref.Predicate {
				return n, err
			}
			return &ir.PredicateRef{Predicate: p.id}, nil
		case *ir.CallableRef:
			v, err := s.view(s.g.MustView(ref.Capture), depth+1)
			if err != nil || v.id == ref.Capture {
				return n, err
			}
			return s.g.MustFunc(ref.Func).ref(v), nil
		}
		return n, nil
	})
}
