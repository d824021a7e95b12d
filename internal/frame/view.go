package frame

import (
	"fmt"

	"github.com/Velocidex/ordereddict"

	"github.com/roach88/dfexpr/internal/ir"
)

// View is a lazy node in the builder graph: a derivation relative to an
// implicit parent, an optional filter, and a table of named overrides.
//
// A root view has no derivation. A filtered view has derivation
// RootRef(parent) and a non-nil filter; a root view never carries a filter
// itself.
type View struct {
	g          *Graph
	id         ir.ViewID
	derivation ir.Expr
	filter     *Predicate
	overrides  map[string]*override
}

// override is a named entry in a view's override table: either a cached
// resolution (computed false) or a user-defined computed column.
type override struct {
	view     *View
	fn       *Func
	computed bool

	// materialized caches the call view built for fn so repeated lookups
	// return the same handle.
	materialized *View
}

// ID returns the arena id of the view.
func (v *View) ID() ir.ViewID { return v.id }

// Graph returns the session that owns the view.
func (v *View) Graph() *Graph { return v.g }

// Derivation returns the expression computing this view from its parent, or
// nil for a root.
func (v *View) Derivation() ir.Expr { return v.derivation }

// Filter returns the view's filter predicate, or nil.
func (v *View) Filter() *Predicate { return v.filter }

// IsRoot reports whether the view is a fresh data source.
func (v *View) IsRoot() bool { return v.derivation == nil }

// PassThrough returns the parent of a view whose derivation is exactly a
// reference to that parent (filters and wrappers).
func (v *View) PassThrough() (*View, bool) {
	ref, ok := v.derivation.(*ir.RootRef)
	if !ok {
		return nil, false
	}
	return v.g.MustView(ref.View), true
}

// HasOverride reports whether name has an entry in the override table and
// whether that entry is a computed column.
func (v *View) HasOverride(name string) (present, computed bool) {
	o, ok := v.overrides[name]
	if !ok {
		return false, false
	}
	return true, o.computed
}

func (v *View) String() string {
	return fmt.Sprintf("view#%d", v.id)
}

// Field resolves a named column of the view. Repeated calls with the same
// name return the identical handle.
func (v *View) Field(name string) (*View, error) {
	return v.g.resolve(v, name)
}

// Binary builds v <op> rhs.
func (v *View) Binary(op ir.BinaryOperator, rhs any) (*View, error) {
	right, err := v.g.Term(rhs, v)
	if err != nil {
		return nil, err
	}
	return v.g.newView(&ir.BinaryOp{Op: op, Left: v.ref(), Right: right}, nil), nil
}

// Compare builds the predicate v <op> rhs.
func (v *View) Compare(op ir.CompareOperator, rhs any) (*Predicate, error) {
	right, err := v.g.Term(rhs, v)
	if err != nil {
		return nil, err
	}
	return v.g.newPredicate(&ir.Compare{Op: op, Left: v.ref(), Right: right}), nil
}

// Unary builds <op> v.
func (v *View) Unary(op ir.UnaryOperator) *View {
	return v.g.newView(&ir.UnaryOp{Op: op, Operand: v.ref()}, nil)
}

// Call turns a field access into a method call on the field's base:
// r.count becomes r.count(args...). kwargs may be nil.
func (v *View) Call(args []any, kwargs *ordereddict.Dict) (*View, error) {
	fa, ok := v.derivation.(*ir.FieldAccess)
	if !ok {
		return nil, &Error{
			Code:    ErrCodeNotCallable,
			Message: "only a field access can be called",
		}
	}
	var base *View
	if ref, ok := fa.Base.(*ir.RootRef); ok {
		base = v.g.MustView(ref.View)
	}
	call, err := v.g.buildCall(fa, args, kwargs, base, v)
	if err != nil {
		return nil, err
	}
	return v.g.newView(call, nil), nil
}

// Index selects key from the view. A string key is a field lookup.
func (v *View) Index(key any) (*View, error) {
	if name, ok := key.(string); ok {
		return v.Field(name)
	}
	k, err := v.g.Term(key, v)
	if err != nil {
		return nil, err
	}
	return v.g.newView(&ir.Index{Base: v.ref(), Key: k}, nil), nil
}

// FilterBy restricts the view.
//
// The argument is a Predicate, a View whose derivation is boolean-shaped and
// that carries no filter of its own, or a Func that is called with v and
// returns one of those. The result is a new view with derivation RootRef(v).
func (v *View) FilterBy(arg any) (*View, error) {
	var pred *Predicate
	switch a := arg.(type) {
	case *Predicate:
		if a.g != v.g {
			return nil, filterShapeError("predicate belongs to a different graph")
		}
		pred = a
	case *View:
		if a.g != v.g {
			return nil, filterShapeError("view belongs to a different graph")
		}
		if a.filter != nil {
			return nil, filterShapeError("a filter view may not carry its own filter")
		}
		if a.derivation == nil || !predicateShaped(a.derivation) {
			return nil, filterShapeError("filter view is not boolean-valued")
		}
		pred = v.g.newPredicate(a.derivation)
	case *Func:
		out, err := a.Invoke(v)
		if err != nil {
			return nil, fmt.Errorf("filter function %s: %w", a.name, err)
		}
		switch out.(type) {
		case *View, *Predicate:
			return v.FilterBy(out)
		}
		return nil, filterShapeError(fmt.Sprintf("filter function %s did not return a View or Predicate", a.name))
	default:
		return nil, filterShapeError(fmt.Sprintf("cannot filter by a %T", arg))
	}
	return v.g.newView(v.ref(), pred), nil
}

// SetOverride defines a computed column on the view. value is a *View or a
// one-parameter *Func that receives the view the column is resolved on.
//
// A name that already resolved to a plain field may not be redefined.
// Redefining a computed column replaces it with a warning.
func (v *View) SetOverride(name string, value any) error {
	if name == "" {
		return &Error{Code: ErrCodeInvalidName, Message: "column name may not be empty"}
	}
	if o, ok := v.overrides[name]; ok {
		if !o.computed {
			return &Error{
				Code:    ErrCodeColumnRedefinition,
				Message: "column already resolved and may not be redefined",
				Name:    name,
			}
		}
		v.g.logger.Warn("redefining computed column", "name", name, "view", v.id)
	}

	switch val := value.(type) {
	case *View:
		if val.g != v.g {
			return &Error{Code: ErrCodeTermKind, Message: "view belongs to a different graph", Name: name}
		}
		v.overrides[name] = &override{view: val, computed: true}
	case *Func:
		if val.arity != 1 {
			return NewArityError(val.name, val.arity, 1)
		}
		v.overrides[name] = &override{fn: val, computed: true}
	default:
		err := termKindError(value, "a column definition")
		err.Name = name
		return err
	}
	return nil
}

func (v *View) ref() *ir.RootRef {
	return &ir.RootRef{View: v.id}
}
