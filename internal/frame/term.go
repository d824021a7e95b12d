package frame

import (
	"github.com/roach88/dfexpr/internal/ir"
)

// Tuple is a literal tuple operand. A []any operand is a list.
type Tuple []any

// Term converts an operand to an IR term.
//
// Conversion rules:
//   - integers, floats, strings, bools: Literal
//   - *View: RootRef
//   - *Predicate: PredicateRef
//   - *Func: CallableRef relative to capture, or FunctionPlaceholder when
//     capture is nil
//   - Tuple, []any: Sequence of converted elements
//
// Anything else is a TERM_KIND error, raised here rather than at render time.
func (g *Graph) Term(v any, capture *View) (ir.Expr, error) {
	switch val := v.(type) {
	case nil:
		return nil, termKindError(v, "an expression")
	case *View:
		if val.g != g {
			return nil, &Error{Code: ErrCodeTermKind, Message: "view belongs to a different graph"}
		}
		return &ir.RootRef{View: val.id}, nil
	case *Predicate:
		if val.g != g {
			return nil, &Error{Code: ErrCodeTermKind, Message: "predicate belongs to a different graph"}
		}
		return &ir.PredicateRef{Predicate: val.id}, nil
	case *Func:
		if val.g != g {
			return nil, &Error{Code: ErrCodeTermKind, Message: "function belongs to a different graph", Name: val.name}
		}
		if capture == nil {
			return val.placeholder(), nil
		}
		return val.ref(capture), nil
	case Tuple:
		return g.sequence([]any(val), false, capture)
	case []any:
		return g.sequence(val, true, capture)
	}

	if s, ok := ir.ScalarOf(v); ok {
		return ir.Lit(s), nil
	}
	return nil, termKindError(v, "an expression")
}

func (g *Graph) sequence(items []any, list bool, capture *View) (ir.Expr, error) {
	elems := make([]ir.Expr, len(items))
	for i, item := range items {
		e, err := g.Term(item, capture)
		if err != nil {
			return nil, err
		}
		elems[i] = e
	}
	return &ir.Sequence{List: list, Elements: elems}, nil
}
