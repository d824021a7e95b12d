package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	e := &FieldAccess{Base: &RootRef{View: 1}, Name: "jets"}

	assert.Equal(t, map[string]any{
		"kind": "field",
		"name": "jets",
		"children": []any{
			map[string]any{"kind": "root", "view": int64(1)},
		},
	}, Encode(e))
}

func TestMarshalExpr(t *testing.T) {
	e := &FieldAccess{Base: &RootRef{View: 1}, Name: "jets"}

	data, err := MarshalExpr(e)
	require.NoError(t, err)
	assert.Equal(t, `{"children":[{"kind":"root","view":1}],"kind":"field","name":"jets"}`, string(data))
}

func TestMarshalExpr_AllNodes(t *testing.T) {
	src := &RootRef{View: 1}
	jets := &FieldAccess{Base: src, Name: "jets"}
	e := &Sequence{List: true, Elements: []Expr{
		&Filter{Base: jets, Predicate: &PredicateRef{Predicate: 2}},
		&BoolOp{Op: BoolAnd, Operands: []Expr{&PredicateRef{Predicate: 1}, &UnaryOp{Op: UnaryNot, Operand: &PredicateRef{Predicate: 2}}}},
		&Call{Callee: &FunctionPlaceholder{Func: 1, Name: "DeltaR", Arity: 2}, Args: []Expr{jets, jets}},
		&Call{Callee: &CallableRef{Func: 2, Name: "twice", Arity: 1, Capture: 1}, Args: []Expr{jets}},
		&Call{Callee: &FieldAccess{Base: jets, Name: "count"}, Named: []NamedArg{{Name: "axis", Value: Lit(Int(1))}}},
		&Index{Base: jets, Key: Lit(Int(0))},
		&Compare{Op: CmpGe, Left: Lit(Float(1.5)), Right: Lit(Bool(true))},
		&BinaryOp{Op: OpPow, Left: Lit(String("x")), Right: Lit(Int(2))},
	}}

	data, err := MarshalExpr(e)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	again, err := MarshalExpr(e)
	require.NoError(t, err)
	assert.Equal(t, data, again)

	indented, err := MarshalExprIndent(e)
	require.NoError(t, err)
	assert.Contains(t, string(indented), "\n  ")
	assert.Contains(t, string(indented), `"name": "DeltaR"`)
}
