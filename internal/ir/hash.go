package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainExpr = "dfexpr/expr/v1"
	DomainPlan = "dfexpr/plan/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// header returns the canonical description of a single node, without its
// children.
func header(e Expr) map[string]any {
	h := map[string]any{"kind": string(e.Kind())}
	switch n := e.(type) {
	case *Literal:
		h["type"] = scalarType(n.Value)
		if s, ok := n.Value.(String); ok {
			h["value"] = string(s)
		} else {
			h["value"] = n.Value.String()
		}
	case *FieldAccess:
		h["name"] = n.Name
	case *BinaryOp:
		h["op"] = string(n.Op)
	case *Compare:
		h["op"] = string(n.Op)
	case *BoolOp:
		h["op"] = string(n.Op)
	case *UnaryOp:
		h["op"] = string(n.Op)
	case *Call:
		names := make([]string, len(n.Named))
		for i, na := range n.Named {
			names[i] = na.Name
		}
		h["named"] = names
	case *Sequence:
		h["list"] = n.List
	case *RootRef:
		h["view"] = int64(n.View)
	case *PredicateRef:
		h["predicate"] = int64(n.Predicate)
	case *CallableRef:
		h["func"] = int64(n.Func)
		h["name"] = n.Name
		h["arity"] = n.Arity
		h["capture"] = int64(n.Capture)
	case *FunctionPlaceholder:
		h["func"] = int64(n.Func)
		h["name"] = n.Name
		h["arity"] = n.Arity
	}
	return h
}

// NodeDigest computes the digest of e given the digests of its children, in
// Children order. This is a Merkle construction: callers that already hold
// child digests (such as the renderer's hash-consing table) digest a node in
// time proportional to its own size.
func NodeDigest(e Expr, children []string) (string, error) {
	h := header(e)
	h["children"] = children
	canonical, err := MarshalCanonical(h)
	if err != nil {
		return "", fmt.Errorf("NodeDigest: failed to marshal %s: %w", e.Kind(), err)
	}
	return hashWithDomain(DomainExpr, canonical), nil
}

// Digest computes the content-addressed identity of an expression tree.
// Structurally identical trees have identical digests regardless of sharing.
func Digest(e Expr) (string, error) {
	kids := e.Children()
	digests := make([]string, len(kids))
	for i, c := range kids {
		d, err := Digest(c)
		if err != nil {
			return "", err
		}
		digests[i] = d
	}
	return NodeDigest(e, digests)
}

// MustDigest is like Digest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDigest(e Expr) string {
	d, err := Digest(e)
	if err != nil {
		panic(err)
	}
	return d
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	da, err := Digest(a)
	if err != nil {
		return false
	}
	db, err := Digest(b)
	if err != nil {
		return false
	}
	return da == db
}

// PlanID computes the identity of a stored plan: the render target name and
// the rendered expression digest, bound to the IR version that produced
// them. Two targets sharing one tree are distinct plans.
func PlanID(name, exprDigest string) string {
	h, err := MarshalCanonical([]any{IRVersion, name, exprDigest})
	if err != nil {
		panic(fmt.Sprintf("ir.PlanID: %v", err))
	}
	return hashWithDomain(DomainPlan, h)
}
