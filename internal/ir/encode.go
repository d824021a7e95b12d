package ir

import "encoding/json"

// Encode converts an expression tree to nested maps suitable for JSON
// output: each node is its canonical header plus a "children" array.
func Encode(e Expr) map[string]any {
	out := header(e)
	kids := e.Children()
	if len(kids) > 0 {
		enc := make([]any, len(kids))
		for i, c := range kids {
			enc[i] = Encode(c)
		}
		out["children"] = enc
	}
	return out
}

// MarshalExpr returns the canonical JSON of an expression tree.
// NOTE: for hashing use Digest; this form is for storage and display.
func MarshalExpr(e Expr) ([]byte, error) {
	return MarshalCanonical(Encode(e))
}

// MarshalExprIndent returns indented, human-readable JSON of a tree.
func MarshalExprIndent(e Expr) ([]byte, error) {
	return json.MarshalIndent(Encode(e), "", "  ")
}
