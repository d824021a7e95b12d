// Package frame builds lazy descriptions of computations over an unnamed
// tabular source.
//
// A Graph is one builder session. It owns an arena of Views, Predicates and
// Funcs, each addressed by a small integer id, plus the AliasRegistry used
// while resolving names. Handles returned to callers are plain pointers into
// that arena; the IR stored inside them only ever refers to other nodes by id.
//
//	g := frame.NewGraph()
//	r := g.Root()
//	jets, _ := r.Field("jets")
//	pt, _ := jets.Field("pt")
//	ptgev, _ := pt.Binary(ir.OpDiv, 1000)
//	_ = jets.SetOverride("ptgev", ptgev)
//
//	eta, _ := jets.Field("eta")
//	central, _ := eta.Compare(ir.CmpLt, 2.4)
//	good, _ := jets.FilterBy(central)
//	goodGeV, _ := good.Field("ptgev") // pt/1000 evaluated on the filtered jets
//
// Views and Predicates never change after construction except for growth of
// a View's override table. Apparent replacement (re-rooting a computed column
// under a filter) always allocates new Views along the rewritten path and
// shares the rest.
//
// A Graph is not safe for concurrent use. Use one Graph per builder session.
package frame
