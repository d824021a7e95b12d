package render

import (
	"maps"

	"github.com/google/uuid"

	"github.com/roach88/dfexpr/internal/frame"
	"github.com/roach88/dfexpr/internal/ir"
)

// Context holds the memo tables of one render session.
//
// A Context is bound to the Graph it first renders and may not be reused with
// another. It is not safe for concurrent use; Derive a copy instead.
type Context struct {
	session    uuid.UUID
	generation int
	graph      *frame.Graph

	roots    map[ir.ViewID]ir.Expr
	resolved map[string]ir.Expr
	digests  map[ir.Expr]string

	// Per-handle memo. Nodes are immutable, so a View or Predicate renders
	// the same way every time within a session.
	views map[ir.ViewID]ir.Expr
	preds map[ir.PredicateID]ir.Expr
}

// NewContext creates an empty context with a fresh session id.
func NewContext() *Context {
	return &Context{
		session:  uuid.New(),
		roots:    make(map[ir.ViewID]ir.Expr),
		resolved: make(map[string]ir.Expr),
		digests:  make(map[ir.Expr]string),
		views:    make(map[ir.ViewID]ir.Expr),
		preds:    make(map[ir.PredicateID]ir.Expr),
	}
}

// Derive returns a child context that starts with copies of every table.
// Rendering in the child never changes c.
func (c *Context) Derive() *Context {
	return &Context{
		session:    c.session,
		generation: c.generation + 1,
		graph:      c.graph,
		roots:      maps.Clone(c.roots),
		resolved:   maps.Clone(c.resolved),
		digests:    maps.Clone(c.digests),
		views:      maps.Clone(c.views),
		preds:      maps.Clone(c.preds),
	}
}

// Session identifies the render session. Derived contexts share it.
func (c *Context) Session() uuid.UUID { return c.session }

// Generation counts how many Derive steps separate c from its session's
// first context.
func (c *Context) Generation() int { return c.generation }

// Len returns the number of distinct nodes interned so far.
func (c *Context) Len() int { return len(c.resolved) }

// Digest returns the content digest of a node this context produced.
func (c *Context) Digest(e ir.Expr) (string, bool) {
	d, ok := c.digests[e]
	return d, ok
}

// intern returns the canonical instance of e. Every child of e must already
// have been interned in c.
func (c *Context) intern(e ir.Expr) (ir.Expr, bool, error) {
	if d, ok := c.digests[e]; ok {
		return c.resolved[d], true, nil
	}
	kids := e.Children()
	childDigests := make([]string, len(kids))
	for i, k := range kids {
		d, ok := c.digests[k]
		if !ok {
			var err error
			if d, err = ir.Digest(k); err != nil {
				return nil, false, err
			}
		}
		childDigests[i] = d
	}
	d, err := ir.NodeDigest(e, childDigests)
	if err != nil {
		return nil, false, err
	}
	if prev, ok := c.resolved[d]; ok {
		return prev, true, nil
	}
	c.resolved[d] = e
	c.digests[e] = d
	return e, false, nil
}
