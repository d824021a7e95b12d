package frame

import (
	"log/slog"

	"github.com/roach88/dfexpr/internal/ir"
)

// DefaultMaxDepth bounds lineage walks in the resolver.
const DefaultMaxDepth = 4096

// Graph is a builder session: the arena that owns every View, Predicate and
// Func created through it.
type Graph struct {
	views    []*View
	preds    []*Predicate
	funcs    []*Func
	aliases  *AliasRegistry
	logger   *slog.Logger
	maxDepth int
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for builder warnings.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// WithAliases shares an alias registry with the graph. By default each
// graph gets its own empty registry.
func WithAliases(r *AliasRegistry) Option {
	return func(g *Graph) { g.aliases = r }
}

// WithMaxDepth bounds the lineage depth the resolver will walk.
func WithMaxDepth(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxDepth = n
		}
	}
}

// NewGraph creates an empty builder session.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.aliases == nil {
		g.aliases = NewAliasRegistry()
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Root creates a fresh data source.
func (g *Graph) Root() *View {
	return g.newView(nil, nil)
}

// Wrap creates a pass-through view over v. It renders exactly as v and is
// transparent to the resolver's ancestor walk.
func (g *Graph) Wrap(v *View) *View {
	return g.newView(&ir.RootRef{View: v.id}, nil)
}

// Aliases returns the registry consulted by this graph.
func (g *Graph) Aliases() *AliasRegistry {
	return g.aliases
}

// DefineAlias registers an alias rule on the graph's registry.
func (g *Graph) DefineAlias(pattern, name string, gen Generator) (*AliasRule, error) {
	return g.aliases.Define(pattern, name, gen)
}

// MaxDepth returns the configured lineage limit.
func (g *Graph) MaxDepth() int {
	return g.maxDepth
}

// View returns the view with the given id.
func (g *Graph) View(id ir.ViewID) (*View, bool) {
	if int(id) >= len(g.views) {
		return nil, false
	}
	return g.views[id], true
}

// Predicate returns the predicate with the given id.
func (g *Graph) Predicate(id ir.PredicateID) (*Predicate, bool) {
	if int(id) >= len(g.preds) {
		return nil, false
	}
	return g.preds[id], true
}

// Func returns the function with the given id.
func (g *Graph) Func(id ir.FuncID) (*Func, bool) {
	if int(id) >= len(g.funcs) {
		return nil, false
	}
	return g.funcs[id], true
}

// MustView is like View but panics with an UNKNOWN_SUBSTITUTION error when
// the id was never handed out by this graph.
func (g *Graph) MustView(id ir.ViewID) *View {
	v, ok := g.View(id)
	if !ok {
		unknownSubstitution("view", uint32(id))
	}
	return v
}

// MustPredicate is the Predicate counterpart of MustView.
func (g *Graph) MustPredicate(id ir.PredicateID) *Predicate {
	p, ok := g.Predicate(id)
	if !ok {
		unknownSubstitution("predicate", uint32(id))
	}
	return p
}

// MustFunc is the Func counterpart of MustView.
func (g *Graph) MustFunc(id ir.FuncID) *Func {
	f, ok := g.Func(id)
	if !ok {
		unknownSubstitution("function", uint32(id))
	}
	return f
}

func (g *Graph) newView(derivation ir.Expr, filter *Predicate) *View {
	v := &View{
		g:          g,
		id:         ir.ViewID(len(g.views)),
		derivation: derivation,
		filter:     filter,
		overrides:  make(map[string]*override),
	}
	g.views = append(g.views, v)
	return v
}

func (g *Graph) newPredicate(expr ir.Expr) *Predicate {
	p := &Predicate{
		g:    g,
		id:   ir.PredicateID(len(g.preds)),
		expr: expr,
	}
	g.preds = append(g.preds, p)
	return p
}
