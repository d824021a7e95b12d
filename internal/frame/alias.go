package frame

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/dfexpr/internal/ir"
)

// Generator produces the view an alias stands for, given the view the alias
// name was looked up on.
type Generator func(v *View) (*View, error)

// AliasRule is a single registered alias.
type AliasRule struct {
	// Pattern is the dotted path the looked-up view must sit at.
	// "" matches anywhere, "." matches only a root, a leading "." anchors
	// the path at the root and anything else matches a suffix of the lineage.
	Pattern string

	// Name is the column name the rule defines.
	Name string

	generate Generator
}

// AliasRegistry is the catalogue of alias rules consulted by the resolver.
//
// Lookup returns the first matching rule in registration order, skipping
// rules that are currently being expanded. That recursion guard lets a
// generator for "pt" read the underlying "pt" of the same view.
type AliasRegistry struct {
	rules map[string][]*AliasRule
	inUse []*AliasRule
}

// NewAliasRegistry creates an empty registry.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{rules: make(map[string][]*AliasRule)}
}

// Define registers an alias: when name is resolved on a view matching
// pattern, gen supplies the result.
//
// Aliases are applied as the graph is built, not when it is rendered, so a
// definition does not affect names already resolved.
func (r *AliasRegistry) Define(pattern, name string, gen Generator) (*AliasRule, error) {
	if name == "" {
		return nil, &Error{Code: ErrCodeInvalidName, Message: "alias name may not be empty"}
	}
	if gen == nil {
		return nil, &Error{Code: ErrCodeTermKind, Message: "alias needs a generator", Name: name}
	}
	rule := &AliasRule{Pattern: pattern, Name: name, generate: gen}
	r.rules[name] = append(r.rules[name], rule)
	return rule, nil
}

// Lookup returns the first rule for name whose pattern matches v and that is
// not being expanded right now, or nil.
func (r *AliasRegistry) Lookup(v *View, name string) *AliasRule {
	for _, rule := range r.rules[name] {
		if slices.Contains(r.inUse, rule) {
			continue
		}
		if MatchPattern(v, rule.Pattern) {
			return rule
		}
	}
	return nil
}

// Reset removes every rule. Intended for test isolation between sessions.
func (r *AliasRegistry) Reset() {
	r.rules = make(map[string][]*AliasRule)
	r.inUse = nil
}

// Len returns the number of registered rules.
func (r *AliasRegistry) Len() int {
	n := 0
	for _, rules := range r.rules {
		n += len(rules)
	}
	return n
}

// apply runs the rule's generator with the rule marked in use.
func (r *AliasRegistry) apply(rule *AliasRule, v *View) (*View, error) {
	r.inUse = append(r.inUse, rule)
	defer func() { r.inUse = r.inUse[:len(r.inUse)-1] }()

	out, err := rule.generate(v)
	if err != nil {
		return nil, fmt.Errorf("alias %q (%q): %w", rule.Name, rule.Pattern, err)
	}
	if out == nil {
		return nil, &Error{Code: ErrCodeTermKind, Message: "alias generator returned no view", Name: rule.Name}
	}
	return out, nil
}

// MatchPattern reports whether v sits at the dotted path pattern.
//
// The walk goes backward through the lineage: the last segment must equal
// the name of v's FieldAccess derivation, whose base must be a direct
// reference to the parent, and the remaining prefix must match that parent.
// A view whose derivation is not a plain field access never matches a
// non-wildcard pattern.
func MatchPattern(v *View, pattern string) bool {
	if pattern == "" {
		return true
	}
	if pattern == "." {
		return v.IsRoot()
	}

	fa, ok := v.derivation.(*ir.FieldAccess)
	if !ok {
		return false
	}
	ref, ok := fa.Base.(*ir.RootRef)
	if !ok {
		return false
	}

	cut := strings.LastIndexByte(pattern, '.')
	if pattern[cut+1:] != fa.Name {
		return false
	}
	prefix := pattern[:max(cut, 0)]
	if cut == 0 {
		prefix = "."
	}
	return MatchPattern(v.g.MustView(ref.View), prefix)
}

// FuncGenerator adapts a one-parameter Func to a Generator. The function
// must return a View.
func FuncGenerator(f *Func) Generator {
	return func(v *View) (*View, error) {
		out, err := f.Invoke(v)
		if err != nil {
			return nil, err
		}
		view, ok := out.(*View)
		if !ok {
			return nil, termKindError(out, "an alias result")
		}
		return view, nil
	}
}
