// Package render flattens a frame.Graph lineage into a deduplicated IR tree.
//
// A Renderer walks a View or Predicate, replacing every RootRef and
// PredicateRef that names a derived node with that node's rendered form.
// After rendering, RootRef only ever names a source view.
//
// Two memo tables live in a Context:
//
//   - roots maps each source view to its single RootRef leaf. Two distinct
//     sources never share a leaf even though they have no content.
//   - resolved maps the content digest of every produced node to the first
//     node produced with that digest (hash-consing). Structurally identical
//     subexpressions reached from different paths come back as the same
//     pointer, so consumers detect shared computation with ir.Same.
//
// Captured functions (CallableRef) are left in place by Render. RenderCallable
// invokes one and renders its result in a Context derived from the caller's:
// the derived Context starts with copies of both tables and never writes back.
package render
