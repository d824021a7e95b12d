// Package ir provides the canonical expression representation produced by
// flattening a lazy view graph.
//
// This package contains node definitions, canonical encoding and the visitor
// contract only. Every other internal package imports ir; ir imports nothing
// internal. This keeps the IR the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - Nodes are immutable once built. Rewrites copy the path from the changed
//     node to the root and share everything else (see Rewrite).
//   - Equality is structural: two nodes are interchangeable when their
//     canonical encodings (and therefore their digests) match.
//   - Identity matters to consumers: the renderer hash-conses its output, so
//     Same(a, b) on rendered trees reports shared computation.
//   - References back into the builder graph (RootRef, PredicateRef,
//     CallableRef, FunctionPlaceholder) carry arena ids, never pointers.
package ir
