// Package snippet resolves include references against a documentation source root.
//
// A Reference names a file relative to the source root, optionally narrowed to an
// inclusive 1-based line range and tagged with a language. The Resolver turns a
// Reference into a Resolved snippet or an *Error whose Kind tells the caller why
// the reference could not be satisfied. The Resolver never writes and keeps no
// state between calls; caching belongs to the renderer.
package snippet
