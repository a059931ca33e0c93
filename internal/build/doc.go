// Package build runs one snippet-expansion build over a documentation tree.
//
// A build discovers documents under the source root, renders them in parallel
// through a single build-scoped render.Cache, writes the results (unless it is
// a dry run), copies assets and records a manifest. Include failures never stop
// a build; whether they fail it is decided after every document is processed.
// Infrastructure failures (unreadable document, unwritable output) abort it.
package build
