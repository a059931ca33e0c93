// Package render expands include directives in documentation sources.
//
// A directive has the form
//
//	{{include: <path>[#<start>[-<end>]][:<language>]}}
//
// and is replaced by the referenced file region formatted as a fenced code block,
// an HTML fragment or highlighted HTML. Directives inside code spans, code blocks
// or YAML frontmatter are left alone; a backslash before the braces emits the
// directive literally.
//
// Render never aborts a document because of one broken reference. The directive
// is replaced by a visible error placeholder and the failure is returned to the
// caller, which decides whether the build fails.
package render
