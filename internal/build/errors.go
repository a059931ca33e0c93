package build

import "errors"

// Sentinel errors for the build stages. Callers wrap them with context and a
// classified error category.
var (
	ErrDiscovery = errors.New("docsnip: discovery error")
	ErrWrite     = errors.New("docsnip: write error")
	ErrSnippets  = errors.New("docsnip: snippet includes failed")
)
