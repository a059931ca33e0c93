package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/docsnip/internal/config"
	"git.home.luguber.info/inful/docsnip/internal/render"
	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

// BuildService executes documentation builds. The CLI commands and the watcher
// are thin wrappers over it.
type BuildService interface {
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs of one build.
type BuildRequest struct {
	Config  *config.Config
	Options BuildOptions
}

// BuildOptions modifies build behavior relative to the configuration.
type BuildOptions struct {
	// DryRun renders every document but writes nothing.
	DryRun bool

	// Strict fails the build when any include fails, in addition to build.strict.
	Strict bool

	// Concurrency overrides build.workers when positive.
	Concurrency int
}

// DocumentReport is the outcome of one document.
type DocumentReport struct {
	// Path is slash-separated and relative to the source root.
	Path        string
	Fingerprint string
	Directives  int
	Included    []render.Included
	Errors      []*snippet.Error
	Skipped     bool
}

// BuildResult contains the outcome of a build.
type BuildResult struct {
	BuildID    string
	Status     BuildStatus
	SourceRoot string
	OutputPath string

	Documents    []DocumentReport
	AssetsCopied int
	Cache        render.CacheStats
	Manifest     *Manifest

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// SnippetErrors returns every include failure of the build in document order.
func (r *BuildResult) SnippetErrors() []*snippet.Error {
	var out []*snippet.Error
	for _, d := range r.Documents {
		out = append(out, d.Errors...)
	}
	return out
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	// BuildStatusSuccess indicates every include resolved.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusWarning indicates a lenient build completed with include failures.
	BuildStatusWarning BuildStatus = "warning"

	// BuildStatusFailed indicates an aborted build or a strict build with include failures.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the context was cancelled.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess reports whether output was produced and the build did not fail.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning
}
