package metrics

import "time"

// ResultLabel enumerates per-document render outcomes.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultDegraded ResultLabel = "degraded" // rendered with at least one error placeholder
	ResultSkipped  ResultLabel = "skipped"  // disabled via frontmatter
	ResultFailed   ResultLabel = "failed"   // document could not be read or written
)

// BuildOutcomeLabel enumerates final build outcomes.
type BuildOutcomeLabel string

const (
	BuildSuccess  BuildOutcomeLabel = "success"
	BuildWarning  BuildOutcomeLabel = "warning"
	BuildFailed   BuildOutcomeLabel = "failed"
	BuildCanceled BuildOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for rendering and builds. Implementations
// must be safe for concurrent use.
type Recorder interface {
	ObserveRenderDuration(d time.Duration)
	IncDocumentResult(result ResultLabel)
	IncCacheLookup(hit bool)
	IncSnippetError(kind string)
	SetCacheEntries(n int)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRenderDuration(time.Duration) {}
func (NoopRecorder) IncDocumentResult(ResultLabel)       {}
func (NoopRecorder) IncCacheLookup(bool)                 {}
func (NoopRecorder) IncSnippetError(string)              {}
func (NoopRecorder) SetCacheEntries(int)                 {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)  {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)   {}
