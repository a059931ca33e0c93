package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/inful/mdfp"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docsnip/internal/config"
	dserrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
	"git.home.luguber.info/inful/docsnip/internal/frontmatter"
	"git.home.luguber.info/inful/docsnip/internal/logfields"
	"git.home.luguber.info/inful/docsnip/internal/metrics"
	"git.home.luguber.info/inful/docsnip/internal/observability"
	"git.home.luguber.info/inful/docsnip/internal/render"
	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

// DefaultBuildService is the standard BuildService.
type DefaultBuildService struct {
	recorder    metrics.Recorder
	now         func() time.Time
	newBuildID  func() string
	resolverOps []snippet.Option
}

// NewBuildService creates a DefaultBuildService with a no-op recorder.
func NewBuildService() *DefaultBuildService {
	return &DefaultBuildService{
		recorder:   metrics.NoopRecorder{},
		now:        time.Now,
		newBuildID: uuid.NewString,
	}
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithClock replaces the time source (for tests).
func (s *DefaultBuildService) WithClock(now func() time.Time) *DefaultBuildService {
	s.now = now
	return s
}

// WithBuildIDGenerator replaces the build ID source (for tests).
func (s *DefaultBuildService) WithBuildIDGenerator(gen func() string) *DefaultBuildService {
	s.newBuildID = gen
	return s
}

// WithResolverOptions adds options to the snippet resolver of every build.
func (s *DefaultBuildService) WithResolverOptions(opts ...snippet.Option) *DefaultBuildService {
	s.resolverOps = append(s.resolverOps, opts...)
	return s
}

// Run executes one build.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	startTime := s.now()
	result := &BuildResult{BuildID: s.newBuildID(), StartTime: startTime}
	finish := func(status BuildStatus, outcome metrics.BuildOutcomeLabel) {
		result.Status = status
		result.EndTime = s.now()
		result.Duration = result.EndTime.Sub(startTime)
		s.recorder.IncBuildOutcome(outcome)
		s.recorder.ObserveBuildDuration(result.Duration)
	}

	if req.Config == nil {
		finish(BuildStatusFailed, metrics.BuildFailed)
		return result, dserrors.ConfigError("config required").Build()
	}
	cfg := req.Config
	result.SourceRoot = cfg.SourceRoot
	result.OutputPath = cfg.Output.Directory
	ctx = observability.WithBuildID(ctx, result.BuildID)

	format, err := render.ParseFormat(string(cfg.Render.Format))
	if err != nil {
		finish(BuildStatusFailed, metrics.BuildFailed)
		return result, dserrors.WrapError(err, dserrors.CategoryConfig, "invalid render format").Build()
	}

	// Stage 1: discovery
	dctx := observability.WithStage(ctx, "discover")
	inv, err := Discover(cfg.SourceRoot, cfg.Output.Directory, cfg.Render.Extensions)
	if err != nil {
		finish(BuildStatusFailed, metrics.BuildFailed)
		return result, dserrors.WrapError(err, dserrors.CategoryFileSystem, "document discovery failed").
			WithContext("source_root", cfg.SourceRoot).
			Build()
	}
	observability.InfoContext(dctx, "Discovered source files",
		logfields.SourceRoot(cfg.SourceRoot),
		slog.Int("documents", len(inv.Documents)),
		slog.Int("assets", len(inv.Assets)))

	var previous *Manifest
	if !req.Options.DryRun {
		previous = s.prepareOutput(dctx, cfg)
		if err := os.MkdirAll(cfg.Output.Directory, 0o755); err != nil {
			finish(BuildStatusFailed, metrics.BuildFailed)
			return result, dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to create output directory").
				WithContext("output", cfg.Output.Directory).
				Build()
		}
	}

	// Stage 2: render
	rctx := observability.WithStage(ctx, "render")
	resolverOps := append([]snippet.Option{snippet.WithLanguages(cfg.Render.Languages)}, s.resolverOps...)
	renderer := render.New(snippet.NewResolver(resolverOps...),
		render.WithFormat(format),
		render.WithHighlightStyle(cfg.Render.HighlightStyle),
		render.WithRecorder(s.recorder),
		render.WithLogger(observability.Logger(rctx, nil)))
	cache := render.NewCache()

	workers := cfg.Build.Workers
	if req.Options.Concurrency > 0 {
		workers = req.Options.Concurrency
	}
	reports, err := s.renderAll(rctx, renderer, cache, cfg, inv.Documents, workers, req.Options.DryRun)
	result.Documents = reports
	result.Cache = cache.Stats()
	s.recorder.SetCacheEntries(cache.Len())
	if err != nil {
		if ctx.Err() != nil {
			finish(BuildStatusCancelled, metrics.BuildCanceled)
			return result, ctx.Err()
		}
		finish(BuildStatusFailed, metrics.BuildFailed)
		return result, err
	}

	// Stage 3: assets and manifest
	if !req.Options.DryRun {
		actx := observability.WithStage(ctx, "write")
		if cfg.Output.CopyAssets {
			copied, err := copyAssets(actx, inv.Assets, cfg.Output.Directory)
			result.AssetsCopied = copied
			if err != nil {
				if ctx.Err() != nil {
					finish(BuildStatusCancelled, metrics.BuildCanceled)
					return result, ctx.Err()
				}
				finish(BuildStatusFailed, metrics.BuildFailed)
				return result, dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to copy assets").
					WithContext("output", cfg.Output.Directory).
					Build()
			}
		}
	}

	result.Manifest = NewManifest(result.BuildID, cfg.SourceRoot, startTime, reports)
	if !req.Options.DryRun && cfg.Output.Manifest {
		if err := WriteManifest(cfg.Output.Directory, result.Manifest); err != nil {
			finish(BuildStatusFailed, metrics.BuildFailed)
			return result, dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to write manifest").
				WithContext("output", cfg.Output.Directory).
				Build()
		}
	}
	if previous != nil {
		observability.InfoContext(ctx, "Compared with previous build",
			slog.Int("changed", ChangedDocuments(previous, result.Manifest)))
	}

	return s.conclude(ctx, req, result, finish)
}

// conclude applies the strict/lenient policy once every document is processed.
func (s *DefaultBuildService) conclude(ctx context.Context, req BuildRequest, result *BuildResult, finish func(BuildStatus, metrics.BuildOutcomeLabel)) (*BuildResult, error) {
	snippetErrs := result.SnippetErrors()
	strict := req.Options.Strict || req.Config.Build.Strict

	for _, e := range snippetErrs {
		attrs := []slog.Attr{
			logfields.Document(e.Document),
			logfields.Line(e.Line),
			logfields.ErrorKind(string(e.Kind)),
			slog.String("directive", e.Directive),
		}
		if strict {
			observability.ErrorContext(ctx, e.Message(), attrs...)
		} else {
			observability.WarnContext(ctx, e.Message(), attrs...)
		}
	}

	attrs := []slog.Attr{
		slog.Int("documents", len(result.Documents)),
		slog.Int("errors", len(snippetErrs)),
		slog.Int64("cache_hits", result.Cache.Hits),
		slog.Int64("cache_misses", result.Cache.Misses),
		logfields.DurationMS(float64(s.now().Sub(result.StartTime).Microseconds()) / 1000),
	}

	switch {
	case len(snippetErrs) == 0:
		finish(BuildStatusSuccess, metrics.BuildSuccess)
		observability.InfoContext(ctx, "Build completed", attrs...)
		return result, nil
	case strict:
		finish(BuildStatusFailed, metrics.BuildFailed)
		observability.ErrorContext(ctx, "Build failed: snippet includes could not be resolved", attrs...)
		return result, dserrors.WrapError(ErrSnippets, dserrors.CategoryRender,
			fmt.Sprintf("%d snippet include(s) failed", len(snippetErrs))).
			WithContext("errors", len(snippetErrs)).
			WithContext("first", snippetErrs[0].Error()).
			Build()
	default:
		finish(BuildStatusWarning, metrics.BuildWarning)
		observability.WarnContext(ctx, "Build completed with snippet errors", attrs...)
		return result, nil
	}
}

// prepareOutput reads the previous manifest and cleans the output directory
// when configured. Failures are logged; the build continues.
func (s *DefaultBuildService) prepareOutput(ctx context.Context, cfg *config.Config) *Manifest {
	previous, err := ReadManifest(filepath.Join(cfg.Output.Directory, ManifestFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.DebugContext(ctx, "Previous manifest unreadable", logfields.Error(err))
	}
	if cfg.Output.Clean {
		if err := os.RemoveAll(cfg.Output.Directory); err != nil {
			observability.WarnContext(ctx, "Failed to clean output directory",
				logfields.Output(cfg.Output.Directory), logfields.Error(err))
		}
	}
	return previous
}

// renderAll renders documents with at most workers in flight. Reports are
// index-aligned with docs.
func (s *DefaultBuildService) renderAll(ctx context.Context, renderer *render.Renderer, cache *render.Cache, cfg *config.Config, docs []SourceFile, workers int, dryRun bool) ([]DocumentReport, error) {
	reports := make([]DocumentReport, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))

	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rep, err := s.renderDocument(observability.WithDocument(gctx, doc.RelativePath), renderer, cache, cfg, doc, dryRun)
			reports[i] = rep
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

func (s *DefaultBuildService) renderDocument(ctx context.Context, renderer *render.Renderer, cache *render.Cache, cfg *config.Config, doc SourceFile, dryRun bool) (DocumentReport, error) {
	rep := DocumentReport{Path: doc.RelativePath}

	data, err := os.ReadFile(doc.Path)
	if err != nil {
		s.recorder.IncDocumentResult(metrics.ResultFailed)
		return rep, dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to read document").
			WithContext("document", doc.RelativePath).
			Build()
	}

	res := renderer.RenderDocument(doc.RelativePath, string(data), cfg.SourceRoot, cache)
	rep.Directives = res.Directives
	rep.Included = res.Included
	rep.Errors = res.Errors
	rep.Skipped = res.Skipped
	rep.Fingerprint = fingerprint([]byte(res.Output))

	if !dryRun {
		target := filepath.Join(cfg.Output.Directory, filepath.FromSlash(doc.RelativePath))
		if err := writeFile(target, []byte(res.Output)); err != nil {
			s.recorder.IncDocumentResult(metrics.ResultFailed)
			return rep, dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to write document").
				WithContext("document", doc.RelativePath).
				WithContext("output", target).
				Build()
		}
	}

	switch {
	case res.Skipped:
		s.recorder.IncDocumentResult(metrics.ResultSkipped)
	case len(res.Errors) > 0:
		s.recorder.IncDocumentResult(metrics.ResultDegraded)
	default:
		s.recorder.IncDocumentResult(metrics.ResultSuccess)
	}
	observability.DebugContext(ctx, "Rendered document",
		slog.Int("directives", res.Directives),
		slog.Int("included", len(res.Included)),
		slog.Int("errors", len(res.Errors)))
	return rep, nil
}

// fingerprint hashes a rendered document with mdfp, over its frontmatter and body.
func fingerprint(output []byte) string {
	// Invalid YAML still yields the block boundaries; the error is irrelevant here.
	doc, _ := frontmatter.Split(output)
	return mdfp.CalculateFingerprintFromParts(string(bytesTrimNewline(doc.Raw)), string(doc.Body))
}

func bytesTrimNewline(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\n' {
		return b[:n-1]
	}
	return b
}

// writeFile replaces path atomically: data goes to a hidden temp file in the
// same directory, which is then renamed over the target.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrWrite, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

func copyAssets(ctx context.Context, assets []SourceFile, outputDir string) (int, error) {
	copied := 0
	for _, a := range assets {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if err := copyFile(a.Path, filepath.Join(outputDir, filepath.FromSlash(a.RelativePath))); err != nil {
			return copied, err
		}
		copied++
	}
	observability.DebugContext(ctx, "Copied assets", logfields.Count(copied))
	return copied, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWrite, cerr)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("%w: copy %s: %w", ErrWrite, src, err)
	}
	return nil
}

// ChangedDocuments counts documents whose fingerprint differs from, or is
// missing in, the previous manifest.
func ChangedDocuments(previous, current *Manifest) int {
	if previous == nil {
		return len(current.Documents)
	}
	old := make(map[string]string, len(previous.Documents))
	for _, d := range previous.Documents {
		old[d.Path] = d.Fingerprint
	}
	changed := 0
	for _, d := range current.Documents {
		if fp, ok := old[d.Path]; !ok || fp != d.Fingerprint {
			changed++
		}
	}
	return changed
}
