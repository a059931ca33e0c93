package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsnip/internal/config"
	dserrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
	"git.home.luguber.info/inful/docsnip/internal/metrics"
	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

type recordingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	outcomes []metrics.BuildOutcomeLabel
	results  map[metrics.ResultLabel]int
}

func (r *recordingRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingRecorder) IncDocumentResult(l metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[metrics.ResultLabel]int{}
	}
	r.results[l]++
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// fixture creates a source tree and returns a configuration building it into
// a sibling output directory.
func fixture(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	src := filepath.Join(base, "docs")

	write(t, src, "index.md", "# Home\n\n{{include: snippets/a.txt#2-3}}\n")
	write(t, src, "guide/setup.md", "---\ntitle: Setup\n---\n{{include: config/sample.json}}\n")
	write(t, src, "guide/reference.md", "See {{include: config/sample.json}}.\n")
	write(t, src, "snippets/a.txt", "L1\nL2\nL3\nL4")
	write(t, src, "config/sample.json", `{"a": 1}`)
	write(t, src, "img/logo.svg", "<svg/>")
	write(t, src, ".git/HEAD", "ref: refs/heads/main")
	write(t, src, ".hidden.md", "{{include: missing}}")

	cfg := config.Default()
	cfg.SourceRoot = src
	cfg.Output.Directory = filepath.Join(base, "site")
	cfg.Build.Workers = 4
	require.NoError(t, cfg.Normalize())
	require.NoError(t, cfg.Validate())
	return cfg
}

func newService(rec metrics.Recorder) *DefaultBuildService {
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewBuildService().
		WithRecorder(rec).
		WithClock(func() time.Time { return clock }).
		WithBuildIDGenerator(func() string { return "build-1" })
}

func TestRun_WritesDocumentsAssetsAndManifest(t *testing.T) {
	cfg := fixture(t)
	rec := &recordingRecorder{}

	res, err := newService(rec).Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.Equal(t, BuildStatusSuccess, res.Status)
	require.Equal(t, "build-1", res.BuildID)
	require.Len(t, res.Documents, 3)
	require.Empty(t, res.SnippetErrors())

	out := cfg.Output.Directory
	require.Equal(t, "# Home\n\n```text\nL2\nL3\n```\n", read(t, out, "index.md"))
	require.Equal(t, "---\ntitle: Setup\n---\n```json\n{\"a\": 1}\n```\n", read(t, out, "guide/setup.md"))
	require.Equal(t, "<svg/>", read(t, out, "img/logo.svg"))
	require.Equal(t, 3, res.AssetsCopied)
	require.NoFileExists(t, filepath.Join(out, ".hidden.md"))
	require.NoDirExists(t, filepath.Join(out, ".git"))

	// Both guide pages share one cache entry for config/sample.json.
	require.EqualValues(t, 2, res.Cache.Misses)
	require.EqualValues(t, 2, res.Cache.Entries)

	m, err := ReadManifest(filepath.Join(out, ManifestFileName))
	require.NoError(t, err)
	require.Equal(t, "build-1", m.BuildID)
	require.Equal(t, []string{"guide/reference.md", "guide/setup.md", "index.md"},
		[]string{m.Documents[0].Path, m.Documents[1].Path, m.Documents[2].Path})
	require.Equal(t, []ManifestSnippet{{
		Path: "snippets/a.txt", Start: 2, End: 3, Language: "text", Digest: res.Documents[2].Included[0].Digest,
	}}, m.Documents[2].Snippets)
	require.NotEmpty(t, m.Documents[0].Fingerprint)
	require.Equal(t, m.ComputeHash(), m.Hash)

	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildSuccess}, rec.outcomes)
	require.Equal(t, 3, rec.results[metrics.ResultSuccess])
}

func TestRun_LenientBuildReportsErrorsAndSucceeds(t *testing.T) {
	cfg := fixture(t)
	write(t, cfg.SourceRoot, "broken.md", "A\n{{include: nope.txt}}\n{{include: ../../etc/passwd}}\n")
	rec := &recordingRecorder{}

	res, err := newService(rec).Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.Equal(t, BuildStatusWarning, res.Status)

	errs := res.SnippetErrors()
	require.Len(t, errs, 2)
	require.Equal(t, snippet.KindNotFound, errs[0].Kind)
	require.Equal(t, "broken.md", errs[0].Document)
	require.Equal(t, 2, errs[0].Line)
	require.Equal(t, snippet.KindPathEscapesRoot, errs[1].Kind)

	out := read(t, cfg.Output.Directory, "broken.md")
	require.Contains(t, out, `data-kind="NotFound"`)
	require.Contains(t, out, `data-kind="PathEscapesRoot"`)
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildWarning}, rec.outcomes)
	require.Equal(t, 1, rec.results[metrics.ResultDegraded])

	m, err := ReadManifest(filepath.Join(cfg.Output.Directory, ManifestFileName))
	require.NoError(t, err)
	require.Len(t, m.Documents[0].Errors, 2)
	require.Equal(t, "NotFound", m.Documents[0].Errors[0].Kind)
}

func TestRun_StrictBuildFailsAfterWritingEverything(t *testing.T) {
	cfg := fixture(t)
	write(t, cfg.SourceRoot, "broken.md", "{{include: nope.txt}}\n")

	res, err := newService(nil).Run(context.Background(), BuildRequest{Config: cfg, Options: BuildOptions{Strict: true}})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSnippets))
	require.Equal(t, dserrors.CategoryRender, dserrors.GetCategory(err))
	require.Equal(t, BuildStatusFailed, res.Status)

	require.FileExists(t, filepath.Join(cfg.Output.Directory, "broken.md"))
	require.FileExists(t, filepath.Join(cfg.Output.Directory, "index.md"))
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	cfg := fixture(t)

	res, err := newService(nil).Run(context.Background(), BuildRequest{Config: cfg, Options: BuildOptions{DryRun: true, Strict: true}})
	require.NoError(t, err)
	require.Equal(t, BuildStatusSuccess, res.Status)
	require.NotNil(t, res.Manifest)
	require.NoDirExists(t, cfg.Output.Directory)
}

func TestRun_CleanRemovesStaleOutput(t *testing.T) {
	cfg := fixture(t)
	write(t, cfg.Output.Directory, "stale.md", "old")

	_, err := newService(nil).Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.NoFileExists(t, filepath.Join(cfg.Output.Directory, "stale.md"))

	cfg.Output.Clean = false
	write(t, cfg.Output.Directory, "kept.md", "old")
	_, err = newService(nil).Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(cfg.Output.Directory, "kept.md"))
}

func TestRun_ManifestHashStableAcrossBuilds(t *testing.T) {
	cfg := fixture(t)

	first, err := newService(nil).Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	second, err := NewBuildService().Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)

	require.NotEqual(t, first.BuildID, second.BuildID)
	require.Equal(t, first.Manifest.Hash, second.Manifest.Hash)
	require.Zero(t, ChangedDocuments(first.Manifest, second.Manifest))
}

func TestRun_Cancelled(t *testing.T) {
	cfg := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recordingRecorder{}

	res, err := newService(rec).Run(ctx, BuildRequest{Config: cfg, Options: BuildOptions{DryRun: true}})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, BuildStatusCancelled, res.Status)
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildCanceled}, rec.outcomes)
}

func TestRun_MissingSourceRoot(t *testing.T) {
	cfg := fixture(t)
	cfg.SourceRoot = filepath.Join(t.TempDir(), "absent")

	res, err := newService(nil).Run(context.Background(), BuildRequest{Config: cfg})
	require.Error(t, err)
	require.Equal(t, dserrors.CategoryFileSystem, dserrors.GetCategory(err))
	require.ErrorIs(t, err, ErrDiscovery)
	require.Equal(t, BuildStatusFailed, res.Status)
}

func TestRun_RequiresConfig(t *testing.T) {
	_, err := newService(nil).Run(context.Background(), BuildRequest{})
	require.Equal(t, dserrors.CategoryConfig, dserrors.GetCategory(err))
}

func TestRun_SharedSnippetReadOnce(t *testing.T) {
	cfg := fixture(t)
	for i := 0; i < 20; i++ {
		write(t, cfg.SourceRoot, filepath.Join("many", strings.Repeat("p", i+1)+".md"), "{{include: config/sample.json}}\n")
	}

	var mu sync.Mutex
	reads := map[string]int{}
	svc := newService(nil).WithResolverOptions(snippet.WithReadFile(func(p string) ([]byte, error) {
		mu.Lock()
		reads[filepath.Base(p)]++
		mu.Unlock()
		return os.ReadFile(p)
	}))

	_, err := svc.Run(context.Background(), BuildRequest{Config: cfg, Options: BuildOptions{DryRun: true, Concurrency: 8}})
	require.NoError(t, err)
	require.Equal(t, 1, reads["sample.json"])
}

func TestRun_HighlightFormatFromConfig(t *testing.T) {
	cfg := fixture(t)
	cfg.Render.Format = config.RenderFormatHighlight

	_, err := newService(nil).Run(context.Background(), BuildRequest{Config: cfg})
	require.NoError(t, err)
	out := read(t, cfg.Output.Directory, "index.md")
	require.Contains(t, out, "<pre")
	require.NotContains(t, out, "```")
}
