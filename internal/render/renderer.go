package render

import (
	"errors"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsnip/internal/frontmatter"
	"git.home.luguber.info/inful/docsnip/internal/logfields"
	"git.home.luguber.info/inful/docsnip/internal/markdown"
	"git.home.luguber.info/inful/docsnip/internal/metrics"
	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

// DisableKey is the frontmatter field that turns expansion off for one page.
const DisableKey = "snippets"

// Renderer expands include directives. It holds no per-build state and is safe
// for concurrent use; the build-scoped Cache is passed to every call.
type Renderer struct {
	resolver       *snippet.Resolver
	format         Format
	highlightStyle string
	recorder       metrics.Recorder
	logger         *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

func WithFormat(f Format) Option { return func(r *Renderer) { r.format = f } }

func WithHighlightStyle(name string) Option {
	return func(r *Renderer) { r.highlightStyle = name }
}

func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Renderer) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Renderer that resolves references with resolver.
func New(resolver *snippet.Resolver, opts ...Option) *Renderer {
	if resolver == nil {
		resolver = snippet.NewResolver()
	}
	r := &Renderer{
		resolver:       resolver,
		format:         FormatMarkdown,
		highlightStyle: "github",
		recorder:       metrics.NoopRecorder{},
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Included records one distinct snippet substituted into a document.
type Included struct {
	Directive string
	Path      string
	Start     int
	End       int
	Language  string
	Digest    string
	Cached    bool
}

// Result is the outcome of rendering one document.
type Result struct {
	Output     string
	Errors     []*snippet.Error
	Included   []Included
	Directives int
	// Skipped is true when frontmatter disabled expansion.
	Skipped bool
}

// Render expands every include directive in documentText against sourceRoot and
// returns the substituted text with the errors of all failed directives.
func (r *Renderer) Render(documentText, sourceRoot string, cache *Cache) (string, []*snippet.Error) {
	res := r.RenderDocument("", documentText, sourceRoot, cache)
	return res.Output, res.Errors
}

type outcome struct {
	replacement string
	err         *snippet.Error
}

// RenderDocument is Render with a document name used for error locations, and
// with the included snippets reported for the build manifest.
func (r *Renderer) RenderDocument(name, documentText, sourceRoot string, cache *Cache) Result {
	started := time.Now()
	defer func() { r.recorder.ObserveRenderDuration(time.Since(started)) }()

	if cache == nil {
		cache = NewCache()
	}
	src := []byte(documentText)

	// A delimited block whose YAML is invalid is still skipped; an unterminated
	// one leaves the whole text as body.
	doc, err := frontmatter.Split(src)
	if err != nil {
		r.logger.Debug("Frontmatter not parsed", logfields.Document(name), logfields.Error(err))
	}
	if !doc.Bool(DisableKey, true) {
		return Result{Output: documentText, Skipped: true}
	}

	directives := findDirectives(src, doc.Body, doc.BodyOffset)
	if len(directives) == 0 {
		return Result{Output: documentText}
	}

	res := Result{Directives: len(directives)}
	seen := make(map[string]outcome, len(directives))
	edits := make([]markdown.Edit, 0, len(directives))

	for _, d := range directives {
		if d.Escaped {
			// Drop the backslash, keep the directive text.
			edits = append(edits, markdown.Edit{Start: d.Start, End: d.Start + 1})
			continue
		}

		key := trimBody(d.Body)
		out, ok := seen[key]
		if !ok {
			var inc *Included
			out, inc = r.resolveOne(d.Body, sourceRoot, cache)
			seen[key] = out
			if inc != nil {
				res.Included = append(res.Included, *inc)
			}
		}

		replacement := out.replacement
		from, to := d.Start, d.End
		if out.err != nil {
			located := out.err.At(name, d.Line, d.Column)
			res.Errors = append(res.Errors, located)
			r.recorder.IncSnippetError(string(located.Kind))
			r.logger.Debug("Include failed",
				logfields.Document(name),
				logfields.Line(d.Line),
				logfields.ErrorKind(string(located.Kind)),
				logfields.Error(located))
		} else {
			// Placeholders stay inline; included blocks get lines of their own.
			replacement = d.layout(replacement)
			from, to = d.From, d.To
		}
		edits = append(edits, markdown.Edit{Start: from, End: to, Replacement: []byte(replacement)})
	}

	output, err := markdown.ApplyEdits(src, edits)
	if err != nil {
		// Directive matches never overlap; treat a failure here as a bug and keep the input.
		r.logger.Error("Applying include edits failed", logfields.Document(name), logfields.Error(err))
		res.Output = documentText
		return res
	}
	res.Output = string(output)
	return res
}

func (r *Renderer) resolveOne(body, sourceRoot string, cache *Cache) (outcome, *Included) {
	ref, err := snippet.ParseReference(body)
	if err != nil {
		serr := &snippet.Error{Kind: snippet.KindInvalidDirective, Directive: trimBody(body), Err: err}
		return outcome{replacement: placeholder(serr), err: serr}, nil
	}

	path, modTime, serr := r.resolver.Stat(ref, sourceRoot)
	if serr != nil {
		return outcome{replacement: placeholder(serr), err: serr}, nil
	}

	key := Key{Path: path, Start: ref.Start, End: ref.End, ModTime: modTime.UnixNano()}
	resolved, hit, serr := cache.Load(key, func() (*snippet.Resolved, *snippet.Error) {
		return r.resolver.Resolve(ref, sourceRoot)
	})
	r.recorder.IncCacheLookup(hit)
	if serr != nil {
		// The error may be shared with another document through the cache.
		own := *serr
		own.Directive = ref.Raw
		return outcome{replacement: placeholder(&own), err: &own}, nil
	}

	// Cache entries are shared across references that differ only in their
	// language hint, so the language is decided per reference.
	language := r.resolver.Language(ref, path)
	text, ferr := r.formatSnippet(language, resolved)
	if ferr != nil {
		serr := &snippet.Error{Kind: snippet.KindReadFailure, Directive: ref.Raw, Path: path, Err: ferr}
		return outcome{replacement: placeholder(serr), err: serr}, nil
	}

	return outcome{replacement: text}, &Included{
		Directive: ref.Raw,
		Path:      resolved.AbsolutePath,
		Start:     ref.Start,
		End:       ref.End,
		Language:  language,
		Digest:    resolved.Digest,
		Cached:    hit,
	}
}

func (r *Renderer) formatSnippet(language string, s *snippet.Resolved) (string, error) {
	switch r.format {
	case FormatHTML:
		return htmlBlock(language, s.Content), nil
	case FormatHighlight:
		out, err := highlightBlock(language, s.Content, r.highlightStyle)
		if err != nil {
			r.logger.Warn("Highlighting failed; using plain HTML", logfields.Snippet(s.AbsolutePath), logfields.Error(err))
			return htmlBlock(language, s.Content), nil
		}
		return out, nil
	case FormatMarkdown:
		return fencedBlock(language, s.Content), nil
	default:
		return "", errors.New("unknown render format " + string(r.format))
	}
}
