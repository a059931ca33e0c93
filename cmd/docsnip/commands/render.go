package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/docsnip/internal/config"
	dserrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
	"git.home.luguber.info/inful/docsnip/internal/logfields"
	"git.home.luguber.info/inful/docsnip/internal/render"
	"git.home.luguber.info/inful/docsnip/internal/snippet"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	Src    sourceOverrides `embed:""`
	File   string          `arg:"" help:"Document to render, or - for stdin"`
	Format string          `help:"Snippet format: markdown, html or highlight (overrides render.format)"`
	Strict bool            `help:"Exit non-zero when any include cannot be resolved"`
}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	r.Src.apply(cfg)
	if r.Format != "" {
		f, err := config.ParseRenderFormat(r.Format)
		if err != nil {
			return dserrors.WrapError(err, dserrors.CategoryValidation, "invalid --format").Build()
		}
		cfg.Render.Format = f
	}
	format, err := render.ParseFormat(string(cfg.Render.Format))
	if err != nil {
		return dserrors.WrapError(err, dserrors.CategoryValidation, "invalid render format").Build()
	}

	name, text, err := r.read(g)
	if err != nil {
		return err
	}

	renderer := render.New(snippet.NewResolver(snippet.WithLanguages(cfg.Render.Languages)),
		render.WithFormat(format),
		render.WithHighlightStyle(cfg.Render.HighlightStyle),
		render.WithLogger(g.Logger))
	res := renderer.RenderDocument(name, text, cfg.SourceRoot, render.NewCache())

	if _, err := io.WriteString(g.Stdout, res.Output); err != nil {
		return dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to write output").Build()
	}
	for _, e := range res.Errors {
		g.Logger.Warn(e.Message(), logfields.Document(name), logfields.Line(e.Line), logfields.ErrorKind(string(e.Kind)))
	}
	if r.Strict && len(res.Errors) > 0 {
		return dserrors.RenderError(fmt.Sprintf("%d snippet include(s) failed", len(res.Errors))).
			WithContext("document", name).
			Build()
	}
	return nil
}

func (r *RenderCmd) read(g *Global) (string, string, error) {
	if r.File == "-" {
		data, err := io.ReadAll(g.Stdin)
		if err != nil {
			return "", "", dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to read stdin").Build()
		}
		return "<stdin>", string(data), nil
	}
	data, err := os.ReadFile(r.File)
	if err != nil {
		return "", "", dserrors.WrapError(err, dserrors.CategoryFileSystem, "failed to read document").
			WithContext("document", r.File).
			Build()
	}
	return r.File, string(data), nil
}
