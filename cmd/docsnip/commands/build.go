package commands

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsnip/internal/build"
	"git.home.luguber.info/inful/docsnip/internal/config"
	dserrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
	"git.home.luguber.info/inful/docsnip/internal/logfields"
	"git.home.luguber.info/inful/docsnip/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Src             sourceOverrides `embed:""`
	Output          string          `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	Format          string          `help:"Snippet format: markdown, html or highlight (overrides render.format)"`
	Strict          bool            `help:"Fail when any include cannot be resolved"`
	Workers         int             `help:"Documents rendered in parallel (overrides build.workers)"`
	MetricsTextfile string          `name:"metrics-textfile" help:"Write Prometheus metrics to this file after the build" type:"path"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	textfile := cfg.Metrics.Textfile
	if b.MetricsTextfile != "" {
		textfile = b.MetricsTextfile
	}
	var (
		reg *prometheus.Registry
		rec metrics.Recorder = metrics.NoopRecorder{}
	)
	if textfile != "" {
		reg = prometheus.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
	}

	res, err := RunBuild(g, cfg, rec, build.BuildOptions{Strict: b.Strict})
	if reg != nil {
		if werr := metrics.WriteTextfile(reg, textfile); werr != nil {
			g.Logger.Warn("Failed to write metrics textfile", logfields.Path(textfile), logfields.Error(werr))
		}
	}
	if res != nil && res.Status.IsSuccess() {
		_, _ = fmt.Fprintf(g.Stdout, "Built %d document(s) into %s (%d include error(s))\n",
			len(res.Documents), res.OutputPath, len(res.SnippetErrors()))
	}
	return err
}

func (b *BuildCmd) apply(cfg *config.Config) error {
	b.Src.apply(cfg)
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Format != "" {
		f, err := config.ParseRenderFormat(b.Format)
		if err != nil {
			return dserrors.WrapError(err, dserrors.CategoryValidation, "invalid --format").Build()
		}
		cfg.Render.Format = f
	}
	if b.Workers < 0 {
		return dserrors.ValidationError("--workers must not be negative").Build()
	}
	if b.Workers > 0 {
		cfg.Build.Workers = b.Workers
	}
	return cfg.Validate()
}

// RunBuild executes one build with the given recorder.
func RunBuild(g *Global, cfg *config.Config, rec metrics.Recorder, opts build.BuildOptions) (*build.BuildResult, error) {
	g.Logger.Info("Starting snippet build",
		logfields.SourceRoot(cfg.SourceRoot),
		logfields.Output(cfg.Output.Directory),
		logfields.Format(string(cfg.Render.Format)),
		slog.Bool("strict", opts.Strict || cfg.Build.Strict),
		slog.Bool("dry_run", opts.DryRun))
	return build.NewBuildService().WithRecorder(rec).Run(g.Context, build.BuildRequest{Config: cfg, Options: opts})
}
