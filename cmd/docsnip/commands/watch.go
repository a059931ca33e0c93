package commands

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsnip/internal/build"
	dserrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
	"git.home.luguber.info/inful/docsnip/internal/logfields"
	"git.home.luguber.info/inful/docsnip/internal/metrics"
	"git.home.luguber.info/inful/docsnip/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Src           sourceOverrides `embed:""`
	Output        string          `short:"o" help:"Output directory (overrides output.directory)" type:"path"`
	MetricsListen string          `name:"metrics-listen" help:"Serve Prometheus /metrics on this address (overrides metrics.listen)"`
	Debounce      time.Duration   `help:"Quiet period before rebuilding" default:"300ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	w.Src.apply(cfg)
	if w.Output != "" {
		cfg.Output.Directory = w.Output
	}
	if w.MetricsListen != "" {
		cfg.Metrics.Listen = w.MetricsListen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var rec metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		rec = metrics.NewPrometheusRecorder(reg)
		stop, err := serveMetrics(g, cfg.Metrics.Listen, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	rebuild := func(ctx context.Context) error {
		_, err := RunBuild(&Global{Context: ctx, Logger: g.Logger, Stdout: g.Stdout, Stderr: g.Stderr}, cfg, rec, build.BuildOptions{})
		return err
	}
	if err := rebuild(g.Context); err != nil && g.Context.Err() == nil {
		g.Logger.Warn("Initial build failed; watching for changes", logfields.Error(err))
	}

	return watch.New(cfg.SourceRoot, rebuild,
		watch.WithDebounce(w.Debounce),
		watch.WithExclude(cfg.Output.Directory),
	).Run(g.Context)
}

func serveMetrics(g *Global, addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, dserrors.WrapError(err, dserrors.CategoryConfig, "failed to serve metrics").
			WithContext("listen", addr).
			Build()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.Logger.Error("Metrics server stopped", logfields.Error(err))
		}
	}()
	g.Logger.Info("Serving metrics", logfields.Path("http://"+ln.Addr().String()+"/metrics"))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			g.Logger.Warn("Metrics server shutdown error", logfields.Error(err))
		}
	}, nil
}
