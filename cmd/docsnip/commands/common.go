package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docsnip/internal/config"
	dserrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
	"git.home.luguber.info/inful/docsnip/internal/version"
)

// Global carries process-wide state into every command.
type Global struct {
	Context context.Context
	Logger  *slog.Logger
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default docsnip.yaml; optional unless given)" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build  BuildCmd  `cmd:"" help:"Expand snippet includes in the source tree and write the output tree"`
	Check  CheckCmd  `cmd:"" help:"Render every document without writing; fail on any unresolved include"`
	Watch  WatchCmd  `cmd:"" help:"Build, then rebuild whenever source files change"`
	Render RenderCmd `cmd:"" help:"Render a single document to stdout"`
	Init   InitCmd   `cmd:"" help:"Write a default configuration file"`

	stderr io.Writer `kong:"-"`
}

// AfterApply runs after flag parsing and sets up logging once. Commands refine
// the level and format after loading the configuration.
func (c *CLI) AfterApply() error {
	configureLogging(c.stderr, config.LoggingConfig{}.EffectiveLogLevel(c.Verbose), config.LogFormatText)
	return nil
}

func configureLogging(w io.Writer, level config.LogLevel, format config.LogFormat) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level.SlogLevel()}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig loads the configuration named by --config, or the optional
// default file, and reconfigures logging from it.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if root.Config == "" {
		cfg, err = config.LoadOrDefault(config.DefaultPath, false)
	} else {
		cfg, err = config.Load(root.Config)
	}
	if err != nil {
		return nil, err
	}
	g.Logger = configureLogging(g.Stderr, cfg.Logging.EffectiveLogLevel(root.Verbose), cfg.Logging.Format)
	return cfg, nil
}

// sourceOverrides are the flags shared by commands that read a source tree.
type sourceOverrides struct {
	Source string `short:"s" help:"Source root (overrides source_root)" type:"path"`
}

func (o sourceOverrides) apply(cfg *config.Config) {
	if o.Source != "" {
		cfg.SourceRoot = o.Source
	}
}

// Execute parses args and runs the selected command. It returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	cli := &CLI{stderr: stderr}

	type exit int
	parser, err := kong.New(cli,
		kong.Name("docsnip"),
		kong.Description("Build-time snippet inclusion for documentation trees."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Writers(stdout, stderr),
		kong.Exit(func(c int) { panic(exit(c)) }),
	)
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 10
	}

	defer func() {
		if r := recover(); r != nil {
			c, ok := r.(exit)
			if !ok {
				panic(r)
			}
			code = int(c)
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		adapter := dserrors.NewCLIErrorAdapter(cli.Verbose, slog.Default())
		return adapter.Report(stderr, dserrors.WrapError(err, dserrors.CategoryValidation, "invalid command line").Build())
	}

	g := &Global{Context: ctx, Logger: slog.Default(), Stdin: stdin, Stdout: stdout, Stderr: stderr}
	err = kctx.Run(g, cli)
	if errors.Is(err, context.Canceled) {
		err = dserrors.WrapError(err, dserrors.CategoryRuntime, "interrupted").Build()
	}
	return dserrors.NewCLIErrorAdapter(cli.Verbose, g.Logger).Report(stderr, err)
}
