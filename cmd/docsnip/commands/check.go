package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docsnip/internal/build"
	"git.home.luguber.info/inful/docsnip/internal/metrics"
)

// CheckCmd implements the 'check' command: a strict dry-run build.
type CheckCmd struct {
	Src sourceOverrides `embed:""`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	c.Src.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := RunBuild(g, cfg, metrics.NoopRecorder{}, build.BuildOptions{DryRun: true, Strict: true})
	if res != nil {
		for _, e := range res.SnippetErrors() {
			_, _ = fmt.Fprintln(g.Stdout, e.Error())
		}
		if err == nil {
			_, _ = fmt.Fprintf(g.Stdout, "Checked %d document(s): all includes resolved\n", len(res.Documents))
		}
	}
	return err
}
