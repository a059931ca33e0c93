package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	foundationerrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
)

// Validate checks a normalized configuration for consistency.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return foundationerrors.ValidationError(fmt.Sprintf("unsupported configuration version %q (expected %q)", c.Version, CurrentVersion)).Build()
	}
	if strings.TrimSpace(c.SourceRoot) == "" {
		return foundationerrors.ValidationError("source_root must be set").Build()
	}
	if strings.TrimSpace(c.Output.Directory) == "" {
		return foundationerrors.ValidationError("output.directory must be set").Build()
	}
	if err := validateOutputPlacement(c.SourceRoot, c.Output.Directory); err != nil {
		return err
	}
	if c.Build.Workers < 1 {
		return foundationerrors.ValidationError("build.workers must be at least 1").
			WithContext("workers", c.Build.Workers).
			Build()
	}
	if len(c.Render.Extensions) == 0 {
		return foundationerrors.ValidationError("render.extensions must list at least one document extension").Build()
	}
	for ext, lang := range c.Render.Languages {
		if ext == "" || lang == "" {
			return foundationerrors.ValidationError("render.languages entries need an extension and a language").
				WithContext("extension", ext).
				Build()
		}
	}
	if c.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Listen); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "metrics.listen must be host:port").
				WithContext("listen", c.Metrics.Listen).
				Build()
		}
	}
	return nil
}

// validateOutputPlacement rejects an output directory equal to or containing the
// source root, which a clean build would wipe.
func validateOutputPlacement(source, output string) error {
	src, err := filepath.Abs(source)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "invalid source_root").Build()
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "invalid output.directory").Build()
	}
	rel, err := filepath.Rel(out, src)
	if err == nil && (rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))) {
		return foundationerrors.ValidationError("output.directory must not contain source_root").
			WithContext("source_root", src).
			WithContext("output", out).
			Build()
	}
	return nil
}
