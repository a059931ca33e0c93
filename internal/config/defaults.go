package config

import (
	"runtime"
	"strings"

	foundationerrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
)

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		Version:    CurrentVersion,
		SourceRoot: "docs",
		Output: OutputConfig{
			Directory:  "site",
			Clean:      true,
			CopyAssets: true,
			Manifest:   true,
		},
		Render: RenderConfig{
			Format:         RenderFormatMarkdown,
			HighlightStyle: "github",
			Extensions:     []string{".md", ".markdown"},
		},
		Build: BuildConfig{
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// Normalize canonicalizes enumerations and list entries in place and fills
// zero values with defaults. Unknown enumeration values are errors.
func (c *Config) Normalize() error {
	def := Default()

	if c.Version == "" {
		c.Version = CurrentVersion
	}

	format, err := renderFormats.Parse(string(c.Render.Format))
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid render.format").Build()
	}
	c.Render.Format = format
	if strings.TrimSpace(c.Render.HighlightStyle) == "" {
		c.Render.HighlightStyle = def.Render.HighlightStyle
	}
	if len(c.Render.Extensions) == 0 {
		c.Render.Extensions = def.Render.Extensions
	}
	c.Render.Extensions = normalizeExtensions(c.Render.Extensions)
	if len(c.Render.Languages) > 0 {
		langs := make(map[string]string, len(c.Render.Languages))
		for ext, lang := range c.Render.Languages {
			langs[normalizeExtension(ext)] = strings.TrimSpace(lang)
		}
		c.Render.Languages = langs
	}

	level, err := logLevels.Parse(string(c.Logging.Level))
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid logging.level").Build()
	}
	c.Logging.Level = level
	logFormat, err := logFormats.Parse(string(c.Logging.Format))
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "invalid logging.format").Build()
	}
	c.Logging.Format = logFormat

	if c.Build.Workers <= 0 {
		c.Build.Workers = def.Build.Workers
	}
	return nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = normalizeExtension(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || strings.HasPrefix(ext, ".") {
		return ext
	}
	return "." + ext
}
