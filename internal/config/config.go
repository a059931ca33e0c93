package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/docsnip/internal/foundation/errors"
)

// DefaultPath is the configuration file used when no path is given.
const DefaultPath = "docsnip.yaml"

// CurrentVersion is the configuration schema version written by Init.
const CurrentVersion = "1"

// Config is the docsnip configuration file.
type Config struct {
	Version    string        `yaml:"version"`
	SourceRoot string        `yaml:"source_root"`
	Output     OutputConfig  `yaml:"output"`
	Render     RenderConfig  `yaml:"render"`
	Build      BuildConfig   `yaml:"build"`
	Logging    LoggingConfig `yaml:"logging"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// OutputConfig controls where and how rendered documents are written.
type OutputConfig struct {
	Directory  string `yaml:"directory"`
	Clean      bool   `yaml:"clean"`       // remove the output directory before building
	CopyAssets bool   `yaml:"copy_assets"` // copy non-document files alongside rendered pages
	Manifest   bool   `yaml:"manifest"`    // write .docsnip-manifest.json
}

// RenderConfig controls snippet formatting.
type RenderConfig struct {
	Format         RenderFormat      `yaml:"format"`
	HighlightStyle string            `yaml:"highlight_style"`
	Extensions     []string          `yaml:"extensions"` // document file extensions
	Languages      map[string]string `yaml:"languages"`  // extension -> language overrides
}

// BuildConfig controls the build pipeline.
type BuildConfig struct {
	Workers int  `yaml:"workers"`
	Strict  bool `yaml:"strict"` // fail the build when any include fails
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// MetricsConfig controls Prometheus export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // write metrics here after each build
	Listen   string `yaml:"listen"`   // serve /metrics here while watching
}

// Load reads, expands, normalizes and validates the configuration at path.
// Relative paths in the file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	loadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, foundationerrors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to read configuration file").
			WithContext("path", path).
			Build()
	}

	cfg := Default()
	if err := decode(os.ExpandEnv(string(data)), cfg); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to parse configuration file").
			WithContext("path", path).
			Build()
	}
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults when
// required is false.
func LoadOrDefault(path string, required bool) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !required {
		loadEnvFiles(".")
		cfg := Default()
		if err := cfg.Normalize(); err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}
	return Load(path)
}

func decode(text string, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewBufferString(text))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.SourceRoot = abs(c.SourceRoot)
	c.Output.Directory = abs(c.Output.Directory)
	c.Metrics.Textfile = abs(c.Metrics.Textfile)
}

// Init writes a commented default configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return foundationerrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	var buf bytes.Buffer
	buf.WriteString("# docsnip configuration\n")
	buf.WriteString("# Paths are relative to this file. ${VAR} references are expanded from the environment.\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Default()); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to encode default configuration").Build()
	}
	if err := enc.Close(); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "failed to encode default configuration").Build()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to create configuration directory").
				WithContext("path", dir).
				Build()
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "failed to write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
