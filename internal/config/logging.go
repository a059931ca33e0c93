package config

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/docsnip/internal/foundation/normalization"
)

// LogLevel is a configured log level.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevels = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// NormalizeLogLevel maps raw to a LogLevel, defaulting to info.
func NormalizeLogLevel(raw string) LogLevel {
	return logLevels.Normalize(raw)
}

// SlogLevel converts l to the slog level.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EffectiveLogLevel returns the level to log at: debug when verbose, else the
// environment override, else the configured level.
func (c LoggingConfig) EffectiveLogLevel(verbose bool) LogLevel {
	if verbose {
		return LogLevelDebug
	}
	if env, ok := os.LookupEnv(EnvLogLevel); ok && logLevels.Valid(env) {
		return logLevels.Normalize(env)
	}
	return NormalizeLogLevel(string(c.Level))
}

// LogFormat is a log output encoding.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormats = normalization.NewNormalizer("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// NormalizeLogFormat maps raw to a LogFormat, defaulting to text.
func NormalizeLogFormat(raw string) LogFormat {
	return logFormats.Normalize(raw)
}

// RenderFormat is how included snippets are written into documents.
type RenderFormat string

const (
	RenderFormatMarkdown  RenderFormat = "markdown"
	RenderFormatHTML      RenderFormat = "html"
	RenderFormatHighlight RenderFormat = "highlight"
)

var renderFormats = normalization.NewNormalizer("render format", map[string]RenderFormat{
	"markdown":  RenderFormatMarkdown,
	"md":        RenderFormatMarkdown,
	"html":      RenderFormatHTML,
	"highlight": RenderFormatHighlight,
}, RenderFormatMarkdown)

// ParseRenderFormat validates raw as a render format; empty means markdown.
func ParseRenderFormat(raw string) (RenderFormat, error) {
	return renderFormats.Parse(raw)
}
