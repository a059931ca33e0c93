package logfields

import "log/slog"

// Canonical log field names shared by the resolver, renderer and build.
const (
	KeyBuildID    = "build_id"
	KeyDocument   = "document"
	KeySnippet    = "snippet"
	KeySourceRoot = "source_root"
	KeyOutput     = "output"
	KeyErrorKind  = "error_kind"
	KeyLine       = "line"
	KeyFormat     = "format"
	KeyPath       = "path"
	KeyOp         = "op"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
	KeyStage      = "stage"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Document(p string) slog.Attr     { return slog.String(KeyDocument, p) }
func Snippet(p string) slog.Attr      { return slog.String(KeySnippet, p) }
func SourceRoot(p string) slog.Attr   { return slog.String(KeySourceRoot, p) }
func Output(p string) slog.Attr       { return slog.String(KeyOutput, p) }
func ErrorKind(k string) slog.Attr    { return slog.String(KeyErrorKind, k) }
func Line(n int) slog.Attr            { return slog.Int(KeyLine, n) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Stage(s string) slog.Attr        { return slog.String(KeyStage, s) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
