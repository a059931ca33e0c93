package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureDefault(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "b-1")
	ctx = WithStage(ctx, "render")
	ctx = WithDocument(ctx, "guide/index.md")

	lc := GetContext(ctx)
	if lc.BuildID != "b-1" || lc.Stage != "render" || lc.Document != "guide/index.md" {
		t.Fatalf("unexpected context %+v", lc)
	}
}

func TestContextOverwriteDoesNotLeakToParent(t *testing.T) {
	parent := WithStage(context.Background(), "discover")
	child := WithStage(parent, "write")

	if got := GetContext(parent).Stage; got != "discover" {
		t.Errorf("parent stage = %q", got)
	}
	if got := GetContext(child).Stage; got != "write" {
		t.Errorf("child stage = %q", got)
	}
}

func TestEmptyContext(t *testing.T) {
	if lc := GetContext(context.Background()); lc != (LogContext{}) {
		t.Errorf("expected zero LogContext, got %+v", lc)
	}
}

func TestInfoContextIncludesIdentifiers(t *testing.T) {
	buf := captureDefault(t, slog.LevelInfo)
	ctx := WithStage(WithBuildID(context.Background(), "b-2"), "render")

	InfoContext(ctx, "rendered", slog.Int("count", 3))

	m := decodeLine(t, buf)
	if m["build_id"] != "b-2" || m["stage"] != "render" || m["msg"] != "rendered" {
		t.Errorf("unexpected record %v", m)
	}
	if m["count"] != float64(3) {
		t.Errorf("count = %v", m["count"])
	}
}

func TestDebugContextRespectsLevel(t *testing.T) {
	buf := captureDefault(t, slog.LevelInfo)
	DebugContext(WithBuildID(context.Background(), "b-3"), "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %s", buf.String())
	}
}

func TestWarnAndErrorContext(t *testing.T) {
	buf := captureDefault(t, slog.LevelDebug)
	ctx := WithDocument(context.Background(), "a.md")

	WarnContext(ctx, "include failed")
	m := decodeLine(t, buf)
	if m["level"] != "WARN" || m["document"] != "a.md" {
		t.Errorf("unexpected warn record %v", m)
	}

	buf.Reset()
	ErrorContext(ctx, "write failed")
	m = decodeLine(t, buf)
	if m["level"] != "ERROR" {
		t.Errorf("unexpected error record %v", m)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	if got := Logger(context.Background(), base); got != base {
		t.Error("expected base logger for empty context")
	}

	Logger(WithBuildID(context.Background(), "b-4"), base).Info("hello")
	if m := decodeLine(t, &buf); m["build_id"] != "b-4" {
		t.Errorf("unexpected record %v", m)
	}
}
