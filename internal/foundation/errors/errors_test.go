package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifiedError_BuilderAndAccessors(t *testing.T) {
	cause := errors.New("permission denied")
	err := WrapError(cause, CategoryFileSystem, "write output").
		Warning().
		WithContext("path", "site/index.md").
		Build()

	require.Equal(t, CategoryFileSystem, err.Category())
	require.Equal(t, SeverityWarning, err.Severity())
	require.Equal(t, "write output", err.Message())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "[filesystem] write output: permission denied", err.Error())

	path, ok := err.Context().GetString("path")
	require.True(t, ok)
	require.Equal(t, "site/index.md", path)
}

func TestClassifiedError_WithContextDoesNotMutateOriginal(t *testing.T) {
	base := RenderError("snippet failures").Build()
	next := base.WithContext("errors", 3)

	_, onBase := base.Context().Get("errors")
	require.False(t, onBase)
	count, onNext := next.Context().Get("errors")
	require.True(t, onNext)
	require.Equal(t, 3, count)
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityFatal},
		{"RenderError", RenderError("x"), CategoryRender, SeverityError},
		{"BuildError", BuildError("x"), CategoryBuild, SeverityFatal},
		{"FileSystemError", FileSystemError("x"), CategoryFileSystem, SeverityError},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			require.Equal(t, tt.category, err.Category())
			require.Equal(t, tt.severity, err.Severity())
		})
	}
}

func TestAsClassified_FindsWrappedError(t *testing.T) {
	inner := ConfigError("bad format").Build()
	wrapped := fmt.Errorf("load: %w", inner)

	got, ok := AsClassified(wrapped)
	require.True(t, ok)
	require.Same(t, inner, got)
	require.True(t, HasCategory(wrapped, CategoryConfig))
	require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestErrorContext_Merge(t *testing.T) {
	a := ErrorContext{"k": 1, "x": "a"}
	b := ErrorContext{"x": "b"}
	merged := a.Merge(b)
	require.Equal(t, 1, merged["k"])
	require.Equal(t, "b", merged["x"])
	require.Equal(t, "a", a["x"])
}
