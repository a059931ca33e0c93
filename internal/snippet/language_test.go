package snippet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"main.go":             "go",
		"config/sample.json":  "json",
		"deploy/values.YML":   "yaml",
		"notes.txt":           PlainText,
		"build/Dockerfile":    "dockerfile",
		"Makefile":            "makefile",
		"mystery.unknownext":  PlainText,
		"no-extension-at-all": PlainText,
	}
	for path, want := range tests {
		t.Run(path, func(t *testing.T) {
			require.Equal(t, want, DetectLanguage(path))
		})
	}
}
