package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/docsnip/internal/logfields"
)

// EnvLogLevel overrides the configured log level when set.
const EnvLogLevel = "DOCSNIP_LOG_LEVEL"

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env and .env.local from dir into the process environment.
// Variables that are already set are never overwritten.
func loadEnvFiles(dir string) {
	for _, name := range envFiles {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			slog.Warn("Failed to load environment file", logfields.Path(p), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment file", logfields.Path(p))
	}
}
