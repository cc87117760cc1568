package testsupport

import (
	"path/filepath"
	"testing"

	"geomigrate/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Provider.BaseURL = "http://127.0.0.1:0"
	cfg.Migration.PageSize = 100
	return &cfg
}
