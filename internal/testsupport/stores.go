package testsupport

import (
	"testing"

	"geomigrate/internal/catalog"
	"geomigrate/internal/config"
	"geomigrate/internal/settings"
	"geomigrate/internal/staging"
)

// MustOpenSettings opens a settings.Store for tests and registers cleanup.
func MustOpenSettings(t testing.TB, cfg *config.Config) *settings.Store {
	t.Helper()

	store, err := settings.Open(cfg)
	if err != nil {
		t.Fatalf("settings.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenStaging opens a staging.Store for tests and registers cleanup.
func MustOpenStaging(t testing.TB, cfg *config.Config) *staging.Store {
	t.Helper()

	store, err := staging.Open(cfg)
	if err != nil {
		t.Fatalf("staging.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenCatalog opens a catalog.Store for tests and registers cleanup.
func MustOpenCatalog(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
