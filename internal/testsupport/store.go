package testsupport

import (
	"context"
	"testing"

	"feedmirror/internal/config"
	"feedmirror/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// MustSettings reads the settings row, failing the test on error.
func MustSettings(t testing.TB, st *store.Store) store.Settings {
	t.Helper()

	settings, err := st.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("store.GetSettings: %v", err)
	}
	return settings
}
