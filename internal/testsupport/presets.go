package testsupport

import (
	"testing"

	"waxoff/internal/config"
	"waxoff/internal/presets"
)

// MustOpenPresets opens the presets store for cfg and registers cleanup.
func MustOpenPresets(t testing.TB, cfg *config.Config) *presets.Store {
	t.Helper()

	store, err := presets.OpenForConfig(cfg)
	if err != nil {
		t.Fatalf("presets.OpenForConfig: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
