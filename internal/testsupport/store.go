package testsupport

import (
	"testing"

	"tvcore/internal/config"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
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

// NewEmulator builds an emulator for profile and closes it on cleanup.
func NewEmulator(t testing.TB, profile emulator.Profile, opts ...emulator.Option) *emulator.Emulator {
	t.Helper()

	emu, err := emulator.New(profile, opts...)
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	t.Cleanup(emu.Close)
	return emu
}
