package daemonrun

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"tvcore/internal/testsupport"
)

func TestNewEmulatorDefaultsToHybridBox(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu, err := newEmulator(cfg)
	if err != nil {
		t.Fatalf("newEmulator: %v", err)
	}
	defer emu.Close()
	if emu.Binding().Routes == nil {
		t.Fatal("expected route port on binding")
	}
}

func TestNewEmulatorLoadsProfile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "profile.yaml")
	profile := "frontends:\n  - name: sat0\n    types: [satellite]\ndecoders: 1\noutputs: 1\n"
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	cfg.Middleware.EmulatorProfile = path
	emu, err := newEmulator(cfg)
	if err != nil {
		t.Fatalf("newEmulator: %v", err)
	}
	emu.Close()

	cfg.Middleware.EmulatorProfile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := newEmulator(cfg); err == nil || !strings.Contains(err.Error(), "read emulator profile") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tvcore.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Fatalf("unexpected pid file contents %q", data)
	}
	if err := writePIDFile(""); err != nil {
		t.Fatalf("empty path should be a no-op: %v", err)
	}
}
