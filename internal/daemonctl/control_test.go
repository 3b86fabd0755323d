package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"tvcore/internal/daemon"
	"tvcore/internal/ipc"
	"tvcore/internal/logging"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/testsupport"
)

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.pid")
	if pid, err := ReadPID(missing); err != nil || pid != 0 {
		t.Fatalf("expected zero pid for missing file, got %d err=%v", pid, err)
	}

	good := filepath.Join(dir, "tvcore.pid")
	if err := os.WriteFile(good, []byte("4242\n"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if pid, err := ReadPID(good); err != nil || pid != 4242 {
		t.Fatalf("expected 4242, got %d err=%v", pid, err)
	}

	bad := filepath.Join(dir, "bad.pid")
	if err := os.WriteFile(bad, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	if _, err := ReadPID(bad); err == nil {
		t.Fatal("expected malformed pid file to fail")
	}
}

func TestForceKillRefusesCurrentProcess(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "tvcore.pid")
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	_, err := ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "refusing to kill current process") {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := StopAndTerminate(cfg, 100*time.Millisecond); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
	if err := WaitForShutdown(cfg.SocketPath(), 100*time.Millisecond); err != nil {
		t.Fatalf("expected immediate shutdown without socket, got %v", err)
	}
	alive, pid, err := ProcessInfo(cfg.SocketPath())
	if alive || pid != 0 || err != nil {
		t.Fatalf("expected offline, got alive=%v pid=%d err=%v", alive, pid, err)
	}
}

func TestOfflineSnapshotReadsStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.MustOpenStore(t, cfg)

	snap, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if snap.Online || snap.Daemon != nil {
		t.Fatalf("expected offline snapshot, got %+v", snap)
	}
	if snap.Stats == nil || snap.Stats.Channels != 0 {
		t.Fatalf("expected empty store stats, got %+v", snap.Stats)
	}
	if len(snap.Preflight) == 0 {
		t.Fatal("expected local preflight results")
	}
}

func TestOnlineSnapshotUsesDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	d, err := daemon.New(cfg, daemon.Options{
		Binding: emu.Binding(),
		Store:   testsupport.MustOpenStore(t, cfg),
		Logger:  logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	defer srv.Close()

	snap, err := BuildStatusSnapshot(context.Background(), cfg)
	if err != nil {
		t.Fatalf("BuildStatusSnapshot: %v", err)
	}
	if !snap.Online || snap.Daemon == nil || snap.Daemon.PID != os.Getpid() {
		t.Fatalf("expected online snapshot, got %+v", snap)
	}
	if snap.Stats == nil {
		t.Fatal("expected stats from daemon")
	}

	alive, pid, err := ProcessInfo(cfg.SocketPath())
	if !alive || pid != os.Getpid() || err != nil {
		t.Fatalf("expected reachable daemon, got alive=%v pid=%d err=%v", alive, pid, err)
	}
}
