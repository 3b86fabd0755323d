package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tvcore/internal/config"
	"tvcore/internal/daemon"
	"tvcore/internal/logging"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/notifications"
	"tvcore/internal/services"
	"tvcore/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config, emu *emulator.Emulator, hub *notifications.Hub) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, daemon.Options{
		Binding:  emu.Binding(),
		Store:    testsupport.MustOpenStore(t, cfg),
		Notifier: hub,
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func awaitManager(t *testing.T, d *daemon.Daemon) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := d.AwaitManager(ctx); err != nil {
		t.Fatalf("AwaitManager: %v", err)
	}
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	d := newDaemon(t, cfg, emu, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	awaitManager(t, d)

	status := d.Status()
	if !status.Running || status.Middleware != "ready" || status.Control == nil {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.APIAddress == "" {
		t.Fatal("expected api address while running")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status()
	if status.Running || status.Control != nil {
		t.Fatalf("expected daemon to be stopped, got %+v", status)
	}
	if _, err := d.Manager(); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not ready after stop, got %v", err)
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	first := newDaemon(t, cfg, emu, nil)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second := newDaemon(t, cfg, emu, nil)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention to fail the second start")
	}
}

func TestNewRequiresReadySignal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	binding := emu.Binding()
	binding.Ready = nil

	_, err := daemon.New(cfg, daemon.Options{Binding: binding, Store: testsupport.MustOpenStore(t, cfg)})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestOperationsWaitForMiddleware(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Middleware.PollCycles = 2
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	emu.SetReady(false)

	hub := notifications.NewHub(cfg.Notifications, logging.NewNop())
	events := make(chan notifications.Event, 8)
	hub.Subscribe(func(evt notifications.Event) { events <- evt })

	d := newDaemon(t, cfg, emu, hub)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := d.Manager(); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not ready before middleware boots, got %v", err)
	}

	select {
	case evt := <-events:
		if evt.Type != notifications.EventMiddlewareTimeout {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("expected middleware timeout notification")
	}
	if d.Status().MiddlewareError == "" {
		t.Fatal("expected readiness error in status")
	}

	emu.SetReady(true)
	awaitManager(t, d)
	if _, err := d.Manager(); err != nil {
		t.Fatalf("Manager after ready: %v", err)
	}
	if got := d.Status().MiddlewareError; got != "" {
		t.Fatalf("expected readiness error cleared, got %q", got)
	}
	select {
	case evt := <-events:
		t.Fatalf("expected a single timeout notification, got another %+v", evt)
	default:
	}
}

func TestReadyPropertyFileGatesDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Middleware.ReadyProperty = filepath.Join(testsupport.BaseDir(cfg), "mw.ready")
	cfg.Middleware.PollCycles = 400
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	binding := emu.Binding()
	binding.Ready = nil

	d, err := daemon.New(cfg, daemon.Options{Binding: binding, Store: testsupport.MustOpenStore(t, cfg)})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, err := d.Manager(); !errors.Is(err, services.ErrNotReady) {
		t.Fatalf("expected not ready without property, got %v", err)
	}

	if err := writeFile(cfg.Middleware.ReadyProperty, "1\n"); err != nil {
		t.Fatalf("write property: %v", err)
	}
	awaitManager(t, d)
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	d := newDaemon(t, cfg, emu, nil)

	sent, message, err := d.TestNotification(context.Background())
	if err != nil || sent || message != "ntfy topic not configured" {
		t.Fatalf("unexpected result sent=%v message=%q err=%v", sent, message, err)
	}
}
