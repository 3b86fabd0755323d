package manager_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tvcore/internal/config"
	"tvcore/internal/logging"
	"tvcore/internal/manager"
	"tvcore/internal/metrics"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/notifications"
	"tvcore/internal/services"
	"tvcore/internal/testsupport"
)

func newManager(t *testing.T, cfg *config.Config, profile emulator.Profile) (*manager.Manager, *emulator.Emulator) {
	t.Helper()
	emu := testsupport.NewEmulator(t, profile)
	st := testsupport.MustOpenStore(t, cfg)
	m, err := manager.New(context.Background(), manager.Deps{
		Config:   cfg,
		Binding:  emu.Binding(),
		Store:    st,
		Notifier: notifications.NewHub(cfg.Notifications, logging.NewNop()),
		Metrics:  metrics.New(),
		Logger:   logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("manager.New: %v", err)
	}
	t.Cleanup(m.Close)
	return m, emu
}

func scanAndWait(t *testing.T, m *manager.Manager) {
	t.Helper()
	if _, err := m.Scanner().Start(context.Background()); err != nil {
		t.Fatalf("scan start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.Scanner().Wait(ctx); err != nil {
		t.Fatalf("scan wait: %v", err)
	}
}

func TestNewFailsOnMiddlewareFault(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	emu.FailOn("FrontendCount", errors.New("ipc closed"))
	st := testsupport.MustOpenStore(t, cfg)

	_, err := manager.New(context.Background(), manager.Deps{
		Config:  cfg,
		Binding: emu.Binding(),
		Store:   st,
		Logger:  logging.NewNop(),
	})
	if !errors.Is(err, services.ErrMiddlewareComm) {
		t.Fatalf("expected middleware comm error, got %v", err)
	}
}

func TestNewRequiresStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := manager.New(context.Background(), manager.Deps{Config: cfg})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestScanThenTune(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.EPG.Enabled = false
	m, _ := newManager(t, cfg, emulator.DefaultProfile())

	if got := m.Status().Channels; got != 0 {
		t.Fatalf("expected empty catalog before scan, got %d", got)
	}
	scanAndWait(t, m)

	status := m.Status()
	if status.Channels != 4 {
		t.Fatalf("expected 4 channels, got %d", status.Channels)
	}
	if status.EPGEnabled || m.EPG() != nil {
		t.Fatal("expected epg disabled")
	}

	first, ok := m.Catalog().ByIndex(0)
	if !ok {
		t.Fatal("catalog empty after scan")
	}
	res, err := m.Tune(context.Background(), first.ID)
	if err != nil || !res.OK {
		t.Fatalf("tune: ok=%v err=%v res.Err=%v", res.OK, err, res.Err)
	}
	active := m.Status().Active
	if active.Channel == nil || active.Channel.ID != first.ID || active.LiveRoute == nil {
		t.Fatalf("unexpected active state %+v", active)
	}

	m.Stop(context.Background())
	if m.Status().Active.LiveRoute != nil {
		t.Fatal("expected live route released after stop")
	}
}

func TestUnknownChannelIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.EPG.Enabled = false
	m, _ := newManager(t, cfg, emulator.DefaultProfile())

	if _, err := m.Tune(context.Background(), 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := m.NowPlaying(context.Background(), 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := m.RequestEPG(); !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation with epg disabled, got %v", err)
	}
}

func TestProgramsRejectsEmptyRange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.EPG.Enabled = false
	m, _ := newManager(t, cfg, emulator.DefaultProfile())
	scanAndWait(t, m)

	first, _ := m.Catalog().ByIndex(0)
	now := time.Now()
	if _, err := m.Programs(context.Background(), first.ID, now, now); !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected invalid operation, got %v", err)
	}
}

func TestNowPlayingAfterAcquisition(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.EPG.Enabled = true
	profile := emulator.DefaultProfile()
	profile.AutoEPG = true
	m, _ := newManager(t, cfg, profile)
	scanAndWait(t, m)

	first, _ := m.Catalog().ByIndex(0)
	if res, err := m.Tune(context.Background(), first.ID); err != nil || !res.OK {
		t.Fatalf("tune failed: %v %v", err, res.Err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		prog, err := m.NowPlaying(context.Background(), first.ID)
		if err != nil {
			t.Fatalf("NowPlaying: %v", err)
		}
		if prog != nil {
			if prog.ChannelID != first.ID || !prog.End.After(prog.Start) {
				t.Fatalf("unexpected program %+v", prog)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no current program after acquisition")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if len(m.Acquisitions()) == 0 {
		t.Fatal("expected acquisition state for the tuned transponder")
	}
}

func TestCloseStopsPlaybackOnce(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m, emu := newManager(t, cfg, emulator.DefaultProfile())
	scanAndWait(t, m)

	first, _ := m.Catalog().ByIndex(0)
	if res, _ := m.Tune(context.Background(), first.ID); !res.OK {
		t.Fatalf("tune failed: %v", res.Err)
	}
	emu.ResetCalls()
	m.Close()
	m.Close()

	stops := emu.CallsWithPrefix("StopService")
	if len(stops) != 1 {
		t.Fatalf("expected one StopService on close, got %v", stops)
	}
}
