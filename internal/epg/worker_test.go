package epg_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tvcore/internal/catalog"
	"tvcore/internal/config"
	"tvcore/internal/epg"
	"tvcore/internal/logging"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/routes"
	"tvcore/internal/services"
	"tvcore/internal/store"
	"tvcore/internal/testsupport"
	"tvcore/internal/tuning"
)

// Three TV services with 30 minute slots and one radio service with hourly
// slots over seven days.
const fullWeekEvents = 3*7*48 + 7*24

type workerFixture struct {
	clock   *fakeClock
	emu     *emulator.Emulator
	store   *store.Store
	catalog *catalog.Catalog
	tuner   *tuning.Tuner
	sched   *epg.Scheduler
	worker  *epg.Worker
	cfg     *config.Config
}

func newWorkerFixture(t *testing.T, mutate func(*emulator.Profile), opts ...epg.WorkerOption) workerFixture {
	t.Helper()
	ctx := context.Background()
	clock := newClock()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	profile := emulator.DefaultProfile()
	profile.Preinstalled = true
	if mutate != nil {
		mutate(&profile)
	}
	emu := testsupport.NewEmulator(t, profile, emulator.WithClock(clock.Now))
	table, err := routes.Discover(ctx, emu, logging.NewNop())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	cat := catalog.New(st, emu, table, cfg.Channels, logging.NewNop())
	if err := cat.Refresh(ctx, routes.Terrestrial); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	tuner := tuning.NewTuner(table, emu.Binding(), &tuning.ActiveRouteState{}, cfg.Display, logging.NewNop())
	sched, err := epg.NewScheduler(ctx, st, time.Duration(cfg.EPG.FreshnessWindowSeconds)*time.Second, epg.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	worker := epg.NewWorker(emu, sched, cat, st, tuner, cfg.EPG, logging.NewNop(), opts...)
	return workerFixture{clock: clock, emu: emu, store: st, catalog: cat, tuner: tuner, sched: sched, worker: worker, cfg: cfg}
}

func (f workerFixture) tuneFirst(t *testing.T) store.Channel {
	t.Helper()
	ch, ok := f.catalog.ByIndex(0)
	if !ok {
		t.Fatal("catalog is empty")
	}
	if res := f.tuner.Tune(context.Background(), ch); !res.OK {
		t.Fatalf("tune %s failed: %v", ch.Name, res.Err)
	}
	return ch
}

func TestFullAcquisitionSweepsEveryBroadcastChannel(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)

	run, err := f.worker.AcquireFull(context.Background(), 0)
	if err != nil {
		t.Fatalf("AcquireFull: %v", err)
	}
	if run.Skipped || run.Frequency != 474000 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Channels != 4 {
		t.Fatalf("expected 4 channels swept, got %d", run.Channels)
	}
	if run.Fetched != fullWeekEvents || run.Inserted != fullWeekEvents {
		t.Fatalf("expected %d events fetched and inserted, got %d/%d", fullWeekEvents, run.Fetched, run.Inserted)
	}
	if f.sched.ShouldAcquire(474000) {
		t.Fatal("expected frequency to be fresh after the sweep")
	}

	win, ok := f.worker.CurrentWindow()
	if !ok {
		t.Fatal("expected the window to be prepared")
	}
	wantStart := time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC)
	if !win.Start.Equal(wantStart) || !win.End.Equal(wantStart.Add(7*24*time.Hour)) || win.SkewDays != 0 {
		t.Fatalf("unexpected window %+v", win)
	}
}

func TestFullAcquisitionIsGatedAndIdempotent(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)
	ctx := context.Background()

	if _, err := f.worker.AcquireFull(ctx, 474000); err != nil {
		t.Fatalf("first AcquireFull: %v", err)
	}
	run, err := f.worker.AcquireFull(ctx, 474000)
	if err != nil {
		t.Fatalf("second AcquireFull: %v", err)
	}
	if !run.Skipped {
		t.Fatal("expected fresh frequency to be skipped")
	}

	f.clock.Advance(2 * time.Minute)
	run, err = f.worker.AcquireFull(ctx, 474000)
	if err != nil {
		t.Fatalf("third AcquireFull: %v", err)
	}
	if run.Skipped || run.Inserted != 0 {
		t.Fatalf("expected a full pass with no new rows, got %+v", run)
	}
	stats, err := f.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Programs != fullWeekEvents {
		t.Fatalf("expected %d stored programs, got %d", fullWeekEvents, stats.Programs)
	}
}

func TestStreamDaySkewShiftsEvents(t *testing.T) {
	f := newWorkerFixture(t, func(p *emulator.Profile) { p.StreamDayOffset = -2 })
	ch := f.tuneFirst(t)
	ctx := context.Background()

	if _, err := f.worker.AcquireFull(ctx, 0); err != nil {
		t.Fatalf("AcquireFull: %v", err)
	}
	win, _ := f.worker.CurrentWindow()
	if win.SkewDays != 2 {
		t.Fatalf("expected skew of 2 days, got %d", win.SkewDays)
	}
	program, err := f.store.ProgramAt(ctx, ch.ID, f.clock.Now())
	if err != nil {
		t.Fatalf("ProgramAt: %v", err)
	}
	if program == nil || program.Title != "News 24 12:00" {
		t.Fatalf("expected shifted program airing now, got %+v", program)
	}
	if program.Genre == "" || program.Rating == "" {
		t.Fatalf("expected genre and rating to be mapped, got %+v", program)
	}
}

func TestFullAcquisitionWithoutTunedChannelIsSkipped(t *testing.T) {
	f := newWorkerFixture(t, nil)
	run, err := f.worker.AcquireFull(context.Background(), 0)
	if err != nil {
		t.Fatalf("AcquireFull: %v", err)
	}
	if !run.Skipped {
		t.Fatalf("expected skip without a tuned channel, got %+v", run)
	}
}

func TestItemFaultsDoNotAbortSweep(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)
	f.emu.FailOn("ExtendedDescription", emulator.ErrRejected)
	f.emu.FailOn("SetServiceFilter", emulator.ErrRejected)

	run, err := f.worker.AcquireFull(context.Background(), 0)
	if err != nil {
		t.Fatalf("AcquireFull: %v", err)
	}
	if run.Inserted != 0 || run.Channels != 4 {
		t.Fatalf("expected every channel to be skipped, got %+v", run)
	}
	if f.sched.ShouldAcquire(474000) {
		t.Fatal("expected the sweep to count as finished")
	}

	f.emu.FailOn("SetServiceFilter", nil)
	f.clock.Advance(2 * time.Minute)
	run, err = f.worker.AcquireFull(context.Background(), 0)
	if err != nil {
		t.Fatalf("AcquireFull: %v", err)
	}
	if run.Inserted != fullWeekEvents {
		t.Fatalf("expected events despite missing extended descriptions, got %d", run.Inserted)
	}
}

func TestEventListFailureAbandonsAcquisition(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)
	f.emu.FailOn("CreateEventList", emulator.ErrRejected)

	run, err := f.worker.AcquireFull(context.Background(), 0)
	if !errors.Is(err, services.ErrMiddlewareComm) {
		t.Fatalf("expected ErrMiddlewareComm, got %v", err)
	}
	if run.Err == nil {
		t.Fatal("expected run to carry the error")
	}
	if !f.sched.ShouldAcquire(474000) {
		t.Fatal("expected a failed acquisition to stay due")
	}
}

// refreshingChannels replaces the channel list right after a sweep has read
// it.
type refreshingChannels struct {
	*catalog.Catalog
	t *testing.T
}

func (r refreshingChannels) BroadcastChannels() []store.Channel {
	channels := r.Catalog.BroadcastChannels()
	if err := r.Refresh(context.Background(), routes.Terrestrial); err != nil {
		r.t.Fatalf("Refresh: %v", err)
	}
	return channels
}

func TestSweepDropsProgramsWhenChannelListIsReplaced(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)
	ctx := context.Background()
	worker := epg.NewWorker(f.emu, f.sched, refreshingChannels{Catalog: f.catalog, t: t}, f.store, f.tuner, f.cfg.EPG, logging.NewNop())

	run, err := worker.AcquireFull(ctx, 0)
	if !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if run.Inserted != 0 {
		t.Fatalf("expected nothing stored, got %+v", run)
	}
	stats, err := f.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Programs != 0 {
		t.Fatalf("expected no programs under replaced channel ids, got %d", stats.Programs)
	}
	if !f.sched.ShouldAcquire(474000) {
		t.Fatal("expected the frequency to stay due")
	}
}

func TestStreamTimeFailurePreventsSweep(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)
	f.emu.FailOn("StreamTime", emulator.ErrRejected)

	if _, err := f.worker.AcquireFull(context.Background(), 0); !errors.Is(err, services.ErrMiddlewareComm) {
		t.Fatalf("expected ErrMiddlewareComm, got %v", err)
	}
	if _, ok := f.worker.CurrentWindow(); ok {
		t.Fatal("expected no prepared window")
	}
}

func TestNowNextStoresTwoEventsWithoutTimestamp(t *testing.T) {
	f := newWorkerFixture(t, nil)
	ch := f.tuneFirst(t)
	ctx := context.Background()

	run, err := f.worker.AcquireNowNext(ctx)
	if err != nil {
		t.Fatalf("AcquireNowNext: %v", err)
	}
	if run.Skipped || run.Fetched != 2 || run.Inserted != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if !f.sched.ShouldAcquire(474000) {
		t.Fatal("now/next must not update the acquisition timestamp")
	}
	program, err := f.store.ProgramAt(ctx, ch.ID, f.clock.Now())
	if err != nil || program == nil {
		t.Fatalf("expected present event stored, got %+v err=%v", program, err)
	}
}

func TestNowNextRefusedDuringSameFrequencyAcquisition(t *testing.T) {
	f := newWorkerFixture(t, nil)
	f.tuneFirst(t)
	f.sched.OnAcquisitionStarted(474000)

	run, err := f.worker.AcquireNowNext(context.Background())
	if err != nil {
		t.Fatalf("AcquireNowNext: %v", err)
	}
	if !run.Skipped {
		t.Fatal("expected now/next to be refused")
	}

	f.sched.Abandon(474000)
	f.sched.OnAcquisitionStarted(522000)
	run, err = f.worker.AcquireNowNext(context.Background())
	if err != nil {
		t.Fatalf("AcquireNowNext: %v", err)
	}
	if run.Skipped {
		t.Fatal("expected acquisitions on other frequencies not to block now/next")
	}
}

func TestNotificationsDriveWorker(t *testing.T) {
	runs := make(chan epg.Run, 16)
	f := newWorkerFixture(t, func(p *emulator.Profile) { p.AutoEPG = true },
		epg.WithObserver(func(r epg.Run) { runs <- r }))
	defer f.worker.Listen()()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.worker.Start(ctx)
	defer f.worker.Close()

	f.tuneFirst(t)

	var sawFull, sawNowNext bool
	deadline := time.After(5 * time.Second)
	for !sawFull || !sawNowNext {
		select {
		case r := <-runs:
			switch r.Mode {
			case epg.ModeFull:
				if r.Err != nil || r.Skipped || r.Inserted == 0 {
					t.Fatalf("unexpected full run %+v", r)
				}
				sawFull = true
			case epg.ModeNowNext:
				if r.Err != nil || r.Skipped {
					t.Fatalf("unexpected now/next run %+v", r)
				}
				sawNowNext = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for runs (full=%v now_next=%v)", sawFull, sawNowNext)
		}
	}
	if last := f.worker.LastRun(); last.Mode == "" {
		t.Fatal("expected LastRun to be recorded")
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	f := newWorkerFixture(t, nil)
	cfg := f.cfg.EPG
	cfg.QueueSize = 1
	worker := epg.NewWorker(f.emu, f.sched, f.catalog, f.store, f.tuner, cfg, logging.NewNop())

	if !worker.Enqueue(epg.ModeFull, 474000) {
		t.Fatal("expected first enqueue to succeed")
	}
	if worker.Enqueue(epg.ModeNowNext, 474000) {
		t.Fatal("expected enqueue on a full queue to fail")
	}
}
