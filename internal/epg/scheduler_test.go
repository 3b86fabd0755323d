package epg_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tvcore/internal/epg"
	"tvcore/internal/testsupport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memTimestamps struct {
	mu    sync.Mutex
	times map[int]time.Time
	saves int
}

func (m *memTimestamps) AcquisitionTimes(context.Context) (map[int]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int]time.Time, len(m.times))
	for k, v := range m.times {
		out[k] = v
	}
	return out, nil
}

func (m *memTimestamps) RecordAcquisition(_ context.Context, frequency int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.times == nil {
		m.times = make(map[int]time.Time)
	}
	m.times[frequency] = at
	m.saves++
	return nil
}

func TestShouldAcquireFreshnessBoundary(t *testing.T) {
	clock := newClock()
	st := &memTimestamps{}
	sched, err := epg.NewScheduler(context.Background(), st, 120*time.Second, epg.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	const freq = 474000

	if !sched.ShouldAcquire(freq) {
		t.Fatal("expected unknown frequency to be due")
	}
	sched.OnAcquisitionStarted(freq)
	if sched.ShouldAcquire(freq) {
		t.Fatal("expected refusal while acquisition is in progress")
	}
	if err := sched.OnAcquisitionFinished(context.Background(), freq); err != nil {
		t.Fatalf("OnAcquisitionFinished: %v", err)
	}
	if sched.ShouldAcquire(freq) {
		t.Fatal("expected refusal immediately after finishing")
	}

	clock.Advance(119_999 * time.Millisecond)
	if sched.ShouldAcquire(freq) {
		t.Fatal("expected refusal at 119999ms")
	}
	clock.Advance(time.Millisecond)
	if !sched.ShouldAcquire(freq) {
		t.Fatal("expected acquisition to be due at 120000ms")
	}
	if st.saves != 1 {
		t.Fatalf("expected one persisted timestamp, got %d", st.saves)
	}
}

func TestTryBeginAllowsOneAcquisitionPerFrequency(t *testing.T) {
	sched, err := epg.NewScheduler(context.Background(), &memTimestamps{}, time.Minute)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if !sched.TryBegin(100) {
		t.Fatal("expected first TryBegin to succeed")
	}
	if sched.TryBegin(100) {
		t.Fatal("expected second TryBegin for the same frequency to fail")
	}
	if !sched.TryBegin(200) {
		t.Fatal("expected other frequencies to be independent")
	}
	sched.Abandon(100)
	if !sched.ShouldAcquire(100) {
		t.Fatal("expected abandoned acquisition to be due again")
	}
}

func TestTimestampsSurviveRestart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	clock := newClock()

	first, err := epg.NewScheduler(context.Background(), st, 2*time.Minute, epg.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	first.OnAcquisitionStarted(522000)
	if err := first.OnAcquisitionFinished(context.Background(), 522000); err != nil {
		t.Fatalf("OnAcquisitionFinished: %v", err)
	}

	clock.Advance(time.Minute)
	second, err := epg.NewScheduler(context.Background(), st, 2*time.Minute, epg.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewScheduler after restart: %v", err)
	}
	if second.ShouldAcquire(522000) {
		t.Fatal("expected persisted timestamp to keep the frequency fresh")
	}
	clock.Advance(time.Minute)
	if !second.ShouldAcquire(522000) {
		t.Fatal("expected frequency to be due after the window")
	}
}

func TestSnapshotIsSortedAndFlagsFreshness(t *testing.T) {
	clock := newClock()
	st := &memTimestamps{times: map[int]time.Time{
		522000: clock.Now().Add(-time.Hour),
		474000: clock.Now().Add(-time.Second),
	}}
	sched, err := epg.NewScheduler(context.Background(), st, 2*time.Minute, epg.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	sched.OnAcquisitionStarted(610000)

	snap := sched.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	if snap[0].Frequency != 474000 || !snap[0].Fresh {
		t.Fatalf("unexpected first entry %+v", snap[0])
	}
	if snap[1].Frequency != 522000 || snap[1].Fresh {
		t.Fatalf("unexpected second entry %+v", snap[1])
	}
	if snap[2].Frequency != 610000 || !snap[2].InProgress {
		t.Fatalf("unexpected third entry %+v", snap[2])
	}
}
