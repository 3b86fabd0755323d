package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tvcore/internal/middleware"
	"tvcore/internal/routes"
	"tvcore/internal/store"
	"tvcore/internal/testsupport"
)

func sampleChannels() []store.Channel {
	return []store.Channel{
		{DisplayNumber: "01", Name: "News 24", Technology: routes.Terrestrial, ServiceIndex: 1, ServiceKind: middleware.ServiceTV, Frequency: 474000},
		{DisplayNumber: "02", Name: "Classic FM", Technology: routes.Terrestrial, ServiceIndex: 2, ServiceKind: middleware.ServiceRadio, Frequency: 474000},
		{DisplayNumber: "03", Name: "Stream One", URL: "http://example.test/one.m3u8", Technology: routes.IPPrimary, ServiceIndex: store.NoService},
	}
}

func TestReplaceChannelsAssignsStableIdentifiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for round := 0; round < 2; round++ {
		if err := st.ReplaceChannels(ctx, sampleChannels()); err != nil {
			t.Fatalf("ReplaceChannels: %v", err)
		}
		channels, err := st.ListChannels(ctx)
		if err != nil {
			t.Fatalf("ListChannels: %v", err)
		}
		if len(channels) != 3 {
			t.Fatalf("expected 3 channels, got %d", len(channels))
		}
		for i, ch := range channels {
			if ch.ID != int64(i+1) {
				t.Fatalf("round %d: expected id %d, got %d", round, i+1, ch.ID)
			}
		}
		if channels[1].ServiceKind != middleware.ServiceRadio || channels[1].Frequency != 474000 {
			t.Fatalf("unexpected radio channel: %+v", channels[1])
		}
		if !channels[2].IsIP() || channels[2].ServiceIndex != store.NoService || channels[2].URL == "" {
			t.Fatalf("unexpected ip channel: %+v", channels[2])
		}
	}
}

func TestChannelByIDReturnsNilWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ch, err := st.ChannelByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("ChannelByID: %v", err)
	}
	if ch != nil {
		t.Fatalf("expected nil, got %+v", ch)
	}
}

func TestInsertProgramsIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.ReplaceChannels(ctx, sampleChannels()); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	start := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	program := store.Program{ChannelID: 1, Title: "Evening News", Start: start, End: start.Add(30 * time.Minute), Rating: "DVB_4", Genre: "NEWS"}

	batch, err := st.InsertPrograms(ctx, []store.Program{program, program})
	if err != nil {
		t.Fatalf("InsertPrograms: %v", err)
	}
	if batch.Inserted != 1 || batch.Rejected != 0 {
		t.Fatalf("expected 1 new row, got %+v", batch)
	}
	batch, err = st.InsertPrograms(ctx, []store.Program{program})
	if err != nil || batch.Inserted != 0 {
		t.Fatalf("expected re-insert to be a no-op, got %+v %v", batch, err)
	}

	programs, err := st.ProgramsBetween(ctx, 1, start.Add(-time.Hour), start.Add(time.Hour))
	if err != nil {
		t.Fatalf("ProgramsBetween: %v", err)
	}
	if len(programs) != 1 || !programs[0].Start.Equal(start) {
		t.Fatalf("expected exactly one stored program, got %+v", programs)
	}

	at, err := st.ProgramAt(ctx, 1, start.Add(10*time.Minute))
	if err != nil || at == nil || at.Title != "Evening News" {
		t.Fatalf("ProgramAt: %+v %v", at, err)
	}
	if at, _ := st.ProgramAt(ctx, 1, start.Add(30*time.Minute)); at != nil {
		t.Fatalf("end bound must be exclusive, got %+v", at)
	}
}

func TestInsertProgramsSkipsProgramsOfMissingChannels(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.ReplaceChannels(ctx, sampleChannels()); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	start := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	programs := []store.Program{
		{ChannelID: 1, Title: "Evening News", Start: start, End: start.Add(30 * time.Minute)},
		{ChannelID: 99, Title: "Gone", Start: start, End: start.Add(30 * time.Minute)},
		{ChannelID: 2, Title: "Concert", Start: start, End: start.Add(time.Hour)},
	}
	batch, err := st.InsertPrograms(ctx, programs)
	if err != nil {
		t.Fatalf("InsertPrograms: %v", err)
	}
	if batch.Inserted != 2 || batch.Rejected != 1 || batch.FirstRejection == nil {
		t.Fatalf("expected 2 stored and 1 rejected, got %+v", batch)
	}
	for _, id := range []int64{1, 2} {
		stored, err := st.ProgramsBetween(ctx, id, start, start.Add(time.Hour))
		if err != nil {
			t.Fatalf("ProgramsBetween: %v", err)
		}
		if len(stored) != 1 {
			t.Fatalf("channel %d: expected its program to be stored, got %+v", id, stored)
		}
	}
}

func TestReplaceChannelsClearsPrograms(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.ReplaceChannels(ctx, sampleChannels()); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	start := time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
	if _, err := st.InsertPrograms(ctx, []store.Program{{ChannelID: 2, Title: "Concert", Start: start, End: start.Add(time.Hour)}}); err != nil {
		t.Fatalf("InsertPrograms: %v", err)
	}
	if err := st.ReplaceChannels(ctx, sampleChannels()); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Channels != 3 || stats.Programs != 0 {
		t.Fatalf("unexpected stats after rebuild: %+v", stats)
	}
}

func TestAcquisitionTimesSurviveReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	if err := st.RecordAcquisition(ctx, 474000, at); err != nil {
		t.Fatalf("RecordAcquisition: %v", err)
	}
	if err := st.RecordAcquisition(ctx, 474000, at.Add(time.Minute)); err != nil {
		t.Fatalf("RecordAcquisition update: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	times, err := reopened.AcquisitionTimes(ctx)
	if err != nil {
		t.Fatalf("AcquisitionTimes: %v", err)
	}
	if len(times) != 1 || !times[474000].Equal(at.Add(time.Minute)) {
		t.Fatalf("unexpected acquisition times: %v", times)
	}
}

func TestPruneProgramsBefore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.ReplaceChannels(ctx, sampleChannels()); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	base := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	programs := []store.Program{
		{ChannelID: 1, Title: "Old", Start: base.Add(-2 * time.Hour), End: base.Add(-time.Hour)},
		{ChannelID: 1, Title: "Current", Start: base, End: base.Add(time.Hour)},
	}
	if _, err := st.InsertPrograms(ctx, programs); err != nil {
		t.Fatalf("InsertPrograms: %v", err)
	}
	removed, err := st.PruneProgramsBefore(ctx, base)
	if err != nil || removed != 1 {
		t.Fatalf("expected one pruned program, got %d %v", removed, err)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	health, err := st.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %+v", health)
	}
	if health.SchemaVersion != 1 || len(health.MissingTables) != 0 {
		t.Fatalf("unexpected schema state: %+v", health)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cases := []struct {
		name string
		stmt string
	}{
		{"newer version", "PRAGMA user_version = 99"},
		{"unversioned tables", "PRAGMA user_version = 0"},
		{"missing table", "DROP TABLE epg_acquisitions"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			st, err := store.Open(cfg)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, err := st.Exec(tc.stmt); err != nil {
				t.Fatalf("%s: %v", tc.stmt, err)
			}
			st.Close()

			if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
				t.Fatalf("expected schema mismatch, got %v", err)
			}
		})
	}
}

func TestOpenKeepsCurrentSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.ReplaceChannels(context.Background(), sampleChannels()); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	st.Close()

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	stats, err := reopened.Stats(context.Background())
	if err != nil || stats.Channels != 3 {
		t.Fatalf("expected channels to survive reopen, got %+v %v", stats, err)
	}
}
