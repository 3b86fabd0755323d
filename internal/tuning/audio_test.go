package tuning_test

import (
	"context"
	"errors"
	"testing"

	"tvcore/internal/services"
)

func TestSetVolumeUnmutesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.tuner.SetMute(ctx, true); err != nil {
		t.Fatalf("SetMute: %v", err)
	}
	f.emu.ResetCalls()

	if err := f.tuner.SetVolume(ctx, 35); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	calls := f.emu.Calls()
	unmute := indexOf(calls, "SetMute muted=false")
	set := indexOf(calls, "SetVolume percent=35")
	if unmute < 0 || set < 0 || unmute > set {
		t.Fatalf("expected unmute before volume change, got %v", calls)
	}
	state, err := f.tuner.Volume(ctx)
	if err != nil || state.Percent != 35 || state.Muted {
		t.Fatalf("unexpected mixer state %+v %v", state, err)
	}
}

func TestSetMuteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.tuner.SetMute(ctx, false); err != nil {
		t.Fatalf("SetMute: %v", err)
	}
	if len(f.emu.CallsWithPrefix("SetMute")) != 0 {
		t.Fatalf("unmuting an unmuted mixer must not issue a command: %v", f.emu.Calls())
	}
	if err := f.tuner.SetVolume(ctx, 101); !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestTrackListingUsesDisplayNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.tuner.AudioTracks(ctx); err == nil {
		t.Fatal("expected error with nothing playing")
	}
	if result := f.tuner.Tune(ctx, newsChannel); !result.OK {
		t.Fatalf("tune failed: %v", result.Err)
	}
	tracks, err := f.tuner.AudioTracks(ctx)
	if err != nil {
		t.Fatalf("AudioTracks: %v", err)
	}
	if len(tracks) != 2 || tracks[0].Name != "English" || tracks[1].Name != "German" {
		t.Fatalf("unexpected tracks %+v", tracks)
	}
	subs, err := f.tuner.SubtitleTracks(ctx)
	if err != nil || len(subs) != 1 || subs[0].Language != "eng" {
		t.Fatalf("unexpected subtitles %+v %v", subs, err)
	}
	if err := f.tuner.SelectAudioTrack(ctx, 1); err != nil {
		t.Fatalf("SelectAudioTrack: %v", err)
	}
	if err := f.tuner.SelectAudioTrack(ctx, 7); !errors.Is(err, services.ErrInvalidOperation) {
		t.Fatalf("expected rejection for missing track, got %v", err)
	}
}
