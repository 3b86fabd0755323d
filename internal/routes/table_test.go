package routes_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tvcore/internal/logging"
	"tvcore/internal/middleware"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/routes"
	"tvcore/internal/services"
)

func newEmulator(t *testing.T, profile emulator.Profile) *emulator.Emulator {
	t.Helper()
	emu, err := emulator.New(profile)
	if err != nil {
		t.Fatalf("emulator.New: %v", err)
	}
	t.Cleanup(emu.Close)
	return emu
}

func discover(t *testing.T, emu *emulator.Emulator) *routes.Table {
	t.Helper()
	table, err := routes.Discover(context.Background(), emu, logging.NewNop())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	return table
}

func hardware(decoders, outputs, storage int, frontends ...[]string) emulator.Profile {
	profile := emulator.Profile{Decoders: decoders, Outputs: outputs, Storage: storage, EventMinutes: 30}
	for i, types := range frontends {
		profile.Frontends = append(profile.Frontends, emulator.FrontendProfile{Name: fmt.Sprintf("fe%d", i), Types: types})
	}
	return profile
}

func TestDiscoverTerrestrialAndIPBox(t *testing.T) {
	emu := newEmulator(t, hardware(1, 1, 0, []string{"terrestrial"}, []string{"ip"}))
	table := discover(t, emu)

	counts := table.Counts()
	if counts.Install != 2 || counts.Live != 2 || counts.Record != 0 || counts.Playback != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	ter := table.Set(routes.Terrestrial)
	if ter.Live == nil || ter.Live.FrontendID != 0 {
		t.Fatalf("expected terrestrial live on frontend 0, got %+v", ter.Live)
	}
	if ter.Install == nil || ter.Install.FrontendID != 0 {
		t.Fatalf("expected terrestrial install on frontend 0, got %+v", ter.Install)
	}
	if ter.Record != nil {
		t.Fatalf("expected no record route without storage, got %+v", ter.Record)
	}

	ip := table.Set(routes.IPPrimary)
	if ip.Live == nil || ip.Live.FrontendID != 1 {
		t.Fatalf("expected ip primary live on frontend 1, got %+v", ip.Live)
	}
	if table.RouteFor(routes.Cable, routes.KindLive) != nil || table.RouteFor(routes.Satellite, routes.KindInstall) != nil {
		t.Fatal("expected cable and satellite to stay unresolved")
	}
	if table.Playback(routes.PlaybackMain) != nil {
		t.Fatal("expected no playback route without storage")
	}
	if len(emu.CallsWithPrefix("ConfigureLiveRoute")) != 0 {
		t.Fatal("pip configuration must not run without a complete pip set")
	}
}

func TestHybridFrontendFillsBroadcastBeforeIP(t *testing.T) {
	emu := newEmulator(t, hardware(2, 1, 0, []string{"terrestrial", "ip"}))
	table := discover(t, emu)

	ter := table.RouteFor(routes.Terrestrial, routes.KindLive)
	ip := table.RouteFor(routes.IPPrimary, routes.KindLive)
	if ter == nil || ip == nil {
		t.Fatalf("expected both slots resolved, got ter=%v ip=%v", ter, ip)
	}
	if ter.DecoderID != 0 || ip.DecoderID != 1 {
		t.Fatalf("expected first live route to terrestrial and second to ip, got ter=%+v ip=%+v", ter, ip)
	}
	if table.RouteFor(routes.IPPip, routes.KindLive) != nil {
		t.Fatal("pip must differ from primary in frontend and decoder")
	}
}

func TestRoutesAreAssignedToAtMostOneSlot(t *testing.T) {
	profiles := []emulator.Profile{
		hardware(2, 2, 1, []string{"terrestrial", "ip"}, []string{"cable", "ip"}),
		hardware(3, 1, 2, []string{"ip"}, []string{"ip"}, []string{"ip"}),
		hardware(1, 1, 1, []string{"terrestrial", "cable", "satellite"}, []string{"satellite"}),
		hardware(0, 0, 0, []string{"ip"}),
	}
	for i, profile := range profiles {
		table := discover(t, newEmulator(t, profile))
		seen := make(map[*routes.Route]string)
		for _, a := range table.Assignments() {
			if prev, ok := seen[a.Route]; ok {
				t.Fatalf("profile %d: route %d assigned to %s and %s/%s", i, a.Route.ID, prev, a.Technology, a.Kind)
			}
			seen[a.Route] = a.Technology + "/" + a.Kind
		}
		for _, tech := range routes.Technologies {
			set := table.Set(tech)
			for _, kind := range []routes.Kind{routes.KindLive, routes.KindInstall, routes.KindRecord} {
				if r := set.Member(kind); r != nil && r.Kind != kind {
					t.Fatalf("profile %d: %s %s member has kind %s", i, tech, kind, r.Kind)
				}
			}
		}
	}
}

func TestPIPSetIsConfiguredVideoOnly(t *testing.T) {
	emu := newEmulator(t, hardware(3, 1, 1, []string{"ip"}, []string{"ip"}, []string{"ip"}))
	table := discover(t, emu)

	primary := table.Set(routes.IPPrimary)
	pip := table.Set(routes.IPPip)
	secondary := table.Set(routes.IPSecondary)
	if !primary.Complete() || !pip.Complete() || !secondary.Complete() {
		t.Fatalf("expected all ip sets complete: %+v %+v %+v", primary, pip, secondary)
	}
	if pip.Live.FrontendID == primary.Live.FrontendID || pip.Live.DecoderID == primary.Live.DecoderID {
		t.Fatalf("pip live shares hardware with primary: %+v vs %+v", pip.Live, primary.Live)
	}
	if pip.Live.FrontendID != 1 || pip.Live.DecoderID != 1 {
		t.Fatalf("expected pip on frontend 1 decoder 1, got %+v", pip.Live)
	}
	if secondary.Live.FrontendID != 1 || secondary.Live.DecoderID != 2 {
		t.Fatalf("expected secondary on frontend 1 decoder 2, got %+v", secondary.Live)
	}

	calls := emu.CallsWithPrefix("ConfigureLiveRoute")
	want := fmt.Sprintf("ConfigureLiveRoute route=%d components=%d", pip.Live.ID, middleware.ComponentVideo)
	if len(calls) != 1 || calls[0] != want {
		t.Fatalf("expected %q, got %v", want, calls)
	}

	main := table.Playback(routes.PlaybackMain)
	pipPlayback := table.Playback(routes.PlaybackPIP)
	if main == nil || pipPlayback == nil || main.DecoderID == pipPlayback.DecoderID {
		t.Fatalf("expected playback slots on distinct decoders, got %+v %+v", main, pipPlayback)
	}
}

func TestPIPConfigurationFailureIsNotFatal(t *testing.T) {
	emu := newEmulator(t, hardware(3, 1, 1, []string{"ip"}, []string{"ip"}, []string{"ip"}))
	emu.FailOn("ConfigureLiveRoute", errors.New("refused"))
	table := discover(t, emu)
	if table.RouteFor(routes.IPPip, routes.KindLive) == nil {
		t.Fatal("expected pip live route to remain assigned")
	}
}

func TestDiscoverAbortsOnMiddlewareFault(t *testing.T) {
	for _, op := range []string{"FrontendCount", "Frontend", "LiveRoute", "PlaybackRoute"} {
		emu := newEmulator(t, hardware(1, 1, 1, []string{"terrestrial"}))
		emu.FailOn(op, errors.New("ipc closed"))
		_, err := routes.Discover(context.Background(), emu, logging.NewNop())
		if !errors.Is(err, services.ErrMiddlewareComm) {
			t.Fatalf("%s: expected middleware comm error, got %v", op, err)
		}
	}
}
