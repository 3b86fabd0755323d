package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tvcore/internal/logging"
	"tvcore/internal/middleware/emulator"
	"tvcore/internal/scan"
	"tvcore/internal/testsupport"
)

const testToken = "s3cret"

type apiFixture struct {
	daemon *Daemon
	emu    *emulator.Emulator
}

func newAPIFixture(t *testing.T, ready bool) apiFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(testToken))
	cfg.EPG.Enabled = false
	cfg.Middleware.PollCycles = 1000
	emu := testsupport.NewEmulator(t, emulator.DefaultProfile())
	if !ready {
		emu.SetReady(false)
	}
	d, err := New(cfg, Options{
		Binding: emu.Binding(),
		Store:   testsupport.MustOpenStore(t, cfg),
		Logger:  logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if ready {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := d.AwaitManager(ctx); err != nil {
			t.Fatalf("AwaitManager: %v", err)
		}
	}
	return apiFixture{daemon: d, emu: emu}
}

func (f apiFixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	f.daemon.api.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (f apiFixture) scan(t *testing.T) {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/scan")
	if w.Code != http.StatusAccepted {
		t.Fatalf("scan start: %d %s", w.Code, w.Body.String())
	}
	mgr, err := f.daemon.Manager()
	if err != nil {
		t.Fatalf("Manager: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := mgr.Scanner().Wait(ctx); err != nil {
		t.Fatalf("scan wait: %v", err)
	}
}

func TestAPIRequiresBearerToken(t *testing.T) {
	f := newAPIFixture(t, true)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	f.daemon.api.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	f.daemon.api.handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	status := decode[Status](t, w)
	if !status.Running || status.Middleware != "ready" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIReportsNotReadyBeforeMiddleware(t *testing.T) {
	f := newAPIFixture(t, false)

	w := f.do(t, http.MethodGet, "/api/channels")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["kind"] != "not_ready" {
		t.Fatalf("expected not_ready kind, got %v", body)
	}

	w = f.do(t, http.MethodGet, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status must work before ready, got %d", w.Code)
	}
}

func TestAPIScanTuneFlow(t *testing.T) {
	f := newAPIFixture(t, true)
	f.scan(t)

	w := f.do(t, http.MethodGet, "/api/scan")
	st := decode[scan.Status](t, w)
	if st.Outcome != scan.OutcomeCompleted || st.State != scan.StateIdle {
		t.Fatalf("unexpected scan status %+v", st)
	}

	w = f.do(t, http.MethodGet, "/api/channels")
	channels := decode[ChannelListResponse](t, w)
	if len(channels.Channels) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(channels.Channels))
	}
	first := channels.Channels[0]

	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/tune/%d", first.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("tune: %d %s", w.Code, w.Body.String())
	}
	tune := decode[TuneResponse](t, w)
	if !tune.Result.OK || tune.Channel.Name != first.Name {
		t.Fatalf("unexpected tune response %+v", tune)
	}

	w = f.do(t, http.MethodPost, "/api/tune/999")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown channel, got %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/api/tune/abc")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", w.Code)
	}

	w = f.do(t, http.MethodPost, "/api/stop")
	if w.Code != http.StatusNoContent {
		t.Fatalf("stop: %d", w.Code)
	}
	if calls := f.emu.CallsWithPrefix("StopService"); len(calls) == 0 {
		t.Fatal("expected StopService after /api/stop")
	}
}

func TestAPIProgramsValidatesRange(t *testing.T) {
	f := newAPIFixture(t, true)
	f.scan(t)

	w := f.do(t, http.MethodGet, "/api/channels/1/programs?from=yesterday")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad from, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/channels/1/programs?from=2026-10-19T10:00:00Z&to=2026-10-19T09:00:00Z")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for inverted range, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/channels/1/programs?from=2026-10-19T10:00:00Z")
	if w.Code != http.StatusOK {
		t.Fatalf("programs: %d %s", w.Code, w.Body.String())
	}
	resp := decode[ProgramListResponse](t, w)
	if !resp.To.Equal(resp.From.Add(24 * time.Hour)) {
		t.Fatalf("expected default 24h range, got %s..%s", resp.From, resp.To)
	}
}

func TestAPIRoutesAndEPG(t *testing.T) {
	f := newAPIFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/routes")
	routes := decode[RoutesResponse](t, w)
	if routes.Counts.Frontends != 2 || len(routes.Assignments) == 0 {
		t.Fatalf("unexpected routes %+v", routes)
	}

	w = f.do(t, http.MethodGet, "/api/epg")
	epgResp := decode[EPGResponse](t, w)
	if epgResp.Enabled {
		t.Fatal("expected epg disabled in fixture")
	}
	w = f.do(t, http.MethodPost, "/api/epg")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 requesting disabled epg, got %d", w.Code)
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	f := newAPIFixture(t, true)
	f.scan(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	f.daemon.api.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"tvcore_channels 4", "tvcore_middleware_ready 1", `tvcore_scans_total{outcome="completed",technology="terrestrial"} 1`} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(fmt.Errorf("plain")); got != http.StatusInternalServerError {
		t.Fatalf("plain error mapped to %d", got)
	}
}
