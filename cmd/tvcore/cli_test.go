package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"tvcore/internal/daemonctl"
	"tvcore/internal/epg"
	"tvcore/internal/scan"
	"tvcore/internal/testsupport"
)

func scanToCompletion(t *testing.T, env *cliTestEnv) {
	t.Helper()
	out, _, err := runCLI(t, []string{"scan", "start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("scan start: %v", err)
	}
	requireContains(t, out, "State:")
	waitFor(t, 5*time.Second, func() bool {
		resp, err := env.client.ScanStatus()
		if err != nil {
			t.Fatalf("ScanStatus: %v", err)
		}
		return resp.Status.State == scan.StateIdle && resp.Status.Outcome != scan.OutcomeNone
	})
}

func TestScanAndChannelsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"channels"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	requireContains(t, out, "No channels")

	scanToCompletion(t, env)

	out, _, err = runCLI(t, []string{"scan", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("scan status: %v", err)
	}
	requireContains(t, out, "Outcome:    completed")

	out, _, err = runCLI(t, []string{"channels"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("channels: %v", err)
	}
	requireContains(t, out, "News 24")
	requireContains(t, out, "Technology")

	out, _, err = runCLI(t, []string{"channels", "--csv"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("channels --csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 4 rows, got %q", out)
	}
	requireContains(t, lines[0], "display_number")

	out, _, err = runCLI(t, []string{"channels", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("channels --json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode channels json: %v", err)
	}
	if len(decoded) != 4 {
		t.Fatalf("expected 4 channels, got %d", len(decoded))
	}

	if _, _, err := runCLI(t, []string{"channels", "--json", "--csv"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected --json and --csv to conflict")
	}
}

func TestTuneAudioAndStopCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	scanToCompletion(t, env)

	channels, err := env.client.Channels()
	if err != nil {
		t.Fatalf("Channels: %v", err)
	}
	first := strconv.FormatInt(channels.Channels[0].ID, 10)

	out, _, err := runCLI(t, []string{"tune", first}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("tune: %v", err)
	}
	requireContains(t, out, "Playing")
	requireContains(t, out, "News 24")

	out, _, err = runCLI(t, []string{"volume", "35"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	requireContains(t, out, "Volume 35% (unmuted)")

	out, _, err = runCLI(t, []string{"mute"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("mute: %v", err)
	}
	requireContains(t, out, "(muted)")

	out, _, err = runCLI(t, []string{"mute", "off"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("mute off: %v", err)
	}
	requireContains(t, out, "Volume 35% (unmuted)")

	if _, _, err := runCLI(t, []string{"volume", "140"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected out of range volume to fail")
	}

	out, _, err = runCLI(t, []string{"tracks"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("tracks: %v", err)
	}
	requireContains(t, out, "audio")
	requireContains(t, out, "subtitle")

	out, _, err = runCLI(t, []string{"audio", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("audio: %v", err)
	}
	requireContains(t, out, "Audio track 1 selected")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Playback stopped")
}

func TestTuneRejectsBadChannel(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"tune", "abc"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "invalid channel id") {
		t.Fatalf("expected invalid channel id error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"tune", "999"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown channel to fail")
	}
}

func TestRoutesAndEPGCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"routes"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	requireContains(t, out, "Frontends 2")

	out, _, err = runCLI(t, []string{"epg"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("epg: %v", err)
	}
	requireContains(t, out, "EPG acquisition is disabled")

	if _, _, err := runCLI(t, []string{"epg", "--acquire"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected acquire to fail while epg is disabled")
	}
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	scanToCompletion(t, env)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var snap daemonctl.Snapshot
	if err := json.Unmarshal([]byte(out), &snap); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !snap.Online || snap.Daemon == nil || snap.Daemon.Control == nil {
		t.Fatalf("expected online snapshot, got %+v", snap)
	}
	if snap.Daemon.Control.Channels != 4 {
		t.Fatalf("expected 4 channels, got %d", snap.Daemon.Control.Channels)
	}

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "Last scan completed")
}

func TestStatusCommandOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, "", configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	requireContains(t, out, "== Checks ==")
}

func TestCommandsReportMissingDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	_, _, err := runCLI(t, []string{"channels"}, "", configPath)
	if err == nil || !strings.Contains(err.Error(), "tvcore daemon start") {
		t.Fatalf("expected daemon start hint, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected existing config to be refused without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, env.socketPath, env.configPath); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	if strings.TrimSpace(out) == "" {
		t.Fatal("expected test-notify to print a result")
	}
}

func TestDescribeRun(t *testing.T) {
	run := &epg.Run{Mode: epg.ModeFull, Channels: 3, Fetched: 10, Inserted: 8, Duration: 1500 * time.Millisecond, Frequency: 11362000}
	got := describeRun(run)
	want := "Last full run: 3 channels, 10 fetched, 8 stored in 1.5s (11362000 kHz)"
	if got != want {
		t.Fatalf("describeRun mismatch\n got: %q\nwant: %q", got, want)
	}

	skipped := describeRun(&epg.Run{Mode: epg.ModeNowNext, Skipped: true})
	if skipped != "Last now_next run skipped" {
		t.Fatalf("unexpected skipped summary %q", skipped)
	}
}

func TestParseChannelID(t *testing.T) {
	if id, err := parseChannelID(" 12 "); err != nil || id != 12 {
		t.Fatalf("expected 12, got %d err=%v", id, err)
	}
	for _, bad := range []string{"", "0", "-3", "x"} {
		if _, err := parseChannelID(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestScanSummary(t *testing.T) {
	if got := scanSummary(scan.Status{State: scan.StateIdle}); got != "Never run" {
		t.Fatalf("unexpected idle summary %q", got)
	}
	got := scanSummary(scan.Status{State: scan.StateIdle, Outcome: scan.OutcomeFailed, Error: "no signal"})
	if got != "Last scan failed: no signal" {
		t.Fatalf("unexpected failed summary %q", got)
	}
	if scanKind(scan.Status{Outcome: scan.OutcomeCompleted}) != statusOK {
		t.Fatal("expected completed scan to render ok")
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	content := "{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n{\"msg\":\"three\"}\n"
	if err := os.WriteFile(env.cfg.LogPath(), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "one") {
		t.Fatalf("expected only the last two lines, got %q", out)
	}
	requireContains(t, out, "two")
	requireContains(t, out, "three")
}
