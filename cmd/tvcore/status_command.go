package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"tvcore/internal/daemon"
	"tvcore/internal/daemonctl"
	"tvcore/internal/preflight"
	"tvcore/internal/scan"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, middleware, and control plane status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, snap)
			}
			renderStatus(cmd.OutOrStdout(), snap, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	return cmd
}

func renderStatus(out io.Writer, snap *daemonctl.Snapshot, colorize bool) {
	printSection(out, "Daemon", colorize)
	if !snap.Online || snap.Daemon == nil {
		fmt.Fprintln(out, renderStatusLine("tvcore", statusWarn, "Not running (run `tvcore daemon start`)", colorize))
	} else {
		renderDaemonLines(out, snap.Daemon, colorize)
	}
	fmt.Fprintln(out)

	printSection(out, "Checks", colorize)
	for _, line := range preflightLines(snap.Preflight, colorize) {
		fmt.Fprintln(out, line)
	}

	if snap.Stats != nil {
		fmt.Fprintln(out)
		printSection(out, "Database", colorize)
		fmt.Fprint(out, renderTable(
			[]string{"Channels", "Programs", "Acquired frequencies"},
			[][]string{{
				strconv.Itoa(snap.Stats.Channels),
				strconv.Itoa(snap.Stats.Programs),
				strconv.Itoa(snap.Stats.Frequencies),
			}},
			0, 1, 2,
		))
	}
}

func renderDaemonLines(out io.Writer, st *daemon.Status, colorize bool) {
	fmt.Fprintln(out, renderStatusLine("tvcore", statusOK, fmt.Sprintf("Running (pid %d, started %s)", st.PID, relativeTime(st.StartedAt)), colorize))

	switch {
	case st.Middleware == "ready":
		fmt.Fprintln(out, renderStatusLine("Middleware", statusOK, "Ready", colorize))
	case st.MiddlewareError != "":
		fmt.Fprintln(out, renderStatusLine("Middleware", statusError, st.MiddlewareError, colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Middleware", statusWarn, "Not ready ("+st.Middleware+")", colorize))
	}

	if st.APIAddress != "" {
		fmt.Fprintln(out, renderStatusLine("HTTP API", statusOK, "http://"+st.APIAddress, colorize))
	}
	if st.Hotplug {
		fmt.Fprintln(out, renderStatusLine("DVB hotplug", statusOK, "Monitoring", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("DVB hotplug", statusInfo, "Inactive", colorize))
	}
	if st.PushEnabled {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "Configured", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Notifications", statusWarn, "Not configured", colorize))
	}

	control := st.Control
	if control == nil {
		return
	}
	fmt.Fprintln(out, renderStatusLine("Channels", statusInfo, strconv.Itoa(control.Channels), colorize))
	if ch := control.Active.Channel; ch != nil {
		fmt.Fprintln(out, renderStatusLine("Playing", statusOK, fmt.Sprintf("%s %s (tuned %s)", ch.DisplayNumber, ch.Name, relativeTime(control.Active.TunedAt)), colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Playing", statusInfo, "Nothing", colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Scan", scanKind(control.Scan), scanSummary(control.Scan), colorize))
	switch {
	case !control.EPGEnabled:
		fmt.Fprintln(out, renderStatusLine("EPG", statusInfo, "Disabled", colorize))
	case control.EPGLastRun != nil:
		run := control.EPGLastRun
		fmt.Fprintln(out, renderStatusLine("EPG", statusOK, fmt.Sprintf("Last %s run stored %d of %d events", run.Mode, run.Inserted, run.Fetched), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("EPG", statusInfo, "No acquisition yet", colorize))
	}
}

func scanKind(st scan.Status) statusKind {
	switch st.Outcome {
	case scan.OutcomeFailed, scan.OutcomeNoServiceSpace:
		return statusWarn
	case scan.OutcomeCompleted:
		return statusOK
	default:
		return statusInfo
	}
}

func scanSummary(st scan.Status) string {
	if st.State == scan.StateScanning {
		return fmt.Sprintf("Scanning %s (%d%%)", st.Technology, st.Progress)
	}
	if st.Outcome == scan.OutcomeNone {
		return "Never run"
	}
	summary := fmt.Sprintf("Last scan %s", st.Outcome)
	if !st.FinishedAt.IsZero() {
		summary += " " + relativeTime(st.FinishedAt)
	}
	if len(st.Services) > 0 {
		summary += fmt.Sprintf(", %d services", len(st.Services))
	}
	if st.Error != "" {
		summary += ": " + st.Error
	}
	return summary
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	if len(results) == 0 {
		return []string{renderStatusLine("Checks", statusInfo, "None run", colorize)}
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
