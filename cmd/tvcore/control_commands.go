package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tvcore/internal/epg"
	"tvcore/internal/ipc"
	"tvcore/internal/scan"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Run or inspect the channel scan",
	}
	scanCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")

	report := func(cmd *cobra.Command, status scan.Status) error {
		if asJSON {
			return writeJSON(cmd, status)
		}
		printScanStatus(cmd.OutOrStdout(), status)
		return nil
	}

	scanCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start a scan on the installation route",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScanStart()
				if err != nil {
					return err
				}
				return report(cmd, resp.Status)
			})
		},
	})
	scanCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Abort the running scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScanStop()
				if err != nil {
					return err
				}
				return report(cmd, resp.Status)
			})
		},
	})
	scanCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show scan progress and the last outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ScanStatus()
				if err != nil {
					return err
				}
				return report(cmd, resp.Status)
			})
		},
	})
	return scanCmd
}

func printScanStatus(out io.Writer, st scan.Status) {
	fmt.Fprintf(out, "State:      %s\n", st.State)
	if st.Technology != 0 || st.ScanID != "" {
		fmt.Fprintf(out, "Technology: %s (route %d)\n", st.Technology, st.RouteID)
	}
	if st.State == scan.StateScanning || st.Progress > 0 {
		fmt.Fprintf(out, "Progress:   %d%%\n", st.Progress)
	}
	if st.Frequency > 0 {
		fmt.Fprintf(out, "Frequency:  %d kHz\n", st.Frequency)
		fmt.Fprintf(out, "Signal:     level %d, quality %d, BER %d\n", st.SignalLevel, st.SignalQuality, st.SignalBER)
	}
	if st.Outcome != scan.OutcomeNone {
		fmt.Fprintf(out, "Outcome:    %s (%s)\n", st.Outcome, relativeTime(st.FinishedAt))
	}
	if st.Error != "" {
		fmt.Fprintf(out, "Error:      %s\n", st.Error)
	}
	for _, name := range st.Services {
		fmt.Fprintf(out, "  + %s\n", name)
	}
}

func newRoutesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Show discovered hardware routes and their assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Routes()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				c := resp.Counts
				fmt.Fprintf(out, "Frontends %d, decoders %d, outputs %d, storage %d\n", c.Frontends, c.Decoders, c.Outputs, c.Storage)
				fmt.Fprintf(out, "Routes: install %d, live %d, record %d, playback %d\n", c.Install, c.Live, c.Record, c.Playback)
				if len(resp.Assignments) == 0 {
					fmt.Fprintln(out, "No routes assigned")
					return nil
				}
				rows := make([][]string, 0, len(resp.Assignments))
				for _, a := range resp.Assignments {
					row := []string{a.Technology, a.Kind, "-", "-", "-", "-"}
					if r := a.Route; r != nil {
						row[2] = strconv.Itoa(r.ID)
						row[3] = strconv.Itoa(r.FrontendID)
						row[4] = strconv.Itoa(r.DecoderID)
						row[5] = strconv.Itoa(r.OutputID)
					}
					rows = append(rows, row)
				}
				fmt.Fprint(out, renderTable([]string{"Technology", "Kind", "Route", "Frontend", "Decoder", "Output"}, rows, 2, 3, 4, 5))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func newEPGCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var acquire bool
	cmd := &cobra.Command{
		Use:   "epg",
		Short: "Show guide acquisition state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.EPG(acquire)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printEPG(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of text")
	cmd.Flags().BoolVar(&acquire, "acquire", false, "Queue a full acquisition for the playing transponder")
	return cmd
}

func printEPG(out io.Writer, resp *ipc.EPGResponse) {
	if !resp.Enabled {
		fmt.Fprintln(out, "EPG acquisition is disabled")
		return
	}
	if resp.Queued {
		fmt.Fprintln(out, "Full acquisition queued")
	}
	if win := resp.Window; win != nil {
		fmt.Fprintf(out, "Window: %s to %s (skew %d days)\n", win.Start.Format("2006-01-02 15:04"), win.End.Format("2006-01-02 15:04"), win.SkewDays)
	}
	if run := resp.LastRun; run != nil {
		fmt.Fprintln(out, describeRun(run))
	}
	if len(resp.Acquisitions) == 0 {
		fmt.Fprintln(out, "No transponders acquired yet")
		return
	}
	rows := make([][]string, 0, len(resp.Acquisitions))
	for _, a := range resp.Acquisitions {
		state := "stale"
		switch {
		case a.InProgress:
			state = "in progress"
		case a.Fresh:
			state = "fresh"
		}
		rows = append(rows, []string{strconv.Itoa(a.Frequency), relativeTime(a.LastAcquired), state})
	}
	fmt.Fprint(out, renderTable([]string{"Frequency (kHz)", "Last acquired", "State"}, rows, 0))
}

func describeRun(run *epg.Run) string {
	if run.Skipped {
		return fmt.Sprintf("Last %s run skipped", run.Mode)
	}
	line := fmt.Sprintf("Last %s run: %d channels, %d fetched, %d stored in %s", run.Mode, run.Channels, run.Fetched, run.Inserted, run.Duration.Round(time.Millisecond))
	if run.Frequency > 0 {
		line += fmt.Sprintf(" (%d kHz)", run.Frequency)
	}
	return line
}
