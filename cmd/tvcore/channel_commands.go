package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"tvcore/internal/ipc"
	"tvcore/internal/store"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List the channel catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON && asCSV {
				return fmt.Errorf("--json and --csv are mutually exclusive")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Channels()
				if err != nil {
					return err
				}
				switch {
				case asJSON:
					return writeJSON(cmd, resp.Channels)
				case asCSV:
					data, err := csvutil.Marshal(resp.Channels)
					if err != nil {
						return fmt.Errorf("encode channels: %w", err)
					}
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Channels) == 0 {
					fmt.Fprintln(out, "No channels (run `tvcore scan start`)")
					return nil
				}
				fmt.Fprint(out, renderTable(channelHeaders(), channelRows(resp.Channels), 0, 1))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Emit CSV for spreadsheets")
	return cmd
}

func channelHeaders() []string {
	return []string{"ID", "No.", "Name", "Technology", "Kind", "Source"}
}

func channelRows(channels []store.Channel) [][]string {
	rows := make([][]string, 0, len(channels))
	for _, ch := range channels {
		source := ch.URL
		if source == "" && ch.Frequency > 0 {
			source = fmt.Sprintf("%d kHz", ch.Frequency)
		}
		rows = append(rows, []string{
			strconv.FormatInt(ch.ID, 10),
			ch.DisplayNumber,
			ch.Name,
			ch.Technology.String(),
			ch.ServiceKind.String(),
			source,
		})
	}
	return rows
}

func newGuideCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var hours int
	cmd := &cobra.Command{
		Use:   "guide <channel-id>",
		Short: "Show the programme guide for a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChannelID(args[0])
			if err != nil {
				return err
			}
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive")
			}
			from := time.Now()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Programs(ipc.ProgramsRequest{
					ChannelID: id,
					From:      from,
					To:        from.Add(time.Duration(hours) * time.Hour),
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Programs) == 0 {
					fmt.Fprintf(out, "No guide data for %s %s\n", resp.Channel.DisplayNumber, resp.Channel.Name)
					return nil
				}
				rows := make([][]string, 0, len(resp.Programs))
				for _, p := range resp.Programs {
					rows = append(rows, []string{clockRange(p.Start, p.End), p.Title, p.Genre, p.Rating})
				}
				fmt.Fprintf(out, "%s %s\n", resp.Channel.DisplayNumber, resp.Channel.Name)
				fmt.Fprint(out, renderTable([]string{"Time", "Title", "Genre", "Rating"}, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().IntVar(&hours, "hours", 24, "How many hours ahead to show")
	return cmd
}

func newNowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "now <channel-id>",
		Short: "Show what is airing on a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChannelID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.NowPlaying(id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.Program == nil {
					fmt.Fprintln(out, "Nothing in the guide for this time")
					return nil
				}
				p := resp.Program
				fmt.Fprintf(out, "%s  %s\n", clockRange(p.Start, p.End), p.Title)
				if p.Genre != "" || p.Rating != "" {
					fmt.Fprintf(out, "Genre: %s  Rating: %s\n", p.Genre, p.Rating)
				}
				if p.Description != "" {
					fmt.Fprintln(out, p.Description)
				}
				return nil
			})
		},
	}
}

func newTuneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tune <channel-id>",
		Short: "Play a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseChannelID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Tune(id)
				if err != nil {
					return err
				}
				if !resp.Result.OK {
					return fmt.Errorf("tune %s %s failed: %s", resp.Channel.DisplayNumber, resp.Channel.Name, resp.Error)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Playing %s %s", resp.Channel.DisplayNumber, resp.Channel.Name)
				if resp.Result.Route != nil {
					fmt.Fprintf(out, " on route %d", resp.Result.Route.ID)
				}
				fmt.Fprintln(out)
				if resp.Result.NoVideo {
					fmt.Fprintln(out, "Radio service: no video on this channel")
				}
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop playback",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playback stopped")
				return nil
			})
		},
	}
}
