package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tvcore/internal/ipc"
	"tvcore/internal/tuning"
)

func newAudioCommands(ctx *commandContext) []*cobra.Command {
	volumeCmd := &cobra.Command{
		Use:   "volume [percent]",
		Short: "Show or set the output volume",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req ipc.VolumeRequest
			if len(args) == 1 {
				pct, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(args[0]), "%"))
				if err != nil || pct < 0 || pct > 100 {
					return fmt.Errorf("volume must be between 0 and 100, got %q", args[0])
				}
				req.Set = &pct
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Volume(req)
				if err != nil {
					return err
				}
				printVolume(cmd.OutOrStdout(), resp.Volume)
				return nil
			})
		},
	}

	muteCmd := &cobra.Command{
		Use:   "mute [on|off]",
		Short: "Mute or unmute the output (default on)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			muted := true
			if len(args) == 1 {
				switch strings.ToLower(strings.TrimSpace(args[0])) {
				case "on", "true", "yes":
				case "off", "false", "no":
					muted = false
				default:
					return fmt.Errorf("mute expects on or off, got %q", args[0])
				}
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Volume(ipc.VolumeRequest{Mute: &muted})
				if err != nil {
					return err
				}
				printVolume(cmd.OutOrStdout(), resp.Volume)
				return nil
			})
		},
	}

	tracksCmd := &cobra.Command{
		Use:   "tracks",
		Short: "List audio and subtitle tracks on the playing channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Tracks()
				if err != nil {
					return err
				}
				rows := trackRows("audio", resp.Audio)
				rows = append(rows, trackRows("subtitle", resp.Subtitles)...)
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "No tracks")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Type", "Index", "Language", "Name"}, rows, 1))
				return nil
			})
		},
	}

	audioCmd := &cobra.Command{
		Use:   "audio <index>",
		Short: "Select the audio track on the playing channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil || index < 0 {
				return fmt.Errorf("invalid track index %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SelectAudio(index); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Audio track %d selected\n", index)
				return nil
			})
		},
	}

	return []*cobra.Command{volumeCmd, muteCmd, tracksCmd, audioCmd}
}

func printVolume(out io.Writer, v tuning.VolumeState) {
	state := "unmuted"
	if v.Muted {
		state = "muted"
	}
	fmt.Fprintf(out, "Volume %d%% (%s)\n", v.Percent, state)
}

func trackRows(kind string, tracks []tuning.TrackInfo) [][]string {
	rows := make([][]string, 0, len(tracks))
	for _, tr := range tracks {
		rows = append(rows, []string{kind, strconv.Itoa(tr.Index), tr.Language, tr.Name})
	}
	return rows
}
