package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsphweid/staffmidi/config"
	"github.com/jsphweid/staffmidi/logger"
	"github.com/jsphweid/staffmidi/playback"
	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var playPort int

func init() {
	playCmd.Flags().IntVar(&playPort, "port", 0, "midi output port number")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play <song.json>",
	Short: "Plays a song through a MIDI output port",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cobra.CheckErr(play(ctx, args[0], config.Load().DefaultTempo))
	},
}

func play(ctx context.Context, songPath string, defaultTempo float64) error {
	in, err := readSongInput(songPath)
	if err != nil {
		return err
	}
	s, err := parseSong(in, defaultTempo)
	if err != nil {
		return fmt.Errorf("%s: %w", songPath, err)
	}

	defer gomidi.CloseDriver()
	out, err := gomidi.OutPort(playPort)
	if err != nil {
		return fmt.Errorf("can't find midi output port %d: %w", playPort, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", out, err)
	}

	session := playback.NewSession(send)
	if err := session.Start(ctx, s); err != nil {
		return err
	}
	logger.Info("playing", logger.Fields{"song": songPath, "port": out.String(), "notes": s.NoteCount()})
	return session.Wait()
}
