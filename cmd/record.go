package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jsphweid/staffmidi/logger"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/score"
	"github.com/spf13/cobra"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	recordPort     int
	recordDuration string
	recordOut      string
	recordTempo    float64
)

func init() {
	recordCmd.Flags().IntVar(&recordPort, "port", 0, "midi input port number")
	recordCmd.Flags().StringVar(&recordDuration, "duration", "1/4", "note value for every key press")
	recordCmd.Flags().StringVarP(&recordOut, "out", "o", "recording.mid", "where to write the .mid file")
	recordCmd.Flags().Float64Var(&recordTempo, "tempo", 0, "tempo of the written file, defaults to DEFAULT_TEMPO")
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Step-records a melody from a MIDI keyboard",
	Long:  `Every key pressed on the input port adds one note at the cursor. Ctrl-C writes the file.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cobra.CheckErr(record(ctx))
	},
}

// handleKeyboardMessage reports whether msg added a note.
func handleKeyboardMessage(c *score.Composer, msg gomidi.Message) bool {
	var channel, key, velocity uint8
	if !msg.GetNoteStart(&channel, &key, &velocity) {
		return false
	}
	if err := c.AddPitch(int(key)); err != nil {
		logger.Warn("ignoring key", logger.Fields{"key": key, "error": err.Error()})
		return false
	}
	return true
}

func record(ctx context.Context) error {
	defer gomidi.CloseDriver()

	c := score.NewComposer(recordTempo)
	if err := c.SetDurationName(recordDuration); err != nil {
		return err
	}

	in, err := gomidi.InPort(recordPort)
	if err != nil {
		return fmt.Errorf("can't find midi input port %d: %w", recordPort, err)
	}

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		if handleKeyboardMessage(c, msg) {
			logger.Debug("recorded", logger.Fields{"msg": msg.String(), "cursor": c.Cursor()})
		}
	})
	if err != nil {
		return fmt.Errorf("could not listen to %s: %w", in, err)
	}
	logger.Info("recording, press ctrl-c to finish", logger.Fields{"port": in.String()})

	<-ctx.Done()
	stop()

	if c.Empty() {
		logger.Info("nothing recorded", nil)
		return nil
	}
	buf, err := midi.BuildScore(c.Score())
	if err != nil {
		return err
	}
	if err := os.WriteFile(recordOut, buf, 0644); err != nil {
		return fmt.Errorf("write failed for file %s: %w", recordOut, err)
	}
	logger.Info("recorded", logger.Fields{"out": recordOut, "bytes": len(buf), "beats": c.Cursor()})
	return nil
}
