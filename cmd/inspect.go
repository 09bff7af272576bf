package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jsphweid/staffmidi/chord"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/pitch"
	"github.com/spf13/cobra"
)

var inspectChords bool

func init() {
	inspectCmd.Flags().BoolVar(&inspectChords, "chords", false, "also print the sounding chords")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Inspects a MIDI file",
	Long:  `Decodes a MIDI file and prints its tracks, events and tempo`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cobra.CheckErr(inspect(os.Stdout, args[0], inspectChords))
	},
}

func inspect(w io.Writer, path string, withChords bool) error {
	s, err := midi.ReadMidiFile(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "file: %s\n", path)
	fmt.Fprintf(w, "time format: %v\n", s.TimeFormat)
	fmt.Fprintf(w, "tracks: %d\n", len(s.Tracks))

	summaries := midi.Summarize(s)
	for i, track := range s.Tracks {
		sum := summaries[i]
		fmt.Fprintf(w, "\ntrack %d: %d events, %d note ons, %d note offs, ends at tick %d\n",
			i, sum.Events, sum.NoteOns, sum.NoteOffs, sum.EndTick)
		if sum.Tempo > 0 {
			fmt.Fprintf(w, "  tempo: %.2f bpm\n", sum.Tempo)
		}
		var absTicks int64
		for _, event := range track {
			absTicks += int64(event.Delta)
			fmt.Fprintf(w, "  %8d  %s\n", absTicks, event.Message.String())
		}
	}

	if !withChords {
		return nil
	}
	fmt.Fprintln(w, "\nchords:")
	for _, c := range chord.GetChords(s) {
		names := make([]string, 0, len(c.Notes))
		for _, note := range c.Notes {
			names = append(names, pitch.MustName(int(note)))
		}
		fmt.Fprintf(w, "  %8d  %-16s %s\n", c.AbsTickOffset, chord.CreateChordKey(c.Notes), strings.Join(names, " "))
	}
	return nil
}
