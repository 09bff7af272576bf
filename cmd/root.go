package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "staffmidi",
	Short: "Melody and chords to Standard MIDI Files",
	Long: `staffmidi turns a melody line and chord accompaniment into a format 1
Standard MIDI File, and can record, play, serve and inspect them.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
