package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jsphweid/staffmidi/config"
	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/logger"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/sample"
	"github.com/jsphweid/staffmidi/score"
	"github.com/spf13/cobra"
)

var (
	exportOut         string
	exportPreviewBars int
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", constants.DefaultFilename, "where to write the .mid file")
	exportCmd.Flags().IntVar(&exportPreviewBars, "preview-bars", 0, "only export the first N bars")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <song.json>",
	Short: "Encodes a song as a MIDI file",
	Long:  `Encodes a song (tempo, melody and chords as JSON) as a MIDI file`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		cobra.CheckErr(exportFile(args[0], exportOut, exportPreviewBars, cfg.DefaultTempo))
	},
}

// decodeSongInput rejects unknown fields so typos don't silently drop notes.
func decodeSongInput(r io.Reader) (model.SongInput, error) {
	var in model.SongInput
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&in); err != nil {
		return model.SongInput{}, fmt.Errorf("%w: %s", score.ErrInvalidInput, err.Error())
	}
	return in, nil
}

func readSongInput(path string) (model.SongInput, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		return model.SongInput{}, fmt.Errorf("could not read song: %w", err)
	}
	in, err := decodeSongInput(bytes.NewReader(dat))
	if err != nil {
		return model.SongInput{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func parseSong(in model.SongInput, defaultTempo float64) (model.Score, error) {
	if in.Tempo == 0 {
		in.Tempo = defaultTempo
	}
	return score.Parse(in)
}

func encodeSong(in model.SongInput, defaultTempo float64, previewBars int) ([]byte, model.Score, error) {
	s, err := parseSong(in, defaultTempo)
	if err != nil {
		return nil, model.Score{}, err
	}
	if previewBars > 0 {
		s = sample.Preview(s, previewBars)
	}
	buf, err := midi.BuildScore(s)
	if err != nil {
		return nil, model.Score{}, err
	}
	return buf, s, nil
}

func exportFile(songPath string, outPath string, previewBars int, defaultTempo float64) error {
	in, err := readSongInput(songPath)
	if err != nil {
		return err
	}
	buf, s, err := encodeSong(in, defaultTempo, previewBars)
	if err != nil {
		return fmt.Errorf("%s: %w", songPath, err)
	}
	if err := os.WriteFile(outPath, buf, 0644); err != nil {
		return fmt.Errorf("write failed for file %s: %w", outPath, err)
	}
	logger.Info("exported", logger.Fields{
		"song":  songPath,
		"out":   outPath,
		"bytes": len(buf),
		"notes": s.NoteCount(),
		"tempo": s.Tempo,
		"bars":  sample.Bars(s),
	})
	return nil
}
