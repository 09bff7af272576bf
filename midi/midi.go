package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("error reading midi file: %w", err)
	}
	return ReadMidiBytes(dat)
}

func ReadMidiBytes(dat []byte) (s *smf.SMF, e error) {
	// handle panics
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = errors.New(fmt.Sprint("error parsing midi file: ", r))
		}
	}()

	res, err := smf.ReadFrom(bytes.NewReader(dat))
	if err != nil {
		return nil, fmt.Errorf("error parsing midi file: %w", err)
	}
	return res, nil
}

// TrackSummary counts the note events in one decoded track.
type TrackSummary struct {
	Events   int
	NoteOns  int
	NoteOffs int
	EndTick  int64
	Tempo    float64
}

func Summarize(s *smf.SMF) []TrackSummary {
	res := make([]TrackSummary, 0, len(s.Tracks))
	for _, track := range s.Tracks {
		var sum TrackSummary
		var absTicks int64
		for _, event := range track {
			absTicks += int64(event.Delta)
			sum.Events++
			var channel, key, velocity uint8
			var bpm float64
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				sum.NoteOns++
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				sum.NoteOffs++
			case event.Message.GetMetaTempo(&bpm):
				sum.Tempo = bpm
			}
		}
		sum.EndTick = absTicks
		res = append(res, sum)
	}
	return res
}
