package score

import (
	"errors"
	"fmt"
	"math"

	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/pitch"
)

// ErrInvalidInput marks input rejected before it reaches the encoder.
var ErrInvalidInput = errors.New("invalid song input")

var timeSignatures = map[string]model.TimeSignature{
	"4/4": model.CommonTime,
	"3/4": model.WaltzTime,
	"6/8": model.CompoundDuple,
}

func ParseTimeSignature(s string) (model.TimeSignature, error) {
	if s == "" {
		return model.CommonTime, nil
	}
	ts, ok := timeSignatures[s]
	if !ok {
		return model.TimeSignature{}, fmt.Errorf("%w: unsupported time signature %q", ErrInvalidInput, s)
	}
	return ts, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func checkTiming(time, duration float64) error {
	if !finite(time) || time < 0 {
		return fmt.Errorf("%w: time must be >= 0, got %v", ErrInvalidInput, time)
	}
	if !finite(duration) || duration <= 0 {
		return fmt.Errorf("%w: duration must be > 0, got %v", ErrInvalidInput, duration)
	}
	return nil
}

func parseNote(n model.NoteInput) (model.TimedNote, error) {
	if err := checkTiming(n.Time, n.Duration); err != nil {
		return model.TimedNote{}, err
	}
	p, err := pitch.NameToPitch(n.Note)
	if err != nil {
		return model.TimedNote{}, err
	}
	return model.TimedNote{StartBeat: n.Time, Pitch: p, DurationBeats: n.Duration}, nil
}

func parseChord(c model.ChordInput) (model.ChordEvent, error) {
	if err := checkTiming(c.Time, c.Duration); err != nil {
		return model.ChordEvent{}, err
	}
	if len(c.Notes) == 0 {
		return model.ChordEvent{}, fmt.Errorf("%w: chord has no notes", ErrInvalidInput)
	}
	pitches := make([]int, 0, len(c.Notes))
	for i, name := range c.Notes {
		p, err := pitch.NameToPitch(name)
		if err != nil {
			return model.ChordEvent{}, fmt.Errorf("notes[%d]: %w", i, err)
		}
		pitches = append(pitches, p)
	}
	return model.ChordEvent{StartBeat: c.Time, Pitches: pitches, DurationBeats: c.Duration}, nil
}

// Parse validates editor input into a Score. The first bad entry fails the
// whole call. A zero tempo means the editor default.
func Parse(in model.SongInput) (model.Score, error) {
	tempo := in.Tempo
	if tempo == 0 {
		tempo = constants.DefaultTempo
	}
	if !finite(tempo) || tempo < 0 {
		return model.Score{}, fmt.Errorf("%w: tempo must be positive, got %v", ErrInvalidInput, in.Tempo)
	}

	ts, err := ParseTimeSignature(in.TimeSignature)
	if err != nil {
		return model.Score{}, err
	}

	res := model.Score{
		Title:         in.Title,
		Tempo:         tempo,
		TimeSignature: ts,
		Melody:        make([]model.TimedNote, 0, len(in.Melody)),
		Chords:        make([]model.ChordEvent, 0, len(in.Chords)),
	}

	for i, n := range in.Melody {
		note, err := parseNote(n)
		if err != nil {
			return model.Score{}, fmt.Errorf("melody[%d]: %w", i, err)
		}
		res.Melody = append(res.Melody, note)
	}
	for i, c := range in.Chords {
		ch, err := parseChord(c)
		if err != nil {
			return model.Score{}, fmt.Errorf("chords[%d]: %w", i, err)
		}
		res.Chords = append(res.Chords, ch)
	}
	return res, nil
}
