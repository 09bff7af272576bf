package score

import (
	"fmt"
	"sync"

	"github.com/jsphweid/staffmidi/chord"
	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/pitch"
)

// note values offered by the editor, in beats
var Durations = map[string]float64{
	"1/16": 0.25,
	"1/8":  0.5,
	"1/4":  1,
	"1/2":  2,
	"1":    4,
}

// Composer places notes one after another at a moving cursor, the way the
// staff editor and the keyboard recorder build a song.
type Composer struct {
	mu       sync.Mutex
	tempo    float64
	ts       model.TimeSignature
	cursor   float64
	duration float64
	melody   []model.TimedNote
	chords   []model.ChordEvent
}

func NewComposer(tempo float64) *Composer {
	if tempo == 0 {
		tempo = constants.DefaultTempo
	}
	return &Composer{
		tempo:    tempo,
		ts:       model.CommonTime,
		duration: Durations["1/4"],
	}
}

func (c *Composer) SetTimeSignature(ts model.TimeSignature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ts = ts
}

func (c *Composer) SetDuration(beats float64) error {
	if !finite(beats) || beats <= 0 {
		return fmt.Errorf("%w: duration must be > 0, got %v", ErrInvalidInput, beats)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duration = beats
	return nil
}

func (c *Composer) SetDurationName(name string) error {
	beats, ok := Durations[name]
	if !ok {
		return fmt.Errorf("%w: unknown note value %q", ErrInvalidInput, name)
	}
	return c.SetDuration(beats)
}

func (c *Composer) AddNote(name string) error {
	p, err := pitch.NameToPitch(name)
	if err != nil {
		return err
	}
	return c.AddPitch(p)
}

func (c *Composer) AddPitch(p int) error {
	if !pitch.Valid(p) {
		return fmt.Errorf("%w: %d", pitch.ErrOutOfRange, p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.melody = append(c.melody, model.TimedNote{StartBeat: c.cursor, Pitch: p, DurationBeats: c.duration})
	c.cursor += c.duration
	return nil
}

// AddChord lays a triad under the cursor without moving it.
func (c *Composer) AddChord(symbol string) error {
	pitches, err := chord.Triad(symbol, constants.DefaultOctave)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chords = append(c.chords, model.ChordEvent{StartBeat: c.cursor, Pitches: pitches, DurationBeats: c.duration})
	return nil
}

func (c *Composer) Rest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor += c.duration
}

func (c *Composer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = 0
	c.melody = nil
	c.chords = nil
}

func (c *Composer) Cursor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *Composer) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.melody) == 0 && len(c.chords) == 0
}

// Score returns a copy that later edits don't affect.
func (c *Composer) Score() model.Score {
	c.mu.Lock()
	defer c.mu.Unlock()

	chords := make([]model.ChordEvent, 0, len(c.chords))
	for _, ch := range c.chords {
		ch.Pitches = append([]int{}, ch.Pitches...)
		chords = append(chords, ch)
	}
	return model.Score{
		Tempo:         c.tempo,
		TimeSignature: c.ts,
		Melody:        append([]model.TimedNote{}, c.melody...),
		Chords:        chords,
	}
}
