package chord

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/pitch"
	"github.com/jsphweid/staffmidi/util"
	"gitlab.com/gomidi/midi/v2/smf"
)

type OnNotes = map[uint8]bool

var qualities = map[string][]int{
	"":    {0, 4, 7},
	"m":   {0, 3, 7},
	"dim": {0, 3, 6},
	"aug": {0, 4, 8},
}

// Triad resolves a written chord symbol like "C", "F#m", "Bbdim" to note
// numbers with the root in the given octave.
func Triad(symbol string, octave int) ([]int, error) {
	if symbol == "" {
		return nil, fmt.Errorf("empty chord symbol")
	}

	rootLen := 1
	if len(symbol) > 1 && (symbol[1] == '#' || symbol[1] == 'b') {
		rootLen = 2
	}
	root, err := pitch.NameToPitch(fmt.Sprintf("%s%d", symbol[:rootLen], octave))
	if err != nil {
		return nil, fmt.Errorf("invalid chord root in %q: %w", symbol, err)
	}

	intervals, ok := qualities[strings.TrimSpace(symbol[rootLen:])]
	if !ok {
		return nil, fmt.Errorf("unknown chord quality in %q", symbol)
	}

	notes := make([]int, 0, len(intervals))
	for _, interval := range intervals {
		p := root + interval
		if !pitch.Valid(p) {
			return nil, fmt.Errorf("chord %q in octave %d leaves the midi range", symbol, octave)
		}
		notes = append(notes, p)
	}
	return notes, nil
}

func CreateChordKey(notes []uint8) string {
	sorted := append([]uint8{}, notes...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	var res string
	for i, note := range sorted {
		res += fmt.Sprintf("%v", note)
		if i < len(sorted)-1 {
			res += "-"
		}
	}
	return res
}

type reducedEvent struct {
	tick      uint32
	isNoteOff bool
	note      uint8
}

func getChord(tick uint32, pressed OnNotes, formedByNoteOn bool) model.SoundingChord {
	notes := util.GetKeys(pressed)
	sort.Slice(notes, func(i, j int) bool {
		return notes[i] < notes[j]
	})
	return model.SoundingChord{
		AbsTickOffset:  tick,
		Notes:          notes,
		FormedByNoteOn: formedByNoteOn,
	}
}

// GetChords walks every track of s and returns the set of held pitches after
// each tick that changes it, in tick order. Silent ticks are left out.
func GetChords(s *smf.SMF) []model.SoundingChord {
	var reducedEvents []reducedEvent

	for _, events := range s.Tracks {
		var absTicks uint32
		for _, event := range events {
			absTicks += event.Delta
			var channel, key, velocity uint8
			switch {
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				// a zero velocity note on is a note off
				reducedEvents = append(reducedEvents, reducedEvent{tick: absTicks, isNoteOff: velocity == 0, note: key})
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				reducedEvents = append(reducedEvents, reducedEvent{tick: absTicks, isNoteOff: true, note: key})
			}
		}
	}

	// prioritize smaller offset values then note off
	sort.SliceStable(reducedEvents, func(i, j int) bool {
		if reducedEvents[i].tick != reducedEvents[j].tick {
			return reducedEvents[i].tick < reducedEvents[j].tick
		}
		return reducedEvents[i].isNoteOff && !reducedEvents[j].isNoteOff
	})

	tickToChord := make(map[uint32]model.SoundingChord)
	var ticks []uint32
	pressed := make(OnNotes)
	for _, evt := range reducedEvents {
		if evt.isNoteOff {
			delete(pressed, evt.note)
		} else {
			pressed[evt.note] = true
		}
		if _, seen := tickToChord[evt.tick]; !seen {
			ticks = append(ticks, evt.tick)
		}
		tickToChord[evt.tick] = getChord(evt.tick, pressed, !evt.isNoteOff)
	}

	var chords []model.SoundingChord
	for _, tick := range ticks {
		if c := tickToChord[tick]; len(c.Notes) > 0 {
			chords = append(chords, c)
		}
	}
	return chords
}
