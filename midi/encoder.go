package midi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/pitch"
	gomidi "gitlab.com/gomidi/midi/v2"
)

var (
	ErrInvalidTempo    = errors.New("tempo must be a positive, finite number of beats per minute")
	ErrPitchOutOfRange = errors.New("pitch outside 0-127")
	ErrInvalidDuration = errors.New("duration must be positive and finite")
	ErrInvalidStart    = errors.New("start must be non-negative and finite")
	ErrTickOverflow    = errors.New("tick exceeds midi range")
)

const (
	smfFormat      = 1
	smfTrackCount  = 2
	headerChunkLen = 6

	// the tempo meta event carries 3 bytes
	maxMicrosPerQuarter = 0xFFFFFF
)

var (
	headerMagic = []byte("MThd")
	trackMagic  = []byte("MTrk")
	endOfTrack  = []byte{0xFF, 0x2F, 0x00}
)

type EventKind uint8

// NoteOff sorts before NoteOn when ticks tie
const (
	NoteOff EventKind = iota
	NoteOn
)

func (k EventKind) String() string {
	if k == NoteOn {
		return "NoteOn"
	}
	return "NoteOff"
}

// Event is a derived note on/off at an absolute tick.
type Event struct {
	Tick  uint32
	Kind  EventKind
	Pitch uint8
}

func (e Event) Message() gomidi.Message {
	if e.Kind == NoteOn {
		return gomidi.NoteOn(constants.Channel, e.Pitch, constants.NoteOnVelocity)
	}
	return gomidi.NoteOffVelocity(constants.Channel, e.Pitch, constants.NoteOffVelocity)
}

func BeatsToTicks(beats float64) (uint32, error) {
	ticks := math.Round(beats * constants.PPQ)
	if ticks > MaxVLQ {
		return 0, fmt.Errorf("%w: %v beats", ErrTickOverflow, beats)
	}
	return uint32(ticks), nil
}

func MicrosPerQuarter(tempoBPM float64) (uint32, error) {
	if math.IsNaN(tempoBPM) || math.IsInf(tempoBPM, 0) || tempoBPM <= 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidTempo, tempoBPM)
	}
	mpqn := math.Round(60_000_000 / tempoBPM)
	if mpqn < 1 || mpqn > maxMicrosPerQuarter {
		return 0, fmt.Errorf("%w: %v bpm is %v microseconds per quarter", ErrInvalidTempo, tempoBPM, mpqn)
	}
	return uint32(mpqn), nil
}

func validateNote(n model.TimedNote) error {
	if !pitch.Valid(n.Pitch) {
		return fmt.Errorf("%w: %d", ErrPitchOutOfRange, n.Pitch)
	}
	if math.IsNaN(n.StartBeat) || math.IsInf(n.StartBeat, 0) || n.StartBeat < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidStart, n.StartBeat)
	}
	if math.IsNaN(n.DurationBeats) || math.IsInf(n.DurationBeats, 0) || n.DurationBeats <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, n.DurationBeats)
	}
	return nil
}

// Events expands notes into on/off pairs sorted by tick. Ties put NoteOff
// first and otherwise keep input order. The input slice is not touched.
func Events(notes []model.TimedNote) ([]Event, error) {
	events := make([]Event, 0, len(notes)*2)
	for i, n := range notes {
		if err := validateNote(n); err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		onTick, err := BeatsToTicks(n.StartBeat)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		offTick, err := BeatsToTicks(n.StartBeat + n.DurationBeats)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		p := uint8(n.Pitch)
		events = append(events,
			Event{Tick: onTick, Kind: NoteOn, Pitch: p},
			Event{Tick: offTick, Kind: NoteOff, Pitch: p},
		)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Tick != events[j].Tick {
			return events[i].Tick < events[j].Tick
		}
		return events[i].Kind < events[j].Kind
	})
	return events, nil
}

func tempoEvent(mpqn uint32) []byte {
	return []byte{0x00, 0xFF, 0x51, 0x03, byte(mpqn >> 16), byte(mpqn >> 8), byte(mpqn)}
}

func trackBytes(prefix []byte, events []Event) ([]byte, error) {
	res := append([]byte{}, prefix...)
	var prev uint32
	var err error
	for _, evt := range events {
		res, err = AppendVLQ(res, evt.Tick-prev)
		if err != nil {
			return nil, err
		}
		prev = evt.Tick
		res = append(res, evt.Message()...)
	}
	res = append(res, 0x00)
	res = append(res, endOfTrack...)
	return res, nil
}

func writeTrackChunk(buf *bytes.Buffer, data []byte) {
	buf.Write(trackMagic)
	binary.Write(buf, binary.BigEndian, uint32(len(data)))
	buf.Write(data)
}

func writeHeaderChunk(buf *bytes.Buffer) {
	buf.Write(headerMagic)
	binary.Write(buf, binary.BigEndian, uint32(headerChunkLen))
	binary.Write(buf, binary.BigEndian, uint16(smfFormat))
	binary.Write(buf, binary.BigEndian, uint16(smfTrackCount))
	binary.Write(buf, binary.BigEndian, uint16(constants.PPQ))
}

// Build encodes a format 1 Standard MIDI File with a melody track (carrying
// the only tempo event) followed by a chord track.
func Build(melody []model.TimedNote, chords []model.ChordEvent, tempoBPM float64) ([]byte, error) {
	mpqn, err := MicrosPerQuarter(tempoBPM)
	if err != nil {
		return nil, err
	}

	melodyEvents, err := Events(melody)
	if err != nil {
		return nil, fmt.Errorf("melody track: %w", err)
	}
	chordEvents, err := Events(model.ExpandChords(chords))
	if err != nil {
		return nil, fmt.Errorf("chord track: %w", err)
	}

	melodyBytes, err := trackBytes(tempoEvent(mpqn), melodyEvents)
	if err != nil {
		return nil, fmt.Errorf("melody track: %w", err)
	}
	chordBytes, err := trackBytes(nil, chordEvents)
	if err != nil {
		return nil, fmt.Errorf("chord track: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Grow(14 + 2*8 + len(melodyBytes) + len(chordBytes))
	writeHeaderChunk(buf)
	writeTrackChunk(buf, melodyBytes)
	writeTrackChunk(buf, chordBytes)
	return buf.Bytes(), nil
}

func BuildScore(s model.Score) ([]byte, error) {
	return Build(s.Melody, s.Chords, s.Tempo)
}
