package pitch

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	MinPitch = 0
	MaxPitch = 127
)

var ErrOutOfRange = errors.New("pitch out of range")

// chromatic order starting at C, sharps only
var pitchOrder = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterOffsets = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid note name %q: %s", e.Name, e.Reason)
}

// NameToPitch parses names like "C4", "F#3", "Bb2" or "C-1" into a note
// number where C4 = 60. Flats resolve to their sharp equivalent.
func NameToPitch(name string) (int, error) {
	if len(name) < 2 {
		return 0, &ParseError{Name: name, Reason: "too short"}
	}

	semitone, ok := letterOffsets[name[0]]
	if !ok {
		return 0, &ParseError{Name: name, Reason: "letter must be A-G"}
	}

	idx := 1
	switch name[idx] {
	case '#':
		semitone++
		idx++
	case 'b':
		semitone--
		idx++
	}

	octaveStr := name[idx:]
	if octaveStr != "-1" && (len(octaveStr) != 1 || octaveStr[0] < '0' || octaveStr[0] > '9') {
		return 0, &ParseError{Name: name, Reason: "octave must be -1 or a single digit"}
	}
	octave, err := strconv.Atoi(octaveStr)
	if err != nil {
		return 0, &ParseError{Name: name, Reason: err.Error()}
	}

	p := (octave+1)*12 + semitone
	if p < MinPitch || p > MaxPitch {
		return 0, &ParseError{Name: name, Reason: fmt.Sprintf("pitch %d outside %d-%d", p, MinPitch, MaxPitch)}
	}
	return p, nil
}

// PitchToName is the inverse of NameToPitch, always spelled with sharps.
func PitchToName(p int) (string, error) {
	if !Valid(p) {
		return "", fmt.Errorf("%w: %d", ErrOutOfRange, p)
	}
	octave := p/12 - 1
	return pitchOrder[p%12] + strconv.Itoa(octave), nil
}

func Valid(p int) bool {
	return p >= MinPitch && p <= MaxPitch
}

func MustName(p int) string {
	name, err := PitchToName(p)
	if err != nil {
		panic(err)
	}
	return name
}
