package constants

import "os"

func GetOutDir() string {
	path := os.Getenv("OUT_PATH")
	if path != "" {
		return path
	}
	return "./out"
}

// ticks per quarter note
const PPQ = 480

const (
	Channel         uint8 = 0
	NoteOnVelocity  uint8 = 100
	NoteOffVelocity uint8 = 64
)

const DefaultTempo = 90.0

// NOTE: the editor's tempo range. The encoder accepts anything that fits a tempo event
const (
	MinTempo = 20.0
	MaxTempo = 300.0
)

const DefaultOctave = 4

const DefaultFilename = "song.mid"
