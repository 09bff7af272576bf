package model

type Notes = []uint8

// SoundingChord is the set of pitches held at a tick of a decoded file.
type SoundingChord struct {
	AbsTickOffset  uint32
	Notes          Notes
	FormedByNoteOn bool
}
