package model

// TimedNote is one sounding pitch. Times are in quarter-note beats.
type TimedNote struct {
	StartBeat     float64
	Pitch         int
	DurationBeats float64
}

// ChordEvent groups pitches that start and stop together.
type ChordEvent struct {
	StartBeat     float64
	Pitches       []int
	DurationBeats float64
}

func (c ChordEvent) Expand() []TimedNote {
	res := make([]TimedNote, 0, len(c.Pitches))
	for _, p := range c.Pitches {
		res = append(res, TimedNote{
			StartBeat:     c.StartBeat,
			Pitch:         p,
			DurationBeats: c.DurationBeats,
		})
	}
	return res
}

func ExpandChords(chords []ChordEvent) []TimedNote {
	var res []TimedNote
	for _, c := range chords {
		res = append(res, c.Expand()...)
	}
	return res
}

type TimeSignature struct {
	Numerator   int
	Denominator int
}

var (
	CommonTime    = TimeSignature{4, 4}
	WaltzTime     = TimeSignature{3, 4}
	CompoundDuple = TimeSignature{6, 8}
)

// BeatsPerBar is measured in quarter notes, so 6/8 is 3.
func (ts TimeSignature) BeatsPerBar() float64 {
	return float64(ts.Numerator) * 4 / float64(ts.Denominator)
}

// Score is validated input, ready for encoding or playback.
type Score struct {
	Title         string
	Tempo         float64
	TimeSignature TimeSignature
	Melody        []TimedNote
	Chords        []ChordEvent
}

func (s Score) NoteCount() int {
	return len(s.Melody) + len(ExpandChords(s.Chords))
}
