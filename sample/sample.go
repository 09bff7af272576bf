package sample

import (
	"math"

	"github.com/jsphweid/staffmidi/model"
)

// DefaultPreviewBars matches the length the editor previewed.
const DefaultPreviewBars = 8

func clip(start, duration, limit float64) (float64, bool) {
	if start >= limit {
		return 0, false
	}
	return math.Min(duration, limit-start), true
}

// Preview keeps what sounds in the first bars of s. Notes crossing the end
// are shortened, later ones dropped. s itself is left alone.
func Preview(s model.Score, bars int) model.Score {
	if bars <= 0 {
		bars = DefaultPreviewBars
	}
	ts := s.TimeSignature
	if ts.Denominator == 0 {
		ts = model.CommonTime
	}
	limit := float64(bars) * ts.BeatsPerBar()

	res := s
	res.TimeSignature = ts
	res.Melody = nil
	res.Chords = nil

	for _, n := range s.Melody {
		if d, ok := clip(n.StartBeat, n.DurationBeats, limit); ok {
			n.DurationBeats = d
			res.Melody = append(res.Melody, n)
		}
	}
	for _, c := range s.Chords {
		if d, ok := clip(c.StartBeat, c.DurationBeats, limit); ok {
			c.DurationBeats = d
			c.Pitches = append([]int{}, c.Pitches...)
			res.Chords = append(res.Chords, c)
		}
	}
	return res
}

// Bars is how many bars s spans, counting a partly filled last bar.
func Bars(s model.Score) int {
	ts := s.TimeSignature
	if ts.Denominator == 0 {
		ts = model.CommonTime
	}
	var end float64
	for _, n := range s.Melody {
		end = math.Max(end, n.StartBeat+n.DurationBeats)
	}
	for _, c := range s.Chords {
		end = math.Max(end, c.StartBeat+c.DurationBeats)
	}
	return int(math.Ceil(end / ts.BeatsPerBar()))
}
