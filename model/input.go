package model

// NoteInput, ChordInput and SongInput mirror what the editor sends. Nothing
// here is trusted until score.Parse has run.
type NoteInput struct {
	Time     float64 `json:"time"`
	Note     string  `json:"note"`
	Duration float64 `json:"duration"`
}

type ChordInput struct {
	Time     float64  `json:"time"`
	Notes    []string `json:"notes"`
	Duration float64  `json:"duration"`
}

type SongInput struct {
	Title         string       `json:"title,omitempty"`
	Tempo         float64      `json:"tempo"`
	TimeSignature string       `json:"time_signature,omitempty"`
	Melody        []NoteInput  `json:"melody"`
	Chords        []ChordInput `json:"chords"`
}
