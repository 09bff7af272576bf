package model

import "time"

type ErrorResponse struct {
	Error string `json:"detail"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

type ExportMetadata struct {
	ExportId    string
	Title       string
	Tempo       float64
	MelodyNotes int
	ChordNotes  int
	Bytes       int
	CreatedAt   time.Time
}
