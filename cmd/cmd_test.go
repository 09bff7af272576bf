package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jsphweid/staffmidi/config"
	"github.com/jsphweid/staffmidi/file"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/model"
	"github.com/jsphweid/staffmidi/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
)

const songJSON = `{
	"title": "twinkle",
	"tempo": 120,
	"melody": [
		{"time": 0, "note": "C4", "duration": 1},
		{"time": 1, "note": "C4", "duration": 1},
		{"time": 2, "note": "G4", "duration": 1}
	],
	"chords": [
		{"time": 0, "notes": ["C3", "E3", "G3"], "duration": 3}
	]
}`

type fakeStore struct {
	mu    sync.Mutex
	saved []model.ExportMetadata
	fail  error
}

func (f *fakeStore) PutExportMetadata(_ context.Context, m model.ExportMetadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.saved = append(f.saved, m)
	return nil
}

func (f *fakeStore) GetExportMetadatas(_ context.Context, ids []string) (map[string]model.ExportMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	res := make(map[string]model.ExportMetadata)
	for _, id := range ids {
		for _, m := range f.saved {
			if m.ExportId == id {
				res[id] = m
			}
		}
	}
	return res, nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{OutDir: t.TempDir(), DefaultTempo: 90}
}

func postExport(t *testing.T, srv *Server, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestDecodeSongInput(t *testing.T) {
	in, err := decodeSongInput(strings.NewReader(songJSON))
	require.NoError(t, err)
	assert.Equal(t, "twinkle", in.Title)
	assert.Len(t, in.Melody, 3)
	assert.Equal(t, []string{"C3", "E3", "G3"}, in.Chords[0].Notes)

	_, err = decodeSongInput(strings.NewReader(`{"tempo": 120, "melodie": []}`))
	assert.ErrorIs(t, err, score.ErrInvalidInput)

	_, err = decodeSongInput(strings.NewReader(`{"tempo": `))
	assert.ErrorIs(t, err, score.ErrInvalidInput)
}

func TestEncodeSong(t *testing.T) {
	in, err := decodeSongInput(strings.NewReader(songJSON))
	require.NoError(t, err)

	buf, s, err := encodeSong(in, 90, 0)
	require.NoError(t, err)
	assert.Equal(t, 120.0, s.Tempo)

	decoded, err := midi.ReadMidiBytes(buf)
	require.NoError(t, err)
	sums := midi.Summarize(decoded)
	require.Len(t, sums, 2)
	assert.Equal(t, 3, sums[0].NoteOns)
	assert.Equal(t, 3, sums[1].NoteOns)
	assert.InDelta(t, 120.0, sums[0].Tempo, 0.01)
	assert.Equal(t, int64(3*480), sums[1].EndTick)
}

func TestEncodeSongUsesDefaultTempo(t *testing.T) {
	_, s, err := encodeSong(model.SongInput{}, 72, 0)
	require.NoError(t, err)
	assert.Equal(t, 72.0, s.Tempo)
}

func TestEncodeSongPreview(t *testing.T) {
	in, err := decodeSongInput(strings.NewReader(songJSON))
	require.NoError(t, err)
	in.Melody = append(in.Melody, model.NoteInput{Time: 8, Note: "A4", Duration: 1})

	_, s, err := encodeSong(in, 90, 1)
	require.NoError(t, err)
	assert.Len(t, s.Melody, 3)
}

func TestExportFile(t *testing.T) {
	dir := t.TempDir()
	songPath := filepath.Join(dir, "song.json")
	outPath := filepath.Join(dir, "song.mid")
	require.NoError(t, os.WriteFile(songPath, []byte(songJSON), 0644))

	require.NoError(t, exportFile(songPath, outPath, 0, 90))
	s, err := midi.ReadMidiFile(outPath)
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 2)

	require.NoError(t, os.WriteFile(songPath, []byte(`{"melody": [{"time": 0, "note": "H4", "duration": 1}]}`), 0644))
	assert.Error(t, exportFile(songPath, outPath, 0, 90))
	assert.Error(t, exportFile(filepath.Join(dir, "missing.json"), outPath, 0, 90))
}

func TestHandleExport(t *testing.T) {
	srv := NewServer(testConfig(t), nil)
	w := postExport(t, srv, "/export", songJSON)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="song.mid"`, w.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("X-Export-ID"))

	s, err := midi.ReadMidiBytes(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, s.Tracks, 2)
}

func TestHandleExportKeepsRequestId(t *testing.T) {
	srv := NewServer(testConfig(t), nil)
	req := httptest.NewRequest(http.MethodPost, "/export", strings.NewReader(songJSON))
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
}

func TestHandleExportRejects(t *testing.T) {
	srv := NewServer(testConfig(t), nil)
	tests := []struct {
		name   string
		target string
		body   string
	}{
		{"bad json", "/export", `{"tempo":`},
		{"unknown field", "/export", `{"tempo": 120, "bpm": 120}`},
		{"bad note name", "/export", `{"melody": [{"time": 0, "note": "H4", "duration": 1}]}`},
		{"out of range", "/export", `{"melody": [{"time": 0, "note": "G#9", "duration": 1}]}`},
		{"zero duration", "/export", `{"melody": [{"time": 0, "note": "C4", "duration": 0}]}`},
		{"negative tempo", "/export", `{"tempo": -1}`},
		{"tempo too slow", "/export", `{"tempo": 1e-9}`},
		{"bad preview", "/export?preview_bars=x", songJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postExport(t, srv, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var res model.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestHandleExportSaves(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveExports = true
	store := &fakeStore{}
	srv := NewServer(cfg, store)

	w := postExport(t, srv, "/export", songJSON)
	require.Equal(t, http.StatusOK, w.Code)

	exportId := w.Header().Get("X-Export-ID")
	require.NotEmpty(t, exportId)
	dat, err := os.ReadFile(filepath.Join(cfg.OutDir, file.ExportName(exportId)))
	require.NoError(t, err)
	assert.Equal(t, w.Body.Bytes(), dat)

	require.Len(t, store.saved, 1)
	m := store.saved[0]
	assert.Equal(t, exportId, m.ExportId)
	assert.Equal(t, "twinkle", m.Title)
	assert.Equal(t, 3, m.MelodyNotes)
	assert.Equal(t, 3, m.ChordNotes)
	assert.Equal(t, len(dat), m.Bytes)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestHandleExportRegistryFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.SaveExports = true
	srv := NewServer(cfg, &fakeStore{fail: errors.New("throttled")})

	w := postExport(t, srv, "/export", songJSON)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("X-Export-ID"))
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	w := httptest.NewRecorder()
	NewServer(testConfig(t), nil).Router().ServeHTTP(w, req)
	var res model.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, model.HealthResponse{Status: "healthy", Storage: "disabled"}, res)

	w = httptest.NewRecorder()
	NewServer(testConfig(t), &fakeStore{}).Router().ServeHTTP(w, req)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "dynamodb", res.Storage)
}

func TestHandleKeyboardMessage(t *testing.T) {
	c := score.NewComposer(120)

	assert.True(t, handleKeyboardMessage(c, gomidi.NoteOn(0, 60, 90)))
	assert.False(t, handleKeyboardMessage(c, gomidi.NoteOff(0, 60)))
	assert.False(t, handleKeyboardMessage(c, gomidi.NoteOn(0, 62, 0)))
	assert.False(t, handleKeyboardMessage(c, gomidi.ControlChange(0, 64, 127)))
	assert.True(t, handleKeyboardMessage(c, gomidi.NoteOn(1, 64, 100)))

	s := c.Score()
	assert.Equal(t, []model.TimedNote{
		{StartBeat: 0, Pitch: 60, DurationBeats: 1},
		{StartBeat: 1, Pitch: 64, DurationBeats: 1},
	}, s.Melody)
	assert.Equal(t, 2.0, c.Cursor())
}

func writeSong(t *testing.T, dir string, name string) string {
	buf, _, err := encodeSong(model.SongInput{
		Tempo:  100,
		Melody: []model.NoteInput{{Time: 0, Note: "C4", Duration: 1}},
		Chords: []model.ChordInput{{Time: 0, Notes: []string{"E3", "G3"}, Duration: 2}},
	}, 90, 0)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

func TestInspect(t *testing.T) {
	path := writeSong(t, t.TempDir(), "song.mid")

	var out bytes.Buffer
	require.NoError(t, inspect(&out, path, true))
	text := out.String()
	assert.Contains(t, text, "tracks: 2")
	assert.Contains(t, text, "tempo: 100.00 bpm")
	assert.Contains(t, text, "E3 G3 C4")
	assert.Contains(t, text, "ends at tick 960")

	assert.Error(t, inspect(&out, filepath.Join(t.TempDir(), "missing.mid"), false))
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	exportId := file.NewExportId()
	writeSong(t, dir, file.ExportName(exportId))
	writeSong(t, dir, "plain.mid")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.mid"), []byte("not midi"), 0644))

	store := &fakeStore{saved: []model.ExportMetadata{{ExportId: exportId, Title: "lullaby"}}}
	var out bytes.Buffer
	require.NoError(t, report(context.Background(), &out, dir, store))

	text := out.String()
	assert.Contains(t, text, "lullaby")
	assert.Contains(t, text, "files: 2 (1 unreadable)")
	assert.Contains(t, text, "total notes: 6")
}

func TestReportWithoutRegistry(t *testing.T) {
	dir := t.TempDir()
	writeSong(t, dir, "a.mid")

	var out bytes.Buffer
	require.NoError(t, report(context.Background(), &out, dir, nil))
	assert.Contains(t, out.String(), "files: 1 (0 unreadable)")
}

func TestWatchReexportsOnChange(t *testing.T) {
	dir := t.TempDir()
	songPath := filepath.Join(dir, "song.json")
	outPath := filepath.Join(dir, "song.mid")
	require.NoError(t, os.WriteFile(songPath, []byte(`{"tempo": 120, "melody": [{"time": 0, "note": "C4", "duration": 1}]}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watch(ctx, songPath, outPath, 90, 10*time.Millisecond) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(outPath)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	first, err := os.ReadFile(outPath)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(songPath, []byte(`{"tempo": 60, "melody": [{"time": 0, "note": "D4", "duration": 2}]}`), 0644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(songPath, later, later))

	require.Eventually(t, func() bool {
		dat, err := os.ReadFile(outPath)
		return err == nil && !bytes.Equal(dat, first)
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
