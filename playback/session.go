package playback

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jsphweid/staffmidi/constants"
	"github.com/jsphweid/staffmidi/logger"
	"github.com/jsphweid/staffmidi/midi"
	"github.com/jsphweid/staffmidi/model"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var ErrAlreadyRunning = errors.New("playback already running")

// Sender matches what gomidi.SendTo returns for an output port.
type Sender func(msg gomidi.Message) error

// Session plays a score through one sender. It is owned by whoever created
// it and replaces any notion of a global transport.
type Session struct {
	send Sender

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	sounding map[uint8]int
	err      error
}

func NewSession(send Sender) *Session {
	return &Session{send: send}
}

// Timeline merges melody and chord events into one ordered list.
func Timeline(s model.Score) ([]midi.Event, error) {
	notes := append(append([]model.TimedNote{}, s.Melody...), model.ExpandChords(s.Chords)...)
	return midi.Events(notes)
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Start schedules sc and returns immediately. Playback ends when the score
// is done, Stop is called or ctx is cancelled.
func (s *Session) Start(ctx context.Context, sc model.Score) error {
	if _, err := midi.MicrosPerQuarter(sc.Tempo); err != nil {
		return err
	}
	events, err := Timeline(sc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.sounding = make(map[uint8]int)
	s.err = nil

	go s.run(ctx, events, sc.Tempo, s.done)
	return nil
}

func (s *Session) run(ctx context.Context, events []midi.Event, bpm float64, done chan struct{}) {
	defer func() {
		s.releaseAll()
		s.mu.Lock()
		s.cancel()
		s.cancel = nil
		s.done = nil
		s.mu.Unlock()
		close(done)
	}()

	ticks := smf.MetricTicks(constants.PPQ)
	var prev uint32
	for _, evt := range events {
		if wait := ticks.Duration(bpm, evt.Tick-prev); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}
		prev = evt.Tick

		if err := s.send(evt.Message()); err != nil {
			logger.Error("playback send failed", err, logger.Fields{"tick": evt.Tick, "pitch": evt.Pitch})
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}
		s.track(evt)
	}
}

func (s *Session) track(evt midi.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if evt.Kind == midi.NoteOn {
		s.sounding[evt.Pitch]++
		return
	}
	if s.sounding[evt.Pitch] > 0 {
		s.sounding[evt.Pitch]--
	}
	if s.sounding[evt.Pitch] == 0 {
		delete(s.sounding, evt.Pitch)
	}
}

// releaseAll silences anything still held so a stopped port isn't left
// with hanging notes.
func (s *Session) releaseAll() {
	s.mu.Lock()
	held := make([]uint8, 0, len(s.sounding))
	for p := range s.sounding {
		held = append(held, p)
	}
	s.sounding = make(map[uint8]int)
	s.mu.Unlock()

	sort.Slice(held, func(i, j int) bool { return held[i] < held[j] })
	for _, p := range held {
		evt := midi.Event{Kind: midi.NoteOff, Pitch: p}
		if err := s.send(evt.Message()); err != nil {
			logger.Warn("could not release note", logger.Fields{"pitch": p, "error": err.Error()})
		}
	}
}

// Stop ends playback and waits for the released notes to be sent.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the current playback ends and reports a send failure.
func (s *Session) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
