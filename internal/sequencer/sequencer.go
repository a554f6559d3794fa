// Package sequencer drives the timed auto-mode cycle.
//
// A Sequencer is owned by exactly one goroutine (the controller loop). Its
// timers never touch state: when one expires it posts a Fired message tagged
// with the generation it was armed under, and the owner hands that message
// back to Fire. Any Cancel or Start bumps the generation, so a firing that
// was already in flight when the sequencer was cancelled is recognised as
// stale and dropped.
package sequencer

import (
	"errors"
	"time"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

// ErrStaleFiring reports a firing that must not change state: its timer was
// cancelled or replaced, or the light has left auto mode.
var ErrStaleFiring = errors.New("stale sequencer firing")

type Fired struct {
	Gen uint64
}

type Sequencer struct {
	out   chan<- Fired
	done  <-chan struct{}
	timer *time.Timer
	gen   uint64
}

// New returns a Sequencer that posts firings to out. Posting gives up once
// done is closed.
func New(out chan<- Fired, done <-chan struct{}) *Sequencer {
	return &Sequencer{out: out, done: done}
}

// Start arms the first firing of a fresh cycle. Any pending firing is
// cancelled first, so calling Start twice leaves one timer.
func (s *Sequencer) Start(settings engine.Settings) {
	s.schedule(settings.DurationFor(0))
}

// Cancel is a no-op when nothing is pending.
func (s *Sequencer) Cancel() {
	s.stop()
	s.gen++
}

func (s *Sequencer) Pending() bool {
	return s.timer != nil
}

func (s *Sequencer) Generation() uint64 {
	return s.gen
}

// Fire handles a delivered firing. It advances st by one phase and arms the
// next firing using the duration of the phase just entered. A stale firing
// returns ErrStaleFiring with st unchanged and nothing rescheduled.
func (s *Sequencer) Fire(st engine.State, f Fired, now time.Time) ([]engine.Event, engine.State, error) {
	if f.Gen != s.gen || s.timer == nil {
		return nil, st, ErrStaleFiring
	}
	s.timer = nil

	if st.Mode != engine.ModeAuto {
		return nil, st, ErrStaleFiring
	}

	events, next := engine.Advance(st, now)
	s.schedule(next.Settings.DurationFor(next.AutoStep))
	return events, next, nil
}

func (s *Sequencer) schedule(d time.Duration) {
	s.stop()
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(d, func() {
		select {
		case s.out <- Fired{Gen: gen}:
		case <-s.done:
		}
	})
}

func (s *Sequencer) stop() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
