// Package store holds the authoritative traffic-light state.
//
// Readers get lock-free snapshots. Writers go through Apply, which runs the
// mutation under a single lock and publishes the result atomically, so a
// reader never observes a half-applied change.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

// Snapshot is an immutable read of the state. Version increases by one on
// every successful Apply.
type Snapshot struct {
	Version uint64
	State   engine.State
}

type Mutation func(engine.State) ([]engine.Event, engine.State, error)

type Store struct {
	mu  sync.Mutex
	cur atomic.Pointer[Snapshot]
}

func New(initial engine.State) *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{Version: 0, State: initial})
	return s
}

func (s *Store) Get() Snapshot {
	return *s.cur.Load()
}

// Apply runs fn against the current state. If fn returns an error nothing is
// published and the version is left alone.
func (s *Store) Apply(fn Mutation) (Snapshot, []engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.cur.Load()
	events, next, err := fn(cur.State)
	if err != nil {
		return *cur, nil, err
	}

	snap := &Snapshot{Version: cur.Version + 1, State: next}
	s.cur.Store(snap)
	return *snap, events, nil
}
