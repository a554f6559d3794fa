// Package journal keeps an append-only history of traffic-light events.
// It is an audit trail: the light always boots from defaults and nothing here
// is replayed into the controller.
package journal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

type Entry struct {
	ID       uuid.UUID
	Version  uint64
	Type     engine.EventType
	Source   engine.Source
	Mode     engine.Mode
	Color    engine.Color
	AutoStep int
	Settings engine.Settings
	At       time.Time
}

type Store interface {
	Append(ctx context.Context, entries []Entry) error
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

func NewEntries(version uint64, events []engine.Event) []Entry {
	entries := make([]Entry, 0, len(events))
	for _, e := range events {
		entries = append(entries, Entry{
			ID:       uuid.New(),
			Version:  version,
			Type:     e.Type,
			Source:   e.Source,
			Mode:     e.Mode,
			Color:    e.Color,
			AutoStep: e.AutoStep,
			Settings: e.Settings,
			At:       e.At,
		})
	}
	return entries
}
