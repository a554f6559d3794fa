package journal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

func entriesFor(t *testing.T, versions ...uint64) []Entry {
	t.Helper()
	var out []Entry
	for _, v := range versions {
		out = append(out, NewEntries(v, []engine.Event{{
			Type:   engine.EvtPhaseAdvanced,
			Source: engine.SourceSequencer,
			Mode:   engine.ModeAuto,
			Color:  engine.ColorGreen,
			At:     time.Now(),
		}})...)
	}
	return out
}

func versions(entries []Entry) []uint64 {
	var out []uint64
	for _, e := range entries {
		out = append(out, e.Version)
	}
	return out
}

func TestMemory_RecentIsNewestFirst(t *testing.T) {
	m := NewMemory(8)
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, entriesFor(t, 1, 2, 3)))

	got, err := m.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 2, 1}, versions(got))

	got, err = m.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 2}, versions(got))
}

func TestMemory_OverwritesOldest(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()
	require.NoError(t, m.Append(ctx, entriesFor(t, 1, 2, 3, 4, 5)))

	got, err := m.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 4, 3}, versions(got))
}

func TestMemory_Empty(t *testing.T) {
	got, err := NewMemory(0).Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewEntries_AssignsDistinctIDs(t *testing.T) {
	events := []engine.Event{
		{Type: engine.EvtEmergencyOverride},
		{Type: engine.EvtModeChanged},
	}
	entries := NewEntries(7, events)
	require.Len(t, entries, 2)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
	assert.Equal(t, uint64(7), entries[1].Version)
	assert.Equal(t, engine.EvtModeChanged, entries[1].Type)
}
