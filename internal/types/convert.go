package types

import (
	"fmt"
	"math"
	"time"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	"github.com/DoyleJ11/traffic-light-server/internal/journal"
	"github.com/DoyleJ11/traffic-light-server/internal/patterns"
	"github.com/DoyleJ11/traffic-light-server/internal/store"
	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

func Status(snap store.Snapshot) wire.TrafficStatus {
	s := snap.State
	return wire.TrafficStatus{
		Mode:       string(s.Mode),
		Color:      string(s.Color),
		AutoStep:   s.AutoStep,
		LastUpdate: s.LastUpdate,
		Settings:   Settings(s.Settings),
		Version:    snap.Version,
	}
}

func Settings(s engine.Settings) wire.Settings {
	return wire.Settings{
		RedDurationMs:    s.Red.Milliseconds(),
		YellowDurationMs: s.Yellow.Milliseconds(),
		GreenDurationMs:  s.Green.Milliseconds(),
	}
}

// maxMillis is the largest millisecond count a time.Duration can hold.
const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// PatchFromRequest prefers millisecond fields over the legacy seconds ones.
// Seconds are rounded to whole milliseconds. Values that cannot be held as a
// duration are rejected here; positivity is left to the engine.
func PatchFromRequest(r wire.SettingsRequest) (engine.SettingsPatch, error) {
	var (
		p   engine.SettingsPatch
		err error
	)
	if p.Red, err = pickDuration("red", r.RedDurationMs, r.RedDuration); err != nil {
		return engine.SettingsPatch{}, err
	}
	if p.Yellow, err = pickDuration("yellow", r.YellowDurationMs, r.YellowDuration); err != nil {
		return engine.SettingsPatch{}, err
	}
	if p.Green, err = pickDuration("green", r.GreenDurationMs, r.GreenDuration); err != nil {
		return engine.SettingsPatch{}, err
	}
	return p, nil
}

func pickDuration(phase string, ms *int64, seconds *float64) (*time.Duration, error) {
	var n int64
	switch {
	case ms != nil:
		n = *ms
		if n > maxMillis || n < -maxMillis {
			return nil, fmt.Errorf("%w: %s %dms out of range", engine.ErrInvalidDuration, phase, n)
		}
	case seconds != nil:
		v := math.Round(*seconds * 1000)
		if math.IsNaN(v) || v > float64(maxMillis) || v < -float64(maxMillis) {
			return nil, fmt.Errorf("%w: %s %vs out of range", engine.ErrInvalidDuration, phase, *seconds)
		}
		n = int64(v)
	default:
		return nil, nil
	}
	d := time.Duration(n) * time.Millisecond
	return &d, nil
}

func History(entries []journal.Entry) []wire.HistoryEntry {
	out := make([]wire.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, wire.HistoryEntry{
			ID:       e.ID.String(),
			Version:  e.Version,
			Type:     string(e.Type),
			Source:   string(e.Source),
			Mode:     string(e.Mode),
			Color:    string(e.Color),
			AutoStep: e.AutoStep,
			Settings: Settings(e.Settings),
			At:       e.At,
		})
	}
	return out
}

// Patterns keys presets by their key.
func Patterns(set *patterns.Set) map[string]wire.Pattern {
	out := make(map[string]wire.Pattern)
	for _, p := range set.All() {
		seq := make([]string, 0, len(p.Sequence))
		for _, c := range p.Sequence {
			seq = append(seq, string(c))
		}
		out[p.Key] = wire.Pattern{
			Name:     p.Name,
			Sequence: seq,
			Timing:   append([]int64(nil), p.TimingMs...),
		}
	}
	return out
}
