// Package patterns loads named timing presets for the light.
package patterns

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
)

//go:embed patterns.yaml
var defaultPatterns []byte

var ErrUnknownPattern = errors.New("unknown pattern")

// ErrNotCyclic is returned when a preset cannot be expressed as auto-mode
// settings because its sequence is not the full red, green, yellow cycle.
var ErrNotCyclic = errors.New("pattern is not a full auto cycle")

type Pattern struct {
	Key      string         `yaml:"key"`
	Name     string         `yaml:"name"`
	Sequence []engine.Color `yaml:"sequence"`
	TimingMs []int64        `yaml:"timingMs"`
}

type file struct {
	Patterns []Pattern `yaml:"patterns"`
}

type Set struct {
	order []string
	byKey map[string]Pattern
}

func Default() *Set {
	s, err := Parse(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("embedded patterns: %v", err))
	}
	return s
}

func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patterns: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read patterns: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse patterns: %w", err)
	}

	s := &Set{byKey: make(map[string]Pattern, len(f.Patterns))}
	for i, p := range f.Patterns {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("pattern %d: %w", i, err)
		}
		if _, dup := s.byKey[p.Key]; dup {
			return nil, fmt.Errorf("pattern %q defined twice", p.Key)
		}
		s.byKey[p.Key] = p
		s.order = append(s.order, p.Key)
	}
	return s, nil
}

func (p Pattern) Validate() error {
	if p.Key == "" {
		return errors.New("missing key")
	}
	if len(p.Sequence) == 0 {
		return fmt.Errorf("%s: empty sequence", p.Key)
	}
	if len(p.Sequence) != len(p.TimingMs) {
		return fmt.Errorf("%s: %d colors but %d timings", p.Key, len(p.Sequence), len(p.TimingMs))
	}
	for i, c := range p.Sequence {
		if c == engine.ColorOff || !engine.ValidColor(c) {
			return fmt.Errorf("%s: %w %q", p.Key, engine.ErrInvalidColor, c)
		}
		if p.TimingMs[i] <= 0 {
			return fmt.Errorf("%s: %w: %dms", p.Key, engine.ErrInvalidDuration, p.TimingMs[i])
		}
	}
	return nil
}

// Settings converts a full-cycle preset into a settings patch.
func (p Pattern) Settings() (engine.SettingsPatch, error) {
	if len(p.Sequence) != len(engine.Cycle) {
		return engine.SettingsPatch{}, fmt.Errorf("%s: %w", p.Key, ErrNotCyclic)
	}
	var patch engine.SettingsPatch
	for i, c := range p.Sequence {
		if c != engine.Cycle[i] {
			return engine.SettingsPatch{}, fmt.Errorf("%s: %w", p.Key, ErrNotCyclic)
		}
		d := time.Duration(p.TimingMs[i]) * time.Millisecond
		switch c {
		case engine.ColorRed:
			patch.Red = &d
		case engine.ColorGreen:
			patch.Green = &d
		case engine.ColorYellow:
			patch.Yellow = &d
		}
	}
	return patch, nil
}

func (s *Set) Get(key string) (Pattern, error) {
	p, ok := s.byKey[key]
	if !ok {
		return Pattern{}, fmt.Errorf("%w %q", ErrUnknownPattern, key)
	}
	return p, nil
}

// All returns the presets in file order.
func (s *Set) All() []Pattern {
	out := make([]Pattern, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.byKey[k])
	}
	return out
}
