package engine

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultRedDuration    = 5000 * time.Millisecond
	DefaultYellowDuration = 2000 * time.Millisecond
	DefaultGreenDuration  = 5000 * time.Millisecond
)

func DefaultSettings() Settings {
	return Settings{
		Red:    DefaultRedDuration,
		Yellow: DefaultYellowDuration,
		Green:  DefaultGreenDuration,
	}
}

func NewState(settings Settings, now time.Time) State {
	return State{
		Mode:       ModeOff,
		Color:      ColorOff,
		AutoStep:   0,
		LastUpdate: now,
		Settings:   settings,
	}
}

// Validate requires every duration to be at least 1ms and a whole number of
// milliseconds, the resolution the wire format carries.
func (s Settings) Validate() error {
	if err := validDuration("red", s.Red); err != nil {
		return err
	}
	if err := validDuration("yellow", s.Yellow); err != nil {
		return err
	}
	return validDuration("green", s.Green)
}

func validDuration(phase string, d time.Duration) error {
	if d < time.Millisecond || d%time.Millisecond != 0 {
		return fmt.Errorf("%w: %s %v", ErrInvalidDuration, phase, d)
	}
	return nil
}

// Patch returns s with the provided durations replaced. Nothing is replaced
// unless every provided duration is valid.
func (s Settings) Patch(p SettingsPatch) (Settings, error) {
	next := s
	if p.Red != nil {
		next.Red = *p.Red
	}
	if p.Yellow != nil {
		next.Yellow = *p.Yellow
	}
	if p.Green != nil {
		next.Green = *p.Green
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

func ValidColor(c Color) bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorOff:
		return true
	}
	return false
}

func ParseColor(v string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(v)))
	if !ValidColor(c) {
		return "", fmt.Errorf("%w %q", ErrInvalidColor, v)
	}
	return c, nil
}

func ParseMode(v string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(v))); m {
	case ModeManual, ModeAuto, ModeOff:
		return m, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidMode, v)
}

// ModeCommand builds the command for a {mode, color} request. Color is only
// consulted for manual mode.
func ModeCommand(mode, color string) (Command, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return Command{}, err
	}
	switch m {
	case ModeAuto:
		return Command{Type: CmdAuto}, nil
	case ModeOff:
		return Command{Type: CmdOff}, nil
	}
	c, err := ParseColor(color)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: CmdManual, Color: c}, nil
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
