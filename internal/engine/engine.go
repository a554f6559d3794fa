package engine

import (
	"errors"
	"fmt"
	"time"
)

var ErrValidation = errors.New("validation failed")

var ErrInvalidMode = fmt.Errorf("%w: invalid mode", ErrValidation)
var ErrInvalidColor = fmt.Errorf("%w: invalid color", ErrValidation)
var ErrInvalidDuration = fmt.Errorf("%w: duration must be a positive whole number of milliseconds", ErrValidation)
var ErrUnsupportedCommand = fmt.Errorf("%w: unsupported command", ErrValidation)

type Mode string

const (
	ModeManual Mode = "manual"
	ModeAuto   Mode = "auto"
	ModeOff    Mode = "off"
)

type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorOff    Color = "off"
)

type State struct {
	Mode       Mode
	Color      Color
	AutoStep   int
	LastUpdate time.Time
	Settings   Settings
}

type Settings struct {
	Red    time.Duration
	Yellow time.Duration
	Green  time.Duration
}

// SettingsPatch replaces only the durations that are non-nil.
type SettingsPatch struct {
	Red    *time.Duration
	Yellow *time.Duration
	Green  *time.Duration
}

type CommandType string

const (
	CmdManual         CommandType = "Manual"
	CmdAuto           CommandType = "Auto"
	CmdOff            CommandType = "Off"
	CmdEmergency      CommandType = "Emergency"
	CmdUpdateSettings CommandType = "UpdateSettings"
)

/*
	CmdManual         -> EvtModeChanged? -> EvtColorChanged?
	CmdAuto           -> EvtModeChanged -> EvtColorChanged?   (sequencer armed by the controller)
	CmdOff            -> EvtModeChanged? -> EvtColorChanged?
	CmdEmergency      -> EvtEmergencyOverride -> EvtModeChanged? -> EvtColorChanged?
	CmdUpdateSettings -> EvtSettingsUpdated
	Advance (timer)   -> EvtPhaseAdvanced -> EvtCycleCompleted when the step wraps to 0
*/

type Command struct {
	Type     CommandType
	Color    Color
	Settings SettingsPatch
}

type EventType string

const (
	EvtModeChanged       EventType = "ModeChanged"
	EvtColorChanged      EventType = "ColorChanged"
	EvtPhaseAdvanced     EventType = "PhaseAdvanced"
	EvtCycleCompleted    EventType = "CycleCompleted"
	EvtSettingsUpdated   EventType = "SettingsUpdated"
	EvtEmergencyOverride EventType = "EmergencyOverride"
)

type Source string

const (
	SourceOperator  Source = "operator"
	SourceSequencer Source = "sequencer"
)

type Event struct {
	Type     EventType
	Source   Source
	Mode     Mode
	Color    Color
	AutoStep int
	Settings Settings
	At       time.Time
}

// Apply validates cmd against s and returns the resulting state. On error the
// returned state is s, untouched.
func Apply(s State, cmd Command, now time.Time) ([]Event, State, error) {
	switch cmd.Type {
	case CmdManual:
		if !ValidColor(cmd.Color) {
			return nil, s, fmt.Errorf("%w %q", ErrInvalidColor, cmd.Color)
		}
		return transition(s, ModeManual, cmd.Color, now)

	case CmdAuto:
		// Re-entering auto always restarts the cycle from the first phase.
		next := s
		next.Mode = ModeAuto
		next.AutoStep = 0
		next.Color = Cycle[0]
		next.LastUpdate = now

		events := []Event{newEvent(EvtModeChanged, SourceOperator, next)}
		if s.Color != next.Color {
			events = append(events, newEvent(EvtColorChanged, SourceOperator, next))
		}
		return events, next, nil

	case CmdOff:
		return transition(s, ModeOff, ColorOff, now)

	case CmdEmergency:
		// No validation: the override must always land.
		events, next, _ := transition(s, ModeManual, ColorRed, now)
		events = append([]Event{newEvent(EvtEmergencyOverride, SourceOperator, next)}, events...)
		return events, next, nil

	case CmdUpdateSettings:
		settings, err := s.Settings.Patch(cmd.Settings)
		if err != nil {
			return nil, s, err
		}
		next := s
		next.Settings = settings
		next.LastUpdate = now
		return []Event{newEvent(EvtSettingsUpdated, SourceOperator, next)}, next, nil

	default:
		return nil, s, fmt.Errorf("%w %q", ErrUnsupportedCommand, cmd.Type)
	}
}

// Advance moves an auto-mode state to the next phase of the cycle. The step is
// advanced first; callers pick the next delay from the returned state.
func Advance(s State, now time.Time) ([]Event, State) {
	next := s
	next.AutoStep = NextStep(s.AutoStep)
	next.Color = Cycle[next.AutoStep]
	next.LastUpdate = now

	events := []Event{newEvent(EvtPhaseAdvanced, SourceSequencer, next)}
	if next.AutoStep == 0 {
		events = append(events, newEvent(EvtCycleCompleted, SourceSequencer, next))
	}
	return events, next
}

func transition(s State, mode Mode, color Color, now time.Time) ([]Event, State, error) {
	next := s
	next.Mode = mode
	next.Color = color
	next.LastUpdate = now

	var events []Event
	if s.Mode != next.Mode {
		events = append(events, newEvent(EvtModeChanged, SourceOperator, next))
	}
	if s.Color != next.Color {
		events = append(events, newEvent(EvtColorChanged, SourceOperator, next))
	}
	return events, next, nil
}

func newEvent(t EventType, src Source, s State) Event {
	return Event{
		Type:     t,
		Source:   src,
		Mode:     s.Mode,
		Color:    s.Color,
		AutoStep: s.AutoStep,
		Settings: s.Settings,
		At:       s.LastUpdate,
	}
}
