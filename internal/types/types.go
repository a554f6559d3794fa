package types

import (
	"fmt"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

// ClientMessage is what stream clients send over /ws.
type ClientMessage struct {
	Type  string `json:"type"` // "Command" | "Emergency" | "Settings"
	Mode  string `json:"mode,omitempty"`
	Color string `json:"color,omitempty"`
	wire.SettingsRequest
}

type ServerMessage struct {
	Type    string              `json:"type"` // "StateSnapshot" | "Error"
	Version uint64              `json:"version,omitempty"`
	State   *wire.TrafficStatus `json:"state,omitempty"`
	Error   string              `json:"error,omitempty"`
}

const (
	MsgCommand       = "Command"
	MsgEmergency     = "Emergency"
	MsgSettings      = "Settings"
	MsgStateSnapshot = "StateSnapshot"
	MsgError         = "Error"
)

func ToEngineCommand(m ClientMessage) (engine.Command, error) {
	switch m.Type {
	case MsgCommand:
		return engine.ModeCommand(m.Mode, m.Color)
	case MsgEmergency:
		return engine.Command{Type: engine.CmdEmergency}, nil
	case MsgSettings:
		patch, err := PatchFromRequest(m.SettingsRequest)
		if err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Type: engine.CmdUpdateSettings, Settings: patch}, nil
	default:
		return engine.Command{}, fmt.Errorf("%w %q", engine.ErrUnsupportedCommand, m.Type)
	}
}
