package types

// POST /control-traffic
//
//	{"mode":"manual","color":"red"} | {"mode":"auto"} | {"mode":"off"}
type CommandRequest struct {
	Mode  string `json:"mode"`
	Color string `json:"color,omitempty"`
}

// POST /update-settings. Any subset may be sent. The *DurationMs fields are
// milliseconds; the bare fields are the older seconds form and are only used
// when the matching millisecond field is absent.
type SettingsRequest struct {
	RedDurationMs    *int64   `json:"redDurationMs,omitempty"`
	YellowDurationMs *int64   `json:"yellowDurationMs,omitempty"`
	GreenDurationMs  *int64   `json:"greenDurationMs,omitempty"`
	RedDuration      *float64 `json:"redDuration,omitempty"`
	YellowDuration   *float64 `json:"yellowDuration,omitempty"`
	GreenDuration    *float64 `json:"greenDuration,omitempty"`
}

type CommandResponse struct {
	Success bool           `json:"success"`
	Status  *TrafficStatus `json:"status,omitempty"`
	Message string         `json:"message"`
}

type SettingsResponse struct {
	Success  bool      `json:"success"`
	Settings *Settings `json:"settings,omitempty"`
	Message  string    `json:"message"`
}
