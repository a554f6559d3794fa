// Package types holds the JSON shapes served by the traffic-light API. A
// microcontroller only needs TrafficStatus.Mode and TrafficStatus.Color.
package types

import "time"

// GET /traffic-status, GET /current-traffic-status
//
//	{"mode":"auto","color":"green","autoStep":1,"lastUpdate":"...","version":12,
//	 "settings":{"redDurationMs":5000,"yellowDurationMs":2000,"greenDurationMs":5000}}
type TrafficStatus struct {
	Mode       string    `json:"mode"`  // "manual" | "auto" | "off"
	Color      string    `json:"color"` // "red" | "yellow" | "green" | "off"
	AutoStep   int       `json:"autoStep"`
	LastUpdate time.Time `json:"lastUpdate"`
	Settings   Settings  `json:"settings"`
	Version    uint64    `json:"version"`
}

type Settings struct {
	RedDurationMs    int64 `json:"redDurationMs"`
	YellowDurationMs int64 `json:"yellowDurationMs"`
	GreenDurationMs  int64 `json:"greenDurationMs"`
}

type HealthResponse struct {
	Status        string        `json:"status"`
	Timestamp     time.Time     `json:"timestamp"`
	Uptime        float64       `json:"uptime"` // seconds
	TrafficStatus TrafficStatus `json:"trafficStatus"`
}

type StatsResponse struct {
	CurrentStatus    TrafficStatus `json:"currentStatus"`
	Uptime           float64       `json:"uptime"` // seconds
	LastUpdate       time.Time     `json:"lastUpdate"`
	ServerTime       time.Time     `json:"serverTime"`
	AutoModeActive   bool          `json:"autoModeActive"`
	TotalModeChanges int64         `json:"totalModeChanges"`
	AutoCycles       int64         `json:"autoCycles"`
	RejectedCommands int64         `json:"rejectedCommands"`
}

type Pattern struct {
	Name     string   `json:"name"`
	Sequence []string `json:"sequence"`
	Timing   []int64  `json:"timing"` // milliseconds
}

type HistoryEntry struct {
	ID       string    `json:"id"`
	Version  uint64    `json:"version"`
	Type     string    `json:"type"`
	Source   string    `json:"source"`
	Mode     string    `json:"mode"`
	Color    string    `json:"color"`
	AutoStep int       `json:"autoStep"`
	Settings Settings  `json:"settings"`
	At       time.Time `json:"at"`
}
