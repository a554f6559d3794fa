package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	"github.com/DoyleJ11/traffic-light-server/internal/patterns"
	"github.com/DoyleJ11/traffic-light-server/internal/store"
	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

func TestStatus_WireShape(t *testing.T) {
	at := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	snap := store.Snapshot{
		Version: 4,
		State: engine.State{
			Mode:       engine.ModeAuto,
			Color:      engine.ColorGreen,
			AutoStep:   1,
			LastUpdate: at,
			Settings:   engine.DefaultSettings(),
		},
	}

	raw, err := json.Marshal(Status(snap))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"mode":"auto","color":"green","autoStep":1,
		"lastUpdate":"2025-03-01T08:30:00Z","version":4,
		"settings":{"redDurationMs":5000,"yellowDurationMs":2000,"greenDurationMs":5000}
	}`, string(raw))
}

func TestPatchFromRequest_MillisWinOverSeconds(t *testing.T) {
	var req wire.SettingsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"redDurationMs":1500,"redDuration":9,"greenDuration":4}`), &req))

	p, err := PatchFromRequest(req)
	require.NoError(t, err)
	require.NotNil(t, p.Red)
	require.NotNil(t, p.Green)
	assert.Nil(t, p.Yellow)
	assert.Equal(t, 1500*time.Millisecond, *p.Red)
	assert.Equal(t, 4*time.Second, *p.Green)
}

func TestPatchFromRequest_RoundsSecondsToMillis(t *testing.T) {
	var req wire.SettingsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"redDuration":2.3,"yellowDuration":0.0001}`), &req))

	p, err := PatchFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, 2300*time.Millisecond, *p.Red)
	// Rounds to zero; the engine rejects it.
	assert.Equal(t, time.Duration(0), *p.Yellow)
}

func TestPatchFromRequest_RejectsUnrepresentableDurations(t *testing.T) {
	cases := map[string]string{
		"millis overflow":          `{"redDurationMs":18446744073710}`,
		"negative millis overflow": `{"greenDurationMs":-18446744073710}`,
		"seconds overflow":         `{"yellowDuration":1e300}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req wire.SettingsRequest
			require.NoError(t, json.Unmarshal([]byte(body), &req))

			_, err := PatchFromRequest(req)
			require.ErrorIs(t, err, engine.ErrInvalidDuration)
			assert.Contains(t, err.Error(), "out of range")
		})
	}
}

func TestToEngineCommand(t *testing.T) {
	cmd, err := ToEngineCommand(ClientMessage{Type: MsgCommand, Mode: "manual", Color: "yellow"})
	require.NoError(t, err)
	assert.Equal(t, engine.Command{Type: engine.CmdManual, Color: engine.ColorYellow}, cmd)

	cmd, err = ToEngineCommand(ClientMessage{Type: MsgEmergency})
	require.NoError(t, err)
	assert.Equal(t, engine.CmdEmergency, cmd.Type)

	var m ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Settings","yellowDurationMs":900}`), &m))
	cmd, err = ToEngineCommand(m)
	require.NoError(t, err)
	require.NotNil(t, cmd.Settings.Yellow)
	assert.Equal(t, 900*time.Millisecond, *cmd.Settings.Yellow)

	require.NoError(t, json.Unmarshal([]byte(`{"type":"Settings","redDurationMs":18446744073710}`), &m))
	_, err = ToEngineCommand(m)
	require.ErrorIs(t, err, engine.ErrInvalidDuration)

	_, err = ToEngineCommand(ClientMessage{Type: "Dance"})
	require.ErrorIs(t, err, engine.ErrValidation)

	_, err = ToEngineCommand(ClientMessage{Type: MsgCommand, Mode: "manual", Color: "purple"})
	require.ErrorIs(t, err, engine.ErrInvalidColor)
}

func TestPatterns_KeyedByName(t *testing.T) {
	got := Patterns(patterns.Default())
	require.Contains(t, got, "pedestrian")
	assert.Equal(t, wire.Pattern{
		Name:     "Pedestrian Crossing",
		Sequence: []string{"red", "green", "yellow"},
		Timing:   []int64{8000, 3000, 2000},
	}, got["pedestrian"])
}
