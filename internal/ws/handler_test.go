package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/traffic-light-server/internal/controller"
	"github.com/DoyleJ11/traffic-light-server/internal/engine"
	"github.com/DoyleJ11/traffic-light-server/internal/hub"
	"github.com/DoyleJ11/traffic-light-server/internal/types"
)

func startServer(t *testing.T) (*controller.Controller, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	// The handler logs disconnects after the client hangs up, which can be
	// after the test has returned.
	log := zap.NewNop()
	h := hub.NewHub(ctx, log)
	c := controller.New(ctx, engine.NewState(engine.DefaultSettings(), time.Now()), controller.WithBroadcaster(h))
	t.Cleanup(c.Close)

	srv := httptest.NewServer(Handler(c, h, log, Options{}))
	t.Cleanup(srv.Close)
	return c, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func send(t *testing.T, conn *websocket.Conn, body string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(body)))
}

func TestHandler_StreamsSnapshotOnJoinAndChange(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)

	first := readMsg(t, conn)
	require.Equal(t, types.MsgStateSnapshot, first.Type)
	require.NotNil(t, first.State)
	assert.Equal(t, "off", first.State.Mode)

	send(t, conn, `{"type":"Command","mode":"manual","color":"green"}`)
	next := readMsg(t, conn)
	require.Equal(t, types.MsgStateSnapshot, next.Type)
	assert.Equal(t, "manual", next.State.Mode)
	assert.Equal(t, "green", next.State.Color)
	assert.Equal(t, first.Version+1, next.Version)
}

func TestHandler_ReportsErrors(t *testing.T) {
	c, url := startServer(t)
	conn := dial(t, url)
	_ = readMsg(t, conn)
	before := c.Snapshot()

	send(t, conn, `{not json`)
	msg := readMsg(t, conn)
	assert.Equal(t, types.MsgError, msg.Type)
	assert.Equal(t, "bad json", msg.Error)

	send(t, conn, `{"type":"Command","mode":"manual","color":"purple"}`)
	msg = readMsg(t, conn)
	assert.Equal(t, types.MsgError, msg.Type)
	assert.Contains(t, msg.Error, "purple")

	send(t, conn, `{"type":"Settings","redDurationMs":-5}`)
	msg = readMsg(t, conn)
	assert.Equal(t, types.MsgError, msg.Type)

	assert.Equal(t, before, c.Snapshot())
	// Bad JSON is not a command; the bad color and the bad duration are.
	assert.Equal(t, int64(2), c.Stats().RejectedCommands)
}

func TestHandler_EmergencyOverStream(t *testing.T) {
	_, url := startServer(t)
	conn := dial(t, url)
	_ = readMsg(t, conn)

	send(t, conn, `{"type":"Emergency"}`)
	msg := readMsg(t, conn)
	require.Equal(t, types.MsgStateSnapshot, msg.Type)
	assert.Equal(t, "manual", msg.State.Mode)
	assert.Equal(t, "red", msg.State.Color)
}
