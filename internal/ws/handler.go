package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/DoyleJ11/traffic-light-server/internal/controller"
	"github.com/DoyleJ11/traffic-light-server/internal/hub"
	"github.com/DoyleJ11/traffic-light-server/internal/store"
	"github.com/DoyleJ11/traffic-light-server/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 8
)

type Options struct {
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*".
	OriginPatterns []string
	// IdleTimeout closes a client that sends nothing for this long. Zero
	// keeps the connection open as long as the client is reachable.
	IdleTimeout time.Duration
}

// Handler streams every state change to the client and accepts the same
// commands as the HTTP API.
func Handler(c *controller.Controller, h *hub.Hub, log *zap.Logger, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan store.Snapshot, outboxSize)
		clientID := xid.New().String()
		clog := log.With(zap.String("client_id", clientID))

		h.Join(clientID, out)
		defer h.Leave(clientID)
		clog.Info("stream client connected", zap.String("remote", r.RemoteAddr))

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				status := types.Status(snap)
				msg := types.ServerMessage{Type: types.MsgStateSnapshot, Version: snap.Version, State: &status}
				if err := writeJSON(writeCtx, conn, msg); err != nil {
					clog.Debug("stream write failed", zap.Error(err))
					return
				}
			}
			// The hub dropped us (slow client or shutdown).
			conn.Close(websocket.StatusTryAgainLater, "stream closed")
		}()

		// Reader loop
		for {
			ctx, cancel := readContext(r.Context(), opts.IdleTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					clog.Info("stream client disconnected")
				default:
					clog.Debug("stream read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: "bad json"})
				continue
			}

			cmd, err := types.ToEngineCommand(cm)
			if err != nil {
				c.Reject(err)
				_ = writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
				continue
			}

			// Success is observed through the snapshot stream.
			if _, err := c.Execute(r.Context(), cmd); err != nil {
				_ = writeJSON(r.Context(), conn, types.ServerMessage{Type: types.MsgError, Error: err.Error()})
			}
		}
	}
}

func readContext(parent context.Context, idle time.Duration) (context.Context, context.CancelFunc) {
	if idle <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, idle)
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
