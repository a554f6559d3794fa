package hub

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/traffic-light-server/internal/store"
)

type HubMsg interface{ isHubMsg() }

type Join struct {
	ClientID string
	Outbox   chan store.Snapshot // where this client wants to receive snapshots
}

type Leave struct {
	ClientID string
}

type Publish struct {
	Snapshot store.Snapshot
}

type Count struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Join) isHubMsg()        {}
func (Leave) isHubMsg()       {}
func (Publish) isHubMsg()     {}
func (Count) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

// Hub fans published snapshots out to stream clients. It never waits on a
// client: one whose outbox is full is closed and dropped.
type Hub struct {
	inbox   chan HubMsg
	clients map[string]chan store.Snapshot
	last    store.Snapshot
	hasLast bool
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		clients: make(map[string]chan store.Snapshot),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Publish implements controller.Broadcaster.
func (h *Hub) Publish(snap store.Snapshot) {
	select {
	case h.inbox <- Publish{Snapshot: snap}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Join(clientID string, outbox chan store.Snapshot) {
	select {
	case h.inbox <- Join{ClientID: clientID, Outbox: outbox}:
	case <-h.ctx.Done():
		close(outbox)
	}
}

func (h *Hub) Leave(clientID string) {
	select {
	case h.inbox <- Leave{ClientID: clientID}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Join:
				h.clients[msg.ClientID] = msg.Outbox
				h.log.Debug("client joined", zap.String("client_id", msg.ClientID), zap.Int("clients", len(h.clients)))
				if h.hasLast {
					h.send(msg.ClientID, msg.Outbox, h.last)
				}

			case Leave:
				if ch, ok := h.clients[msg.ClientID]; ok {
					close(ch)
					delete(h.clients, msg.ClientID)
				}

			case Publish:
				// Snapshots can arrive out of order only if callers race; keep the newest.
				if h.hasLast && msg.Snapshot.Version < h.last.Version {
					break
				}
				h.last = msg.Snapshot
				h.hasLast = true
				for id, ch := range h.clients {
					h.send(id, ch, msg.Snapshot)
				}

			case Count:
				msg.Reply <- len(h.clients)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) send(id string, ch chan store.Snapshot, snap store.Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		h.log.Warn("dropping slow client", zap.String("client_id", id))
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // Tell client no more snapshots
		delete(h.clients, id)
	}
	h.cancel()
}
