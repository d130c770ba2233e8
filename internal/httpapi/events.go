package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"agentd/internal/lifecycle"
)

// wireEvent is the JSON shape of one lifecycle event on the wire.
type wireEvent struct {
	Event     string         `json:"event"`
	Component string         `json:"component"`
	Fields    map[string]any `json:"fields,omitempty"`
	Time      time.Time      `json:"time"`
}

// clientBuf bounds the per-client send queue. A client that cannot keep up
// loses events rather than stalling the manager.
const clientBuf = 32

// EventHub fans lifecycle events out to websocket subscribers. It implements
// lifecycle.EventPublisher, so the manager publishes straight into it.
type EventHub struct {
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

type hubClient struct {
	send chan wireEvent
}

// NewEventHub builds an empty hub.
func NewEventHub(logger zerolog.Logger) *EventHub {
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local daemon: same-origin policy does not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*hubClient]struct{}),
	}
}

// Publish implements lifecycle.EventPublisher. It never blocks: full client
// queues drop the event.
func (h *EventHub) Publish(ev lifecycle.Event) {
	we := wireEvent{Event: ev.Name, Component: ev.Component, Fields: ev.Fields, Time: time.Now()}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- we:
		default:
		}
	}
}

// ServeHTTP upgrades the connection and streams events until the client goes
// away or the hub closes.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &hubClient{send: make(chan wireEvent, clientBuf)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	// Reader pump: we ignore client messages but need the read loop to
	// notice disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-client.send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// subscriberCount reports how many clients are attached; used by tests.
func (h *EventHub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber. Publish becomes a no-op.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*hubClient]struct{})
}
