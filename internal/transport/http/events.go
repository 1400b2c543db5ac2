package http

import (
	"log"
	"net/http"
	"sync"

	"assessment-service/internal/domain"
	"github.com/gorilla/websocket"
)

// EventHub fans attempt-completion events out to websocket listeners
// (proctor dashboards, notification relays). Delivery is best-effort:
// a slow listener has its oldest buffered event dropped rather than
// blocking the publisher, and nobody listening means nobody notified.
type EventHub struct {
	upgrader websocket.Upgrader

	mu          sync.Mutex
	subscribers map[chan domain.AttemptCompleted]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[chan domain.AttemptCompleted]struct{}),
	}
}

// Publish delivers the event to every current subscriber without blocking.
func (h *EventHub) Publish(event domain.AttemptCompleted) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

func (h *EventHub) subscribe() (<-chan domain.AttemptCompleted, func()) {
	ch := make(chan domain.AttemptCompleted, 8)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

type outboundEvent struct {
	Type    string                  `json:"type"`
	Payload domain.AttemptCompleted `json:"payload"`
}

// ServeWS upgrades the request and streams completion events until the
// client disconnects.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.subscribe()
	defer cancel()

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
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundEvent{Type: "attemptCompleted", Payload: event}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-done:
			return
		}
	}
}
