package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Con7105/fantasy-valo/internal/logger"
	"github.com/Con7105/fantasy-valo/internal/pubsub"
)

const (
	keepaliveInterval = 30 * time.Second
	wsWriteTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wants reports whether a stream filtered by ?id= should carry e.
func wants(r *http.Request, e pubsub.Event) bool {
	id := r.URL.Query().Get("id")
	return id == "" || e.ID == id
}

// EventsSSE provides Server-Sent Events for realtime updates. ?id= limits
// the stream to one room or league.
func (h *APIHandlers) EventsSSE(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "change notifications are not configured")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	eventChan := h.bus.Subscribe()
	defer h.bus.Unsubscribe(eventChan)

	flush := func() {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}

	fmt.Fprintf(w, "data: {\"type\":\"connected\"}\n\n")
	flush()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !wants(r, event) {
				continue
			}
			data, _ := json.Marshal(event)
			fmt.Fprintf(w, "data: %s\n\n", data)
			flush()
		case <-r.Context().Done():
			logger.Debug("SSE client disconnected")
			return
		case <-time.After(keepaliveInterval):
			fmt.Fprintf(w, ": keepalive\n\n")
			flush()
		}
	}
}

// EventsWS streams the same change events over a WebSocket.
func (h *APIHandlers) EventsWS(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "change notifications are not configured")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	eventChan := h.bus.Subscribe()
	defer h.bus.Unsubscribe(eventChan)

	// the reader only notices the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(v any) error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(v)
	}
	if err := send(map[string]string{"type": "connected"}); err != nil {
		return
	}

	ping := time.NewTicker(keepaliveInterval)
	defer ping.Stop()
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if !wants(r, event) {
				continue
			}
			if err := send(event); err != nil {
				logger.Debug("WebSocket write failed", "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-closed:
			logger.Debug("WebSocket client disconnected")
			return
		case <-r.Context().Done():
			return
		}
	}
}
