package alert

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub fans events out to websocket connections grouped by tenant. A failed
// write evicts the connection; delivery is best-effort.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*websocket.Conn]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{rooms: map[string]map[*websocket.Conn]struct{}{}, logger: logger}
}

type hubFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func (h *Hub) Register(tenantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[tenantID]
	if !ok {
		room = map[*websocket.Conn]struct{}{}
		h.rooms[tenantID] = room
	}
	room[conn] = struct{}{}
}

func (h *Hub) Unregister(tenantID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[tenantID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, tenantID)
		}
	}
	_ = conn.Close()
}

func (h *Hub) Broadcast(tenantID, event string, payload any) {
	frame := hubFrame{Event: event, Payload: payload}

	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[tenantID]
	for conn := range room {
		if err := conn.WriteJSON(frame); err != nil {
			h.logger.Warn("websocket write failed; dropping connection", "tenant", tenantID, "err", err)
			delete(room, conn)
			_ = conn.Close()
		}
	}
	if len(room) == 0 {
		delete(h.rooms, tenantID)
	}
}

// Connections reports the current room size, for tests and health output.
func (h *Hub) Connections(tenantID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[tenantID])
}
