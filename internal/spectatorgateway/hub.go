package spectatorgateway

import (
	"sync"

	"board-arena/internal/game/viewmodel"
)

// Hub holds one EventBuffer per live room. The session manager publishes
// into it while holding a room lock, so nothing here may block.
type Hub struct {
	mu    sync.Mutex
	max   int
	rooms map[string]*EventBuffer
}

func NewHub(maxEvents int) *Hub {
	return &Hub{max: maxEvents, rooms: map[string]*EventBuffer{}}
}

func (h *Hub) buffer(roomID string) *EventBuffer {
	h.mu.Lock()
	defer h.mu.Unlock()
	buf, ok := h.rooms[roomID]
	if !ok {
		buf = NewEventBuffer(h.max)
		h.rooms[roomID] = buf
	}
	return buf
}

func (h *Hub) Publish(roomID, event string, view viewmodel.PublicView) {
	h.buffer(roomID).Append(event, roomID, view)
	metricEventsPublished.Add(1)
}

// End closes the room's stream; subscribers drain what they already
// received and disconnect.
func (h *Hub) End(roomID string) {
	h.mu.Lock()
	buf, ok := h.rooms[roomID]
	delete(h.rooms, roomID)
	h.mu.Unlock()
	if ok {
		buf.Close()
	}
}

func (h *Hub) Rooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
