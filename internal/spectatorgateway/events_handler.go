package spectatorgateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

var pingInterval = 15 * time.Second

// EventsHandler streams a room as server-sent events: a snapshot first, then
// every public update until the game ends.
func EventsHandler(hub *Hub, rooms Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "id")
		snapshot, err := rooms.PublicState(roomID)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"room_not_found"}`))
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		buf := hub.buffer(roomID)
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)
		// the room may have ended between the snapshot and the subscribe
		if _, err := rooms.PublicState(roomID); err != nil {
			hub.End(roomID)
		}

		metricSpectatorSSEConnectionsTotal.Add(1)
		metricSpectatorSSEConnectionsActive.Add(1)
		defer metricSpectatorSSEConnectionsActive.Add(-1)

		SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)
		if err := WriteSSE(w, StreamEvent{Event: "snapshot", RoomID: roomID, ServerTS: time.Now().UnixMilli(), Data: snapshot}); err != nil {
			return
		}
		if last := r.Header.Get("Last-Event-ID"); last != "" {
			for _, ev := range buf.ReplayAfter(last) {
				if err := WriteSSE(w, ev); err != nil {
					return
				}
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := StreamEvent{
					Event:    "ping",
					RoomID:   roomID,
					ServerTS: time.Now().UnixMilli(),
					Data:     map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
