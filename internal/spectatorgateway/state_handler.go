package spectatorgateway

import (
	"encoding/json"
	"net/http"

	"board-arena/internal/game/viewmodel"

	"github.com/go-chi/chi/v5"
)

// Rooms resolves the current public view of a room.
type Rooms interface {
	PublicState(roomID string) (viewmodel.PublicView, error)
}

func StateHandler(rooms Rooms) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := rooms.PublicState(chi.URLParam(r, "id"))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "room_not_found"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(state)
	}
}
