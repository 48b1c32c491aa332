package httptransport

import (
	"errors"
	"net/http"
	"strings"

	"board-arena/internal/tournament"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type PublicHandlers struct {
	rooms Rooms
	tours Tournaments
}

func NewPublicHandlers(rooms Rooms, tours Tournaments) *PublicHandlers {
	return &PublicHandlers{rooms: rooms, tours: tours}
}

func (h *PublicHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"items": h.rooms.ListRooms()})
	}
}

// Tournaments lists tournaments, optionally filtered by ?status=A,B.
func (h *PublicHandlers) Tournaments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var statuses []tournament.Status
		if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
			for _, s := range strings.Split(v, ",") {
				st := tournament.Status(strings.ToUpper(strings.TrimSpace(s)))
				switch st {
				case tournament.StatusRegistering, tournament.StatusActive, tournament.StatusFinished, tournament.StatusCancelled:
					statuses = append(statuses, st)
				default:
					WriteHTTPError(w, http.StatusBadRequest, "invalid_status")
					return
				}
			}
		}
		limit, offset := ParsePagination(r)
		items, err := h.tours.List(r.Context(), statuses...)
		if err != nil {
			metricPublicQueryErrors.Add(1)
			log.Error().Err(err).Msg("list tournaments failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		total := len(items)
		if offset > total {
			offset = total
		}
		end := offset + limit
		if end > total {
			end = total
		}
		writeJSON(w, map[string]any{"items": items[offset:end], "total": total, "limit": limit, "offset": offset})
	}
}

func (h *PublicHandlers) Tournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := h.tours.Get(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, tournament.ErrNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "tournament_not_found")
			return
		}
		if err != nil {
			metricPublicQueryErrors.Add(1)
			log.Error().Err(err).Msg("get tournament failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, t)
	}
}
