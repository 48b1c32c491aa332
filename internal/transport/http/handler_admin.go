package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"board-arena/internal/game"
	"board-arena/internal/session"
	"board-arena/internal/store"
	"board-arena/internal/tournament"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type AdminHandlers struct {
	db             Pinger
	users          Users
	wallet         Wallet
	rooms          Rooms
	tours          Tournaments
	initialBalance int64
}

func NewAdminHandlers(d Deps) *AdminHandlers {
	return &AdminHandlers{
		db:             d.DB,
		users:          d.Users,
		wallet:         d.Wallet,
		rooms:          d.Rooms,
		tours:          d.Tournaments,
		initialBalance: d.InitialBalance,
	}
}

func (h *AdminHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "db": "down"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "db": "up"})
	}
}

func newAPIKey() string {
	return "ak_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateUser registers a player and returns its api key. The key is shown
// once; only its hash is stored.
func (h *AdminHandlers) CreateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string `json:"name"`
			APIKey  string `json:"api_key"`
			Balance *int64 `json:"balance"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if body.APIKey == "" {
			body.APIKey = newAPIKey()
		}
		balance := h.initialBalance
		if body.Balance != nil {
			balance = *body.Balance
		}
		u, err := h.users.CreateUser(r.Context(), body.Name, body.APIKey, balance)
		switch {
		case errors.Is(err, store.ErrDuplicateUser):
			WriteHTTPError(w, http.StatusConflict, "duplicate_user")
			return
		case errors.Is(err, store.ErrInvalidAmount):
			WriteHTTPError(w, http.StatusBadRequest, "invalid_amount")
			return
		case err != nil:
			log.Error().Err(err).Msg("create user failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricAdminUsersCreated.Add(1)
		writeJSON(w, map[string]any{"ok": true, "user_id": u.ID, "name": u.Name, "api_key": body.APIKey, "balance": balance})
	}
}

func (h *AdminHandlers) Topup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UserID string `json:"user_id"`
			Amount int64  `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if body.UserID == "" || body.Amount <= 0 {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if _, err := h.users.GetUser(r.Context(), body.UserID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "user_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		bal, err := h.wallet.TopUp(r.Context(), body.UserID, body.Amount)
		if err != nil {
			log.Error().Err(err).Str("user_id", body.UserID).Msg("topup failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		metricAdminTopupTotal.Add(1)
		writeJSON(w, map[string]any{"ok": true, "balance": bal})
	}
}

func (h *AdminHandlers) Ledger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := ParsePagination(r)
		items, err := h.users.ListLedgerEntries(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"items": items, "limit": limit})
	}
}

func (h *AdminHandlers) Games() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := ParsePagination(r)
		items, err := h.users.ListGameRecords(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, map[string]any{"items": items, "limit": limit})
	}
}

// Rooms opens a room with up to two existing users already seated.
func (h *AdminHandlers) Rooms() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			GameType string   `json:"gameType"`
			Bet      int64    `json:"bet"`
			Players  []string `json:"players"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		kind, err := game.ParseKind(body.GameType)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "unknown_game")
			return
		}
		if len(body.Players) > 2 {
			WriteHTTPError(w, http.StatusBadRequest, "too_many_players")
			return
		}
		players := make([]game.Player, 0, len(body.Players))
		for _, id := range body.Players {
			u, err := h.users.GetUser(r.Context(), id)
			if err != nil {
				WriteHTTPError(w, http.StatusNotFound, "user_not_found")
				return
			}
			players = append(players, game.Player{ID: u.ID, Name: u.Name})
		}
		sum, err := h.rooms.CreateAdminRoom(r.Context(), kind, body.Bet, players)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metricAdminRoomsCreated.Add(1)
		writeJSON(w, map[string]any{"ok": true, "room": sum})
	}
}

func (h *AdminHandlers) CreateTournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body tournament.CreateParams
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		if !body.StartsAt.IsZero() && body.StartsAt.Before(time.Now()) {
			WriteHTTPError(w, http.StatusBadRequest, "starts_at_in_past")
			return
		}
		t, err := h.tours.Create(r.Context(), body)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		metricAdminTournamentCreated.Add(1)
		writeJSON(w, map[string]any{"ok": true, "tournament": t})
	}
}

func (h *AdminHandlers) CancelTournament() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.tours.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, map[string]any{"ok": true})
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrUnknownGame),
		errors.Is(err, session.ErrInvalidBet),
		errors.Is(err, tournament.ErrInvalidMaxPlayers),
		errors.Is(err, tournament.ErrInvalidFee):
		WriteHTTPError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tournament.ErrNotFound):
		WriteHTTPError(w, http.StatusNotFound, tournament.ErrNotFound.Error())
	case errors.Is(err, session.ErrInsufficientBalance):
		WriteHTTPError(w, http.StatusConflict, session.ErrInsufficientBalance.Error())
	case errors.Is(err, session.ErrAlreadyInRoom):
		WriteHTTPError(w, http.StatusConflict, session.ErrAlreadyInRoom.Error())
	case errors.Is(err, session.ErrRoomFull):
		WriteHTTPError(w, http.StatusBadRequest, session.ErrRoomFull.Error())
	case errors.Is(err, tournament.ErrNotRegistering):
		WriteHTTPError(w, http.StatusConflict, tournament.ErrNotRegistering.Error())
	default:
		log.Error().Err(err).Msg("admin request failed")
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
