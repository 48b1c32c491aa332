package session

import (
	"context"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"

	"github.com/rs/zerolog/log"
)

// StartMatch opens a tournament match room and starts the game at once.
// Nothing is sent; the caller announces the match. Starting the same match
// twice returns the existing room. A player still sitting in a lobby room
// gives it up first.
func (m *Manager) StartMatch(ctx context.Context, spec MatchSpec) (string, error) {
	rules, err := m.games.Rules(spec.Kind)
	if err != nil {
		return "", err
	}
	if rid, ok := m.MatchRoom(spec.MatchID); ok {
		return rid, nil
	}
	for _, p := range spec.Players {
		if !p.Bot {
			m.vacate(ctx, p.ID)
		}
	}
	r := newRoom(spec.Kind, rules, 0)
	r.tournamentID = spec.TournamentID
	r.matchID = spec.MatchID
	r.players = []game.Player{spec.Players[0], spec.Players[1]}
	r.host, r.hostName = spec.Players[0].ID, spec.Players[0].Name

	m.mu.Lock()
	if rid, ok := m.matches[spec.MatchID]; ok {
		m.mu.Unlock()
		return rid, nil
	}
	m.rooms[r.id] = r
	m.matches[r.matchID] = r.id
	for _, p := range r.players {
		if !p.Bot {
			m.byUser[p.ID] = r.id
		}
	}
	m.mu.Unlock()
	metricRoomsOpen.Add(1)

	r.mu.Lock()
	m.start(r)
	r.mu.Unlock()
	return r.id, nil
}

// vacate ends the lobby room userID sits in: a waiting room is dropped and
// a running game is lost by forfeit.
func (m *Manager) vacate(ctx context.Context, userID string) {
	rid, ok := m.RoomOf(userID)
	if !ok {
		return
	}
	r := m.room(rid)
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled || r.matchID != "" || r.seat(userID) < 0 {
		return
	}
	switch r.status {
	case StatusWaiting:
		m.discardLocked(r, ReasonLeft)
	case StatusActive:
		opp, _ := r.opponentOf(userID)
		log.Info().Str("room_id", r.id).Str("user_id", userID).Msg("lobby game forfeited for tournament match")
		m.finishLocked(ctx, r, game.Outcome{Over: true, WinnerID: opp.ID}, ReasonLeft)
	}
}

func (m *Manager) matchRoom(matchID string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	rid, ok := m.matches[matchID]
	if !ok {
		return nil
	}
	return m.rooms[rid]
}

// JoinMatch returns the caller's view of a running match and counts as a
// reconnect.
func (m *Manager) JoinMatch(userID, matchID string) (viewmodel.PlayerView, error) {
	r := m.matchRoom(matchID)
	if r == nil {
		return viewmodel.PlayerView{}, ErrMatchNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	seat := r.seat(userID)
	if seat < 0 {
		return viewmodel.PlayerView{}, ErrNotInRoom
	}
	m.reconnectLocked(r, userID)
	return r.view(seat), nil
}

func (m *Manager) MatchMove(ctx context.Context, userID, matchID string, mv game.Move) error {
	r := m.matchRoom(matchID)
	if r == nil {
		return ErrMatchNotFound
	}
	r.mu.Lock()
	rid := r.id
	r.mu.Unlock()
	return m.HandleMove(ctx, userID, rid, mv)
}

// MarkAbsent starts the grace timer for a match player who never showed up.
func (m *Manager) MarkAbsent(matchID, userID string) {
	r := m.matchRoom(matchID)
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled || r.status != StatusActive || r.seat(userID) < 0 {
		return
	}
	log.Info().Str("match_id", matchID).Str("user_id", userID).Msg("match player absent")
	m.markAwayLocked(r, userID)
}

// MatchRoom reports the room id of a running match.
func (m *Manager) MatchRoom(matchID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rid, ok := m.matches[matchID]
	return rid, ok
}
