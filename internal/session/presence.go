package session

import (
	"context"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"

	"github.com/rs/zerolog/log"
)

// Disconnect is called when a user's last connection drops. Waiting rooms
// they host are discarded; active games get a grace window.
func (m *Manager) Disconnect(userID string) {
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
	if r.settled || r.seat(userID) < 0 {
		return
	}
	switch r.status {
	case StatusWaiting:
		if r.matchID == "" {
			m.discardLocked(r, ReasonForfeit)
		}
	case StatusActive:
		m.markAwayLocked(r, userID)
	}
}

// markAwayLocked starts the grace timer for userID. Requires r.mu.
func (m *Manager) markAwayLocked(r *Room, userID string) {
	if r.away[userID] {
		return
	}
	r.away[userID] = true
	grace := m.cfg.DisconnectGrace
	if opp, ok := r.opponentOf(userID); ok && !opp.Bot {
		m.out.SendTo(opp.ID, r.msg(MsgOpponentDisconnected), PresenceNotice{
			RoomID:       r.id,
			MatchID:      r.matchID,
			UserID:       userID,
			GraceSeconds: int(grace.Seconds()),
		})
	}
	log.Info().Str("room_id", r.id).Str("user_id", userID).Dur("grace", grace).Msg("player disconnected")
	m.timers.Schedule(graceKey(r.id, userID), grace, func() { m.expireAway(r, userID) })
}

func (m *Manager) expireAway(r *Room, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settled || r.status != StatusActive || !r.away[userID] {
		return
	}
	opp, ok := r.opponentOf(userID)
	if !ok {
		return
	}
	out := game.Outcome{Over: true, WinnerID: opp.ID}
	// both gone: nobody earns the win
	if r.away[opp.ID] {
		out = game.Outcome{Over: true, Draw: true}
	}
	log.Info().Str("room_id", r.id).Str("user_id", userID).Msg("disconnect grace expired")
	m.finishLocked(context.Background(), r, out, ReasonForfeit)
}

// reconnectLocked clears an away flag. Requires r.mu.
func (m *Manager) reconnectLocked(r *Room, userID string) {
	if !r.away[userID] {
		return
	}
	delete(r.away, userID)
	m.timers.Cancel(graceKey(r.id, userID))
	if opp, ok := r.opponentOf(userID); ok && !opp.Bot {
		m.out.SendTo(opp.ID, r.msg(MsgOpponentReconnected), PresenceNotice{
			RoomID:  r.id,
			MatchID: r.matchID,
			UserID:  userID,
		})
	}
	log.Info().Str("room_id", r.id).Str("user_id", userID).Msg("player reconnected")
}

// Reconnect restores a returning user to their open room, if any, and
// returns their view of it.
func (m *Manager) Reconnect(userID string) (viewmodel.PlayerView, bool) {
	rid, ok := m.RoomOf(userID)
	if !ok {
		return viewmodel.PlayerView{}, false
	}
	v, err := m.GetState(userID, rid)
	if err != nil {
		return viewmodel.PlayerView{}, false
	}
	return v, true
}
