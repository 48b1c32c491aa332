package session

import (
	"sync"
	"time"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/ids"
)

// Room is one two-player session. All fields are guarded by mu.
type Room struct {
	mu sync.Mutex

	id           string
	kind         game.Kind
	rules        game.Rules
	bet          int64
	host         string
	hostName     string
	admin        bool
	tournamentID string
	matchID      string

	status    Status
	players   []game.Player
	state     game.State
	away      map[string]bool
	settled   bool
	moves     int
	capHits   int
	createdAt time.Time
}

func newRoom(kind game.Kind, rules game.Rules, bet int64) *Room {
	return &Room{
		id:        ids.NewID(),
		kind:      kind,
		rules:     rules,
		bet:       bet,
		status:    StatusWaiting,
		away:      map[string]bool{},
		createdAt: time.Now(),
	}
}

func (r *Room) seat(userID string) int {
	for i, p := range r.players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

func (r *Room) opponentOf(userID string) (game.Player, bool) {
	if len(r.players) < 2 {
		return game.Player{}, false
	}
	if r.players[0].ID == userID {
		return r.players[1], true
	}
	return r.players[0], true
}

func (r *Room) pair() [2]game.Player {
	var p [2]game.Player
	copy(p[:], r.players)
	return p
}

func (r *Room) playerIDs() [2]string {
	var out [2]string
	for i, p := range r.players {
		if i < 2 {
			out[i] = p.ID
		}
	}
	return out
}

func (r *Room) msg(base string) string {
	if r.matchID != "" {
		return TournamentType(base)
	}
	return base
}

func (r *Room) listed() bool {
	return r.status == StatusWaiting && r.matchID == "" && len(r.players) < 2 && !r.settled
}

func (r *Room) summary() RoomSummary {
	host := r.hostName
	if host == "" && r.admin {
		host = "admin"
	}
	return RoomSummary{
		ID:       r.id,
		Bet:      r.bet,
		Host:     host,
		HostID:   r.host,
		GameType: r.kind,
		Players:  len(r.players),
		Status:   r.status,
	}
}

func (r *Room) viewRoom() viewmodel.Room {
	return viewmodel.Room{
		ID:      r.id,
		MatchID: r.matchID,
		Kind:    r.kind,
		Bet:     r.bet,
		Players: append([]game.Player(nil), r.players...),
		State:   r.state,
	}
}

func (r *Room) view(seat int) viewmodel.PlayerView {
	return viewmodel.BuildPlayerView(r.viewRoom(), seat)
}

func botJoinKey(roomID string) string { return "botjoin:" + roomID }
func botMoveKey(roomID string) string { return "botmove:" + roomID }
func graceKey(roomID, userID string) string {
	return "grace:" + roomID + ":" + userID
}
