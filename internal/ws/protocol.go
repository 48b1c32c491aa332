package ws

import (
	"encoding/json"

	"board-arena/internal/game"
)

// Client to server message types.
const (
	TypeCreateRoom         = "createRoom"
	TypeQuickJoin          = "quickJoin"
	TypeJoinRoom           = "joinRoom"
	TypeLeaveGame          = "leaveGame"
	TypePlayerMove         = "playerMove"
	TypeRollDice           = "rollDice"
	TypeGetGameState       = "getGameState"
	TypeListRooms          = "listRooms"
	TypeJoinTournament     = "joinTournament"
	TypeLeaveTournament    = "leaveTournament"
	TypeJoinTournamentGame = "joinTournamentGame"
	TypeTournamentMove     = "tournamentMove"
)

const TypeTournamentGameError = "tournamentGameError"

type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type CreateRoomMessage struct {
	GameType game.Kind `json:"gameType"`
	Bet      int64     `json:"bet"`
}

type RoomMessage struct {
	RoomID string `json:"roomId"`
}

type MoveMessage struct {
	RoomID string    `json:"roomId"`
	Move   game.Move `json:"move"`
}

type TournamentMessage struct {
	TournamentID string `json:"tournamentId"`
}

type MatchMessage struct {
	MatchID string `json:"matchId"`
}

type MatchMoveMessage struct {
	MatchID string    `json:"matchId"`
	Move    game.Move `json:"move"`
}

type ErrorMessage struct {
	Message string `json:"message"`
	Request string `json:"request,omitempty"`
}
