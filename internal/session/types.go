package session

import (
	"context"
	"errors"
	"expvar"
	"strings"

	"board-arena/internal/game"
	"board-arena/internal/game/viewmodel"
	"board-arena/internal/ledger"
)

var (
	ErrRoomNotFound        = errors.New("room_not_found")
	ErrRoomFull            = errors.New("room_full")
	ErrRoomNotJoinable     = errors.New("room_not_joinable")
	ErrAlreadyInRoom       = errors.New("already_in_room")
	ErrNotInRoom           = errors.New("not_in_room")
	ErrGameNotActive       = errors.New("game_not_active")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidBet          = errors.New("invalid_bet")
	ErrMatchNotFound       = errors.New("match_not_found")
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)

const (
	ReasonNormal   = "normal"
	ReasonLeft     = "left"
	ReasonForfeit  = "disconnect"
	ReasonNoMoves  = "bot_stuck"
	ReasonShutdown = "shutdown"
)

// Server to client message types.
const (
	MsgGameStart            = "gameStart"
	MsgGameUpdate           = "gameUpdate"
	MsgGameEnd              = "gameEnd"
	MsgError                = "error"
	MsgRoomsList            = "roomsList"
	MsgRoomCreated          = "roomCreated"
	MsgOpponentDisconnected = "opponentDisconnected"
	MsgOpponentReconnected  = "opponentReconnected"
	MsgBalanceUpdate        = "balanceUpdate"
)

// TournamentType maps a room message type to its tournament match variant,
// e.g. gameStart to tournamentGameStart.
func TournamentType(base string) string {
	if base == "" {
		return "tournament"
	}
	return "tournament" + strings.ToUpper(base[:1]) + base[1:]
}

var (
	metricRoomsCreated  = expvar.NewInt("session_rooms_created_total")
	metricGamesStarted  = expvar.NewInt("session_games_started_total")
	metricGamesFinished = expvar.NewInt("session_games_finished_total")
	metricMoves         = expvar.NewInt("session_moves_total")
	metricMovesRejected = expvar.NewInt("session_moves_rejected_total")
	metricBotMoves      = expvar.NewInt("session_bot_moves_total")
	metricForfeits      = expvar.NewInt("session_forfeits_total")
	metricRoomsOpen     = expvar.NewInt("session_rooms_open")
)

// Wallet is the money side of a room. Stakes are held while a human is
// seated and paid out by SettleGame.
type Wallet interface {
	HoldStake(ctx context.Context, userID, roomID string, amount int64) (int64, error)
	ReleaseStake(ctx context.Context, userID, roomID string, amount int64) (int64, error)
	SettleGame(ctx context.Context, g ledger.GameResult) []ledger.BalanceChange
}

// Sender delivers messages to attached users. Implemented by the registry.
type Sender interface {
	SendTo(userID, msgType string, data any) bool
	Broadcast(msgType string, data any) int
}

// Spectators receives the public view of every room as it changes.
type Spectators interface {
	Publish(roomID, event string, view viewmodel.PublicView)
	End(roomID string)
}

type noSpectators struct{}

func (noSpectators) Publish(string, string, viewmodel.PublicView) {}
func (noSpectators) End(string)                                   {}

type MatchResult struct {
	TournamentID string
	MatchID      string
	RoomID       string
	Players      [2]string
	WinnerID     string
	Draw         bool
}

// MatchObserver is told when a tournament match room finishes. It is called
// on its own goroutine with no session locks held.
type MatchObserver interface {
	MatchFinished(ctx context.Context, res MatchResult)
}

type MatchSpec struct {
	TournamentID string
	MatchID      string
	Kind         game.Kind
	Players      [2]game.Player
}

type RoomSummary struct {
	ID       string    `json:"id"`
	Bet      int64     `json:"bet"`
	Host     string    `json:"host"`
	HostID   string    `json:"hostId,omitempty"`
	GameType game.Kind `json:"gameType"`
	Players  int       `json:"players"`
	Status   Status    `json:"status"`
}

type GameEnd struct {
	RoomID  string     `json:"roomId"`
	MatchID string     `json:"matchId,omitempty"`
	Winner  string     `json:"winner"`
	IsDraw  bool       `json:"isDraw"`
	Reason  string     `json:"reason"`
	State   game.State `json:"state,omitempty"`
}

type BalanceUpdate struct {
	RoomID  string `json:"roomId"`
	Balance int64  `json:"balance"`
	Delta   int64  `json:"delta"`
}

type PresenceNotice struct {
	RoomID       string `json:"roomId"`
	MatchID      string `json:"matchId,omitempty"`
	UserID       string `json:"userId"`
	GraceSeconds int    `json:"graceSeconds,omitempty"`
}
