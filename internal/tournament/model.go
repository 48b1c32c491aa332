package tournament

import (
	"errors"
	"expvar"
	"fmt"
	"time"

	"board-arena/internal/game"
)

var (
	ErrNotFound            = errors.New("tournament_not_found")
	ErrNotRegistering      = errors.New("tournament_not_registering")
	ErrTournamentFull      = errors.New("tournament_full")
	ErrAlreadyRegistered   = errors.New("already_registered")
	ErrNotRegistered       = errors.New("not_registered")
	ErrMatchNotFound       = errors.New("match_not_found")
	ErrInvalidMaxPlayers   = errors.New("invalid_max_players")
	ErrInvalidFee          = errors.New("invalid_entry_fee")
	ErrInsufficientBalance = errors.New("insufficient_balance")
)

type Status string

const (
	StatusRegistering Status = "REGISTERING"
	StatusActive      Status = "ACTIVE"
	StatusFinished    Status = "FINISHED"
	StatusCancelled   Status = "CANCELLED"
)

// Server to client message types.
const (
	MsgMatchReady    = "tournamentMatchReady"
	MsgMatchResult   = "tournamentMatchResult"
	MsgUpdated       = "tournamentUpdated"
	MsgCompleted     = "tournamentCompleted"
	MsgStartingSoon  = "tournamentStartingSoon"
	MsgCancelled     = "tournamentCancelled"
	ResultAdvanced   = "ADVANCED"
	ResultEliminated = "ELIMINATED"
	ResultDraw       = "DRAW"
)

var (
	metricCreated   = expvar.NewInt("tournament_created_total")
	metricStarted   = expvar.NewInt("tournament_started_total")
	metricFinished  = expvar.NewInt("tournament_finished_total")
	metricCancelled = expvar.NewInt("tournament_cancelled_total")
	metricBotOnly   = expvar.NewInt("tournament_bot_matches_resolved_total")
	metricReplays   = expvar.NewInt("tournament_draw_replays_total")
)

// Tournament is the persisted document. Everything the orchestrator knows
// about a tournament lives here.
type Tournament struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Slug              string        `json:"slug"`
	GameType          game.Kind     `json:"gameType"`
	Status            Status        `json:"status"`
	EntryFee          int64         `json:"entryFee"`
	CommissionPct     int           `json:"commissionPct"`
	PrizePool         int64         `json:"prizePool"`
	MaxPlayers        int           `json:"maxPlayers"`
	Players           []game.Player `json:"players"`
	StartsAt          time.Time     `json:"startsAt"`
	FirstRegisteredAt *time.Time    `json:"firstRegisteredAt,omitempty"`
	WarningSent       bool          `json:"warningSent,omitempty"`
	Winner            string        `json:"winner,omitempty"`
	Bracket           []Round       `json:"bracket"`
	Payouts           []Payout      `json:"payouts,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
}

type Round struct {
	Name    string  `json:"roundName"`
	Matches []Match `json:"matches"`
}

type Match struct {
	ID      string        `json:"matchId"`
	Players []game.Player `json:"players"`
	Winner  string        `json:"winner,omitempty"`
	RoomID  string        `json:"roomId,omitempty"`
	Replays int           `json:"replays,omitempty"`
}

type Payout struct {
	UserID string `json:"userId"`
	Place  int    `json:"place"`
	Amount int64  `json:"amount"`
}

// dueAt is the earlier of the scheduled start and the end of the
// registration countdown. ok is false when neither applies.
func (t *Tournament) dueAt(countdown time.Duration) (time.Time, bool) {
	var at time.Time
	if t.FirstRegisteredAt != nil {
		at = t.FirstRegisteredAt.Add(countdown)
	}
	if !t.StartsAt.IsZero() && (at.IsZero() || t.StartsAt.Before(at)) {
		at = t.StartsAt
	}
	return at, !at.IsZero()
}

func (t *Tournament) registered(userID string) bool {
	for _, p := range t.Players {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func (t *Tournament) recomputePool() {
	fees := t.EntryFee * int64(len(t.Players))
	t.PrizePool = fees * int64(100-t.CommissionPct) / 100
}

func (t *Tournament) findMatch(matchID string) (*Match, int) {
	for ri := range t.Bracket {
		for mi := range t.Bracket[ri].Matches {
			if t.Bracket[ri].Matches[mi].ID == matchID {
				return &t.Bracket[ri].Matches[mi], ri
			}
		}
	}
	return nil, -1
}

func (m *Match) botOnly() bool {
	if len(m.Players) != 2 {
		return false
	}
	return m.Players[0].Bot && m.Players[1].Bot
}

func (m *Match) has(userID string) bool {
	for _, p := range m.Players {
		if p.ID == userID {
			return true
		}
	}
	return false
}

func roundName(matches int) string {
	switch matches {
	case 1:
		return "Final"
	case 2:
		return "Semifinal"
	case 4:
		return "Quarterfinal"
	default:
		return fmt.Sprintf("Round of %d", matches*2)
	}
}

func validMaxPlayers(n int) bool {
	switch n {
	case 4, 8, 16, 32:
		return true
	}
	return false
}

// Public payloads.

type Updated struct {
	TournamentID string `json:"tournamentId"`
	Status       Status `json:"status"`
	Players      int    `json:"players"`
	MaxPlayers   int    `json:"maxPlayers"`
	PrizePool    int64  `json:"prizePool"`
}

type MatchReady struct {
	TournamentID string      `json:"tournamentId"`
	MatchID      string      `json:"matchId"`
	RoomID       string      `json:"roomId"`
	Round        string      `json:"round"`
	GameType     game.Kind   `json:"gameType"`
	Opponent     game.Player `json:"opponent"`
}

type MatchResult struct {
	TournamentID string `json:"tournamentId"`
	MatchID      string `json:"matchId"`
	Type         string `json:"type"`
	Winner       string `json:"winner,omitempty"`
}

type Completed struct {
	TournamentID string `json:"tournamentId"`
	IsWinner     bool   `json:"isWinner"`
	Winner       string `json:"winner"`
	PrizePool    int64  `json:"prizePool"`
	Prize        int64  `json:"prize,omitempty"`
}

type StartingSoon struct {
	TournamentID string    `json:"tournamentId"`
	Name         string    `json:"name"`
	StartsAt     time.Time `json:"startsAt"`
}
