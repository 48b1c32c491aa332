package session

import (
	"context"
	"errors"

	"board-arena/internal/game"
	"board-arena/internal/ledger"

	"github.com/rs/zerolog/log"
)

// maxBotCapHits is how many times a room's bots may exhaust BotMoveCap
// before the bot holding the turn forfeits.
const maxBotCapHits = 3

var errBotMoveCap = errors.New("bot_move_cap")

// armBotJoin seats a bot if nobody joins r within BotJoinDelay. Requires r.mu.
func (m *Manager) armBotJoin(r *Room) {
	if r.matchID != "" || len(r.players) != 1 || m.cfg.BotJoinDelay <= 0 {
		return
	}
	m.timers.Schedule(botJoinKey(r.id), m.cfg.BotJoinDelay, func() { m.addBot(r) })
}

func (m *Manager) addBot(r *Room) {
	r.mu.Lock()
	if r.settled || r.status != StatusWaiting || len(r.players) != 1 {
		r.mu.Unlock()
		return
	}
	bot := newBot()
	r.players = append(r.players, bot)
	log.Info().Str("room_id", r.id).Str("bot_id", bot.ID).Msg("bot joined waiting room")
	m.start(r)
	m.syncLobby(r)
	r.mu.Unlock()
	m.broadcastLobby()
}

// armBotMove schedules the bot's turn when a bot holds it. Requires r.mu.
func (m *Manager) armBotMove(r *Room) {
	if r.status != StatusActive || r.state == nil {
		return
	}
	turn := r.state.Common().Turn
	seat := r.seat(turn)
	if seat < 0 || !r.players[seat].Bot {
		return
	}
	m.timers.Schedule(botMoveKey(r.id), m.cfg.BotMoveDelay, func() { m.runBot(r) })
}

// runBot plays while a bot holds the turn. A bot that cannot produce a legal
// move forfeits; one that hits the per-turn cap yields and is rescheduled,
// up to maxBotCapHits times per room.
func (m *Manager) runBot(r *Room) {
	ctx := context.Background()
	r.mu.Lock()
	defer r.mu.Unlock()
	limit := m.cfg.BotMoveCap
	if limit <= 0 {
		limit = 64
	}
	for i := 0; i < limit; i++ {
		if r.settled || r.status != StatusActive {
			return
		}
		turn := r.state.Common().Turn
		seat := r.seat(turn)
		if seat < 0 || !r.players[seat].Bot {
			return
		}
		mv, ok := r.rules.BotMove(r.state, seat)
		if !ok {
			m.botStuckLocked(ctx, r, seat, nil)
			return
		}
		if err := m.applyLocked(ctx, r, turn, mv); err != nil {
			m.botStuckLocked(ctx, r, seat, err)
			return
		}
		metricBotMoves.Add(1)
	}
	r.capHits++
	log.Warn().Str("room_id", r.id).Int("cap", limit).Int("hits", r.capHits).Msg("bot move cap reached")
	if r.capHits >= maxBotCapHits {
		if seat := r.seat(r.state.Common().Turn); seat >= 0 && r.players[seat].Bot {
			m.botStuckLocked(ctx, r, seat, errBotMoveCap)
			return
		}
	}
	m.armBotMove(r)
}

func (m *Manager) botStuckLocked(ctx context.Context, r *Room, seat int, err error) {
	opp := r.players[1-seat]
	ev := log.Warn().Str("room_id", r.id).Str("bot_id", r.players[seat].ID)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("bot has no legal move, forfeiting")
	m.finishLocked(ctx, r, game.Outcome{Over: true, WinnerID: opp.ID}, ReasonNoMoves)
}

func ledgerResult(r *Room, out game.Outcome, stake int64) ledger.GameResult {
	return ledger.GameResult{
		RoomID:       r.id,
		GameType:     string(r.kind),
		Stake:        stake,
		Players:      r.playerIDs(),
		WinnerID:     out.WinnerID,
		Draw:         out.Draw,
		TournamentID: r.tournamentID,
	}
}
