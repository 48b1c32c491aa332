package ledger

import (
	"context"
	"errors"
	"fmt"

	"board-arena/internal/ids"
	"board-arena/internal/store"

	"github.com/rs/zerolog/log"
)

const (
	EntryStakeHold        = "stake_hold"
	EntryStakeRelease     = "stake_release"
	EntryGamePot          = "game_pot"
	EntryTournamentEntry  = "tournament_entry"
	EntryTournamentRefund = "tournament_refund"
	EntryTournamentPrize  = "tournament_prize"
	EntryTopUp            = "topup"

	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

var ErrBotAccount = errors.New("bot_account")

// Accounts is the part of the store the ledger writes through.
type Accounts interface {
	GetAccountBalance(ctx context.Context, userID string) (int64, error)
	Debit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error)
	InsertGameRecord(ctx context.Context, r store.GameRecord) error
}

type Ledger struct {
	acc Accounts
}

func New(acc Accounts) *Ledger {
	return &Ledger{acc: acc}
}

// Balance is zero for bots; they never hold money.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	if ids.IsBot(userID) {
		return 0, nil
	}
	return l.acc.GetAccountBalance(ctx, userID)
}

type GameResult struct {
	RoomID       string
	GameType     string
	Stake        int64
	Players      [2]string
	WinnerID     string
	Draw         bool
	TournamentID string
}

// BalanceChange reports a human participant's balance after settlement.
type BalanceChange struct {
	UserID  string
	Delta   int64
	Balance int64
}

// HoldStake takes a seated player's stake out of their balance until the
// room settles. The debit and the balance check happen in one transaction.
func (l *Ledger) HoldStake(ctx context.Context, userID, roomID string, amount int64) (int64, error) {
	if ids.IsBot(userID) {
		return 0, ErrBotAccount
	}
	if amount <= 0 {
		return l.acc.GetAccountBalance(ctx, userID)
	}
	bal, err := l.acc.Debit(ctx, userID, amount, EntryStakeHold, "room", roomID)
	if err != nil {
		return 0, fmt.Errorf("hold stake: %w", err)
	}
	return bal, nil
}

// ReleaseStake gives a held stake back, e.g. when a waiting room is dropped.
func (l *Ledger) ReleaseStake(ctx context.Context, userID, roomID string, amount int64) (int64, error) {
	return l.credit(ctx, userID, amount, EntryStakeRelease, "room", roomID)
}

// SettleGame pays out the stakes held by the human players of a finished
// room. The winner of a game between two humans takes both stakes and a draw
// returns each stake. A game against a bot hands the stake back and leaves
// no history. Failed writes are logged and skipped so one bad account cannot
// block the other.
func (l *Ledger) SettleGame(ctx context.Context, g GameResult) []BalanceChange {
	var humans []string
	for _, uid := range g.Players {
		if uid != "" && !ids.IsBot(uid) {
			humans = append(humans, uid)
		}
	}
	if len(humans) < 2 {
		var out []BalanceChange
		for _, uid := range humans {
			bal, err := l.ReleaseStake(ctx, uid, g.RoomID, g.Stake)
			if err != nil {
				log.Error().Err(err).Str("user_id", uid).Str("room_id", g.RoomID).Msg("release stake failed")
				continue
			}
			out = append(out, BalanceChange{UserID: uid, Balance: bal})
		}
		return out
	}

	out := make([]BalanceChange, 0, 2)
	for i, uid := range g.Players {
		result, delta, payout := ResultDraw, int64(0), g.Stake
		switch {
		case g.Draw:
		case uid == g.WinnerID:
			result, delta, payout = ResultWin, g.Stake, 2*g.Stake
		default:
			result, delta, payout = ResultLoss, -g.Stake, 0
		}

		entry := EntryGamePot
		if g.Draw {
			entry = EntryStakeRelease
		}
		bal, err := l.payout(ctx, uid, payout, entry, g.RoomID)
		if err != nil {
			log.Error().Err(err).Str("user_id", uid).Str("room_id", g.RoomID).Int64("payout", payout).Msg("settle game balance failed")
		} else {
			out = append(out, BalanceChange{UserID: uid, Delta: delta, Balance: bal})
		}

		if err := l.acc.InsertGameRecord(ctx, store.GameRecord{
			UserID:       uid,
			RoomID:       g.RoomID,
			GameType:     g.GameType,
			OpponentID:   g.Players[1-i],
			Result:       result,
			Stake:        g.Stake,
			Delta:        delta,
			TournamentID: g.TournamentID,
		}); err != nil {
			log.Error().Err(err).Str("user_id", uid).Str("room_id", g.RoomID).Msg("record game history failed")
		}
	}
	return out
}

func (l *Ledger) payout(ctx context.Context, uid string, amount int64, entryType, roomID string) (int64, error) {
	if amount <= 0 {
		return l.acc.GetAccountBalance(ctx, uid)
	}
	return l.acc.Credit(ctx, uid, amount, entryType, "room", roomID)
}

func (l *Ledger) EscrowEntryFee(ctx context.Context, userID, tournamentID string, fee int64) (int64, error) {
	if ids.IsBot(userID) {
		return 0, ErrBotAccount
	}
	if fee == 0 {
		return l.acc.GetAccountBalance(ctx, userID)
	}
	bal, err := l.acc.Debit(ctx, userID, fee, EntryTournamentEntry, "tournament", tournamentID)
	if err != nil {
		return 0, fmt.Errorf("escrow entry fee: %w", err)
	}
	return bal, nil
}

func (l *Ledger) Refund(ctx context.Context, userID, tournamentID string, amount int64) (int64, error) {
	return l.credit(ctx, userID, amount, EntryTournamentRefund, "tournament", tournamentID)
}

func (l *Ledger) PayPrize(ctx context.Context, userID, tournamentID string, amount int64) (int64, error) {
	return l.credit(ctx, userID, amount, EntryTournamentPrize, "tournament", tournamentID)
}

func (l *Ledger) TopUp(ctx context.Context, userID string, amount int64) (int64, error) {
	return l.credit(ctx, userID, amount, EntryTopUp, "admin", userID)
}

func (l *Ledger) credit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error) {
	if ids.IsBot(userID) {
		return 0, ErrBotAccount
	}
	if amount <= 0 {
		return l.acc.GetAccountBalance(ctx, userID)
	}
	return l.acc.Credit(ctx, userID, amount, entryType, refType, refID)
}
