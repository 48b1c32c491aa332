package session

import (
	"context"
	"testing"
	"time"

	"board-arena/internal/config"
	"board-arena/internal/game"
	"board-arena/internal/ledger"
	"board-arena/internal/store"

	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	m   *Manager
	acc *memAccounts
	led *ledger.Ledger
}

func newLedgerFixture(t *testing.T, cfg config.GameplayConfig, balances map[string]int64) ledgerFixture {
	t.Helper()
	acc := &memAccounts{balances: balances}
	led := ledger.New(acc)
	return ledgerFixture{m: newManager(t, cfg, led, newRecorder(), nil), acc: acc, led: led}
}

func (f ledgerFixture) seatPair(t *testing.T, bet int64) string {
	t.Helper()
	ctx := context.Background()
	sum, err := f.m.CreateRoom(ctx, alice, game.KindTicTacToe, bet)
	require.NoError(t, err)
	_, err = f.m.JoinRoom(ctx, bob, sum.ID)
	require.NoError(t, err)
	return sum.ID
}

func TestStakedGameWritesHistoryForBothHumans(t *testing.T) {
	f := newLedgerFixture(t, testConfig(), map[string]int64{"alice": 100, "bob": 100})
	room := f.seatPair(t, 50)
	require.Equal(t, int64(50), f.acc.balance("alice"))
	require.Equal(t, int64(50), f.acc.balance("bob"))

	for _, step := range []struct {
		who  string
		cell int
	}{{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 2}} {
		move(t, f.m, step.who, room, step.cell)
	}

	require.Equal(t, int64(150), f.acc.balance("alice"))
	require.Equal(t, int64(50), f.acc.balance("bob"))
	recs := f.acc.history()
	require.Len(t, recs, 2)
	byUser := map[string]store.GameRecord{}
	for _, r := range recs {
		byUser[r.UserID] = r
	}
	require.Equal(t, ledger.ResultWin, byUser["alice"].Result)
	require.Equal(t, int64(50), byUser["alice"].Delta)
	require.Equal(t, ledger.ResultLoss, byUser["bob"].Result)
	require.Equal(t, int64(-50), byUser["bob"].Delta)
	require.Equal(t, "alice", byUser["bob"].OpponentID)
}

func TestHeldStakeCannotBeSpentElsewhere(t *testing.T) {
	f := newLedgerFixture(t, testConfig(), map[string]int64{"alice": 60, "bob": 100})
	ctx := context.Background()
	room := f.seatPair(t, 50)

	_, err := f.led.EscrowEntryFee(ctx, "alice", "t1", 20)
	require.ErrorIs(t, err, store.ErrInsufficientBalance)

	for _, step := range []struct {
		who  string
		cell int
	}{{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 8}, {"bob", 5}} {
		move(t, f.m, step.who, room, step.cell)
	}

	require.Equal(t, int64(10), f.acc.balance("alice"))
	require.Equal(t, int64(150), f.acc.balance("bob"))
}

func TestBotGameMovesNoMoney(t *testing.T) {
	cfg := testConfig()
	cfg.BotJoinDelay = 10 * time.Millisecond
	f := newLedgerFixture(t, cfg, map[string]int64{"alice": 100})
	ctx := context.Background()

	sum, err := f.m.CreateRoom(ctx, alice, game.KindTicTacToe, 50)
	require.NoError(t, err)
	require.Equal(t, int64(50), f.acc.balance("alice"))

	require.Eventually(t, func() bool {
		v, err := f.m.GetState("alice", sum.ID)
		return err == nil && len(v.Seats) == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.m.Leave(ctx, "alice", sum.ID))
	require.Equal(t, int64(100), f.acc.balance("alice"))
	require.Empty(t, f.acc.history())
}

func TestStakeReturnedWhenWaitingRoomIsDropped(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	sum, err := f.m.CreateRoom(ctx, alice, game.KindChess, 30)
	require.NoError(t, err)
	require.Equal(t, int64(70), f.wallet.balance("alice"))

	require.NoError(t, f.m.Leave(ctx, "alice", sum.ID))
	require.Equal(t, int64(100), f.wallet.balance("alice"))
	require.Empty(t, f.wallet.results())
}

func TestJoinWithoutFundsLeavesNoClaim(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	carol := game.Player{ID: "carol", Name: "Carol"}

	sum, err := f.m.CreateRoom(ctx, alice, game.KindTicTacToe, 10)
	require.NoError(t, err)
	_, err = f.m.JoinRoom(ctx, carol, sum.ID)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	_, open := f.m.RoomOf("carol")
	require.False(t, open)

	_, err = f.m.JoinRoom(ctx, bob, sum.ID)
	require.NoError(t, err)
	require.Equal(t, int64(90), f.wallet.balance("bob"))
}

func TestAdminRoomReleasesStakesWhenOneSeatCannotPay(t *testing.T) {
	f := newFixture(t, testConfig())
	carol := game.Player{ID: "carol", Name: "Carol"}

	_, err := f.m.CreateAdminRoom(context.Background(), game.KindCheckers, 10, []game.Player{alice, carol})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, int64(100), f.wallet.balance("alice"))
	_, open := f.m.RoomOf("alice")
	require.False(t, open)
	require.Empty(t, f.m.ListRooms())
}
