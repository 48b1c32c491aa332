package session

import (
	"context"
	"testing"
	"time"

	"board-arena/internal/game"

	"github.com/stretchr/testify/require"
)

func move(t *testing.T, m *Manager, user, room string, cell int) {
	t.Helper()
	require.NoError(t, m.HandleMove(context.Background(), user, room, game.Move{Cell: cell}))
}

func TestCreateAndJoinStartsGame(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	sum, err := f.m.CreateRoom(ctx, alice, game.KindTicTacToe, 10)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, sum.Status)
	require.Equal(t, 1, f.out.count("alice", MsgRoomCreated))
	require.Len(t, f.m.ListRooms(), 1)

	_, err = f.m.CreateRoom(ctx, alice, game.KindChess, 0)
	require.ErrorIs(t, err, ErrAlreadyInRoom)

	joined, err := f.m.JoinRoom(ctx, bob, sum.ID)
	require.NoError(t, err)
	require.Equal(t, StatusActive, joined.Status)
	require.Empty(t, f.m.ListRooms())
	require.Equal(t, 1, f.out.count("alice", MsgGameStart))
	require.Equal(t, 1, f.out.count("bob", MsgGameStart))

	_, err = f.m.JoinRoom(ctx, game.Player{ID: "carol"}, sum.ID)
	require.ErrorIs(t, err, ErrRoomNotJoinable)
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.m.CreateRoom(ctx, alice, game.Kind("go"), 0)
	require.ErrorIs(t, err, game.ErrUnknownGame)
	_, err = f.m.CreateRoom(ctx, alice, game.KindTicTacToe, -1)
	require.ErrorIs(t, err, ErrInvalidBet)
	_, err = f.m.CreateRoom(ctx, alice, game.KindTicTacToe, 500)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestQuickJoinMatchesKindAndBet(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	first, err := f.m.QuickJoin(ctx, alice, game.KindCheckers, 5)
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, first.Status)

	second, err := f.m.QuickJoin(ctx, bob, game.KindCheckers, 5)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, StatusActive, second.Status)
}

func TestFullGameSettlesOnce(t *testing.T) {
	f := newFixture(t, testConfig())
	room := f.seatPair(t, 10)

	err := f.m.HandleMove(context.Background(), "bob", room, game.Move{Cell: 0})
	require.ErrorIs(t, err, game.ErrNotYourTurn)

	for _, step := range []struct {
		who  string
		cell int
	}{{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 2}} {
		move(t, f.m, step.who, room, step.cell)
	}

	res := f.wallet.results()
	require.Len(t, res, 1)
	require.Equal(t, "alice", res[0].WinnerID)
	require.Equal(t, int64(10), res[0].Stake)
	require.Equal(t, int64(110), f.wallet.balances["alice"])
	require.Equal(t, int64(90), f.wallet.balances["bob"])

	ends := f.out.of("bob", MsgGameEnd)
	require.Len(t, ends, 1)
	require.Equal(t, ReasonNormal, ends[0].(GameEnd).Reason)
	require.Equal(t, 1, f.out.count("alice", MsgBalanceUpdate))

	require.ErrorIs(t, f.m.Leave(context.Background(), "bob", room), ErrRoomNotFound)
	require.ErrorIs(t, f.m.HandleMove(context.Background(), "bob", room, game.Move{Cell: 5}), ErrRoomNotFound)
	require.Len(t, f.wallet.results(), 1)

	_, open := f.m.RoomOf("alice")
	require.False(t, open)
}

func TestSpectatorsFollowGame(t *testing.T) {
	f := newFixture(t, testConfig())
	room := f.seatPair(t, 0)

	v, err := f.m.PublicState(room)
	require.NoError(t, err)
	require.Equal(t, room, v.RoomID)
	require.Len(t, v.Seats, 2)

	for _, step := range []struct {
		who  string
		cell int
	}{{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}, {"alice", 2}} {
		move(t, f.m, step.who, room, step.cell)
	}

	f.watch.mu.Lock()
	events := append([]string(nil), f.watch.events[room]...)
	ended := f.watch.ended[room]
	f.watch.mu.Unlock()
	require.Equal(t, []string{
		MsgGameStart, MsgGameUpdate, MsgGameUpdate, MsgGameUpdate, MsgGameUpdate, MsgGameUpdate, MsgGameEnd,
	}, events)
	require.True(t, ended)

	_, err = f.m.PublicState(room)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLeaveActiveGameForfeits(t *testing.T) {
	f := newFixture(t, testConfig())
	room := f.seatPair(t, 20)

	require.NoError(t, f.m.Leave(context.Background(), "alice", room))
	res := f.wallet.results()
	require.Len(t, res, 1)
	require.Equal(t, "bob", res[0].WinnerID)
	require.Equal(t, ReasonLeft, f.out.of("bob", MsgGameEnd)[0].(GameEnd).Reason)
}

func TestLeaveWaitingRoomDiscards(t *testing.T) {
	f := newFixture(t, testConfig())
	sum, err := f.m.CreateRoom(context.Background(), alice, game.KindChess, 0)
	require.NoError(t, err)

	require.NoError(t, f.m.Leave(context.Background(), "alice", sum.ID))
	require.Empty(t, f.m.ListRooms())
	require.Empty(t, f.wallet.results())
}

func TestBotJoinsAfterDelayAndPlays(t *testing.T) {
	cfg := testConfig()
	cfg.BotJoinDelay = 20 * time.Millisecond
	f := newFixture(t, cfg)

	sum, err := f.m.CreateRoom(context.Background(), alice, game.KindTicTacToe, 0)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.out.count("alice", MsgGameStart) == 1
	}, time.Second, 5*time.Millisecond)

	v, err := f.m.GetState("alice", sum.ID)
	require.NoError(t, err)
	require.Len(t, v.Seats, 2)
	require.True(t, v.Seats[1].IsBot)
	require.True(t, v.YourTurn)

	move(t, f.m, "alice", sum.ID, 0)
	require.Eventually(t, func() bool {
		v, err := f.m.GetState("alice", sum.ID)
		if err != nil {
			return false
		}
		return v.State.(*game.TicTacToeState).Board[4] == game.MarkO
	}, time.Second, 5*time.Millisecond)
}

func TestBotsPlayEachOtherToTheEnd(t *testing.T) {
	f := newFixture(t, testConfig())
	b1 := newBot()
	b2 := newBot()

	sum, err := f.m.CreateAdminRoom(context.Background(), game.KindTicTacToe, 0, []game.Player{b1, b2})
	require.NoError(t, err)
	require.Equal(t, StatusActive, sum.Status)

	require.Eventually(t, func() bool {
		return len(f.wallet.results()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	res := f.wallet.results()[0]
	require.Equal(t, [2]string{b1.ID, b2.ID}, res.Players)
}

func TestDisconnectGraceForfeits(t *testing.T) {
	cfg := testConfig()
	cfg.DisconnectGrace = 30 * time.Millisecond
	f := newFixture(t, cfg)
	room := f.seatPair(t, 10)

	f.m.Disconnect("bob")
	notes := f.out.of("alice", MsgOpponentDisconnected)
	require.Len(t, notes, 1)
	require.Equal(t, "bob", notes[0].(PresenceNotice).UserID)

	require.Eventually(t, func() bool {
		return f.out.count("alice", MsgGameEnd) == 1
	}, time.Second, 5*time.Millisecond)
	end := f.out.of("alice", MsgGameEnd)[0].(GameEnd)
	require.Equal(t, "alice", end.Winner)
	require.Equal(t, ReasonForfeit, end.Reason)
	require.Equal(t, room, end.RoomID)
	require.Len(t, f.wallet.results(), 1)
}

func TestReconnectWithinGraceKeepsGame(t *testing.T) {
	cfg := testConfig()
	cfg.DisconnectGrace = 40 * time.Millisecond
	f := newFixture(t, cfg)
	room := f.seatPair(t, 0)

	f.m.Disconnect("bob")
	v, ok := f.m.Reconnect("bob")
	require.True(t, ok)
	require.Equal(t, room, v.RoomID)
	require.Equal(t, 1, f.out.count("alice", MsgOpponentReconnected))

	time.Sleep(80 * time.Millisecond)
	require.Zero(t, f.out.count("alice", MsgGameEnd))
	move(t, f.m, "alice", room, 4)
}

func TestDisconnectDiscardsWaitingRoom(t *testing.T) {
	f := newFixture(t, testConfig())
	_, err := f.m.CreateRoom(context.Background(), alice, game.KindBackgammon, 0)
	require.NoError(t, err)

	f.m.Disconnect("alice")
	require.Empty(t, f.m.ListRooms())
	_, open := f.m.RoomOf("alice")
	require.False(t, open)
}
