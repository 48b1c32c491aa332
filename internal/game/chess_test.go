package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChessFoolsMate(t *testing.T) {
	r := Chess{}
	st := r.InitialState(duo)
	moves := []struct{ who, uci string }{
		{"alice", "f2f3"}, {"bob", "e7e5"}, {"alice", "g2g4"},
	}
	for _, m := range moves {
		res := play(t, r, st, m.who, Move{UCI: m.uci})
		require.True(t, res.TurnShouldSwitch)
		st = res.State
	}
	res := play(t, r, st, "bob", Move{UCI: "d8h4"})
	require.False(t, res.TurnShouldSwitch)

	cs := res.State.(*ChessState)
	require.True(t, cs.Over)
	require.Equal(t, "bob", cs.Winner)
	require.Equal(t, "checkmate", cs.Method)
	require.Equal(t, Outcome{Over: true, WinnerID: "bob"}, r.CheckEnd(cs, duo))
	require.Len(t, cs.Moves, 4)
}

func TestChessRejections(t *testing.T) {
	r := Chess{}
	st := r.InitialState(duo)

	_, err := r.ProcessMove(st, Move{UCI: "e2e5"}, "alice", duo)
	require.ErrorIs(t, err, ErrIllegalMove)

	_, err = r.ProcessMove(st, Move{UCI: "e7e5"}, "bob", duo)
	require.ErrorIs(t, err, ErrNotYourTurn)

	_, err = r.ProcessMove(st, Move{}, "alice", duo)
	require.ErrorIs(t, err, ErrInvalidMove)
}

func TestChessMoveKeepsInputIntact(t *testing.T) {
	r := Chess{}
	st := r.InitialState(duo).(*ChessState)
	res := play(t, r, st, "alice", Move{UCI: "e2e4"})
	require.Empty(t, st.Moves)
	next := res.State.(*ChessState)
	require.NotEqual(t, st.FEN, next.FEN)
	require.True(t, strings.Contains(next.FEN, " b "))
}

func TestChessBotPlaysLegalMoves(t *testing.T) {
	r := Chess{}
	st := r.InitialState(duo)
	for ply := 0; ply < 40 && !st.Common().Over; ply++ {
		turn := st.Common().Turn
		idx := indexOf(duo, turn)
		m, ok := r.BotMove(st, idx)
		require.True(t, ok)
		_, ok = r.BotMove(st, 1-idx)
		require.False(t, ok, "bot must not move out of turn")
		st = play(t, r, st, turn, m).State
	}
}
