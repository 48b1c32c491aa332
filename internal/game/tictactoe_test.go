package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var duo = [2]Player{{ID: "alice", Name: "Alice"}, {ID: "bob", Name: "Bob"}}

func play(t *testing.T, r Rules, st State, actor string, m Move) Result {
	t.Helper()
	res, err := r.ProcessMove(st, m, actor, duo)
	require.NoError(t, err)
	return res
}

func TestTicTacToeRowWin(t *testing.T) {
	r := TicTacToe{}
	st := r.InitialState(duo)
	require.Equal(t, "alice", st.Common().Turn)

	for _, step := range []struct {
		who  string
		cell int
	}{{"alice", 0}, {"bob", 3}, {"alice", 1}, {"bob", 4}} {
		res := play(t, r, st, step.who, Move{Cell: step.cell})
		require.True(t, res.TurnShouldSwitch)
		st = res.State
	}
	res := play(t, r, st, "alice", Move{Cell: 2})
	require.False(t, res.TurnShouldSwitch)

	out := r.CheckEnd(res.State, duo)
	require.True(t, out.Over)
	require.Equal(t, "alice", out.WinnerID)
	require.False(t, out.Draw)
	require.Equal(t, "alice", res.State.Common().Winner)
}

func TestTicTacToeDraw(t *testing.T) {
	r := TicTacToe{}
	st := r.InitialState(duo)
	// X O X / X O O / O X X
	order := []int{0, 1, 2, 4, 3, 5, 7, 6, 8}
	who := []string{"alice", "bob"}
	for i, cell := range order {
		st = play(t, r, st, who[i%2], Move{Cell: cell}).State
	}
	out := r.CheckEnd(st, duo)
	require.True(t, out.Over)
	require.True(t, out.Draw)
	require.Empty(t, out.WinnerID)
}

func TestTicTacToeRejections(t *testing.T) {
	r := TicTacToe{}
	st := r.InitialState(duo)

	_, err := r.ProcessMove(st, Move{Cell: 0}, "bob", duo)
	require.ErrorIs(t, err, ErrNotYourTurn)

	_, err = r.ProcessMove(st, Move{Cell: 9}, "alice", duo)
	require.ErrorIs(t, err, ErrInvalidMove)

	st = play(t, r, st, "alice", Move{Cell: 4}).State
	_, err = r.ProcessMove(st, Move{Cell: 4}, "bob", duo)
	require.ErrorIs(t, err, ErrCellOccupied)
}

func TestTicTacToeDoesNotMutateInput(t *testing.T) {
	r := TicTacToe{}
	st := r.InitialState(duo)
	_ = play(t, r, st, "alice", Move{Cell: 4})
	require.Empty(t, st.(*TicTacToeState).Board[4])
	require.Equal(t, "alice", st.Common().Turn)
}

func TestTicTacToeBotWinsThenBlocks(t *testing.T) {
	r := TicTacToe{}
	st := &TicTacToeState{Status: Status{Turn: "bob"}, X: "alice", O: "bob"}
	st.Board = [9]string{MarkX, MarkX, "", MarkO, MarkO, "", "", "", ""}

	m, ok := r.BotMove(st, 1)
	require.True(t, ok)
	require.Equal(t, 5, m.Cell, "bot should complete its own row")

	st.Board = [9]string{MarkX, MarkX, "", MarkO, "", "", "", "", ""}
	m, ok = r.BotMove(st, 1)
	require.True(t, ok)
	require.Equal(t, 2, m.Cell, "bot should block")
}

func TestTicTacToeTerminalExclusive(t *testing.T) {
	r := TicTacToe{}
	for game := 0; game < 50; game++ {
		st := r.InitialState(duo)
		for !st.Common().Over {
			idx := indexOf(duo, st.Common().Turn)
			m, ok := r.BotMove(st, idx)
			require.True(t, ok)
			st = play(t, r, st, st.Common().Turn, m).State
		}
		out := r.CheckEnd(st, duo)
		require.True(t, out.Over)
		require.NotEqual(t, out.Draw, out.WinnerID != "")
	}
}
