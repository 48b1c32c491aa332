package game

const (
	MarkX = "X"
	MarkO = "O"
)

var tttLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

type TicTacToeState struct {
	Status
	Board [9]string `json:"board"`
	X     string    `json:"x"`
	O     string    `json:"o"`
}

func (s *TicTacToeState) Kind() Kind      { return KindTicTacToe }
func (s *TicTacToeState) Common() *Status { return &s.Status }
func (s *TicTacToeState) sealed()         {}

func (s *TicTacToeState) Clone() State {
	c := *s
	return &c
}

func (s *TicTacToeState) markOf(id string) string {
	if id == s.X {
		return MarkX
	}
	return MarkO
}

func (s *TicTacToeState) idOf(mark string) string {
	if mark == MarkX {
		return s.X
	}
	return s.O
}

// TicTacToe implements Rules for a 3x3 board. The first player is X and
// moves first.
type TicTacToe struct{}

func (TicTacToe) Kind() Kind { return KindTicTacToe }

func (TicTacToe) InitialState(players [2]Player) State {
	return &TicTacToeState{
		Status: Status{Turn: players[0].ID},
		X:      players[0].ID,
		O:      players[1].ID,
	}
}

func (t TicTacToe) ProcessMove(state State, move Move, actorID string, players [2]Player) (Result, error) {
	s, ok := state.(*TicTacToeState)
	if !ok {
		return Result{}, ErrStateMismatch
	}
	if err := precheck(&s.Status, actorID); err != nil {
		return Result{}, err
	}
	if move.Cell < 0 || move.Cell > 8 {
		return Result{}, ErrInvalidMove
	}
	if s.Board[move.Cell] != "" {
		return Result{}, ErrCellOccupied
	}

	next := s.Clone().(*TicTacToeState)
	next.Board[move.Cell] = next.markOf(actorID)

	out := t.CheckEnd(next, players)
	if out.Over {
		next.Over, next.Winner, next.Draw = true, out.WinnerID, out.Draw
		return Result{State: next}, nil
	}
	next.Turn = opponentOf(players, actorID)
	return Result{State: next, TurnShouldSwitch: true}, nil
}

func (TicTacToe) CheckEnd(state State, _ [2]Player) Outcome {
	s, ok := state.(*TicTacToeState)
	if !ok {
		return Outcome{}
	}
	if mark := tttWinner(&s.Board); mark != "" {
		return Outcome{Over: true, WinnerID: s.idOf(mark)}
	}
	for _, c := range s.Board {
		if c == "" {
			return Outcome{}
		}
	}
	return Outcome{Over: true, Draw: true}
}

// BotMove wins if it can, blocks if it must, then prefers the centre, the
// corners and finally the edges.
func (TicTacToe) BotMove(state State, playerIdx int) (Move, bool) {
	s, ok := state.(*TicTacToeState)
	if !ok || s.Over {
		return Move{}, false
	}
	me, them := MarkX, MarkO
	if playerIdx == 1 {
		me, them = MarkO, MarkX
	}
	for _, mark := range []string{me, them} {
		for cell := range s.Board {
			if s.Board[cell] != "" {
				continue
			}
			b := s.Board
			b[cell] = mark
			if tttWinner(&b) == mark {
				return Move{Cell: cell}, true
			}
		}
	}
	for _, cell := range []int{4, 0, 2, 6, 8, 1, 3, 5, 7} {
		if s.Board[cell] == "" {
			return Move{Cell: cell}, true
		}
	}
	return Move{}, false
}

func tttWinner(b *[9]string) string {
	for _, l := range tttLines {
		if m := b[l[0]]; m != "" && m == b[l[1]] && m == b[l[2]] {
			return m
		}
	}
	return ""
}
