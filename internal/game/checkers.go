package game

import "math/rand/v2"

// Piece values on a checkers board. Positive pieces belong to the first
// player, who starts on rows 5..7 and moves towards row 0.
const (
	Empty    int8 = 0
	Man      int8 = 1
	King     int8 = 2
	OppMan   int8 = -1
	OppKing  int8 = -2
	boardLen      = 8

	// QuietPlyLimit is the number of consecutive plies without a capture or
	// promotion after which the game is drawn.
	QuietPlyLimit = 80
)

type CheckersState struct {
	Status
	Board      [64]int8 `json:"board"`
	First      string   `json:"first"`
	Second     string   `json:"second"`
	ChainFrom  int      `json:"chainFrom"`
	QuietPlies int      `json:"quietPlies"`
}

func (s *CheckersState) Kind() Kind      { return KindCheckers }
func (s *CheckersState) Common() *Status { return &s.Status }
func (s *CheckersState) sealed()         {}

func (s *CheckersState) Clone() State {
	c := *s
	return &c
}

func (s *CheckersState) sideOf(id string) int8 {
	if id == s.First {
		return 1
	}
	return -1
}

func (s *CheckersState) idOf(side int8) string {
	if side > 0 {
		return s.First
	}
	return s.Second
}

func sq(row, col int) int { return row*boardLen + col }

func onBoard(row, col int) bool {
	return row >= 0 && row < boardLen && col >= 0 && col < boardLen
}

func owns(p, side int8) bool { return p != Empty && (p > 0) == (side > 0) }

func (s *CheckersState) directions(from int) [][2]int {
	p := s.Board[from]
	all := [][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
	switch p {
	case King, OppKing:
		return all
	case Man:
		return all[:2]
	default:
		return all[2:]
	}
}

func (s *CheckersState) jumpsFrom(from int) []Move {
	side := s.Board[from]
	var out []Move
	r, c := from/boardLen, from%boardLen
	for _, d := range s.directions(from) {
		mr, mc := r+d[0], c+d[1]
		tr, tc := r+2*d[0], c+2*d[1]
		if !onBoard(tr, tc) {
			continue
		}
		mid := s.Board[sq(mr, mc)]
		if mid == Empty || owns(mid, side) || s.Board[sq(tr, tc)] != Empty {
			continue
		}
		out = append(out, Move{From: from, To: sq(tr, tc)})
	}
	return out
}

func (s *CheckersState) stepsFrom(from int) []Move {
	var out []Move
	r, c := from/boardLen, from%boardLen
	for _, d := range s.directions(from) {
		tr, tc := r+d[0], c+d[1]
		if onBoard(tr, tc) && s.Board[sq(tr, tc)] == Empty {
			out = append(out, Move{From: from, To: sq(tr, tc)})
		}
	}
	return out
}

// legalMoves returns the jumps and the simple moves available to side.
func (s *CheckersState) legalMoves(side int8) (jumps, steps []Move) {
	if s.ChainFrom >= 0 {
		return s.jumpsFrom(s.ChainFrom), nil
	}
	for i, p := range s.Board {
		if !owns(p, side) {
			continue
		}
		jumps = append(jumps, s.jumpsFrom(i)...)
		steps = append(steps, s.stepsFrom(i)...)
	}
	return jumps, steps
}

func (s *CheckersState) pieces(side int8) int {
	n := 0
	for _, p := range s.Board {
		if owns(p, side) {
			n++
		}
	}
	return n
}

type Checkers struct {
	MandatoryCapture bool
}

func (Checkers) Kind() Kind { return KindCheckers }

func (Checkers) InitialState(players [2]Player) State {
	s := &CheckersState{
		Status:    Status{Turn: players[0].ID},
		First:     players[0].ID,
		Second:    players[1].ID,
		ChainFrom: -1,
	}
	for r := 0; r < boardLen; r++ {
		for c := 0; c < boardLen; c++ {
			if (r+c)%2 == 0 {
				continue
			}
			switch {
			case r <= 2:
				s.Board[sq(r, c)] = OppMan
			case r >= 5:
				s.Board[sq(r, c)] = Man
			}
		}
	}
	return s
}

func (k Checkers) ProcessMove(state State, move Move, actorID string, players [2]Player) (Result, error) {
	s, ok := state.(*CheckersState)
	if !ok {
		return Result{}, ErrStateMismatch
	}
	if err := precheck(&s.Status, actorID); err != nil {
		return Result{}, err
	}
	if move.From < 0 || move.From >= 64 || move.To < 0 || move.To >= 64 {
		return Result{}, ErrInvalidMove
	}
	side := s.sideOf(actorID)
	if !owns(s.Board[move.From], side) {
		return Result{}, ErrNoPiece
	}
	if s.ChainFrom >= 0 && move.From != s.ChainFrom {
		return Result{}, ErrMustContinue
	}

	jumps, steps := s.legalMoves(side)
	isJump := containsMove(jumps, move)
	if !isJump {
		if s.ChainFrom >= 0 {
			return Result{}, ErrMustContinue
		}
		if !containsMove(steps, move) {
			return Result{}, ErrIllegalMove
		}
		if k.MandatoryCapture && len(jumps) > 0 {
			return Result{}, ErrCaptureNeeded
		}
	}

	next := s.Clone().(*CheckersState)
	piece := next.Board[move.From]
	next.Board[move.From] = Empty
	next.Board[move.To] = piece
	reset := false
	if isJump {
		fr, fc := move.From/boardLen, move.From%boardLen
		tr, tc := move.To/boardLen, move.To%boardLen
		next.Board[sq((fr+tr)/2, (fc+tc)/2)] = Empty
		reset = true
	}
	promoted := false
	if tr := move.To / boardLen; piece == Man && tr == 0 || piece == OppMan && tr == boardLen-1 {
		next.Board[move.To] = piece * 2
		promoted = true
		reset = true
	}

	if isJump && !promoted && len(next.jumpsFrom(move.To)) > 0 {
		next.ChainFrom = move.To
		next.QuietPlies = 0
		return Result{State: next}, nil
	}

	next.ChainFrom = -1
	if reset {
		next.QuietPlies = 0
	} else {
		next.QuietPlies++
	}
	next.Turn = opponentOf(players, actorID)

	if out := k.CheckEnd(next, players); out.Over {
		next.Over, next.Winner, next.Draw = true, out.WinnerID, out.Draw
		return Result{State: next}, nil
	}
	return Result{State: next, TurnShouldSwitch: true}, nil
}

// CheckEnd: a side with no pieces, or to move with no legal move, loses.
func (Checkers) CheckEnd(state State, _ [2]Player) Outcome {
	s, ok := state.(*CheckersState)
	if !ok {
		return Outcome{}
	}
	for _, side := range []int8{1, -1} {
		if s.pieces(side) == 0 {
			return Outcome{Over: true, WinnerID: s.idOf(-side)}
		}
	}
	toMove := s.sideOf(s.Turn)
	if jumps, steps := s.legalMoves(toMove); len(jumps)+len(steps) == 0 {
		return Outcome{Over: true, WinnerID: s.idOf(-toMove)}
	}
	if s.QuietPlies >= QuietPlyLimit {
		return Outcome{Over: true, Draw: true}
	}
	return Outcome{}
}

// BotMove always captures when it can, prefers promotions, and otherwise
// picks a random simple move.
func (Checkers) BotMove(state State, playerIdx int) (Move, bool) {
	s, ok := state.(*CheckersState)
	if !ok || s.Over {
		return Move{}, false
	}
	side := int8(1)
	if playerIdx == 1 {
		side = -1
	}
	jumps, steps := s.legalMoves(side)
	if len(jumps) > 0 {
		return jumps[rand.IntN(len(jumps))], true
	}
	if len(steps) == 0 {
		return Move{}, false
	}
	for _, m := range steps {
		if r := m.To / boardLen; s.Board[m.From] == Man && r == 0 || s.Board[m.From] == OppMan && r == boardLen-1 {
			return m, true
		}
	}
	return steps[rand.IntN(len(steps))], true
}

func containsMove(ms []Move, m Move) bool {
	for _, x := range ms {
		if x.From == m.From && x.To == m.To {
			return true
		}
	}
	return false
}
