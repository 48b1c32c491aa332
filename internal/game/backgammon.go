package game

import "slices"

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

type Phase string

const (
	PhaseRolling Phase = "ROLLING"
	PhaseMoving  Phase = "MOVING"
)

const (
	// Bar and Off are the pseudo point indexes used in Move.From and Move.To.
	Bar = 24
	Off = 25

	PiecesPerSide = 15
	points        = 24
)

// BackgammonState lays the board out as 24 point stacks. White travels from
// index 23 towards 0 and bears off from 0..5; black travels from 0 towards
// 23 and bears off from 18..23.
type BackgammonState struct {
	Status
	Points [points][]Color `json:"points"`
	Bar    map[Color]int   `json:"bar"`
	Home   map[Color]int   `json:"home"`
	Dice   []int           `json:"dice"`
	Moves  []int           `json:"moves"`
	Phase  Phase           `json:"phase"`
	White  string          `json:"white"`
	Black  string          `json:"black"`
}

func (s *BackgammonState) Kind() Kind      { return KindBackgammon }
func (s *BackgammonState) Common() *Status { return &s.Status }
func (s *BackgammonState) sealed()         {}

func (s *BackgammonState) Clone() State {
	c := *s
	for i := range s.Points {
		c.Points[i] = slices.Clone(s.Points[i])
	}
	c.Bar = map[Color]int{White: s.Bar[White], Black: s.Bar[Black]}
	c.Home = map[Color]int{White: s.Home[White], Black: s.Home[Black]}
	c.Dice = slices.Clone(s.Dice)
	c.Moves = slices.Clone(s.Moves)
	return &c
}

func (s *BackgammonState) ColorOf(id string) Color {
	if id == s.White {
		return White
	}
	return Black
}

func (s *BackgammonState) idOf(c Color) string {
	if c == White {
		return s.White
	}
	return s.Black
}

// Count returns the pieces of c across board, bar and home.
func (s *BackgammonState) Count(c Color) int {
	n := s.Bar[c] + s.Home[c]
	for _, st := range s.Points {
		for _, p := range st {
			if p == c {
				n++
			}
		}
	}
	return n
}

func (s *BackgammonState) owner(i int) (Color, int) {
	st := s.Points[i]
	if len(st) == 0 {
		return "", 0
	}
	return st[len(st)-1], len(st)
}

func (s *BackgammonState) open(i int, c Color) bool {
	o, n := s.owner(i)
	return n < 2 || o == c
}

func inHome(c Color, i int) bool {
	if c == White {
		return i >= 0 && i <= 5
	}
	return i >= 18 && i < points
}

func (s *BackgammonState) canBearOff(c Color) bool {
	if s.Bar[c] > 0 {
		return false
	}
	for i, st := range s.Points {
		if len(st) > 0 && st[0] == c && !inHome(c, i) {
			return false
		}
	}
	return true
}

func entryPoint(c Color, die int) int {
	if c == White {
		return points - die
	}
	return die - 1
}

func target(c Color, from, die int) int {
	if c == White {
		return from - die
	}
	return from + die
}

// pipsToOff is how far a piece on i is from being borne off.
func pipsToOff(c Color, i int) int {
	if c == White {
		return i + 1
	}
	return points - i
}

// hasFartherInHome reports whether c has a piece further from bearing off
// than the piece on i.
func (s *BackgammonState) hasFartherInHome(c Color, i int) bool {
	for j, st := range s.Points {
		if len(st) == 0 || st[0] != c {
			continue
		}
		if pipsToOff(c, j) > pipsToOff(c, i) {
			return true
		}
	}
	return false
}

// legalMoves lists every single-die move c can make with the remaining budget.
func (s *BackgammonState) legalMoves(c Color) []Move {
	var out []Move
	seen := map[int]bool{}
	for _, d := range s.Moves {
		if seen[d] {
			continue
		}
		seen[d] = true
		if s.Bar[c] > 0 {
			if e := entryPoint(c, d); s.open(e, c) {
				out = append(out, Move{From: Bar, To: e, Die: d})
			}
			continue
		}
		bearing := s.canBearOff(c)
		for i := range s.Points {
			if o, n := s.owner(i); n == 0 || o != c {
				continue
			}
			t := target(c, i, d)
			if t >= 0 && t < points {
				if s.open(t, c) {
					out = append(out, Move{From: i, To: t, Die: d})
				}
				continue
			}
			if !bearing {
				continue
			}
			dist := pipsToOff(c, i)
			if d == dist || (d > dist && !s.hasFartherInHome(c, i)) {
				out = append(out, Move{From: i, To: Off, Die: d})
			}
		}
	}
	return out
}

// Backgammon implements Rules for the dice game. The first player is white.
type Backgammon struct {
	Dice Roller
}

func (b *Backgammon) Kind() Kind { return KindBackgammon }

func (b *Backgammon) InitialState(players [2]Player) State {
	s := &BackgammonState{
		Status: Status{Turn: players[0].ID},
		Bar:    map[Color]int{White: 0, Black: 0},
		Home:   map[Color]int{White: 0, Black: 0},
		Phase:  PhaseRolling,
		White:  players[0].ID,
		Black:  players[1].ID,
	}
	place := func(c Color, i, n int) {
		for k := 0; k < n; k++ {
			s.Points[i] = append(s.Points[i], c)
		}
	}
	place(White, 23, 2)
	place(White, 12, 5)
	place(White, 7, 3)
	place(White, 5, 5)
	place(Black, 0, 2)
	place(Black, 11, 5)
	place(Black, 16, 3)
	place(Black, 18, 5)
	return s
}

func (b *Backgammon) ProcessMove(state State, move Move, actorID string, players [2]Player) (Result, error) {
	s, ok := state.(*BackgammonState)
	if !ok {
		return Result{}, ErrStateMismatch
	}
	if err := precheck(&s.Status, actorID); err != nil {
		return Result{}, err
	}
	next := s.Clone().(*BackgammonState)
	c := next.ColorOf(actorID)

	if move.Action == ActionRoll {
		if next.Phase != PhaseRolling {
			return Result{}, ErrWrongPhase
		}
		d1, d2 := b.Dice.Roll()
		next.Dice = []int{d1, d2}
		next.Moves = Budget(d1, d2)
		next.Phase = PhaseMoving
		if len(next.legalMoves(c)) == 0 {
			next.endTurn(players, actorID)
			return Result{State: next, TurnShouldSwitch: true}, nil
		}
		return Result{State: next}, nil
	}
	if next.Phase != PhaseMoving {
		return Result{}, ErrWrongPhase
	}

	m, err := next.resolve(c, move)
	if err != nil {
		return Result{}, err
	}
	next.apply(c, m)

	if next.Home[c] == PiecesPerSide {
		next.Over = true
		next.Winner = actorID
		next.Phase = PhaseRolling
		next.Moves = nil
		return Result{State: next}, nil
	}
	if len(next.Moves) == 0 || len(next.legalMoves(c)) == 0 {
		next.endTurn(players, actorID)
		return Result{State: next, TurnShouldSwitch: true}, nil
	}
	return Result{State: next}, nil
}

// resolve matches a requested move against the legal set. A zero Die lets
// the engine pick the smallest die that makes the move legal.
func (s *BackgammonState) resolve(c Color, req Move) (Move, error) {
	legal := s.legalMoves(c)
	var best *Move
	for i := range legal {
		m := legal[i]
		if m.From != req.From || m.To != req.To {
			continue
		}
		if req.Die != 0 && m.Die != req.Die {
			continue
		}
		if best == nil || m.Die < best.Die {
			best = &legal[i]
		}
	}
	if best != nil {
		return *best, nil
	}
	return Move{}, s.explain(c, req)
}

func (s *BackgammonState) explain(c Color, req Move) error {
	if s.Bar[c] > 0 && req.From != Bar {
		return ErrMustEnterBar
	}
	if req.From != Bar {
		if req.From < 0 || req.From >= points {
			return ErrInvalidMove
		}
		if o, n := s.owner(req.From); n == 0 || o != c {
			return ErrNoPiece
		}
	}
	if req.To == Off {
		if !s.canBearOff(c) {
			return ErrCannotBearOff
		}
		return ErrDieUnavailable
	}
	if req.To < 0 || req.To >= points {
		return ErrInvalidMove
	}
	if !s.open(req.To, c) {
		return ErrPointBlocked
	}
	dist := req.To - req.From
	if req.From == Bar {
		if c == White {
			dist = points - req.To
		} else {
			dist = req.To + 1
		}
	} else if c == White {
		dist = -dist
	}
	if dist <= 0 {
		return ErrInvalidMove
	}
	if req.Die != 0 && req.Die != dist || !slices.Contains(s.Moves, dist) {
		return ErrDieUnavailable
	}
	return ErrIllegalMove
}

func (s *BackgammonState) apply(c Color, m Move) {
	if m.From == Bar {
		s.Bar[c]--
	} else {
		st := s.Points[m.From]
		s.Points[m.From] = st[:len(st)-1]
	}
	if m.To == Off {
		s.Home[c]++
	} else {
		if o, n := s.owner(m.To); n == 1 && o != c {
			s.Points[m.To] = s.Points[m.To][:0]
			s.Bar[o]++
		}
		s.Points[m.To] = append(s.Points[m.To], c)
	}
	if i := slices.Index(s.Moves, m.Die); i >= 0 {
		s.Moves = slices.Delete(s.Moves, i, i+1)
	}
}

func (s *BackgammonState) endTurn(players [2]Player, actorID string) {
	s.Phase = PhaseRolling
	s.Moves = nil
	s.Turn = opponentOf(players, actorID)
}

func (b *Backgammon) CheckEnd(state State, _ [2]Player) Outcome {
	s, ok := state.(*BackgammonState)
	if !ok {
		return Outcome{}
	}
	for _, c := range []Color{White, Black} {
		if s.Home[c] == PiecesPerSide {
			return Outcome{Over: true, WinnerID: s.idOf(c)}
		}
	}
	return Outcome{}
}

// BotMove rolls when it has to, bears off when it can and otherwise plays
// the best scored move. Scoring favours making points and entering home, and
// punishes blots the opponent can still reach, so bot games stay short.
func (b *Backgammon) BotMove(state State, playerIdx int) (Move, bool) {
	s, ok := state.(*BackgammonState)
	if !ok || s.Over {
		return Move{}, false
	}
	if s.Phase == PhaseRolling {
		return Move{Action: ActionRoll}, true
	}
	c := White
	if playerIdx == 1 {
		c = Black
	}
	legal := s.legalMoves(c)
	if len(legal) == 0 {
		return Move{}, false
	}
	best, bestScore := legal[0], s.botScore(c, legal[0])
	for _, m := range legal[1:] {
		if v := s.botScore(c, m); v > bestScore {
			best, bestScore = m, v
		}
	}
	return best, true
}

func (s *BackgammonState) botScore(c Color, m Move) int {
	if m.To == Off {
		return 1000 + pipsToOff(c, m.From)
	}
	score := m.Die
	o, n := s.owner(m.To)
	hit := n == 1 && o != c
	switch {
	case n == 1 && o == c:
		score += 30
	case n > 1 && o == c:
		score += 5
	case hit && s.reachable(c, m.To):
		score -= 10
	case !hit && s.reachable(c, m.To):
		score -= 25
	}
	if hit {
		score += 20
	}
	// breaking a point leaves a blot behind
	if m.From != Bar && len(s.Points[m.From]) == 2 && s.reachable(c, m.From) {
		score -= 40
	}
	if inHome(c, m.To) && (m.From == Bar || !inHome(c, m.From)) {
		score += 10
	}
	return score
}

// reachable reports whether the opponent of c still has a piece that can
// land on point i.
func (s *BackgammonState) reachable(c Color, i int) bool {
	o := c.Opponent()
	if s.Bar[o] > 0 {
		return true
	}
	for j, st := range s.Points {
		if len(st) == 0 || st[0] != o {
			continue
		}
		if c == White && j < i || c == Black && j > i {
			return true
		}
	}
	return false
}
