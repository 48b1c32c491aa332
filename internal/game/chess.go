package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/corentings/chess/v2"
)

// ChessState keeps the full move list so repetition draws survive a
// round-trip through storage; FEN is derived and kept for clients.
type ChessState struct {
	Status
	FEN    string   `json:"fen"`
	Moves  []string `json:"moves"`
	White  string   `json:"white"`
	Black  string   `json:"black"`
	Method string   `json:"method,omitempty"`
}

func (s *ChessState) Kind() Kind      { return KindChess }
func (s *ChessState) Common() *Status { return &s.Status }
func (s *ChessState) sealed()         {}

func (s *ChessState) Clone() State {
	c := *s
	c.Moves = append([]string(nil), s.Moves...)
	return &c
}

func (s *ChessState) replay() (*chess.Game, error) {
	g := chess.NewGame()
	for _, m := range s.Moves {
		if err := g.PushNotationMove(m, chess.UCINotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay %q: %w", m, err)
		}
	}
	return g, nil
}

type Chess struct{}

func (Chess) Kind() Kind { return KindChess }

func (Chess) InitialState(players [2]Player) State {
	return &ChessState{
		Status: Status{Turn: players[0].ID},
		FEN:    chess.NewGame().FEN(),
		White:  players[0].ID,
		Black:  players[1].ID,
	}
}

func (c Chess) ProcessMove(state State, move Move, actorID string, players [2]Player) (Result, error) {
	s, ok := state.(*ChessState)
	if !ok {
		return Result{}, ErrStateMismatch
	}
	if err := precheck(&s.Status, actorID); err != nil {
		return Result{}, err
	}
	if move.UCI == "" {
		return Result{}, ErrInvalidMove
	}
	g, err := s.replay()
	if err != nil {
		return Result{}, err
	}
	if err := g.PushNotationMove(move.UCI, chess.UCINotation{}, nil); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, move.UCI)
	}

	next := s.Clone().(*ChessState)
	next.Moves = append(next.Moves, move.UCI)
	next.FEN = g.FEN()
	if out := outcomeOf(g, next); out.Over {
		next.Over, next.Winner, next.Draw = true, out.WinnerID, out.Draw
		next.Method = methodName(g.Method())
		return Result{State: next}, nil
	}
	next.Turn = opponentOf(players, actorID)
	return Result{State: next, TurnShouldSwitch: true}, nil
}

func (Chess) CheckEnd(state State, _ [2]Player) Outcome {
	s, ok := state.(*ChessState)
	if !ok {
		return Outcome{}
	}
	g, err := s.replay()
	if err != nil {
		return Outcome{}
	}
	return outcomeOf(g, s)
}

func outcomeOf(g *chess.Game, s *ChessState) Outcome {
	switch g.Outcome() {
	case chess.WhiteWon:
		return Outcome{Over: true, WinnerID: s.White}
	case chess.BlackWon:
		return Outcome{Over: true, WinnerID: s.Black}
	case chess.Draw:
		return Outcome{Over: true, Draw: true}
	}
	return Outcome{}
}

// BotMove mates when it can, then prefers captures, otherwise plays a
// random legal move.
func (Chess) BotMove(state State, playerIdx int) (Move, bool) {
	s, ok := state.(*ChessState)
	if !ok || s.Over {
		return Move{}, false
	}
	g, err := s.replay()
	if err != nil {
		return Move{}, false
	}
	want := chess.White
	if playerIdx == 1 {
		want = chess.Black
	}
	if g.Position().Turn() != want {
		return Move{}, false
	}
	var all, captures []string
	for _, m := range g.ValidMoves() {
		uci := m.String()
		if m.HasTag(chess.Capture) {
			captures = append(captures, uci)
		}
		all = append(all, uci)
	}
	if len(all) == 0 {
		return Move{}, false
	}
	for _, uci := range all {
		trial := g.Clone()
		if err := trial.PushNotationMove(uci, chess.UCINotation{}, nil); err == nil && trial.Method() == chess.Checkmate {
			return Move{UCI: uci}, true
		}
	}
	if len(captures) > 0 {
		return Move{UCI: captures[rand.IntN(len(captures))]}, true
	}
	return Move{UCI: all[rand.IntN(len(all))]}, true
}

func methodName(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "checkmate"
	case chess.Stalemate:
		return "stalemate"
	case chess.InsufficientMaterial:
		return "insufficient_material"
	case chess.ThreefoldRepetition:
		return "threefold_repetition"
	case chess.FivefoldRepetition:
		return "fivefold_repetition"
	case chess.FiftyMoveRule:
		return "fifty_move_rule"
	case chess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case chess.Resignation:
		return "resignation"
	}
	return ""
}
