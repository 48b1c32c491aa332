package game

import "fmt"

// Rules is the contract every variant implements. Implementations never
// mutate the state they are given.
type Rules interface {
	Kind() Kind
	InitialState(players [2]Player) State
	ProcessMove(state State, move Move, actorID string, players [2]Player) (Result, error)
	CheckEnd(state State, players [2]Player) Outcome
	BotMove(state State, playerIdx int) (Move, bool)
}

type Options struct {
	CheckersMandatoryCapture bool
	Dice                     Roller
}

type Registry struct {
	rules map[Kind]Rules
}

func NewRegistry(opts Options) *Registry {
	dice := opts.Dice
	if dice == nil {
		dice = NewSeededRoller()
	}
	r := &Registry{rules: make(map[Kind]Rules, 4)}
	for _, rs := range []Rules{
		TicTacToe{},
		Checkers{MandatoryCapture: opts.CheckersMandatoryCapture},
		Chess{},
		&Backgammon{Dice: dice},
	} {
		r.rules[rs.Kind()] = rs
	}
	return r
}

func (r *Registry) Rules(kind Kind) (Rules, error) {
	rs, ok := r.rules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, kind)
	}
	return rs, nil
}

func (r *Registry) Kinds() []Kind {
	return []Kind{KindTicTacToe, KindCheckers, KindChess, KindBackgammon}
}
