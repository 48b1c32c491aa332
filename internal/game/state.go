package game

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindTicTacToe  Kind = "tictactoe"
	KindCheckers   Kind = "checkers"
	KindChess      Kind = "chess"
	KindBackgammon Kind = "backgammon"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindTicTacToe, KindCheckers, KindChess, KindBackgammon:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGame, s)
}

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot,omitempty"`
}

// Move is the wire shape shared by all variants; each engine reads only the
// fields it understands.
type Move struct {
	Action string `json:"action,omitempty"`
	Cell   int    `json:"cell,omitempty"`
	From   int    `json:"from,omitempty"`
	To     int    `json:"to,omitempty"`
	Die    int    `json:"die,omitempty"`
	UCI    string `json:"uci,omitempty"`
}

const ActionRoll = "roll"

// Status is the part of every game state the session layer reads.
type Status struct {
	Turn   string `json:"turn"`
	Over   bool   `json:"over"`
	Winner string `json:"winner,omitempty"`
	Draw   bool   `json:"draw,omitempty"`
}

// State is a closed union: *TicTacToeState, *CheckersState, *ChessState or
// *BackgammonState.
type State interface {
	Kind() Kind
	Common() *Status
	Clone() State
	sealed()
}

type Result struct {
	State            State
	TurnShouldSwitch bool
}

type Outcome struct {
	Over     bool   `json:"over"`
	WinnerID string `json:"winner,omitempty"`
	Draw     bool   `json:"draw"`
}

// Snapshot wraps a state with its kind tag for the wire.
type Snapshot struct {
	Kind  Kind  `json:"gameType"`
	State State `json:"state"`
}

// DecodeState restores a state previously produced by json.Marshal(state).
func DecodeState(kind Kind, raw []byte) (State, error) {
	var st State
	switch kind {
	case KindTicTacToe:
		st = &TicTacToeState{}
	case KindCheckers:
		st = &CheckersState{}
	case KindChess:
		st = &ChessState{}
	case KindBackgammon:
		st = &BackgammonState{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownGame, kind)
	}
	if err := json.Unmarshal(raw, st); err != nil {
		return nil, err
	}
	return st, nil
}
