package game

import "errors"

var (
	ErrUnknownGame    = errors.New("unknown_game")
	ErrStateMismatch  = errors.New("state_mismatch")
	ErrNotYourTurn    = errors.New("not_your_turn")
	ErrGameOver       = errors.New("game_over")
	ErrInvalidMove    = errors.New("invalid_move")
	ErrCellOccupied   = errors.New("cell_occupied")
	ErrIllegalMove    = errors.New("illegal_move")
	ErrWrongPhase     = errors.New("wrong_phase")
	ErrMustEnterBar   = errors.New("must_enter_from_bar")
	ErrPointBlocked   = errors.New("point_blocked")
	ErrCannotBearOff  = errors.New("cannot_bear_off")
	ErrDieUnavailable = errors.New("die_unavailable")
	ErrNoPiece        = errors.New("no_piece")
	ErrMustContinue   = errors.New("must_continue_capture")
	ErrCaptureNeeded  = errors.New("capture_required")
)

// IsRuleError reports whether err is a move rejection the client can fix.
func IsRuleError(err error) bool {
	for _, e := range []error{
		ErrNotYourTurn, ErrGameOver, ErrInvalidMove, ErrCellOccupied, ErrIllegalMove,
		ErrWrongPhase, ErrMustEnterBar, ErrPointBlocked, ErrCannotBearOff,
		ErrDieUnavailable, ErrNoPiece, ErrMustContinue, ErrCaptureNeeded,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func indexOf(players [2]Player, id string) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func opponentOf(players [2]Player, id string) string {
	if players[0].ID == id {
		return players[1].ID
	}
	return players[0].ID
}

// precheck runs the turn and terminal checks shared by every variant.
func precheck(st *Status, actorID string) error {
	if st.Over {
		return ErrGameOver
	}
	if st.Turn != actorID {
		return ErrNotYourTurn
	}
	return nil
}
