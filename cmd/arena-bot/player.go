package main

import (
	"encoding/json"
	"fmt"

	"board-arena/internal/game"
	"board-arena/internal/session"
	"board-arena/internal/tournament"
	"board-arena/internal/ws"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// view is viewmodel.PlayerView with the state left raw; the concrete state
// type depends on gameType.
type view struct {
	RoomID   string          `json:"roomId"`
	MatchID  string          `json:"matchId"`
	GameType game.Kind       `json:"gameType"`
	YourTurn bool            `json:"yourTurn"`
	MySeat   int             `json:"mySeat"`
	State    json.RawMessage `json:"state"`
}

// player turns server messages into replies. It holds no connection so the
// decision logic can be driven directly.
type player struct {
	games        *game.Registry
	kind         game.Kind
	bet          int64
	tournamentID string
	maxGames     int

	played int
}

// opening is the first message after connecting.
func (p *player) opening() outbound {
	if p.tournamentID != "" {
		return outbound{Type: ws.TypeJoinTournament, Data: ws.TournamentMessage{TournamentID: p.tournamentID}}
	}
	return outbound{Type: ws.TypeQuickJoin, Data: ws.CreateRoomMessage{GameType: p.kind, Bet: p.bet}}
}

// handle returns the replies for one inbound message and whether the bot is
// done.
func (p *player) handle(env envelope) ([]outbound, bool, error) {
	switch env.Type {
	case session.MsgGameStart, session.MsgGameUpdate:
		return p.play(env.Data, false)
	case session.TournamentType(session.MsgGameStart), session.TournamentType(session.MsgGameUpdate):
		return p.play(env.Data, true)
	case tournament.MsgMatchReady:
		var m tournament.MatchReady
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, false, fmt.Errorf("decode match ready: %w", err)
		}
		return []outbound{{Type: ws.TypeJoinTournamentGame, Data: ws.MatchMessage{MatchID: m.MatchID}}}, false, nil
	case session.MsgGameEnd:
		p.played++
		if p.played >= p.maxGames {
			return nil, true, nil
		}
		return []outbound{p.opening()}, false, nil
	case tournament.MsgCompleted, tournament.MsgCancelled:
		return nil, true, nil
	case tournament.MsgMatchResult:
		var r struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return nil, false, fmt.Errorf("decode match result: %w", err)
		}
		return nil, r.Type == tournament.ResultEliminated, nil
	}
	return nil, false, nil
}

func (p *player) play(raw json.RawMessage, inTournament bool) ([]outbound, bool, error) {
	var v view
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false, fmt.Errorf("decode view: %w", err)
	}
	if !v.YourTurn {
		return nil, false, nil
	}
	mv, ok, err := p.choose(v)
	if err != nil || !ok {
		return nil, false, err
	}
	if inTournament {
		return []outbound{{Type: ws.TypeTournamentMove, Data: ws.MatchMoveMessage{MatchID: v.MatchID, Move: mv}}}, false, nil
	}
	return []outbound{{Type: ws.TypePlayerMove, Data: ws.MoveMessage{RoomID: v.RoomID, Move: mv}}}, false, nil
}

func (p *player) choose(v view) (game.Move, bool, error) {
	rules, err := p.games.Rules(v.GameType)
	if err != nil {
		return game.Move{}, false, err
	}
	st, err := game.DecodeState(v.GameType, v.State)
	if err != nil {
		return game.Move{}, false, fmt.Errorf("decode state: %w", err)
	}
	mv, ok := rules.BotMove(st, v.MySeat)
	return mv, ok, nil
}
