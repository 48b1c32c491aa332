package viewmodel

import "board-arena/internal/game"

type SeatView struct {
	Seat   int    `json:"seat"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	IsBot  bool   `json:"isBot"`
	Side   string `json:"side"`
}

// PlayerView is what one participant receives in gameStart and gameUpdate.
type PlayerView struct {
	RoomID   string     `json:"roomId"`
	MatchID  string     `json:"matchId,omitempty"`
	GameType game.Kind  `json:"gameType"`
	Bet      int64      `json:"bet"`
	Turn     string     `json:"turn"`
	YourTurn bool       `json:"yourTurn"`
	MySeat   int        `json:"mySeat"`
	MySide   string     `json:"mySide"`
	Seats    []SeatView `json:"seats"`
	State    game.State `json:"state"`
}

type PublicView struct {
	RoomID   string     `json:"roomId"`
	GameType game.Kind  `json:"gameType"`
	Bet      int64      `json:"bet"`
	Turn     string     `json:"turn"`
	Seats    []SeatView `json:"seats"`
	State    game.State `json:"state,omitempty"`
}

type Room struct {
	ID      string
	MatchID string
	Kind    game.Kind
	Bet     int64
	Players []game.Player
	State   game.State
}

// SideName names a seat the way each game does.
func SideName(kind game.Kind, seat int) string {
	names := map[game.Kind][2]string{
		game.KindTicTacToe:  {game.MarkX, game.MarkO},
		game.KindCheckers:   {"dark", "light"},
		game.KindChess:      {"white", "black"},
		game.KindBackgammon: {string(game.White), string(game.Black)},
	}
	n, ok := names[kind]
	if !ok || seat < 0 || seat > 1 {
		return ""
	}
	return n[seat]
}

func seats(r Room) []SeatView {
	out := make([]SeatView, 0, len(r.Players))
	for i, p := range r.Players {
		out = append(out, SeatView{
			Seat:   i,
			UserID: p.ID,
			Name:   p.Name,
			IsBot:  p.Bot,
			Side:   SideName(r.Kind, i),
		})
	}
	return out
}

func turnOf(st game.State) string {
	if st == nil {
		return ""
	}
	return st.Common().Turn
}

func BuildPlayerView(r Room, mySeat int) PlayerView {
	turn := turnOf(r.State)
	v := PlayerView{
		RoomID:   r.ID,
		MatchID:  r.MatchID,
		GameType: r.Kind,
		Bet:      r.Bet,
		Turn:     turn,
		MySeat:   mySeat,
		MySide:   SideName(r.Kind, mySeat),
		Seats:    seats(r),
		State:    r.State,
	}
	if mySeat >= 0 && mySeat < len(r.Players) {
		v.YourTurn = turn != "" && r.Players[mySeat].ID == turn
	}
	return v
}

func BuildPublicView(r Room) PublicView {
	return PublicView{
		RoomID:   r.ID,
		GameType: r.Kind,
		Bet:      r.Bet,
		Turn:     turnOf(r.State),
		Seats:    seats(r),
		State:    r.State,
	}
}
