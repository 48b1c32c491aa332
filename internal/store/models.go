package store

import "time"

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type Account struct {
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    int64     `json:"amount"`
	RefType   string    `json:"ref_type"`
	RefID     string    `json:"ref_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GameRecord is one participant's view of a finished game.
type GameRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RoomID       string    `json:"room_id"`
	GameType     string    `json:"game_type"`
	OpponentID   string    `json:"opponent_id"`
	Result       string    `json:"result"`
	Stake        int64     `json:"stake"`
	Delta        int64     `json:"delta"`
	TournamentID string    `json:"tournament_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TournamentRecord is the persisted tournament document. Doc holds the full
// JSON document; the other columns are indexed copies.
type TournamentRecord struct {
	ID        string
	Slug      string
	GameType  string
	Status    string
	StartsAt  time.Time
	Doc       []byte
	UpdatedAt time.Time
}
