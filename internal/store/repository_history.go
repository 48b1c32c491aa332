package store

import (
	"context"

	"board-arena/internal/ids"

	"github.com/jackc/pgx/v5"
)

func (s *Store) InsertGameRecord(ctx context.Context, r GameRecord) error {
	if r.ID == "" {
		r.ID = ids.NewID()
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO game_history (id, user_id, room_id, game_type, opponent_id, result, stake, delta, tournament_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))`,
		r.ID, r.UserID, r.RoomID, r.GameType, r.OpponentID, r.Result, r.Stake, r.Delta, r.TournamentID,
	)
	return err
}

func (s *Store) ListGameRecords(ctx context.Context, userID string, limit int) ([]GameRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, room_id, game_type, opponent_id, result, stake, delta, COALESCE(tournament_id, ''), created_at
		   FROM game_history WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameRecord, error) {
		var r GameRecord
		err := row.Scan(&r.ID, &r.UserID, &r.RoomID, &r.GameType, &r.OpponentID, &r.Result, &r.Stake, &r.Delta, &r.TournamentID, &r.CreatedAt)
		return r, err
	})
}
