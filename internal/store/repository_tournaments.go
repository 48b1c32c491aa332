package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// SaveTournament upserts the whole document.
func (s *Store) SaveTournament(ctx context.Context, r TournamentRecord) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO tournaments (id, slug, game_type, status, starts_at, doc)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE
		    SET status = EXCLUDED.status, starts_at = EXCLUDED.starts_at, doc = EXCLUDED.doc, updated_at = now()`,
		r.ID, r.Slug, r.GameType, r.Status, r.StartsAt, r.Doc,
	)
	return err
}

func (s *Store) GetTournament(ctx context.Context, id string) (*TournamentRecord, error) {
	var r TournamentRecord
	err := s.Pool.QueryRow(ctx,
		`SELECT id, slug, game_type, status, starts_at, doc, updated_at FROM tournaments WHERE id = $1 OR slug = $1`, id,
	).Scan(&r.ID, &r.Slug, &r.GameType, &r.Status, &r.StartsAt, &r.Doc, &r.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &r, nil
}

// ListTournaments returns tournaments in any of the given statuses, or all
// of them when none are given.
func (s *Store) ListTournaments(ctx context.Context, statuses ...string) ([]TournamentRecord, error) {
	if statuses == nil {
		statuses = []string{}
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, slug, game_type, status, starts_at, doc, updated_at
		   FROM tournaments
		  WHERE cardinality($1::text[]) = 0 OR status = ANY($1)
		  ORDER BY starts_at`,
		statuses,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (TournamentRecord, error) {
		var r TournamentRecord
		err := row.Scan(&r.ID, &r.Slug, &r.GameType, &r.Status, &r.StartsAt, &r.Doc, &r.UpdatedAt)
		return r, err
	})
}
