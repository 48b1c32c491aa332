package store

import (
	"context"
	"errors"

	"board-arena/internal/ids"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicateUser = errors.New("duplicate_user")

// CreateUser inserts the user and its account in one transaction.
func (s *Store) CreateUser(ctx context.Context, name, apiKey string, initialBalance int64) (*User, error) {
	if initialBalance < 0 {
		return nil, ErrInvalidAmount
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	u := User{ID: ids.NewID(), Name: name, APIKeyHash: HashAPIKey(apiKey)}
	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, name, api_key_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		u.ID, u.Name, u.APIKeyHash,
	).Scan(&u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO accounts (user_id, balance) VALUES ($1, $2)`, u.ID, initialBalance); err != nil {
		return nil, err
	}
	if initialBalance > 0 {
		if err := insertLedgerEntry(ctx, tx, u.ID, "initial_grant", initialBalance, "user", u.ID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	var u User
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at FROM users WHERE api_key_hash = $1`,
		HashAPIKey(apiKey),
	).Scan(&u.ID, &u.Name, &u.APIKeyHash, &u.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.APIKeyHash, &u.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &u, nil
}
