package store

import (
	"context"

	"board-arena/internal/ids"

	"github.com/jackc/pgx/v5"
)

func (s *Store) GetAccountBalance(ctx context.Context, userID string) (int64, error) {
	var bal int64
	if err := s.Pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE user_id = $1`, userID).Scan(&bal); err != nil {
		return 0, mapNotFound(err)
	}
	return bal, nil
}

// Debit and Credit lock the account row so concurrent writes to one account
// serialize; each writes a ledger entry in the same transaction.
func (s *Store) Debit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error) {
	return s.adjust(ctx, userID, -amount, entryType, refType, refID)
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64, entryType, refType, refID string) (int64, error) {
	return s.adjust(ctx, userID, amount, entryType, refType, refID)
}

func (s *Store) adjust(ctx context.Context, userID string, delta int64, entryType, refType, refID string) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var bal int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&bal); err != nil {
		return 0, mapNotFound(err)
	}
	if bal+delta < 0 {
		return 0, ErrInsufficientBalance
	}
	newBal := bal + delta
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1, updated_at = now() WHERE user_id = $2`, newBal, userID); err != nil {
		return 0, err
	}
	if err := insertLedgerEntry(ctx, tx, userID, entryType, delta, refType, refID); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return newBal, nil
}

func insertLedgerEntry(ctx context.Context, tx pgx.Tx, userID, entryType string, amount int64, refType, refID string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO ledger_entries (id, user_id, type, amount, ref_type, ref_id) VALUES ($1, $2, $3, $4, $5, $6)`,
		ids.NewID(), userID, entryType, amount, refType, refID,
	)
	return err
}

func (s *Store) ListLedgerEntries(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, user_id, type, amount, ref_type, ref_id, created_at
		   FROM ledger_entries WHERE user_id = $1 ORDER BY id DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LedgerEntry, error) {
		var e LedgerEntry
		err := row.Scan(&e.ID, &e.UserID, &e.Type, &e.Amount, &e.RefType, &e.RefID, &e.CreatedAt)
		return e, err
	})
}
