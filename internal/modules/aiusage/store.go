package aiusage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// A row from an earlier month is refilled before the deduction.
const spendSQL = `
UPDATE ai_usage
SET tokens_remaining = CASE WHEN last_reset_month <> @month THEN @allowance - 1
                            ELSE tokens_remaining - 1 END,
    last_reset_month = @month
WHERE uid = @uid
  AND (last_reset_month < @month OR tokens_remaining > 0)`

const ensureSQL = `
INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
VALUES (@uid, @allowance, @month)
ON CONFLICT (uid) DO NOTHING`

const balanceSQL = `SELECT tokens_remaining, last_reset_month FROM ai_usage WHERE uid = @uid`

// Store keeps one ai_usage row per uid in Postgres.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) UseToken(ctx context.Context, uid, month string) error {
	tag, err := s.db.Exec(ctx, spendSQL, pgx.NamedArgs{"uid": uid, "month": month, "allowance": DefaultTokens})
	if err != nil {
		return fmt.Errorf("spend token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// exhausted, or no row yet
		return ErrInsufficientTokens
	}
	return nil
}

func (s *Store) EnsureUser(ctx context.Context, uid, month string) error {
	if _, err := s.db.Exec(ctx, ensureSQL, pgx.NamedArgs{"uid": uid, "month": month, "allowance": DefaultTokens}); err != nil {
		return fmt.Errorf("ensure usage row: %w", err)
	}
	return nil
}

// Remaining reports a full allowance for unknown users and stale months.
func (s *Store) Remaining(ctx context.Context, uid, month string) (int, error) {
	var (
		left int
		last string
	)
	err := s.db.QueryRow(ctx, balanceSQL, pgx.NamedArgs{"uid": uid}).Scan(&left, &last)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return DefaultTokens, nil
	case err != nil:
		return 0, fmt.Errorf("read usage: %w", err)
	case last < month:
		return DefaultTokens, nil
	}
	return left, nil
}
