// Package ledger owns wallet balances and the append-only transaction log.
// The balance column is a derived cache: it only ever changes through Apply,
// which writes the transaction row in the same call, inside the caller's
// transaction. No call site adjusts one without the other.
package ledger

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/postgres"
)

const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

type Transaction struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Apply adds delta to the user's wallet and records the matching transaction
// row. It must run inside the same transaction as the domain mutation that
// caused it; q is expected to be a pgx.Tx. The wallet row is upserted so a
// first ledger event cannot race wallet creation.
func Apply(ctx context.Context, q postgres.Querier, userID int64, delta float64, txType string, at time.Time) (int64, error) {
	if txType != TypeCredit && txType != TypeDebit {
		return 0, errs.Validation("invalid transaction type %q", txType)
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + $2`,
		userID, delta); err != nil {
		return 0, errs.Internal(err, "wallet adjust failed")
	}

	var txID int64
	if err := q.QueryRow(ctx, `
		INSERT INTO transactions (user_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		userID, math.Abs(delta), txType, at).Scan(&txID); err != nil {
		return 0, errs.Internal(err, "transaction record failed")
	}
	return txID, nil
}

// CreateWallet inserts the zero-balance row eagerly at assistant creation.
func CreateWallet(ctx context.Context, q postgres.Querier, userID int64) error {
	if _, err := q.Exec(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`, userID); err != nil {
		return errs.Internal(err, "wallet create failed")
	}
	return nil
}

type Filter struct {
	Type string
	From *time.Time
	To   *time.Time
}

type Store struct {
	DB *pgxpool.Pool
}

func (s *Store) Balance(ctx context.Context, userID int64) (float64, error) {
	var balance float64
	err := s.DB.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id=$1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, errs.NotFound("wallet for user %d not found", userID)
	}
	if err != nil {
		return 0, errs.Internal(err, "balance lookup failed")
	}
	return balance, nil
}

// Transactions lists a user's ledger entries, newest first, keyset-paged by
// the last-seen id.
func (s *Store) Transactions(ctx context.Context, userID int64, f Filter, limit int, cursor *int64) ([]Transaction, error) {
	query := `SELECT id, user_id, amount, type, created_at FROM transactions WHERE user_id=$1`
	args := []any{userID}
	if f.Type != "" {
		args = append(args, f.Type)
		query += ` AND type=$` + itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND created_at >= $` + itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND created_at <= $` + itoa(len(args))
	}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` AND id < $` + itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY id DESC LIMIT $` + itoa(len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "transaction list failed")
	}
	defer rows.Close()

	out := []Transaction{}
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.CreatedAt); err != nil {
			return nil, errs.Internal(err, "transaction list failed")
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func itoa(n int) string { return strconv.Itoa(n) }
