// Package payments records the business events that move wallet money.
// Every payment row is paired with exactly one ledger transaction, written
// in the same database transaction as the balance adjustment.
package payments

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/clock"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/history"
	"github.com/errandops/fulfillment/internal/ledger"
)

type Payment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	OwnerID   int64     `json:"owner_id"`
	Amount    float64   `json:"amount"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateInput struct {
	UserID  int64
	OwnerID *int64
	Amount  float64
	Kind    Kind
}

type Filter struct {
	UserID  *int64
	OwnerID *int64
	Type    string
	From    *time.Time
	To      *time.Time
}

type Repo struct {
	DB    *pgxpool.Pool
	Clock clock.Clock
}

// Result carries the ledger transaction written alongside the payment.
type Result struct {
	Payment  Payment
	LedgerTx int64
}

// Create writes one payment row, one transaction row, and the balance
// adjustment atomically, then the audit entry in the same unit.
func (r *Repo) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Result, error) {
	res, err := resolveKind(in.Kind, actor.Role, in.Amount)
	if err != nil {
		return nil, err
	}

	ownerID := actor.UserID
	if res.NeedsOwnerID {
		if in.OwnerID == nil {
			return nil, errs.Validation("owner_id is required")
		}
		ownerID = *in.OwnerID
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "payment create failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := r.Clock.Now()
	p := Payment{
		UserID:    in.UserID,
		OwnerID:   ownerID,
		Amount:    res.PaymentAmount,
		Type:      res.PaymentType,
		CreatedAt: now,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO payments (user_id, owner_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.UserID, p.OwnerID, p.Amount, p.Type, p.CreatedAt).Scan(&p.ID); err != nil {
		return nil, errs.Internal(err, "payment create failed")
	}

	txID, err := ledger.Apply(ctx, tx, in.UserID, res.WalletDelta, res.TxType, now)
	if err != nil {
		return nil, err
	}

	snapshot, _ := json.Marshal(p)
	if _, err := history.Append(ctx, tx, history.Entry{
		EntityType: history.EntityPayment,
		EntityID:   p.ID,
		Action:     "create",
		ChangedBy:  actor.UserID,
		Timestamp:  now,
		Snapshot:   snapshot,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "payment create failed")
	}
	return &Result{Payment: p, LedgerTx: txID}, nil
}

func (r *Repo) List(ctx context.Context, f Filter, limit int, cursor *int64) ([]Payment, error) {
	query := `SELECT id, user_id, owner_id, amount, type, created_at FROM payments WHERE 1=1`
	args := []any{}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		query += ` AND user_id=$` + strconv.Itoa(len(args))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		query += ` AND owner_id=$` + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		query += ` AND type=$` + strconv.Itoa(len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` AND id < $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "payment list failed")
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.OwnerID, &p.Amount, &p.Type, &p.CreatedAt); err != nil {
			return nil, errs.Internal(err, "payment list failed")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
