package orders

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/clock"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/history"
)

// RoleLookup resolves a user's role; satisfied by users.Repo.
type RoleLookup interface {
	Role(ctx context.Context, userID int64) (auth.Role, error)
}

type Repo struct {
	DB    *pgxpool.Pool
	Clock clock.Clock
	Users RoleLookup

	// CompleteReassign lets complete() claim the order for the completer
	// even when it was assigned to someone else (legacy behavior).
	CompleteReassign bool
}

// Create persists the order header and every item as one atomic unit; a
// failing item rolls back the whole order.
func (r *Repo) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*Order, []Item, error) {
	if !auth.Allow(actor.Role, auth.RoleOwner) {
		return nil, nil, errs.Forbidden("only owners can create orders")
	}
	if in.Status == "" {
		return nil, nil, errs.Validation("status is required")
	}
	for _, it := range in.Items {
		if err := ValidateItem(it); err != nil {
			return nil, nil, err
		}
	}
	if in.AssignedTo != nil {
		if err := r.requireAssistant(ctx, *in.AssignedTo); err != nil {
			return nil, nil, err
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errs.Internal(err, "order create failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := r.Clock.Now()
	o := Order{CreatedBy: actor.UserID, AssignedTo: in.AssignedTo, Status: in.Status, CreatedAt: now}
	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (created_by, assigned_to, status, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		o.CreatedBy, o.AssignedTo, o.Status, o.CreatedAt).Scan(&o.ID); err != nil {
		return nil, nil, errs.Internal(err, "order create failed")
	}

	items := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		item := Item{
			OrderID:       o.ID,
			ProductName:   it.ProductName,
			Quantity:      it.Quantity,
			Unit:          it.Unit,
			EstimatedCost: it.EstimatedCost,
			ActualCost:    it.ActualCost,
			Status:        it.Status,
		}
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_name, quantity, unit, estimated_cost, actual_cost, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			item.OrderID, item.ProductName, item.Quantity, item.Unit,
			item.EstimatedCost, item.ActualCost, item.Status).Scan(&item.ID); err != nil {
			return nil, nil, errs.Internal(err, "order item create failed")
		}
		if err := r.logTx(ctx, tx, history.EntityOrderItem, item.ID, "create", actor.UserID, item); err != nil {
			return nil, nil, err
		}
		items = append(items, item)
	}

	if err := r.logTx(ctx, tx, history.EntityOrder, o.ID, "create", actor.UserID, o); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errs.Internal(err, "order create failed")
	}
	return &o, items, nil
}

// Assign transitions {pending|assigned} -> assigned with a conditional
// update so concurrent claims cannot lose each other's writes.
func (r *Repo) Assign(ctx context.Context, actor auth.Identity, orderID int64, requested *int64) (*Order, error) {
	target, err := ResolveAssignee(actor, requested)
	if err != nil {
		return nil, err
	}
	if actor.Role == auth.RoleOwner {
		if err := r.requireAssistant(ctx, target); err != nil {
			return nil, err
		}
	}
	if _, err := r.Get(ctx, orderID); err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "order assign failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ct int64
	if actor.Role == auth.RoleAssistant {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET assigned_to=$1, status=$2
			WHERE id=$3 AND (assigned_to IS NULL OR assigned_to=$1)`,
			target, StatusAssigned, orderID)
		if err != nil {
			return nil, errs.Internal(err, "order assign failed")
		}
		ct = tag.RowsAffected()
		if ct == 0 {
			return nil, errs.Forbidden("order already assigned")
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE orders SET assigned_to=$1, status=$2
			WHERE id=$3 AND status <> $4`,
			target, StatusAssigned, orderID, StatusCompleted)
		if err != nil {
			return nil, errs.Internal(err, "order assign failed")
		}
		ct = tag.RowsAffected()
		if ct == 0 {
			return nil, errs.Conflict("order already completed")
		}
	}

	if err := r.logTx(ctx, tx, history.EntityOrder, orderID, "assign", actor.UserID,
		map[string]int64{"user_id": target}); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "order assign failed")
	}
	return r.Get(ctx, orderID)
}

// Complete marks the order done. Whether it may claim an order assigned to
// someone else is policy, not a silent fix.
func (r *Repo) Complete(ctx context.Context, actor auth.Identity, orderID int64) (*Order, error) {
	if !auth.Allow(actor.Role, auth.RoleAssistant) {
		return nil, errs.Forbidden("only assistants can complete orders")
	}
	if _, err := r.Get(ctx, orderID); err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "order complete failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := r.Clock.Now()
	query := `UPDATE orders SET assigned_to=$1, status=$2, completed_at=$3 WHERE id=$4`
	if !r.CompleteReassign {
		query += ` AND (assigned_to IS NULL OR assigned_to=$1)`
	}
	tag, err := tx.Exec(ctx, query, actor.UserID, StatusCompleted, now, orderID)
	if err != nil {
		return nil, errs.Internal(err, "order complete failed")
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.Forbidden("order assigned to someone else")
	}

	if err := r.logTx(ctx, tx, history.EntityOrder, orderID, "complete", actor.UserID, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "order complete failed")
	}
	return r.Get(ctx, orderID)
}

// Update rewrites status/assignment; completed_at is recomputed from the
// new status, never carried over.
func (r *Repo) Update(ctx context.Context, actor auth.Identity, orderID int64, in UpdateInput) (*Order, error) {
	if in.Status == "" {
		return nil, errs.Validation("status is required")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "order update failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	done := completedAt(in.Status, r.Clock.Now())
	tag, err := tx.Exec(ctx,
		`UPDATE orders SET assigned_to=$1, status=$2, completed_at=$3 WHERE id=$4`,
		in.AssignedTo, in.Status, done, orderID)
	if err != nil {
		return nil, errs.Internal(err, "order update failed")
	}
	if tag.RowsAffected() == 0 {
		return nil, errs.NotFound("order %d not found", orderID)
	}

	if err := r.logTx(ctx, tx, history.EntityOrder, orderID, "update", actor.UserID, in); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "order update failed")
	}
	return r.Get(ctx, orderID)
}

// Delete removes the order and cascades to its items in the same
// transaction; no orphaned item is ever visible.
func (r *Repo) Delete(ctx context.Context, actor auth.Identity, orderID int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.Internal(err, "order delete failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, orderID); err != nil {
		return errs.Internal(err, "order delete failed")
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, orderID)
	if err != nil {
		return errs.Internal(err, "order delete failed")
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("order %d not found", orderID)
	}

	if err := r.logTx(ctx, tx, history.EntityOrder, orderID, "delete", actor.UserID, nil); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Internal(err, "order delete failed")
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, created_by, assigned_to, status, created_at, completed_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.CreatedBy, &o.AssignedTo, &o.Status, &o.CreatedAt, &o.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("order %d not found", orderID)
	}
	if err != nil {
		return nil, errs.Internal(err, "order lookup failed")
	}
	return &o, nil
}

func (r *Repo) List(ctx context.Context, f ListFilter, limit int, cursor *int64) ([]Order, error) {
	query := `SELECT id, created_by, assigned_to, status, created_at, completed_at FROM orders WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if f.AssignedTo != nil {
		args = append(args, *f.AssignedTo)
		query += ` AND assigned_to=$` + strconv.Itoa(len(args))
	}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` AND id < $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "order list failed")
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CreatedBy, &o.AssignedTo, &o.Status, &o.CreatedAt, &o.CompletedAt); err != nil {
			return nil, errs.Internal(err, "order list failed")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) requireAssistant(ctx context.Context, userID int64) error {
	role, err := r.Users.Role(ctx, userID)
	if errs.IsKind(err, errs.KindNotFound) {
		return errs.Validation("user_id must be an assistant")
	}
	if err != nil {
		return err
	}
	if role != auth.RoleAssistant {
		return errs.Validation("user_id must be an assistant")
	}
	return nil
}

func (r *Repo) logTx(ctx context.Context, tx pgx.Tx, entityType string, entityID int64, action string, actorID int64, snapshot any) error {
	var raw json.RawMessage
	if snapshot != nil {
		b, err := json.Marshal(snapshot)
		if err != nil {
			return errs.Internal(err, "history snapshot failed")
		}
		raw = b
	}
	_, err := history.Append(ctx, tx, history.Entry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ChangedBy:  actorID,
		Timestamp:  r.Clock.Now(),
		Snapshot:   raw,
	})
	return err
}
