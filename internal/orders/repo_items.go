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
	"github.com/errandops/fulfillment/internal/ledger"
)

// ItemRepo owns line-item mutations. Updating an item's actual_cost debits
// the actor's wallet through the ledger inside the same transaction as the
// row update.
type ItemRepo struct {
	DB    *pgxpool.Pool
	Clock clock.Clock
}

// ItemResult carries the ledger transaction id when an update drove a debit.
type ItemResult struct {
	Item     Item
	LedgerTx int64
}

func (r *ItemRepo) Create(ctx context.Context, actor auth.Identity, orderID int64, in ItemInput) (*Item, error) {
	if !auth.Allow(actor.Role, auth.RoleOwner) {
		return nil, errs.Forbidden("only owners can add items")
	}
	if err := ValidateItem(in); err != nil {
		return nil, err
	}

	var exists bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, orderID).Scan(&exists); err != nil {
		return nil, errs.Internal(err, "item create failed")
	}
	if !exists {
		return nil, errs.NotFound("order %d not found", orderID)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "item create failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item := Item{
		OrderID:       orderID,
		ProductName:   in.ProductName,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		EstimatedCost: in.EstimatedCost,
		ActualCost:    in.ActualCost,
		Status:        in.Status,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_name, quantity, unit, estimated_cost, actual_cost, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		item.OrderID, item.ProductName, item.Quantity, item.Unit,
		item.EstimatedCost, item.ActualCost, item.Status).Scan(&item.ID); err != nil {
		return nil, errs.Internal(err, "item create failed")
	}

	if err := r.log(ctx, tx, item.ID, "create", actor.UserID, item); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "item create failed")
	}
	return &item, nil
}

// Update rewrites the item row. A present, non-zero actual_cost records the
// expense: wallet debit plus transaction row commit or roll back together
// with the item update. No payment row is written on this path.
func (r *ItemRepo) Update(ctx context.Context, actor auth.Identity, itemID int64, in ItemInput) (*ItemResult, error) {
	if !auth.Allow(actor.Role, auth.RoleOwner, auth.RoleAssistant) {
		return nil, errs.Forbidden("permission denied")
	}
	if err := ValidateItem(in); err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "item update failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item := Item{
		ID:            itemID,
		ProductName:   in.ProductName,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		EstimatedCost: in.EstimatedCost,
		ActualCost:    in.ActualCost,
		Status:        in.Status,
	}
	err = tx.QueryRow(ctx, `
		UPDATE order_items
		SET product_name=$1, quantity=$2, unit=$3, estimated_cost=$4, actual_cost=$5, status=$6
		WHERE id=$7 RETURNING order_id`,
		item.ProductName, item.Quantity, item.Unit,
		item.EstimatedCost, item.ActualCost, item.Status, itemID).Scan(&item.OrderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("item %d not found", itemID)
	}
	if err != nil {
		return nil, errs.Internal(err, "item update failed")
	}

	res := ItemResult{Item: item}
	if in.ActualCost != nil && *in.ActualCost != 0 {
		txID, err := ledger.Apply(ctx, tx, actor.UserID, -*in.ActualCost, ledger.TypeDebit, r.Clock.Now())
		if err != nil {
			return nil, err
		}
		res.LedgerTx = txID
	}

	if err := r.log(ctx, tx, itemID, "update", actor.UserID, item); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "item update failed")
	}
	return &res, nil
}

func (r *ItemRepo) Delete(ctx context.Context, actor auth.Identity, itemID int64) error {
	if !auth.Allow(actor.Role, auth.RoleOwner) {
		return errs.Forbidden("only owners can delete items")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errs.Internal(err, "item delete failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `DELETE FROM order_items WHERE id=$1`, itemID)
	if err != nil {
		return errs.Internal(err, "item delete failed")
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("item %d not found", itemID)
	}

	if err := r.log(ctx, tx, itemID, "delete", actor.UserID, nil); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.Internal(err, "item delete failed")
	}
	return nil
}

func (r *ItemRepo) Get(ctx context.Context, itemID int64) (*Item, error) {
	var it Item
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_id, product_name, quantity, unit, estimated_cost, actual_cost, status
		FROM order_items WHERE id=$1`, itemID).
		Scan(&it.ID, &it.OrderID, &it.ProductName, &it.Quantity, &it.Unit,
			&it.EstimatedCost, &it.ActualCost, &it.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("item %d not found", itemID)
	}
	if err != nil {
		return nil, errs.Internal(err, "item lookup failed")
	}
	return &it, nil
}

func (r *ItemRepo) List(ctx context.Context, limit int, cursor *int64) ([]Item, error) {
	query := `SELECT id, order_id, product_name, quantity, unit, estimated_cost, actual_cost, status FROM order_items`
	args := []any{}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` WHERE id < $1`
	}
	args = append(args, limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))
	return r.scanItems(ctx, query, args...)
}

func (r *ItemRepo) ByOrder(ctx context.Context, orderID int64) ([]Item, error) {
	return r.scanItems(ctx, `
		SELECT id, order_id, product_name, quantity, unit, estimated_cost, actual_cost, status
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
}

func (r *ItemRepo) scanItems(ctx context.Context, query string, args ...any) ([]Item, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "item list failed")
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductName, &it.Quantity, &it.Unit,
			&it.EstimatedCost, &it.ActualCost, &it.Status); err != nil {
			return nil, errs.Internal(err, "item list failed")
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *ItemRepo) log(ctx context.Context, tx pgx.Tx, itemID int64, action string, actorID int64, snapshot any) error {
	var raw json.RawMessage
	if snapshot != nil {
		b, err := json.Marshal(snapshot)
		if err != nil {
			return errs.Internal(err, "history snapshot failed")
		}
		raw = b
	}
	_, err := history.Append(ctx, tx, history.Entry{
		EntityType: history.EntityOrderItem,
		EntityID:   itemID,
		Action:     action,
		ChangedBy:  actorID,
		Timestamp:  r.Clock.Now(),
		Snapshot:   raw,
	})
	return err
}
