// Package history is the append-only audit trail. Append runs inside the
// same transaction as the mutation it describes, so the trail cannot
// diverge from committed state. Entries are never updated.
package history

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/postgres"
)

const (
	EntityOrder     = "order"
	EntityOrderItem = "order_item"
	EntityPayment   = "payment"
	EntityUser      = "user"
)

type Entry struct {
	ID            int64           `json:"id"`
	EntityType    string          `json:"entity_type"`
	EntityID      int64           `json:"entity_id"`
	Action        string          `json:"action"`
	ChangedBy     int64           `json:"changed_by_user_id"`
	ChangedByName string          `json:"changed_by_user_name,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Snapshot      json.RawMessage `json:"data_snapshot"`
}

// Append writes one audit entry. q may be a transaction or the pool.
func Append(ctx context.Context, q postgres.Querier, e Entry) (int64, error) {
	snapshot := e.Snapshot
	if snapshot == nil {
		snapshot = json.RawMessage(`{}`)
	}
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO history_logs (entity_type, entity_id, action, changed_by_user_id, timestamp, data_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		e.EntityType, e.EntityID, e.Action, e.ChangedBy, e.Timestamp, snapshot).Scan(&id)
	if err != nil {
		return 0, errs.Internal(err, "history append failed")
	}
	return id, nil
}

type Filter struct {
	EntityType string
	EntityID   *int64
	ChangedBy  *int64
}

type Store struct {
	DB *pgxpool.Pool
}

func (s *Store) List(ctx context.Context, f Filter, limit int, cursor *int64) ([]Entry, error) {
	query := `
		SELECT h.id, h.entity_type, h.entity_id, h.action, h.changed_by_user_id,
		       COALESCE(u.name, ''), h.timestamp, h.data_snapshot
		FROM history_logs h LEFT JOIN users u ON u.id = h.changed_by_user_id
		WHERE 1=1`
	args := []any{}
	if f.EntityType != "" {
		args = append(args, f.EntityType)
		query += ` AND h.entity_type=$` + strconv.Itoa(len(args))
	}
	if f.EntityID != nil {
		args = append(args, *f.EntityID)
		query += ` AND h.entity_id=$` + strconv.Itoa(len(args))
	}
	if f.ChangedBy != nil {
		args = append(args, *f.ChangedBy)
		query += ` AND h.changed_by_user_id=$` + strconv.Itoa(len(args))
	}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` AND h.id < $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY h.id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "history list failed")
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Action,
			&e.ChangedBy, &e.ChangedByName, &e.Timestamp, &e.Snapshot); err != nil {
			return nil, errs.Internal(err, "history list failed")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
