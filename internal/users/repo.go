package users

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/clock"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/history"
	"github.com/errandops/fulfillment/internal/ledger"
)

type User struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

// Assistant is the listing row for assistants; Balance is only populated
// when the caller asked for it.
type Assistant struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Balance *float64 `json:"balance,omitempty"`
}

type Owner struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role
}

type Repo struct {
	DB    *pgxpool.Pool
	Clock clock.Clock
}

// Create is owner-only. Assistants get their wallet row in the same
// transaction so no ledger path ever races wallet creation.
func (r *Repo) Create(ctx context.Context, actor auth.Identity, in CreateInput) (*User, error) {
	if !auth.Allow(actor.Role, auth.RoleOwner) {
		return nil, errs.Forbidden("only owners can create users")
	}
	if _, ok := auth.ParseRole(string(in.Role)); !ok {
		return nil, errs.Validation("invalid role %q", in.Role)
	}

	var exists bool
	if err := r.DB.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, in.Email).Scan(&exists); err != nil {
		return nil, errs.Internal(err, "user create failed")
	}
	if exists {
		return nil, errs.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errs.Internal(err, "user create failed")
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errs.Internal(err, "user create failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := r.Clock.Now()
	u := User{Name: in.Name, Email: in.Email, Role: in.Role}
	if err := tx.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		in.Name, in.Email, string(hash), in.Role, now).Scan(&u.ID); err != nil {
		return nil, errs.Internal(err, "user create failed")
	}
	if in.Role == auth.RoleAssistant {
		if err := ledger.CreateWallet(ctx, tx, u.ID); err != nil {
			return nil, err
		}
	}

	snapshot, _ := json.Marshal(map[string]any{"name": u.Name, "email": u.Email, "role": u.Role})
	if _, err := history.Append(ctx, tx, history.Entry{
		EntityType: history.EntityUser,
		EntityID:   u.ID,
		Action:     "create",
		ChangedBy:  actor.UserID,
		Timestamp:  now,
		Snapshot:   snapshot,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errs.Internal(err, "user create failed")
	}
	return &u, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.DB.QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("user %d not found", id)
	}
	if err != nil {
		return nil, errs.Internal(err, "user lookup failed")
	}
	return &u, nil
}

func (r *Repo) List(ctx context.Context, limit int, cursor *int64) ([]User, error) {
	query := `SELECT id, name, email, role FROM users`
	args := []any{}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` WHERE id < $1`
	}
	args = append(args, limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "user list failed")
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, errs.Internal(err, "user list failed")
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *Repo) ListAssistants(ctx context.Context, withBalance bool, limit int, cursor *int64) ([]Assistant, error) {
	query := `SELECT u.id, u.name FROM users u WHERE u.role = 'assistant'`
	if withBalance {
		query = `SELECT u.id, u.name, COALESCE(w.balance, 0)
		         FROM users u LEFT JOIN wallets w ON u.id = w.user_id
		         WHERE u.role = 'assistant'`
	}
	args := []any{}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` AND u.id < $1`
	}
	args = append(args, limit)
	query += ` ORDER BY u.id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "assistant list failed")
	}
	defer rows.Close()

	out := []Assistant{}
	for rows.Next() {
		var a Assistant
		if withBalance {
			var balance float64
			if err := rows.Scan(&a.ID, &a.Name, &balance); err != nil {
				return nil, errs.Internal(err, "assistant list failed")
			}
			a.Balance = &balance
		} else if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, errs.Internal(err, "assistant list failed")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) ListOwners(ctx context.Context, limit int, cursor *int64) ([]Owner, error) {
	query := `SELECT id, name FROM users WHERE role = 'owner'`
	args := []any{}
	if cursor != nil {
		args = append(args, *cursor)
		query += ` AND id < $1`
	}
	args = append(args, limit)
	query += ` ORDER BY id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.Internal(err, "owner list failed")
	}
	defer rows.Close()

	out := []Owner{}
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.Name); err != nil {
			return nil, errs.Internal(err, "owner list failed")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Role resolves a user's role; shared by order assignment validation.
func (r *Repo) Role(ctx context.Context, userID int64) (auth.Role, error) {
	var roleStr string
	err := r.DB.QueryRow(ctx, `SELECT role FROM users WHERE id=$1`, userID).Scan(&roleStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errs.NotFound("user %d not found", userID)
	}
	if err != nil {
		return "", errs.Internal(err, "role lookup failed")
	}
	role, ok := auth.ParseRole(roleStr)
	if !ok {
		return "", errs.Internal(nil, "role lookup failed")
	}
	return role, nil
}
