package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/errandops/fulfillment/internal/clock"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/redisx"
)

// Service owns the tokens table and resolves bearer tokens to identities.
// Redis fronts the lookup; the table stays the source of truth.
type Service struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
	TTL   time.Duration
	Clock clock.Clock
}

type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Login verifies credentials and issues a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *UserInfo, error) {
	var (
		u    UserInfo
		hash string
	)
	err := s.DB.QueryRow(ctx,
		`SELECT id, name, email, password_hash, role FROM users WHERE email=$1`,
		email).Scan(&u.ID, &u.Name, &u.Email, &hash, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, errs.Unauthenticated("invalid credentials")
	}
	if err != nil {
		return "", nil, errs.Internal(err, "login failed")
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", nil, errs.Unauthenticated("invalid credentials")
	}

	token := newToken()
	if _, err := s.DB.Exec(ctx,
		`INSERT INTO tokens (user_id, token, created_at) VALUES ($1, $2, $3)`,
		u.ID, token, s.Clock.Now()); err != nil {
		return "", nil, errs.Internal(err, "login failed")
	}
	s.cacheIdentity(ctx, token, Identity{UserID: u.ID, Role: u.Role})
	return token, &u, nil
}

// Resolve maps a bearer token to (user_id, role). Expired rows are deleted
// as a side effect of lookup.
func (s *Service) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errs.Unauthenticated("missing bearer token")
	}
	if id, ok := s.cachedIdentity(ctx, token); ok {
		return id, nil
	}

	var (
		id        Identity
		roleStr   string
		createdAt time.Time
	)
	err := s.DB.QueryRow(ctx, `
		SELECT t.user_id, u.role, t.created_at
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = $1`, token).Scan(&id.UserID, &roleStr, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Identity{}, errs.Unauthenticated("invalid token")
	}
	if err != nil {
		return Identity{}, errs.Internal(err, "token lookup failed")
	}
	if Expired(createdAt, s.TTL, s.Clock.Now()) {
		_, _ = s.DB.Exec(ctx, `DELETE FROM tokens WHERE token=$1`, token)
		return Identity{}, errs.Unauthenticated("token expired")
	}

	role, ok := ParseRole(roleStr)
	if !ok {
		return Identity{}, errs.Internal(fmt.Errorf("unknown role %q", roleStr), "token lookup failed")
	}
	id.Role = role
	s.cacheIdentity(ctx, token, id)
	return id, nil
}

// Refresh replaces the stored token in one transaction so the prior value
// cannot be reused.
func (s *Service) Refresh(ctx context.Context, oldToken string) (string, error) {
	id, err := s.Resolve(ctx, oldToken)
	if err != nil {
		return "", err
	}

	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", errs.Internal(err, "refresh failed")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM tokens WHERE token=$1`, oldToken); err != nil {
		return "", errs.Internal(err, "refresh failed")
	}
	token := newToken()
	if _, err := tx.Exec(ctx,
		`INSERT INTO tokens (user_id, token, created_at) VALUES ($1, $2, $3)`,
		id.UserID, token, s.Clock.Now()); err != nil {
		return "", errs.Internal(err, "refresh failed")
	}
	if err := tx.Commit(ctx); err != nil {
		return "", errs.Internal(err, "refresh failed")
	}

	s.dropIdentity(ctx, oldToken)
	s.cacheIdentity(ctx, token, id)
	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if _, err := s.DB.Exec(ctx, `DELETE FROM tokens WHERE token=$1`, token); err != nil {
		return errs.Internal(err, "logout failed")
	}
	s.dropIdentity(ctx, token)
	return nil
}

func (s *Service) Me(ctx context.Context, id Identity) (*UserInfo, error) {
	var u UserInfo
	err := s.DB.QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id=$1`, id.UserID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("user %d not found", id.UserID)
	}
	if err != nil {
		return nil, errs.Internal(err, "user lookup failed")
	}
	return &u, nil
}

// Expired reports whether a token created at the given instant is past its
// TTL at now.
func Expired(createdAt time.Time, ttl time.Duration, now time.Time) bool {
	return now.Sub(createdAt) > ttl
}

func (s *Service) cacheIdentity(ctx context.Context, token string, id Identity) {
	key := fmt.Sprintf(redisx.KeyAuthToken, token)
	_ = s.Redis.Set(ctx, key, fmt.Sprintf("%d:%s", id.UserID, id.Role), redisx.TTLIdentity).Err()
}

func (s *Service) cachedIdentity(ctx context.Context, token string) (Identity, bool) {
	key := fmt.Sprintf(redisx.KeyAuthToken, token)
	v, err := s.Redis.Get(ctx, key).Result()
	if err != nil {
		return Identity{}, false
	}
	return parseCachedIdentity(v)
}

func (s *Service) dropIdentity(ctx context.Context, token string) {
	_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyAuthToken, token)).Err()
}

func parseCachedIdentity(v string) (Identity, bool) {
	userStr, roleStr, ok := strings.Cut(v, ":")
	if !ok {
		return Identity{}, false
	}
	userID, err := strconv.ParseInt(userStr, 10, 64)
	if err != nil {
		return Identity{}, false
	}
	role, ok := ParseRole(roleStr)
	if !ok {
		return Identity{}, false
	}
	return Identity{UserID: userID, Role: role}, true
}
