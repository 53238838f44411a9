// Package auditor re-checks the ledger invariant out of band: for every
// user named in a ledger event, wallet.balance must equal the signed sum of
// that user's transactions. Divergence is logged, never repaired silently.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/events"
	"github.com/errandops/fulfillment/internal/redisx"
)

type Service struct {
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Log         *logrus.Logger
	ServiceName string
}

// HandleLedgerEntry is the consumer handler for ledger.entry events.
func (s *Service) HandleLedgerEntry(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventLedgerEntry {
		return nil
	}

	// dedup by event id; a replay proves nothing new
	dkey := fmt.Sprintf(redisx.KeyDedup, "auditor", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	var p events.LedgerEntryPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return err
	}

	balance, signedSum, err := s.Reconcile(ctx, p.UserID)
	if err != nil {
		return err
	}
	if balance != signedSum {
		s.Log.WithFields(logrus.Fields{
			"service":    s.ServiceName,
			"user_id":    p.UserID,
			"balance":    balance,
			"signed_sum": signedSum,
			"event_id":   env.EventID,
		}).Error("ledger divergence detected")
		return nil
	}
	s.Log.WithFields(logrus.Fields{
		"user_id": p.UserID,
		"balance": balance,
	}).Debug("ledger reconciled")
	return nil
}

// Reconcile returns the cached balance and the authoritative signed sum of
// the transaction log for one user.
func (s *Service) Reconcile(ctx context.Context, userID int64) (balance, signedSum float64, err error) {
	err = s.DB.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT balance FROM wallets WHERE user_id=$1), 0),
			COALESCE((SELECT SUM(CASE WHEN type='credit' THEN amount ELSE -amount END)
			          FROM transactions WHERE user_id=$1), 0)`,
		userID).Scan(&balance, &signedSum)
	if err != nil {
		return 0, 0, errs.Internal(err, "reconcile query failed")
	}
	return balance, signedSum, nil
}
