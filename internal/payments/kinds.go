package payments

import (
	"math"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/ledger"
)

type Kind string

const (
	KindCredit Kind = "credit"
	KindDebit  Kind = "debit"

	// KindWalletRefund reverses an over-charge: a debit recorded as a
	// negative credit payment.
	KindWalletRefund Kind = "wallet_refund"
)

// resolution is what a payment kind means for the four rows it touches.
type resolution struct {
	PaymentAmount float64
	PaymentType   string
	WalletDelta   float64
	TxType        string
	NeedsOwnerID  bool
}

// resolveKind maps (kind, actor role, amount) to the concrete mutation.
// Role and amount checks happen here, before anything is written.
func resolveKind(kind Kind, actorRole auth.Role, amount float64) (resolution, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return resolution{}, errs.Validation("amount must be a positive number")
	}

	switch kind {
	case KindCredit:
		if !auth.Allow(actorRole, auth.RoleOwner) {
			return resolution{}, errs.Forbidden("only owners can credit wallets")
		}
		return resolution{
			PaymentAmount: amount,
			PaymentType:   ledger.TypeCredit,
			WalletDelta:   amount,
			TxType:        ledger.TypeCredit,
		}, nil
	case KindDebit:
		if !auth.Allow(actorRole, auth.RoleAssistant) {
			return resolution{}, errs.Forbidden("only assistants can record expenses")
		}
		return resolution{
			PaymentAmount: amount,
			PaymentType:   ledger.TypeDebit,
			WalletDelta:   -amount,
			TxType:        ledger.TypeDebit,
			NeedsOwnerID:  true,
		}, nil
	case KindWalletRefund:
		if !auth.Allow(actorRole, auth.RoleAssistant) {
			return resolution{}, errs.Forbidden("only assistants can refund via wallet")
		}
		return resolution{
			PaymentAmount: -amount,
			PaymentType:   ledger.TypeCredit,
			WalletDelta:   -amount,
			TxType:        ledger.TypeDebit,
			NeedsOwnerID:  true,
		}, nil
	}
	return resolution{}, errs.Validation("invalid payment type %q", kind)
}
