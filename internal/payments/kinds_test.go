package payments

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/ledger"
)

func TestResolveKindCredit(t *testing.T) {
	res, err := resolveKind(KindCredit, auth.RoleOwner, 100)
	require.NoError(t, err)
	assert.Equal(t, resolution{
		PaymentAmount: 100,
		PaymentType:   ledger.TypeCredit,
		WalletDelta:   100,
		TxType:        ledger.TypeCredit,
	}, res)

	_, err = resolveKind(KindCredit, auth.RoleAssistant, 100)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestResolveKindDebit(t *testing.T) {
	res, err := resolveKind(KindDebit, auth.RoleAssistant, 40)
	require.NoError(t, err)
	assert.Equal(t, resolution{
		PaymentAmount: 40,
		PaymentType:   ledger.TypeDebit,
		WalletDelta:   -40,
		TxType:        ledger.TypeDebit,
		NeedsOwnerID:  true,
	}, res)

	_, err = resolveKind(KindDebit, auth.RoleOwner, 40)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

// A wallet refund is stored as a negative credit payment while the wallet
// and transaction record a debit.
func TestResolveKindWalletRefund(t *testing.T) {
	res, err := resolveKind(KindWalletRefund, auth.RoleAssistant, 25)
	require.NoError(t, err)
	assert.Equal(t, resolution{
		PaymentAmount: -25,
		PaymentType:   ledger.TypeCredit,
		WalletDelta:   -25,
		TxType:        ledger.TypeDebit,
		NeedsOwnerID:  true,
	}, res)

	_, err = resolveKind(KindWalletRefund, auth.RoleOwner, 25)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestResolveKindRejectsBadAmounts(t *testing.T) {
	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := resolveKind(KindCredit, auth.RoleOwner, amount)
		assert.True(t, errs.IsKind(err, errs.KindValidation), "amount %v", amount)
	}
}

func TestResolveKindUnknown(t *testing.T) {
	_, err := resolveKind(Kind("transfer"), auth.RoleOwner, 10)
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}

// The wallet delta and the transaction type must agree in sign for every
// kind, or reconciliation of balance against the signed transaction sum
// would diverge.
func TestResolveKindLedgerConsistency(t *testing.T) {
	cases := []struct {
		kind Kind
		role auth.Role
	}{
		{KindCredit, auth.RoleOwner},
		{KindDebit, auth.RoleAssistant},
		{KindWalletRefund, auth.RoleAssistant},
	}
	for _, tc := range cases {
		res, err := resolveKind(tc.kind, tc.role, 50)
		require.NoError(t, err)
		if res.TxType == ledger.TypeCredit {
			assert.Positive(t, res.WalletDelta, tc.kind)
		} else {
			assert.Negative(t, res.WalletDelta, tc.kind)
		}
		assert.Equal(t, math.Abs(res.WalletDelta), 50.0, tc.kind)
	}
}
