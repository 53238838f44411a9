package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errandops/fulfillment/internal/events"
)

func TestUnwrapPayloadRoundTrip(t *testing.T) {
	in := events.LedgerEntryPayload{UserID: 5, Amount: -40, Type: "debit", Source: "order_item", RefID: 12}
	raw := MustMarshal(in)

	out, err := UnwrapPayload[events.LedgerEntryPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestUnwrapPayloadBadJSON(t *testing.T) {
	_, err := UnwrapPayload[events.LedgerEntryPayload]([]byte(`{`))
	assert.Error(t, err)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, []byte("42"), events.PartitionKey(42))
}
