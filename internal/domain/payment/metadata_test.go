package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

func TestIntentMetadataRoundTrip(t *testing.T) {
	meta := IntentMetadata{
		UserID: "u1",
		Items: []order.Item{
			{ProductID: "p1", Name: "Keyboard", UnitPrice: decimal.NewFromFloat(49.99), Quantity: 2},
		},
		ShippingAddress: order.ShippingAddress{
			FullName:      "Ada Lovelace",
			StreetAddress: "1 Analytical Way",
			City:          "London",
			ZipCode:       "E1 6AN",
		},
		Total: decimal.NewFromFloat(117.98),
	}

	encoded, err := meta.Encode()
	require.NoError(t, err)
	assert.Equal(t, MetadataSchemaVersion, encoded["schema"])

	decoded, err := DecodeIntentMetadata(encoded)
	require.NoError(t, err)
	assert.Equal(t, meta.UserID, decoded.UserID)
	assert.Equal(t, meta.ShippingAddress, decoded.ShippingAddress)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "p1", decoded.Items[0].ProductID)
	assert.True(t, decoded.Items[0].UnitPrice.Equal(meta.Items[0].UnitPrice))
	assert.True(t, decoded.Total.Equal(meta.Total))
}

func TestDecodeRejectsUnknownSchema(t *testing.T) {
	_, err := DecodeIntentMetadata(map[string]string{"schema": "42"})
	require.ErrorIs(t, err, ErrMetadataSchema)

	_, err = DecodeIntentMetadata(map[string]string{})
	require.ErrorIs(t, err, ErrMetadataSchema)
}

func TestDecodeRejectsIncompleteMetadata(t *testing.T) {
	meta := IntentMetadata{
		UserID: "u1",
		Items:  []order.Item{{ProductID: "p1", Quantity: 1}},
		Total:  decimal.NewFromInt(10),
	}
	encoded, err := meta.Encode()
	require.NoError(t, err)

	missingUser := cloneMap(encoded)
	missingUser["user_id"] = ""
	_, err = DecodeIntentMetadata(missingUser)
	require.Error(t, err)

	emptyItems := cloneMap(encoded)
	emptyItems["order_items"] = "[]"
	_, err = DecodeIntentMetadata(emptyItems)
	require.Error(t, err)

	badTotal := cloneMap(encoded)
	badTotal["total_price"] = "not-a-number"
	_, err = DecodeIntentMetadata(badTotal)
	require.Error(t, err)
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
