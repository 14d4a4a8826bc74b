package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

// The intent metadata blob is a documented serialization contract: the
// validated order is round-tripped through the gateway as opaque string
// metadata so that settlement can rebuild it without re-reading mutable cart
// state. The schema tag lets future layouts coexist with in-flight intents.
const (
	MetadataSchemaVersion = "1"

	metaKeySchema  = "schema"
	metaKeyUserID  = "user_id"
	metaKeyItems   = "order_items"
	metaKeyAddress = "shipping_address"
	metaKeyTotal   = "total_price"
)

var ErrMetadataSchema = errors.New("payment: unsupported intent metadata schema")

type IntentMetadata struct {
	UserID          string
	Items           []order.Item
	ShippingAddress order.ShippingAddress
	Total           decimal.Decimal
}

func (m IntentMetadata) Encode() (map[string]string, error) {
	items, err := json.Marshal(m.Items)
	if err != nil {
		return nil, fmt.Errorf("payment: encode order items: %w", err)
	}
	addr, err := json.Marshal(m.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("payment: encode shipping address: %w", err)
	}

	return map[string]string{
		metaKeySchema:  MetadataSchemaVersion,
		metaKeyUserID:  m.UserID,
		metaKeyItems:   string(items),
		metaKeyAddress: string(addr),
		metaKeyTotal:   m.Total.StringFixed(2),
	}, nil
}

func DecodeIntentMetadata(md map[string]string) (*IntentMetadata, error) {
	if md[metaKeySchema] != MetadataSchemaVersion {
		return nil, fmt.Errorf("%w: %q", ErrMetadataSchema, md[metaKeySchema])
	}

	var decoded IntentMetadata
	decoded.UserID = md[metaKeyUserID]
	if decoded.UserID == "" {
		return nil, errors.New("payment: intent metadata missing user id")
	}
	if err := json.Unmarshal([]byte(md[metaKeyItems]), &decoded.Items); err != nil {
		return nil, fmt.Errorf("payment: decode order items: %w", err)
	}
	if len(decoded.Items) == 0 {
		return nil, errors.New("payment: intent metadata has no order items")
	}
	if err := json.Unmarshal([]byte(md[metaKeyAddress]), &decoded.ShippingAddress); err != nil {
		return nil, fmt.Errorf("payment: decode shipping address: %w", err)
	}

	total, err := decimal.NewFromString(md[metaKeyTotal])
	if err != nil {
		return nil, fmt.Errorf("payment: decode total price: %w", err)
	}
	decoded.Total = total

	return &decoded, nil
}
