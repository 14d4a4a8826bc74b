package mail

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
)

// ConfirmationRenderer produces the order-confirmation message body. Plain
// text only; HTML rendering lives with the presentation collaborators.
type ConfirmationRenderer struct {
	storeName string
	tmpl      *template.Template
}

func NewConfirmationRenderer(storeName string) (*ConfirmationRenderer, error) {
	tmpl, err := template.New("orderConfirmation").Parse(orderConfirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("mail: parse confirmation template: %w", err)
	}
	return &ConfirmationRenderer{storeName: storeName, tmpl: tmpl}, nil
}

type confirmationData struct {
	StoreName     string
	RecipientName string
	OrderID       string
	Items         []confirmationItem
	Total         string
	Address       order.ShippingAddress
}

type confirmationItem struct {
	Name     string
	Quantity int
	Subtotal string
}

func (r *ConfirmationRenderer) RenderOrderConfirmation(o *order.Order, recipientName string) (string, string, error) {
	data := confirmationData{
		StoreName:     r.storeName,
		RecipientName: recipientName,
		OrderID:       o.ID,
		Total:         o.TotalPrice.StringFixed(2),
		Address:       o.ShippingAddress,
	}
	for _, item := range o.Items {
		data.Items = append(data.Items, confirmationItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Subtotal: item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).StringFixed(2),
		})
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("mail: render confirmation: %w", err)
	}

	subject := fmt.Sprintf("Your %s order is confirmed", r.storeName)
	return subject, buf.String(), nil
}

const orderConfirmationTemplate = `Hi {{.RecipientName}},

Thanks for shopping with {{.StoreName}}! Your order {{.OrderID}} is confirmed.

Items:
{{range .Items}}  - {{.Name}} x{{.Quantity}} ... ${{.Subtotal}}
{{end}}
Order total: ${{.Total}}

Shipping to:
  {{.Address.FullName}}
  {{.Address.StreetAddress}}
  {{.Address.City}}, {{.Address.State}} {{.Address.ZipCode}}
  Phone: {{.Address.PhoneNumber}}

We'll email you again when your order ships.

- The {{.StoreName}} team
`
