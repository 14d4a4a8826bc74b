package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/shopkart-labs/shopkart-api/internal/domain/catalog"
	"github.com/shopkart-labs/shopkart-api/internal/domain/order"
	"github.com/shopkart-labs/shopkart-api/internal/domain/user"
)

type Product struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	Name      string          `gorm:"not null;type:varchar(200)"`
	Price     decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Stock     int             `gorm:"not null"`
	Image     string          `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID                string `gorm:"primaryKey;type:varchar(64)"`
	Email             string `gorm:"uniqueIndex;not null;type:varchar(255)"`
	Name              string `gorm:"not null;type:varchar(100)"`
	GatewayCustomerID string `gorm:"type:varchar(64);index"`
	Admin             bool   `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Order carries the at-most-one-order invariant in the schema: the unique
// index on PaymentIntentID makes the second concurrent insert for the same
// intent fail, which the repository maps to order.ErrConflict. The column is
// nullable because direct orders have no gateway intent, and NULLs do not
// collide under a unique index.
type Order struct {
	ID     string      `gorm:"primaryKey;type:varchar(64)"`
	UserID string      `gorm:"not null;index;type:varchar(64)"`
	Items  []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	ShipFullName      string `gorm:"type:varchar(100)"`
	ShipStreetAddress string `gorm:"type:varchar(255)"`
	ShipCity          string `gorm:"type:varchar(100)"`
	ShipState         string `gorm:"type:varchar(100)"`
	ShipZipCode       string `gorm:"type:varchar(20)"`
	ShipPhoneNumber   string `gorm:"type:varchar(30)"`

	PaymentIntentID *string `gorm:"uniqueIndex;type:varchar(64)"`
	PaymentStatus   string  `gorm:"not null;type:varchar(20)"`
	ReceiptURL      string  `gorm:"type:text"`
	ReceiptNumber   string  `gorm:"type:varchar(64)"`

	TotalPrice decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Status     string          `gorm:"not null;type:varchar(20)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	OrderID   string          `gorm:"primaryKey;type:varchar(64)"`
	ProductID string          `gorm:"primaryKey;type:varchar(64)"`
	Name      string          `gorm:"not null;type:varchar(200)"`
	UnitPrice decimal.Decimal `gorm:"not null;type:decimal(10,2)"`
	Quantity  int             `gorm:"not null"`
	Image     string          `gorm:"type:text"`
}

func toDomainProduct(p *Product) *catalog.Product {
	return &catalog.Product{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toDomainUser(u *User) *user.User {
	return &user.User{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		GatewayCustomerID: u.GatewayCustomerID,
		Admin:             u.Admin,
	}
}

func toRecordOrder(o *order.Order) *Order {
	record := &Order{
		ID:                o.ID,
		UserID:            o.UserID,
		ShipFullName:      o.ShippingAddress.FullName,
		ShipStreetAddress: o.ShippingAddress.StreetAddress,
		ShipCity:          o.ShippingAddress.City,
		ShipState:         o.ShippingAddress.State,
		ShipZipCode:       o.ShippingAddress.ZipCode,
		ShipPhoneNumber:   o.ShippingAddress.PhoneNumber,
		PaymentIntentID:   nullableString(o.PaymentResult.IntentID),
		PaymentStatus:     o.PaymentResult.Status,
		ReceiptURL:        o.PaymentResult.ReceiptURL,
		ReceiptNumber:     o.PaymentResult.ReceiptNumber,
		TotalPrice:        o.TotalPrice,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for _, item := range o.Items {
		record.Items = append(record.Items, OrderItem{
			OrderID:   o.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return record
}

func toDomainOrder(record *Order) *order.Order {
	o := &order.Order{
		ID:     record.ID,
		UserID: record.UserID,
		ShippingAddress: order.ShippingAddress{
			FullName:      record.ShipFullName,
			StreetAddress: record.ShipStreetAddress,
			City:          record.ShipCity,
			State:         record.ShipState,
			ZipCode:       record.ShipZipCode,
			PhoneNumber:   record.ShipPhoneNumber,
		},
		PaymentResult: order.PaymentResult{
			IntentID:      stringValue(record.PaymentIntentID),
			Status:        record.PaymentStatus,
			ReceiptURL:    record.ReceiptURL,
			ReceiptNumber: record.ReceiptNumber,
		},
		TotalPrice: record.TotalPrice,
		Status:     order.Status(record.Status),
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	for _, item := range record.Items {
		o.Items = append(o.Items, order.Item{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	return o
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
