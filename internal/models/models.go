package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	Email          string    `gorm:"uniqueIndex;not null"      json:"email"`
	FirstName      string    `gorm:"not null"                  json:"first_name"`
	LastName       string    `gorm:"not null"                  json:"last_name"`
	PasswordHash   string    `gorm:"not null"                  json:"-"`
	Role           string    `gorm:"not null;default:customer" json:"role"`
	AdminRequested bool      `gorm:"not null;default:false"    json:"admin_requested"`
	CreatedAt      time.Time `                                 json:"created_at"`
}

type Product struct {
	ID          uint             `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name        string           `gorm:"not null"                        json:"name"`
	Description string           `                                       json:"description"`
	Tags        []string         `gorm:"serializer:json;type:text"       json:"tags"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID"            json:"variants,omitempty"`
	CreatedAt   time.Time        `                                       json:"created_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index"                           json:"-"`
}

// ProductVariant rows are soft deleted so cart items keep a valid reference;
// default queries treat a deleted variant as missing.
type ProductVariant struct {
	ID              uint                `gorm:"primaryKey;autoIncrement"   json:"id"`
	ProductID       uint                `gorm:"index;not null"             json:"product_id"`
	Product         *Product            `gorm:"foreignKey:ProductID"       json:"product,omitempty"`
	Name            string              `gorm:"not null"                   json:"name"`
	Price           decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"price"`
	DiscountedPrice decimal.NullDecimal `gorm:"type:numeric(12,2)"         json:"discounted_price"`
	StockQuantity   int                 `gorm:"not null;default:0"         json:"stock_quantity"`
	PhotoURLs       []string            `gorm:"serializer:json;type:text"  json:"photo_urls"`
	CreatedAt       time.Time           `                                  json:"created_at"`
	DeletedAt       gorm.DeletedAt      `gorm:"index"                      json:"-"`
}

// EffectivePrice is the price a customer pays for one unit right now.
func (v *ProductVariant) EffectivePrice() decimal.Decimal {
	if v.DiscountedPrice.Valid {
		return v.DiscountedPrice.Decimal
	}
	return v.Price
}

type Cart struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null"     json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID"        json:"items"`
	CreatedAt time.Time  `                                json:"created_at"`
}

type CartItem struct {
	ID               uint            `gorm:"primaryKey;autoIncrement"               json:"id"`
	CartID           uint            `gorm:"uniqueIndex:idx_cart_variant;not null"  json:"cart_id"`
	ProductVariantID uint            `gorm:"uniqueIndex:idx_cart_variant;not null"  json:"product_variant_id"`
	ProductVariant   *ProductVariant `gorm:"foreignKey:ProductVariantID"            json:"product_variant,omitempty"`
	Quantity         int             `gorm:"not null;default:1;check:quantity>0"    json:"quantity"`
}

// CartTotal sums quantity times effective price over items whose variant is loaded.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		if it.ProductVariant == nil {
			continue
		}
		total = total.Add(it.ProductVariant.EffectivePrice().Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusCompleted OrderStatus = "Completed"
	OrderStatusCancelled OrderStatus = "Cancelled"
	OrderStatusRefunded  OrderStatus = "Refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {OrderStatusRefunded, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID                      uint            `gorm:"primaryKey;autoIncrement"         json:"id"`
	UserID                  uint            `gorm:"index;not null"                   json:"user_id"`
	TotalCost               decimal.Decimal `gorm:"type:numeric(12,2);not null"      json:"total_cost"`
	Status                  OrderStatus     `gorm:"type:varchar(16);not null"        json:"status"`
	OrderedAt               time.Time       `gorm:"index;not null"                   json:"ordered_at"`
	StripeCheckoutSessionID string          `gorm:"size:255;uniqueIndex;not null"    json:"stripe_checkout_session_id"`
	StripePaymentIntentID   string          `gorm:"size:255"                         json:"stripe_payment_intent_id"`
	Items                   []OrderItem     `gorm:"foreignKey:OrderID"               json:"items"`
}

// OrderItem is a frozen copy of what was bought. ProductVariantID is kept for
// reporting only and carries no foreign key.
type OrderItem struct {
	ID                 uint            `gorm:"primaryKey;autoIncrement"    json:"id"`
	OrderID            uint            `gorm:"index;not null"              json:"order_id"`
	ProductVariantID   uint            `gorm:"not null"                    json:"product_variant_id"`
	ProductNameAtOrder string          `gorm:"not null"                    json:"product_name_at_order"`
	VariantNameAtOrder string          `gorm:"not null"                    json:"variant_name_at_order"`
	Quantity           int             `gorm:"not null"                    json:"quantity"`
	PriceAtOrder       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_order"`
}

type WebhookStatus string

const (
	WebhookProcessed   WebhookStatus = "processed"
	WebhookIgnored     WebhookStatus = "ignored"
	WebhookQuarantined WebhookStatus = "quarantined"
	WebhookResolved    WebhookStatus = "resolved"
)

// WebhookEvent is the ledger row for every verified provider callback.
type WebhookEvent struct {
	ID        uint          `gorm:"primaryKey;autoIncrement"    json:"id"`
	EventID   string        `gorm:"size:255;uniqueIndex;not null" json:"event_id"`
	EventType string        `gorm:"size:128;not null"           json:"event_type"`
	SessionID string        `gorm:"size:255;index"              json:"session_id"`
	Status    WebhookStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Reason    string        `                                   json:"reason"`
	Payload   string        `gorm:"type:text"                   json:"payload,omitempty"`
	CreatedAt time.Time     `                                   json:"created_at"`
	UpdatedAt time.Time     `                                   json:"updated_at"`
}
