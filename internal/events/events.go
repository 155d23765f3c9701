package events

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeOrderCreated       = "order_created"
	TypeOrderStatusChanged = "order_status_changed"
	TypeCartItemAdded      = "cart_item_added"
	TypeCartItemUpdated    = "cart_item_updated"
	TypeCartItemRemoved    = "cart_item_removed"
)

type OrderCreated struct {
	Type      string          `json:"type"`
	OrderID   uint            `json:"order_id"`
	UserID    uint            `json:"user_id"`
	SessionID string          `json:"session_id"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Items     int             `json:"items"`
	OrderedAt time.Time       `json:"ordered_at"`
}

func (e OrderCreated) EventType() string { return e.Type }

type OrderStatusChanged struct {
	Type    string `json:"type"`
	OrderID uint   `json:"order_id"`
	UserID  uint   `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

func (e OrderStatusChanged) EventType() string { return e.Type }

type CartItemChanged struct {
	Type             string `json:"type"`
	UserID           uint   `json:"user_id"`
	CartItemID       uint   `json:"cart_item_id"`
	ProductVariantID uint   `json:"product_variant_id,omitempty"`
	Quantity         int    `json:"quantity,omitempty"`
}

func (e CartItemChanged) EventType() string { return e.Type }

// Key partitions events by the owning entity.
func Key(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
