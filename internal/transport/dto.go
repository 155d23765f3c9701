package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type RegisterRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	IsAdmin     bool      `json:"is_admin"`
}

type SetRoleRequest struct {
	Role string `json:"role"`
}

type AddCartItemRequest struct {
	ProductVariantID uint `json:"product_variant_id"`
	Quantity         int  `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	ID        uint              `json:"id"`
	UserID    uint              `json:"user_id"`
	Items     []models.CartItem `json:"items"`
	TotalCost decimal.Decimal   `json:"total_cost"`
}

func NewCartResponse(cart *models.Cart) CartResponse {
	items := cart.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return CartResponse{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Items:     items,
		TotalCost: models.CartTotal(items),
	}
}

type CreateVariantRequest struct {
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	StockQuantity   int              `json:"stock_quantity"`
	PhotoURLs       []string         `json:"photo_urls"`
}

type CreateProductRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags"`
	Variants    []CreateVariantRequest `json:"variants"`
}

// UpdateVariantRequest with a nil ID adds a variant. Nil PhotoURLs keeps the
// stored photos.
type UpdateVariantRequest struct {
	ID              *uint            `json:"id"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	StockQuantity   int              `json:"stock_quantity"`
	PhotoURLs       []string         `json:"photo_urls"`
}

// UpdateProductRequest replaces the product. Stored variants missing from
// Variants are deleted.
type UpdateProductRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Tags        []string               `json:"tags"`
	Variants    []UpdateVariantRequest `json:"variants"`
}

// PatchVariantRequest leaves nil fields untouched. ClearDiscount removes the
// discounted price.
type PatchVariantRequest struct {
	Name            *string          `json:"name"`
	Price           *decimal.Decimal `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	ClearDiscount   bool             `json:"clear_discount"`
	StockQuantity   *int             `json:"stock_quantity"`
	PhotoURLs       []string         `json:"photo_urls"`
}

type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type ListMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type OrderListResponse struct {
	Data []models.Order `json:"data"`
	Meta ListMeta       `json:"meta"`
}
