package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

var ErrOrphanedCartItem = errors.New("cart item references a missing product variant")

type ConvertOutcome int

const (
	OutcomeCommitted ConvertOutcome = iota + 1
	OutcomeAlreadyReconciled
	OutcomeCartConsumed
)

func (o ConvertOutcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeAlreadyReconciled:
		return "already_reconciled"
	case OutcomeCartConsumed:
		return "cart_consumed"
	}
	return "unknown"
}

type ConvertCartParams struct {
	UserID          uint
	CartID          uint
	SessionID       string
	PaymentIntentID string
	OrderedAt       time.Time
}

// StockShortfall records a variant whose stock was clamped at zero.
type StockShortfall struct {
	VariantID uint
	Requested int
	Available int
}

type ConvertCartResult struct {
	Outcome    ConvertOutcome
	Order      *models.Order
	Shortfalls []StockShortfall
}

// ConvertCart turns a paid cart into an order in one transaction: lock the cart,
// skip if the session already has an order, lock the variants, insert the order
// and its frozen items, decrement stock clamped at zero and empty the cart.
func (r *GormRepo) ConvertCart(ctx context.Context, p ConvertCartParams) (*ConvertCartResult, error) {
	res := &ConvertCartResult{}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", p.CartID, p.UserID).
			First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			res.Outcome = OutcomeCartConsumed
			return nil
		}
		if err != nil {
			return err
		}

		var items []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			res.Outcome = OutcomeCartConsumed
			return nil
		}

		var existing int64
		if err := tx.Model(&models.Order{}).
			Where("stripe_checkout_session_id = ?", p.SessionID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			res.Outcome = OutcomeAlreadyReconciled
			return nil
		}

		variantIDs := make([]uint, 0, len(items))
		for _, it := range items {
			variantIDs = append(variantIDs, it.ProductVariantID)
		}

		var variants []models.ProductVariant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Product").
			Where("id IN ?", variantIDs).
			Order("id ASC").
			Find(&variants).Error; err != nil {
			return err
		}
		byID := make(map[uint]*models.ProductVariant, len(variants))
		for i := range variants {
			byID[variants[i].ID] = &variants[i]
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			v, ok := byID[it.ProductVariantID]
			if !ok || v.Product == nil {
				return fmt.Errorf("%w: cart item %d, variant %d", ErrOrphanedCartItem, it.ID, it.ProductVariantID)
			}
			price := v.EffectivePrice()
			total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			orderItems = append(orderItems, models.OrderItem{
				ProductVariantID:   v.ID,
				ProductNameAtOrder: v.Product.Name,
				VariantNameAtOrder: v.Name,
				Quantity:           it.Quantity,
				PriceAtOrder:       price,
			})
		}

		order := models.Order{
			UserID:                  p.UserID,
			TotalCost:               total,
			Status:                  models.OrderStatusCompleted,
			OrderedAt:               p.OrderedAt,
			StripeCheckoutSessionID: p.SessionID,
			StripePaymentIntentID:   p.PaymentIntentID,
		}
		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stripe_checkout_session_id"}},
			DoNothing: true,
		}).Omit(clause.Associations).Create(&order)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			// a concurrent delivery committed first
			res.Outcome = OutcomeAlreadyReconciled
			return nil
		}

		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return err
		}

		for _, it := range items {
			v := byID[it.ProductVariantID]
			remaining := v.StockQuantity - it.Quantity
			if remaining < 0 {
				res.Shortfalls = append(res.Shortfalls, StockShortfall{
					VariantID: v.ID,
					Requested: it.Quantity,
					Available: v.StockQuantity,
				})
				remaining = 0
			}
			if err := tx.Model(&models.ProductVariant{}).
				Where("id = ?", v.ID).
				Update("stock_quantity", remaining).Error; err != nil {
				return err
			}
			v.StockQuantity = remaining
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}

		order.Items = orderItems
		res.Order = &order
		res.Outcome = OutcomeCommitted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *GormRepo) FindOrderBySession(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("stripe_checkout_session_id = ?", sessionID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormRepo) ListOrders(ctx context.Context, userID uint, limit, offset int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var orders []models.Order
	if err := r.DB.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("ordered_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// UpdateOrderStatus locks the order and lets apply decide whether the change is allowed.
func (r *GormRepo) UpdateOrderStatus(ctx context.Context, id uint, apply func(o *models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&order).Error; err != nil {
			return err
		}
		if err := apply(&order); err != nil {
			return err
		}
		return tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", order.Status).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
