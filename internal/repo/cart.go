package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
)

func preloadCart(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.id ASC")
	}).Preload("Items.ProductVariant").Preload("Items.ProductVariant.Product")
}

func (r *GormRepo) GetCart(ctx context.Context, cartID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadCart(r.DB.WithContext(ctx)).Where("id = ?", cartID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCartByUser(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	if err := preloadCart(r.DB.WithContext(ctx)).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

// AddToCart creates the user's cart on first use and merges the quantity into
// an existing line for the same variant.
func (r *GormRepo) AddToCart(ctx context.Context, userID, variantID uint, quantity int) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart := models.Cart{UserID: userID}
		if err := tx.Where("user_id = ?", userID).FirstOrCreate(&cart).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_variant_id = ?", cart.ID, variantID).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("cart_id = ? AND product_variant_id = ?", cart.ID, variantID).First(&item).Error
		}

		item = models.CartItem{
			CartID:           cart.ID,
			ProductVariantID: variantID,
			Quantity:         quantity,
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func ownedItem(tx *gorm.DB, userID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := tx.Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) UpdateCartItemQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	var item *models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		item, err = ownedItem(tx, userID, itemID)
		if err != nil {
			return err
		}
		item.Quantity = quantity
		return tx.Model(&models.CartItem{}).Where("id = ?", item.ID).Update("quantity", quantity).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *GormRepo) RemoveCartItem(ctx context.Context, userID, itemID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := ownedItem(tx, userID, itemID)
		if err != nil {
			return err
		}
		return tx.Delete(&models.CartItem{}, item.ID).Error
	})
}
