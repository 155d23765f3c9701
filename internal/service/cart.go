package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type CartService struct {
	Repo      *repo.GormRepo
	Publisher events.Publisher
}

// GetCart returns the caller's cart. A user who never added anything gets an
// empty cart that is not persisted.
func (s *CartService) GetCart(ctx context.Context, p Principal) (*models.Cart, error) {
	cart, err := s.Repo.GetCartByUser(ctx, p.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{UserID: p.UserID, Items: []models.CartItem{}}, nil
	}
	return cart, err
}

func (s *CartService) AddItem(ctx context.Context, p Principal, variantID uint, quantity int) (*models.CartItem, error) {
	if variantID == 0 {
		return nil, fmt.Errorf("product_variant_id is required: %w", ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	if _, err := s.Repo.GetVariant(ctx, variantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("variant %d: %w", variantID, ErrNotFound)
		}
		return nil, err
	}

	item, err := s.Repo.AddToCart(ctx, p.UserID, variantID, quantity)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CartItemChanged{
		Type:             events.TypeCartItemAdded,
		UserID:           p.UserID,
		CartItemID:       item.ID,
		ProductVariantID: variantID,
		Quantity:         item.Quantity,
	})
	return item, nil
}

func (s *CartService) UpdateItem(ctx context.Context, p Principal, itemID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1: %w", ErrValidation)
	}

	item, err := s.Repo.UpdateCartItemQuantity(ctx, p.UserID, itemID, quantity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CartItemChanged{
		Type:             events.TypeCartItemUpdated,
		UserID:           p.UserID,
		CartItemID:       item.ID,
		ProductVariantID: item.ProductVariantID,
		Quantity:         item.Quantity,
	})
	return item, nil
}

func (s *CartService) RemoveItem(ctx context.Context, p Principal, itemID uint) error {
	err := s.Repo.RemoveCartItem(ctx, p.UserID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, events.CartItemChanged{
		Type:       events.TypeCartItemRemoved,
		UserID:     p.UserID,
		CartItemID: itemID,
	})
	return nil
}

func (s *CartService) publish(ctx context.Context, ev events.CartItemChanged) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.PublishEvent(ctx, events.TopicCart, events.Key(ev.UserID), ev); err != nil {
		logging.FromContext(ctx).Warn("publish_error", "topic", events.TopicCart, "type", ev.Type, "error", err)
	}
}
