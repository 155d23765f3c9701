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

type OrderService struct {
	Repo      *repo.GormRepo
	Publisher events.Publisher
}

func (s *OrderService) ListOrders(ctx context.Context, p Principal, limit, offset int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, p.UserID, limit, offset)
}

// GetOrder returns the order if the caller owns it or is an admin. Other
// users' orders are reported as missing.
func (s *OrderService) GetOrder(ctx context.Context, p Principal, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != p.UserID && !p.IsAdmin() {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return order, nil
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uint, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown order status %q: %w", next, ErrValidation)
	}

	var prev models.OrderStatus
	order, err := s.Repo.UpdateOrderStatus(ctx, id, func(o *models.Order) error {
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("order %d cannot move from %s to %s: %w", o.ID, o.Status, next, ErrConflict)
		}
		prev = o.Status
		o.Status = next
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		ev := events.OrderStatusChanged{
			Type:    events.TypeOrderStatusChanged,
			OrderID: order.ID,
			UserID:  order.UserID,
			From:    string(prev),
			To:      string(order.Status),
		}
		if err := s.Publisher.PublishEvent(ctx, events.TopicOrders, events.Key(order.ID), ev); err != nil {
			logging.FromContext(ctx).Warn("publish_error", "topic", events.TopicOrders, "type", ev.Type, "error", err)
		}
	}
	return order, nil
}
