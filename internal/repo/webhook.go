package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// RecordWebhookEvent upserts the ledger row keyed by the provider event id.
// Once a row is processed its reason is kept, so redeliveries do not hide the
// outcome of the first delivery.
func (r *GormRepo) RecordWebhookEvent(ctx context.Context, ev *models.WebhookEvent) error {
	keepReason := gorm.Expr(
		"CASE WHEN webhook_events.status = ? THEN webhook_events.reason ELSE excluded.reason END",
		models.WebhookProcessed,
	)
	updates := clause.AssignmentColumns([]string{"status", "session_id", "updated_at"})
	updates = append(updates, clause.Assignment{Column: clause.Column{Name: "reason"}, Value: keepReason})
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: updates,
	}).Create(ev).Error
}

func (r *GormRepo) FindWebhookEvent(ctx context.Context, eventID string) (*models.WebhookEvent, error) {
	var ev models.WebhookEvent
	if err := r.DB.WithContext(ctx).Where("event_id = ?", eventID).First(&ev).Error; err != nil {
		return nil, err
	}
	return &ev, nil
}

func (r *GormRepo) ListWebhookEvents(ctx context.Context, status models.WebhookStatus, limit int) ([]models.WebhookEvent, error) {
	q := r.DB.WithContext(ctx).Model(&models.WebhookEvent{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var events []models.WebhookEvent
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *GormRepo) MarkWebhookEvent(ctx context.Context, eventID string, status models.WebhookStatus, reason string) error {
	return r.DB.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			"status":     status,
			"reason":     reason,
			"updated_at": time.Now().UTC(),
		}).Error
}
