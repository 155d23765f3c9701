package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type WebhookOutcome string

const (
	OutcomeIgnored           WebhookOutcome = "ignored"
	OutcomeUnpaid            WebhookOutcome = "unpaid"
	OutcomeCommitted         WebhookOutcome = "committed"
	OutcomeAlreadyReconciled WebhookOutcome = "already_reconciled"
	OutcomeCartConsumed      WebhookOutcome = "cart_consumed"
	OutcomeResolvedEarlier   WebhookOutcome = "resolved_earlier"
)

type ReconcileService struct {
	Repo      *repo.GormRepo
	Publisher events.Publisher
	Now       func() time.Time
}

// HandleWebhook applies a verified provider event. Every outcome except a
// failure is safe to acknowledge; a returned error means the provider should
// retry, unless it wraps ErrMissingMetadata.
func (s *ReconcileService) HandleWebhook(ctx context.Context, ev *payment.Event) (WebhookOutcome, error) {
	l := logging.FromContext(ctx).With("svc", "reconcile.webhook", "event_id", ev.ID, "event_type", ev.Type)

	if ev.Type != payment.EventCheckoutSessionCompleted || ev.Session == nil {
		s.record(ctx, ev, models.WebhookIgnored, "unhandled event type")
		l.Info("webhook_ignored", "reason", "unhandled event type")
		return OutcomeIgnored, nil
	}

	sess := ev.Session
	l = l.With("session_id", sess.ID)

	if sess.PaymentStatus != payment.PaymentStatusPaid {
		s.record(ctx, ev, models.WebhookIgnored, "payment_status="+sess.PaymentStatus)
		l.Info("webhook_ignored", "reason", "session not paid", "payment_status", sess.PaymentStatus)
		return OutcomeUnpaid, nil
	}

	userID, cartID, err := ParseCorrelation(sess.Metadata)
	if err != nil {
		if prev, ferr := s.Repo.FindWebhookEvent(ctx, ev.ID); ferr == nil && prev.Status == models.WebhookResolved {
			l.Info("webhook_resolved_earlier")
			return OutcomeResolvedEarlier, nil
		}
		s.record(ctx, ev, models.WebhookQuarantined, err.Error())
		l.Error("webhook_quarantined", "status", 400, "reason", "missing correlation metadata", "error", err)
		return "", err
	}

	outcome, err := s.Reconcile(ctx, sess, userID, cartID)
	if err != nil {
		return "", err
	}

	s.record(ctx, ev, models.WebhookProcessed, string(outcome))
	return outcome, nil
}

// Reconcile converts the cart named by the session into an order exactly once.
func (s *ReconcileService) Reconcile(ctx context.Context, sess *payment.CompletedSession, userID, cartID uint) (WebhookOutcome, error) {
	l := logging.FromContext(ctx).With("svc", "reconcile.order", "session_id", sess.ID, "user_id", userID, "cart_id", cartID)

	res, err := s.Repo.ConvertCart(ctx, repo.ConvertCartParams{
		UserID:          userID,
		CartID:          cartID,
		SessionID:       sess.ID,
		PaymentIntentID: sess.PaymentIntentID,
		OrderedAt:       s.now(),
	})
	if err != nil {
		if errors.Is(err, repo.ErrOrphanedCartItem) {
			l.Error("reconcile_error", "status", 500, "reason", "cart references missing catalog data", "error", err)
			return "", fmt.Errorf("%v: %w", err, ErrDataIntegrity)
		}
		l.Error("reconcile_error", "status", 500, "reason", "transaction failed", "error", err)
		return "", err
	}

	switch res.Outcome {
	case repo.OutcomeCartConsumed:
		l.Info("reconcile_skipped", "reason", "cart missing or empty")
		return OutcomeCartConsumed, nil
	case repo.OutcomeAlreadyReconciled:
		l.Info("reconcile_skipped", "reason", "order already exists for session")
		return OutcomeAlreadyReconciled, nil
	}

	order := res.Order
	for _, sf := range res.Shortfalls {
		l.Warn("stock_clamped", "variant_id", sf.VariantID, "requested", sf.Requested, "available", sf.Available)
	}
	if sess.AmountTotal > 0 && payment.ToMinorUnits(order.TotalCost) != sess.AmountTotal {
		l.Warn("amount_mismatch", "order_total", order.TotalCost.String(), "charged_minor", sess.AmountTotal, "currency", sess.Currency)
	}

	if s.Publisher != nil {
		ev := events.OrderCreated{
			Type:      events.TypeOrderCreated,
			OrderID:   order.ID,
			UserID:    order.UserID,
			SessionID: order.StripeCheckoutSessionID,
			TotalCost: order.TotalCost,
			Items:     len(order.Items),
			OrderedAt: order.OrderedAt,
		}
		if err := s.Publisher.PublishEvent(ctx, events.TopicOrders, events.Key(order.ID), ev); err != nil {
			l.Warn("publish_error", "topic", events.TopicOrders, "error", err)
		}
	}

	l.Info("order_created", "order_id", order.ID, "total_cost", order.TotalCost.String(), "items", len(order.Items))
	return OutcomeCommitted, nil
}

// Resolve replays a quarantined event with correlation ids supplied by an operator.
func (s *ReconcileService) Resolve(ctx context.Context, eventID string, userID, cartID uint) (WebhookOutcome, error) {
	if userID == 0 || cartID == 0 {
		return "", fmt.Errorf("user and cart ids are required: %w", ErrValidation)
	}

	rec, err := s.Repo.FindWebhookEvent(ctx, eventID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("webhook event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if rec.Status != models.WebhookQuarantined {
		return "", fmt.Errorf("webhook event %s is %s: %w", eventID, rec.Status, ErrConflict)
	}

	ev, err := payment.ParseEvent([]byte(rec.Payload))
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, ErrDataIntegrity)
	}
	if ev.Session == nil {
		return "", fmt.Errorf("webhook event %s carries no checkout session: %w", eventID, ErrValidation)
	}

	outcome, err := s.Reconcile(ctx, ev.Session, userID, cartID)
	if err != nil {
		return "", err
	}
	// the event stays quarantined until it is linked to an order
	if outcome == OutcomeCartConsumed {
		return "", fmt.Errorf("cart %d for user %d is missing or empty: %w", cartID, userID, ErrValidation)
	}

	reason := fmt.Sprintf("resolved with user=%d cart=%d: %s", userID, cartID, outcome)
	if err := s.Repo.MarkWebhookEvent(ctx, eventID, models.WebhookResolved, reason); err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *ReconcileService) ListEvents(ctx context.Context, status models.WebhookStatus, limit int) ([]models.WebhookEvent, error) {
	switch status {
	case "", models.WebhookProcessed, models.WebhookIgnored, models.WebhookQuarantined, models.WebhookResolved:
	default:
		return nil, fmt.Errorf("unknown webhook status %q: %w", status, ErrValidation)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.Repo.ListWebhookEvents(ctx, status, limit)
}

// ParseCorrelation reads the user and cart ids stamped on the session at checkout.
func ParseCorrelation(metadata map[string]string) (userID, cartID uint, err error) {
	userID, err = positiveID(metadata, MetadataUserID)
	if err != nil {
		return 0, 0, err
	}
	cartID, err = positiveID(metadata, MetadataCartID)
	if err != nil {
		return 0, 0, err
	}
	return userID, cartID, nil
}

func positiveID(metadata map[string]string, key string) (uint, error) {
	raw, ok := metadata[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, fmt.Errorf("metadata %s is missing: %w", key, ErrMissingMetadata)
	}
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 0)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("metadata %s=%q is not a positive integer: %w", key, raw, ErrMissingMetadata)
	}
	return uint(n), nil
}

func (s *ReconcileService) record(ctx context.Context, ev *payment.Event, status models.WebhookStatus, reason string) {
	if ev.ID == "" {
		return
	}
	rec := &models.WebhookEvent{
		EventID:   ev.ID,
		EventType: ev.Type,
		Status:    status,
		Reason:    reason,
		Payload:   string(ev.Raw),
	}
	if ev.Session != nil {
		rec.SessionID = ev.Session.ID
	}
	if err := s.Repo.RecordWebhookEvent(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("webhook_ledger_error", "event_id", ev.ID, "status", status, "error", err)
	}
}

func (s *ReconcileService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
