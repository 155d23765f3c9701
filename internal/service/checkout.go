package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	MetadataUserID = "userId"
	MetadataCartID = "cartId"
)

type CheckoutService struct {
	Repo                *repo.GormRepo
	Provider            payment.Provider
	Currency            string
	PlaceholderImageURL string
}

type CheckoutResult struct {
	URL       string
	SessionID string
}

// CreateSession opens a hosted payment session for the caller's cart. It only
// reads from the database.
func (s *CheckoutService) CreateSession(ctx context.Context, p Principal, cartID uint, baseURL string) (*CheckoutResult, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.create_session", "cart_id", cartID, "user_id", p.UserID)

	cart, err := s.Repo.GetCart(ctx, cartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if cart.UserID != p.UserID {
		return nil, fmt.Errorf("cart %d belongs to another user: %w", cartID, ErrForbidden)
	}
	if len(cart.Items) == 0 {
		return nil, fmt.Errorf("cart %d is empty: %w", cartID, ErrValidation)
	}

	base := strings.TrimRight(baseURL, "/")
	items, err := BuildLineItems(cart.Items, base, s.currency(), s.PlaceholderImageURL)
	if err != nil {
		l.Error("checkout_error", "status", 500, "reason", "cart references missing catalog data", "error", err)
		return nil, err
	}

	req := payment.SessionRequest{
		LineItems: items,
		Metadata: map[string]string{
			MetadataUserID: strconv.FormatUint(uint64(p.UserID), 10),
			MetadataCartID: strconv.FormatUint(uint64(cart.ID), 10),
		},
		ClientReferenceID: strconv.FormatUint(uint64(p.UserID), 10),
		SuccessURL:        base + "/payment/success",
		CancelURL:         base + "/payment/cancel",
	}

	sess, err := s.Provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		l.Error("checkout_error", "status", 500, "reason", "payment provider failed", "error", err)
		return nil, fmt.Errorf("create checkout session: %v: %w", err, ErrUpstream)
	}

	l.Info("checkout_session_created", "session_id", sess.ID, "line_items", len(items))
	return &CheckoutResult{URL: sess.URL, SessionID: sess.ID}, nil
}

func (s *CheckoutService) currency() string {
	if s.Currency == "" {
		return "aud"
	}
	return strings.ToLower(s.Currency)
}

// BuildLineItems maps cart items to provider line items priced in minor units.
func BuildLineItems(items []models.CartItem, baseURL, currency, placeholder string) ([]payment.LineItem, error) {
	out := make([]payment.LineItem, 0, len(items))
	for _, it := range items {
		v := it.ProductVariant
		if v == nil || v.Product == nil {
			return nil, fmt.Errorf("cart item %d has no variant or product: %w", it.ID, ErrDataIntegrity)
		}

		images := make([]string, 0, len(v.PhotoURLs))
		for _, u := range v.PhotoURLs {
			if u = strings.TrimSpace(u); u != "" {
				images = append(images, absoluteURL(baseURL, u))
			}
		}
		if len(images) == 0 && placeholder != "" {
			images = append(images, placeholder)
		}

		out = append(out, payment.LineItem{
			Name:       v.Product.Name + " - " + v.Name,
			Images:     images,
			UnitAmount: payment.ToMinorUnits(v.EffectivePrice()),
			Quantity:   int64(it.Quantity),
			Currency:   currency,
		})
	}
	return out, nil
}

func absoluteURL(base, raw string) string {
	if u, err := url.Parse(raw); err == nil && u.IsAbs() {
		return raw
	}
	return base + "/" + strings.TrimLeft(raw, "/")
}
