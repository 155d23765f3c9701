package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"
)

type StripeProvider struct {
	client session.Client
}

func NewStripeProvider(secretKey string, timeout time.Duration) *StripeProvider {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(1),
	})
	return &StripeProvider{client: session.Client{B: backend, Key: secretKey}}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.ClientReferenceID),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
	}
	params.Context = ctx

	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(li.Currency),
				UnitAmount: stripe.Int64(li.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:   stripe.String(li.Name),
					Images: stripe.StringSlice(li.Images),
				},
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.client.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return nil, fmt.Errorf("stripe: %s (status %d): %w", se.Msg, se.HTTPStatusCode, err)
		}
		return nil, fmt.Errorf("stripe: create session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Verify(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return toEvent(ev, payload)
}

// ParseEvent decodes an event body that was verified earlier, such as a
// ledger payload replayed by an operator.
func ParseEvent(raw []byte) (*Event, error) {
	var ev stripe.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("stripe: decode event: %w", err)
	}
	return toEvent(ev, raw)
}

func toEvent(ev stripe.Event, raw []byte) (*Event, error) {
	out := &Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: ev.Created,
		Raw:     raw,
	}
	if out.Type != EventCheckoutSessionCompleted || ev.Data == nil {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	out.Session = &CompletedSession{
		ID:            cs.ID,
		PaymentStatus: string(cs.PaymentStatus),
		Metadata:      cs.Metadata,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
	}
	if cs.PaymentIntent != nil {
		out.Session.PaymentIntentID = cs.PaymentIntent.ID
	}
	return out, nil
}
