package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Skotchmaster/storefront/internal/payment"
)

const WebhookSecret = "whsec_test_secret"

type SessionPayload struct {
	EventID       string
	EventType     string
	SessionID     string
	PaymentIntent string
	PaymentStatus string
	Metadata      map[string]string
	AmountTotal   int64
}

// EventJSON renders a provider event body in the wire format.
func EventJSON(t *testing.T, p SessionPayload) []byte {
	t.Helper()
	if p.EventType == "" {
		p.EventType = payment.EventCheckoutSessionCompleted
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = payment.PaymentStatusPaid
	}
	body := map[string]any{
		"id":          p.EventID,
		"object":      "event",
		"type":        p.EventType,
		"created":     time.Now().Unix(),
		"api_version": "2023-10-16",
		"data": map[string]any{
			"object": map[string]any{
				"id":             p.SessionID,
				"object":         "checkout.session",
				"payment_intent": p.PaymentIntent,
				"payment_status": p.PaymentStatus,
				"metadata":       p.Metadata,
				"amount_total":   p.AmountTotal,
				"currency":       "aud",
			},
		},
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}

// Sign returns a valid signature header for payload.
func Sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

// FakeProvider records session requests and answers with a fixed session.
type FakeProvider struct {
	mu       sync.Mutex
	Requests []payment.SessionRequest
	Session  payment.Session
	Err      error
}

func (f *FakeProvider) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	s := f.Session
	return &s, nil
}

type PublishedEvent struct {
	Topic string
	Key   string
	Event any
}

// Recorder is an in-memory event publisher.
type Recorder struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

func (r *Recorder) PublishEvent(_ context.Context, topic, key string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, PublishedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (r *Recorder) Snapshot() []PublishedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishedEvent(nil), r.Events...)
}
