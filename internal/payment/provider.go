package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	PaymentStatusPaid             = "paid"
)

var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

type LineItem struct {
	Name       string
	Images     []string
	UnitAmount int64
	Quantity   int64
	Currency   string
}

type SessionRequest struct {
	LineItems         []LineItem
	Metadata          map[string]string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
}

type Session struct {
	ID  string
	URL string
}

// Provider creates hosted checkout sessions.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// CompletedSession is the part of a checkout.session.completed payload needed to
// build an order.
type CompletedSession struct {
	ID              string
	PaymentIntentID string
	PaymentStatus   string
	Metadata        map[string]string
	AmountTotal     int64
	Currency        string
}

// Event is a verified provider callback.
type Event struct {
	ID      string
	Type    string
	Created int64
	Session *CompletedSession
	Raw     []byte
}

// Verifier authenticates a raw webhook body against its signature header.
type Verifier interface {
	Verify(payload []byte, signature string) (*Event, error)
}

// ToMinorUnits converts a decimal amount to cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
