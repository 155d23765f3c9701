package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

type BreakerSettings struct {
	Name             string
	Timeout          time.Duration
	OpenFor          time.Duration
	FailureThreshold uint32
}

// BreakerProvider bounds every call with a timeout and stops calling the
// provider after consecutive failures.
type BreakerProvider struct {
	next    Provider
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[*Session]
}

func NewBreakerProvider(next Provider, s BreakerSettings) *BreakerProvider {
	if s.Name == "" {
		s.Name = "payment-provider"
	}
	if s.Timeout <= 0 {
		s.Timeout = 10 * time.Second
	}
	if s.OpenFor <= 0 {
		s.OpenFor = 30 * time.Second
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	threshold := s.FailureThreshold

	cb := gobreaker.NewCircuitBreaker[*Session](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
	})
	return &BreakerProvider{next: next, timeout: s.Timeout, cb: cb}
}

func (b *BreakerProvider) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	s, err := b.cb.Execute(func() (*Session, error) {
		return b.next.CreateCheckoutSession(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return s, err
}

func (b *BreakerProvider) State() string {
	return b.cb.State().String()
}
