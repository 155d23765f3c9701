package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

const (
	SignatureHeader  = "Stripe-Signature"
	WebhookBodyLimit = "1M"
)

type PaymentHTTP struct {
	Checkout      *service.CheckoutService
	Reconciler    *service.ReconcileService
	Verifier      payment.Verifier
	PublicBaseURL string
}

func (h *PaymentHTTP) CreateCheckout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.checkout")

	p, err := principal(c)
	if err != nil {
		l.Warn("checkout_error", "status", 401, "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	cartID, err := paramID(c, "cartId")
	if err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.Checkout.CreateSession(ctx, p, cartID, h.baseURL(c))
	if err != nil {
		code, msg := statusFor(err)
		if code >= 500 {
			l.Error("checkout_error", "status", code, "error", err)
		} else {
			l.Warn("checkout_error", "status", code, "error", err)
		}
		return echo.NewHTTPError(code, msg)
	}

	return c.JSON(http.StatusOK, transport.CheckoutResponse{URL: res.URL, SessionID: res.SessionID})
}

// Webhook verifies the raw body before anything is parsed or stored.
func (h *PaymentHTTP) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.webhook")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read body")
	}

	ev, err := h.Verifier.Verify(payload, c.Request().Header.Get(SignatureHeader))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			l.Warn("webhook_error", "status", 400, "reason", "signature verification failed", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		l.Warn("webhook_error", "status", 400, "reason", "malformed event", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event")
	}

	outcome, err := h.Reconciler.HandleWebhook(ctx, ev)
	if err != nil {
		code, msg := statusFor(err)
		if code >= 500 {
			l.Error("webhook_error", "status", code, "event_id", ev.ID, "error", err)
		} else {
			l.Warn("webhook_error", "status", code, "event_id", ev.ID, "error", err)
		}
		return echo.NewHTTPError(code, msg)
	}

	return c.JSON(http.StatusOK, transport.WebhookResponse{Received: true, Outcome: string(outcome)})
}

func (h *PaymentHTTP) ListWebhooks(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_webhooks")

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	list, err := h.Reconciler.ListEvents(ctx, models.WebhookStatus(c.QueryParam("status")), limit)
	if err != nil {
		code, msg := statusFor(err)
		l.Warn("list_webhooks_error", "status", code, "error", err)
		return echo.NewHTTPError(code, msg)
	}

	return c.JSON(http.StatusOK, list)
}

func (h *PaymentHTTP) baseURL(c echo.Context) string {
	if h.PublicBaseURL != "" {
		return h.PublicBaseURL
	}
	return c.Scheme() + "://" + c.Request().Host
}
