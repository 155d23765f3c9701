package httpserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

var jwtSecret = []byte("test-jwt-secret")

type server struct {
	e        *echo.Echo
	db       *gorm.DB
	provider *testutil.FakeProvider
	events   *testutil.Recorder
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.InitTestDB(t)
	r := &repo.GormRepo{DB: db}
	provider := &testutil.FakeProvider{Session: payment.Session{ID: "cs_http", URL: "https://pay.example/cs_http"}}
	recorder := &testutil.Recorder{}

	reconciler := &service.ReconcileService{Repo: r, Publisher: recorder}
	deps := &httpserver.Deps{
		DB:        db,
		JWTSecret: jwtSecret,
		Auth: &httpserver.AuthHTTP{Svc: &service.UserService{
			Repo:      r,
			JWTSecret: jwtSecret,
			AccessTTL: time.Hour,
		}},
		Cart:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Publisher: recorder}},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		Order:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r, Publisher: recorder}},
		Payment: &httpserver.PaymentHTTP{
			Checkout: &service.CheckoutService{
				Repo:                r,
				Provider:            provider,
				Currency:            "aud",
				PlaceholderImageURL: "https://placehold.co/600x600",
			},
			Reconciler:    reconciler,
			Verifier:      payment.NewStripeVerifier(testutil.WebhookSecret),
			PublicBaseURL: "https://shop.example",
		},
	}

	e := echo.New()
	e.Use(loggingmw.RequestLogger(logging.NewWithWriter(io.Discard, "error")))
	httpserver.Register(e, deps)

	return &server{e: e, db: db, provider: provider, events: recorder}
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := tokens.NewAccessToken(u.ID, u.Role, time.Now().Add(time.Hour), jwtSecret)
	require.NoError(t, err)
	return tok
}

type call struct {
	method  string
	path    string
	body    any
	raw     []byte
	token   string
	headers map[string]string
}

func (s *server) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	switch {
	case c.raw != nil:
		body = bytes.NewReader(c.raw)
	case c.body != nil:
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}

	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	require.Equal(t, http.StatusOK, s.do(t, call{method: http.MethodGet, path: "/health/live"}).Code)
	require.Equal(t, http.StatusOK, s.do(t, call{method: http.MethodGet, path: "/health/ready"}).Code)
}
