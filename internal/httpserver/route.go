package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	middleware "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
)

type Deps struct {
	DB           *gorm.DB
	JWTSecret    []byte
	SecureCookie bool

	Auth    *AuthHTTP
	Cart    *CartHTTP
	Catalog *CatalogHTTP
	Order   *OrderHTTP
	Payment *PaymentHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(csrf.Middleware(csrf.Config{
		Secure:    d.SecureCookie,
		Skipper:   csrf.CookieSessionsOnly(middleware.AccessCookie),
		SkipPaths: []string{"/payment/webhook", "/auth/login", "/auth/register"},
	}))

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return ready(c, d.DB) })

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	auth := e.Group("/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout)

	e.GET("/products/:id", d.Catalog.GetProduct)

	cart := e.Group("/cart", authMW.RequireAuth)
	cart.GET("", d.Cart.GetCart)
	cart.POST("/items", d.Cart.AddItem)
	cart.PATCH("/items/:itemId", d.Cart.UpdateItem)
	cart.DELETE("/items/:itemId", d.Cart.RemoveItem)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.GET("", d.Order.ListOrders)
	orders.GET("/:id", d.Order.GetOrder)

	pay := e.Group("/payment")
	pay.POST("/checkout/:cartId", d.Payment.CreateCheckout, authMW.RequireAuth)
	pay.POST("/webhook", d.Payment.Webhook, echomw.BodyLimit(WebhookBodyLimit))

	admin := e.Group("/admin", authMW.RequireAdmin)
	admin.POST("/products", d.Catalog.CreateProduct)
	admin.PUT("/products/:id", d.Catalog.UpdateProduct)
	admin.DELETE("/products/:id", d.Catalog.DeleteProduct)
	admin.PATCH("/variants/:id", d.Catalog.PatchVariant)
	admin.PATCH("/orders/:id/status", d.Order.UpdateStatus)
	admin.PATCH("/users/:id/role", d.Auth.SetRole)
	admin.GET("/webhooks", d.Payment.ListWebhooks)
}

func ready(c echo.Context, db *gorm.DB) error {
	if db == nil {
		return c.NoContent(http.StatusOK)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
