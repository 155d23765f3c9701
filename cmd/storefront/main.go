package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	loggingmw "github.com/Skotchmaster/storefront/pkg/middleware/logging"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmpty(cfg.StripeSecretKey, "STRIPE_SECRET_KEY")
	config.MustNonEmpty(cfg.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
		publisher = producer
	} else {
		logger.Warn("kafka disabled", "reason", "KAFKA_BROKERS is empty")
	}

	provider := payment.NewBreakerProvider(
		payment.NewStripeProvider(cfg.StripeSecretKey, cfg.PaymentTimeout),
		payment.BreakerSettings{Name: "stripe", Timeout: cfg.PaymentTimeout},
	)

	r := &repo.GormRepo{DB: gdb}
	reconciler := &service.ReconcileService{Repo: r, Publisher: publisher}

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	secureCookie := strings.HasPrefix(cfg.PublicBaseURL, "https://")
	httpserver.Register(e, &httpserver.Deps{
		DB:           gdb,
		JWTSecret:    cfg.JWTAccessSecret,
		SecureCookie: secureCookie,
		Auth: &httpserver.AuthHTTP{
			Svc: &service.UserService{
				Repo:      r,
				JWTSecret: cfg.JWTAccessSecret,
				AccessTTL: cfg.AccessTokenTTL,
			},
			SecureCookie: secureCookie,
		},
		Cart:    &httpserver.CartHTTP{Svc: &service.CartService{Repo: r, Publisher: publisher}},
		Catalog: &httpserver.CatalogHTTP{Svc: &service.CatalogService{Repo: r}},
		Order:   &httpserver.OrderHTTP{Svc: &service.OrderService{Repo: r, Publisher: publisher}},
		Payment: &httpserver.PaymentHTTP{
			Checkout: &service.CheckoutService{
				Repo:                r,
				Provider:            provider,
				Currency:            cfg.Currency,
				PlaceholderImageURL: cfg.PlaceholderImageURL,
			},
			Reconciler:    reconciler,
			Verifier:      payment.NewStripeVerifier(cfg.StripeWebhookSecret),
			PublicBaseURL: cfg.PublicBaseURL,
		},
	})

	addr := ":" + strconv.Itoa(cfg.ServerPort)
	go func() {
		logger.Info("starting storefront", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close", "error", err)
	}

	logger.Info("server stopped")
}
