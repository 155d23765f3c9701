package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestHandleWebhook_CreatesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome, err := f.rec.HandleWebhook(ctx, f.completedEvent("evt_1", "cs_1"))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCommitted, outcome)

	order, err := f.repo.FindOrderBySession(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, order.UserID)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.Equal(t, "pi_cs_1", order.StripePaymentIntentID)
	assert.True(t, decimal.RequireFromString("23.00").Equal(order.TotalCost), "total %s", order.TotalCost)

	require.Len(t, order.Items, 2)
	byVariant := map[uint]models.OrderItem{}
	for _, it := range order.Items {
		byVariant[it.ProductVariantID] = it
	}
	m := byVariant[f.shirtM.ID]
	assert.Equal(t, "T-Shirt", m.ProductNameAtOrder)
	assert.Equal(t, "M", m.VariantNameAtOrder)
	assert.Equal(t, 2, m.Quantity)
	assert.True(t, decimal.RequireFromString("10").Equal(m.PriceAtOrder))
	l := byVariant[f.shirtL.ID]
	assert.Equal(t, 1, l.Quantity)
	assert.True(t, decimal.RequireFromString("3").Equal(l.PriceAtOrder), "discounted price is frozen")

	var stockM, stockL models.ProductVariant
	require.NoError(t, f.db.First(&stockM, f.shirtM.ID).Error)
	require.NoError(t, f.db.First(&stockL, f.shirtL.ID).Error)
	assert.Equal(t, 3, stockM.StockQuantity)
	assert.Equal(t, 9, stockL.StockQuantity)

	assert.Zero(t, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))
	cart, err := (&service.CartService{Repo: f.repo}).GetCart(ctx, f.principal())
	require.NoError(t, err)
	assert.Equal(t, f.cart.ID, cart.ID, "cart row survives")
	assert.Empty(t, cart.Items)

	ledger, err := f.repo.FindWebhookEvent(ctx, "evt_1")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookProcessed, ledger.Status)

	published := f.events.Snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicOrders, published[0].Topic)
	created, ok := published[0].Event.(events.OrderCreated)
	require.True(t, ok)
	assert.Equal(t, order.ID, created.OrderID)
	assert.Equal(t, events.TypeOrderCreated, created.Type)
}

func TestHandleWebhook_DuplicateDelivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.completedEvent("evt_dup", "cs_dup")

	_, err := f.rec.HandleWebhook(ctx, ev)
	require.NoError(t, err)

	outcome, err := f.rec.HandleWebhook(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCartConsumed, outcome)

	ledger, err := f.repo.FindWebhookEvent(ctx, "evt_dup")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookProcessed, ledger.Status)
	assert.Equal(t, string(service.OutcomeCommitted), ledger.Reason, "first delivery outcome is kept")

	// user refilled the cart before the provider retried
	testutil.SeedCartItems(t, f.db, f.cart.ID, testutil.CartLine{VariantID: f.shirtM.ID, Quantity: 1})

	outcome, err = f.rec.HandleWebhook(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeAlreadyReconciled, outcome)

	assert.EqualValues(t, 1, testutil.CountRows(t, f.db, &models.Order{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, f.db, &models.OrderItem{}))
	assert.EqualValues(t, 1, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))

	var v models.ProductVariant
	require.NoError(t, f.db.First(&v, f.shirtM.ID).Error)
	assert.Equal(t, 3, v.StockQuantity, "stock decremented once")
	assert.Len(t, f.events.Snapshot(), 1)
}

func TestHandleWebhook_ConcurrentDeliveries(t *testing.T) {
	f := newFixture(t)
	ev := f.completedEvent("evt_conc", "cs_conc")

	const n = 6
	var wg sync.WaitGroup
	outcomes := make([]service.WebhookOutcome, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = f.rec.HandleWebhook(context.Background(), ev)
		}(i)
	}
	wg.Wait()

	committed := 0
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		if outcomes[i] == service.OutcomeCommitted {
			committed++
		}
	}
	assert.Equal(t, 1, committed)
	assert.EqualValues(t, 1, testutil.CountRows(t, f.db, &models.Order{}))
}

func TestConvertCart_LosesInsertRace(t *testing.T) {
	f := newFixture(t)

	raced := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:race_order", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "orders" {
			return
		}
		raced = true
		err := tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO orders (user_id, total_cost, status, ordered_at, stripe_checkout_session_id, stripe_payment_intent_id) VALUES (?, ?, ?, ?, ?, ?)",
			f.user.ID, "23", models.OrderStatusCompleted, time.Now().UTC(), "cs_race", "pi_other",
		).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	}))

	outcome, err := f.rec.Reconcile(context.Background(), f.completedEvent("evt_race", "cs_race").Session, f.user.ID, f.cart.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeAlreadyReconciled, outcome)

	assert.EqualValues(t, 1, testutil.CountRows(t, f.db, &models.Order{}))
	assert.Zero(t, testutil.CountRows(t, f.db, &models.OrderItem{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))
	assert.Empty(t, f.events.Snapshot())
}

func TestHandleWebhook_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("stock write failed")

	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:fail_stock", func(tx *gorm.DB) {
		if tx.Statement.Table == "product_variants" {
			_ = tx.AddError(boom)
		}
	}))

	_, err := f.rec.HandleWebhook(context.Background(), f.completedEvent("evt_fail", "cs_fail"))
	require.ErrorIs(t, err, boom)

	assert.Zero(t, testutil.CountRows(t, f.db, &models.Order{}))
	assert.Zero(t, testutil.CountRows(t, f.db, &models.OrderItem{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))

	var v models.ProductVariant
	require.NoError(t, f.db.First(&v, f.shirtM.ID).Error)
	assert.Equal(t, 5, v.StockQuantity)

	_, err = f.repo.FindWebhookEvent(context.Background(), "evt_fail")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "failed deliveries are not recorded so the retry is processed")
	assert.Empty(t, f.events.Snapshot())
}

func TestHandleWebhook_UnpaidIsNoop(t *testing.T) {
	f := newFixture(t)
	ev := f.completedEvent("evt_unpaid", "cs_unpaid")
	ev.Session.PaymentStatus = "unpaid"

	outcome, err := f.rec.HandleWebhook(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeUnpaid, outcome)

	assert.Zero(t, testutil.CountRows(t, f.db, &models.Order{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))

	ledger, err := f.repo.FindWebhookEvent(context.Background(), "evt_unpaid")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookIgnored, ledger.Status)
}

func TestHandleWebhook_OtherEventType(t *testing.T) {
	f := newFixture(t)
	outcome, err := f.rec.HandleWebhook(context.Background(), &payment.Event{ID: "evt_other", Type: "payment_intent.created"})
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeIgnored, outcome)
	assert.Zero(t, testutil.CountRows(t, f.db, &models.Order{}))
}

func TestHandleWebhook_UnknownCart(t *testing.T) {
	f := newFixture(t)
	ev := f.completedEvent("evt_gone", "cs_gone")
	ev.Session.Metadata[service.MetadataCartID] = "9999"

	outcome, err := f.rec.HandleWebhook(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCartConsumed, outcome)
	assert.Zero(t, testutil.CountRows(t, f.db, &models.Order{}))
}

func TestHandleWebhook_CartOfAnotherUser(t *testing.T) {
	f := newFixture(t)
	other := testutil.SeedUser(t, f.db, "other@example.com", models.RoleCustomer)
	ev := f.completedEvent("evt_mismatch", "cs_mismatch")
	ev.Session.Metadata[service.MetadataUserID] = uintStr(other.ID)

	outcome, err := f.rec.HandleWebhook(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCartConsumed, outcome)
	assert.EqualValues(t, 2, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))
}

func TestHandleWebhook_ClampsStockAtZero(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.ProductVariant{}).Where("id = ?", f.shirtM.ID).Update("stock_quantity", 1).Error)

	outcome, err := f.rec.HandleWebhook(context.Background(), f.completedEvent("evt_clamp", "cs_clamp"))
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCommitted, outcome)

	var v models.ProductVariant
	require.NoError(t, f.db.First(&v, f.shirtM.ID).Error)
	assert.Equal(t, 0, v.StockQuantity)
}

func TestHandleWebhook_OrphanedCartItem(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Exec("PRAGMA foreign_keys = OFF").Error)
	require.NoError(t, f.db.Exec("DELETE FROM product_variants WHERE id = ?", f.shirtL.ID).Error)

	_, err := f.rec.HandleWebhook(context.Background(), f.completedEvent("evt_orphan", "cs_orphan"))
	require.ErrorIs(t, err, service.ErrDataIntegrity)

	assert.Zero(t, testutil.CountRows(t, f.db, &models.Order{}))
	assert.EqualValues(t, 2, testutil.CountRows(t, f.db, &models.CartItem{}, "cart_id = ?", f.cart.ID))
}

func TestOrderSnapshotSurvivesCatalogChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rec.HandleWebhook(ctx, f.completedEvent("evt_snap", "cs_snap"))
	require.NoError(t, err)

	catalog := &service.CatalogService{Repo: f.repo}
	newName := "Medium"
	newPrice := decimal.RequireFromString("99.00")
	_, err = catalog.PatchVariant(ctx, f.shirtM.ID, transport.PatchVariantRequest{Name: &newName, Price: &newPrice})
	require.NoError(t, err)

	order, err := f.repo.FindOrderBySession(ctx, "cs_snap")
	require.NoError(t, err)
	for _, it := range order.Items {
		if it.ProductVariantID == f.shirtM.ID {
			assert.Equal(t, "M", it.VariantNameAtOrder)
			assert.True(t, decimal.RequireFromString("10").Equal(it.PriceAtOrder))
		}
	}
	assert.True(t, decimal.RequireFromString("23").Equal(order.TotalCost))
}

func TestHandleWebhook_QuarantineAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw := testutil.EventJSON(t, testutil.SessionPayload{
		EventID:       "evt_q",
		SessionID:     "cs_q",
		PaymentIntent: "pi_q",
		Metadata:      map[string]string{service.MetadataUserID: uintStr(f.user.ID)},
	})
	ev, err := payment.ParseEvent(raw)
	require.NoError(t, err)

	_, err = f.rec.HandleWebhook(ctx, ev)
	require.ErrorIs(t, err, service.ErrMissingMetadata)

	ledger, err := f.repo.FindWebhookEvent(ctx, "evt_q")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookQuarantined, ledger.Status)
	assert.Equal(t, "cs_q", ledger.SessionID)
	assert.JSONEq(t, string(raw), ledger.Payload)

	quarantined, err := f.rec.ListEvents(ctx, models.WebhookQuarantined, 0)
	require.NoError(t, err)
	require.Len(t, quarantined, 1)

	_, err = f.rec.Resolve(ctx, "evt_q", f.user.ID, 9999)
	require.ErrorIs(t, err, service.ErrValidation)
	ledger, err = f.repo.FindWebhookEvent(ctx, "evt_q")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookQuarantined, ledger.Status)
	_, err = f.repo.FindOrderBySession(ctx, "cs_q")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	outcome, err := f.rec.Resolve(ctx, "evt_q", f.user.ID, f.cart.ID)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeCommitted, outcome)

	order, err := f.repo.FindOrderBySession(ctx, "cs_q")
	require.NoError(t, err)
	assert.Equal(t, "pi_q", order.StripePaymentIntentID)

	ledger, err = f.repo.FindWebhookEvent(ctx, "evt_q")
	require.NoError(t, err)
	assert.Equal(t, models.WebhookResolved, ledger.Status)

	outcome, err = f.rec.HandleWebhook(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, service.OutcomeResolvedEarlier, outcome)

	_, err = f.rec.Resolve(ctx, "evt_q", f.user.ID, f.cart.ID)
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.rec.Resolve(ctx, "evt_missing", f.user.ID, f.cart.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListEvents_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.rec.ListEvents(context.Background(), "bogus", 10)
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestParseCorrelation(t *testing.T) {
	tests := []struct {
		name     string
		meta     map[string]string
		wantUser uint
		wantCart uint
		wantErr  bool
	}{
		{name: "ok", meta: map[string]string{"userId": "7", "cartId": "3"}, wantUser: 7, wantCart: 3},
		{name: "spaces", meta: map[string]string{"userId": " 7 ", "cartId": "3"}, wantUser: 7, wantCart: 3},
		{name: "nil", meta: nil, wantErr: true},
		{name: "missing cart", meta: map[string]string{"userId": "7"}, wantErr: true},
		{name: "zero", meta: map[string]string{"userId": "0", "cartId": "3"}, wantErr: true},
		{name: "negative", meta: map[string]string{"userId": "7", "cartId": "-3"}, wantErr: true},
		{name: "not a number", meta: map[string]string{"userId": "abc", "cartId": "3"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u, c, err := service.ParseCorrelation(tc.meta)
			if tc.wantErr {
				require.ErrorIs(t, err, service.ErrMissingMetadata)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, u)
			assert.Equal(t, tc.wantCart, c)
		})
	}
}
