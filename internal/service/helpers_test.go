package service_test

import (
	"strconv"
	"testing"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/testutil"
)

type fixture struct {
	db      *gorm.DB
	repo    *repo.GormRepo
	events  *testutil.Recorder
	user    *models.User
	product *models.Product
	shirtM  *models.ProductVariant
	shirtL  *models.ProductVariant
	cart    *models.Cart
	rec     *service.ReconcileService
}

// newFixture seeds a cart worth 23.00: two M shirts at 10.00 and one L shirt
// discounted from 5.00 to 3.00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.InitTestDB(t)
	r := &repo.GormRepo{DB: db}
	recorder := &testutil.Recorder{}

	user := testutil.SeedUser(t, db, "buyer@example.com", models.RoleCustomer)
	product := testutil.SeedProduct(t, db, "T-Shirt",
		testutil.VariantSeed{Name: "M", Price: "10.00", Stock: 5, Photos: []string{"/img/m.png"}},
		testutil.VariantSeed{Name: "L", Price: "5.00", Discount: "3.00", Stock: 10},
	)
	cart := testutil.SeedCart(t, db, user.ID,
		testutil.CartLine{VariantID: product.Variants[0].ID, Quantity: 2},
		testutil.CartLine{VariantID: product.Variants[1].ID, Quantity: 1},
	)

	return &fixture{
		db:      db,
		repo:    r,
		events:  recorder,
		user:    user,
		product: product,
		shirtM:  &product.Variants[0],
		shirtL:  &product.Variants[1],
		cart:    cart,
		rec:     &service.ReconcileService{Repo: r, Publisher: recorder},
	}
}

func (f *fixture) principal() service.Principal {
	return service.Principal{UserID: f.user.ID, Role: f.user.Role}
}

func (f *fixture) completedEvent(eventID, sessionID string) *payment.Event {
	return &payment.Event{
		ID:   eventID,
		Type: payment.EventCheckoutSessionCompleted,
		Raw:  []byte(`{"id":"` + eventID + `"}`),
		Session: &payment.CompletedSession{
			ID:              sessionID,
			PaymentIntentID: "pi_" + sessionID,
			PaymentStatus:   payment.PaymentStatusPaid,
			AmountTotal:     2300,
			Currency:        "aud",
			Metadata: map[string]string{
				service.MetadataUserID: uintStr(f.user.ID),
				service.MetadataCartID: uintStr(f.cart.ID),
			},
		},
	}
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
