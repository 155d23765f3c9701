package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
)

// InitTestDB returns a migrated in-memory database private to the test.
func InitTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to connect to in-memory db")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repo.Migrate(db), "failed to migrate tables")
	return db
}

func SeedUser(t *testing.T, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	u := &models.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

type VariantSeed struct {
	Name     string
	Price    string
	Discount string
	Stock    int
	Photos   []string
}

func SeedProduct(t *testing.T, db *gorm.DB, name string, variants ...VariantSeed) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Tags: []string{}}
	for _, v := range variants {
		pv := models.ProductVariant{
			Name:          v.Name,
			Price:         decimal.RequireFromString(v.Price),
			StockQuantity: v.Stock,
			PhotoURLs:     v.Photos,
		}
		if pv.PhotoURLs == nil {
			pv.PhotoURLs = []string{}
		}
		if v.Discount != "" {
			pv.DiscountedPrice = decimal.NewNullDecimal(decimal.RequireFromString(v.Discount))
		}
		p.Variants = append(p.Variants, pv)
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

type CartLine struct {
	VariantID uint
	Quantity  int
}

func SeedCart(t *testing.T, db *gorm.DB, userID uint, lines ...CartLine) *models.Cart {
	t.Helper()
	cart := &models.Cart{UserID: userID}
	require.NoError(t, db.Create(cart).Error)
	for _, l := range lines {
		item := models.CartItem{CartID: cart.ID, ProductVariantID: l.VariantID, Quantity: l.Quantity}
		require.NoError(t, db.Create(&item).Error)
	}
	return cart
}

func CountRows(t *testing.T, db *gorm.DB, model any, where ...any) int64 {
	t.Helper()
	q := db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	var n int64
	require.NoError(t, q.Count(&n).Error)
	return n
}

func SeedCartItems(t *testing.T, db *gorm.DB, cartID uint, lines ...CartLine) {
	t.Helper()
	for _, l := range lines {
		item := models.CartItem{CartID: cartID, ProductVariantID: l.VariantID, Quantity: l.Quantity}
		require.NoError(t, db.Create(&item).Error)
	}
}
