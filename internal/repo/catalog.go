package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

var (
	ErrDiscountAbovePrice  = errors.New("discounted price exceeds price")
	ErrVariantNotInProduct = errors.New("variant does not belong to product")
)

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.DB.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("product_variants.id ASC") }).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) GetVariant(ctx context.Context, id uint) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	if err := r.DB.WithContext(ctx).Preload("Product").Where("id = ?", id).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (r *GormRepo) PatchVariant(ctx context.Context, id uint, req transport.PatchVariantRequest) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&variant).Error; err != nil {
			return err
		}

		if req.Name != nil {
			variant.Name = *req.Name
		}
		if req.Price != nil {
			variant.Price = *req.Price
		}
		if req.ClearDiscount {
			variant.DiscountedPrice = decimal.NullDecimal{}
		} else if req.DiscountedPrice != nil {
			variant.DiscountedPrice = decimal.NewNullDecimal(*req.DiscountedPrice)
		}
		if req.StockQuantity != nil {
			variant.StockQuantity = *req.StockQuantity
		}
		if req.PhotoURLs != nil {
			variant.PhotoURLs = req.PhotoURLs
		}
		if variant.DiscountedPrice.Valid && variant.DiscountedPrice.Decimal.GreaterThan(variant.Price) {
			return fmt.Errorf("%w: %s > %s", ErrDiscountAbovePrice, variant.DiscountedPrice.Decimal, variant.Price)
		}

		return tx.Save(&variant).Error
	})
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

// UpdateProduct replaces the product fields and its variant set in one
// transaction. Stored variants absent from the request are soft deleted.
func (r *GormRepo) UpdateProduct(ctx context.Context, id uint, req transport.UpdateProductRequest) (*models.Product, error) {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&product).Error; err != nil {
			return err
		}

		var stored []models.ProductVariant
		if err := tx.Where("product_id = ?", id).Find(&stored).Error; err != nil {
			return err
		}
		byID := make(map[uint]*models.ProductVariant, len(stored))
		for i := range stored {
			byID[stored[i].ID] = &stored[i]
		}

		keep := make(map[uint]struct{}, len(req.Variants))
		for _, in := range req.Variants {
			if in.ID == nil {
				v := models.ProductVariant{ProductID: id, PhotoURLs: in.PhotoURLs}
				if v.PhotoURLs == nil {
					v.PhotoURLs = []string{}
				}
				applyVariant(&v, in)
				if err := tx.Create(&v).Error; err != nil {
					return err
				}
				continue
			}

			v, ok := byID[*in.ID]
			if !ok {
				return fmt.Errorf("%w: variant %d, product %d", ErrVariantNotInProduct, *in.ID, id)
			}
			keep[v.ID] = struct{}{}
			applyVariant(v, in)
			if in.PhotoURLs != nil {
				v.PhotoURLs = in.PhotoURLs
			}
			if err := tx.Save(v).Error; err != nil {
				return err
			}
		}

		var removed []uint
		for _, v := range stored {
			if _, ok := keep[v.ID]; !ok {
				removed = append(removed, v.ID)
			}
		}
		if len(removed) > 0 {
			if err := tx.Where("id IN ?", removed).Delete(&models.ProductVariant{}).Error; err != nil {
				return err
			}
		}

		product.Name = req.Name
		product.Description = req.Description
		product.Tags = req.Tags
		return tx.Omit(clause.Associations).Save(&product).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetProduct(ctx, id)
}

func applyVariant(v *models.ProductVariant, in transport.UpdateVariantRequest) {
	v.Name = in.Name
	v.Price = in.Price
	v.StockQuantity = in.StockQuantity
	if in.DiscountedPrice != nil {
		v.DiscountedPrice = decimal.NewNullDecimal(*in.DiscountedPrice)
	} else {
		v.DiscountedPrice = decimal.NullDecimal{}
	}
}

// DeleteProduct soft deletes the product and its variants. Carts that still
// reference them fail checkout until the items are removed.
func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Product{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error
	})
}
