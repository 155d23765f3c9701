package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CatalogService struct {
	Repo *repo.GormRepo
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return product, err
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("product name is required: %w", ErrValidation)
	}
	if len(req.Variants) == 0 {
		return nil, fmt.Errorf("at least one variant is required: %w", ErrValidation)
	}

	product := &models.Product{
		Name:        name,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if product.Tags == nil {
		product.Tags = []string{}
	}

	for i, v := range req.Variants {
		if err := validateVariant(i, v.Name, v.Price, v.DiscountedPrice, v.StockQuantity); err != nil {
			return nil, err
		}
		variant := models.ProductVariant{
			Name:          strings.TrimSpace(v.Name),
			Price:         v.Price,
			StockQuantity: v.StockQuantity,
			PhotoURLs:     v.PhotoURLs,
		}
		if variant.PhotoURLs == nil {
			variant.PhotoURLs = []string{}
		}
		if v.DiscountedPrice != nil {
			variant.DiscountedPrice = decimal.NewNullDecimal(*v.DiscountedPrice)
		}
		product.Variants = append(product.Variants, variant)
	}

	return s.Repo.CreateProduct(ctx, product)
}

func (s *CatalogService) PatchVariant(ctx context.Context, id uint, req transport.PatchVariantRequest) (*models.ProductVariant, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("name cannot be empty: %w", ErrValidation)
	}
	if req.Price != nil && !req.Price.IsPositive() {
		return nil, fmt.Errorf("price must be positive: %w", ErrValidation)
	}
	if req.DiscountedPrice != nil && req.DiscountedPrice.IsNegative() {
		return nil, fmt.Errorf("discounted price cannot be negative: %w", ErrValidation)
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		return nil, fmt.Errorf("stock cannot be negative: %w", ErrValidation)
	}

	variant, err := s.Repo.PatchVariant(ctx, id, req)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("variant %d: %w", id, ErrNotFound)
	case errors.Is(err, repo.ErrDiscountAbovePrice):
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	return variant, err
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req transport.UpdateProductRequest) (*models.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, fmt.Errorf("product name is required: %w", ErrValidation)
	}
	if len(req.Variants) == 0 {
		return nil, fmt.Errorf("at least one variant is required: %w", ErrValidation)
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}
	for i := range req.Variants {
		v := &req.Variants[i]
		if err := validateVariant(i, v.Name, v.Price, v.DiscountedPrice, v.StockQuantity); err != nil {
			return nil, err
		}
		v.Name = strings.TrimSpace(v.Name)
	}

	product, err := s.Repo.UpdateProduct(ctx, id, req)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	case errors.Is(err, repo.ErrVariantNotInProduct):
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	return product, err
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	err := s.Repo.DeleteProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return err
}

func validateVariant(i int, name string, price decimal.Decimal, discounted *decimal.Decimal, stock int) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("variant %d: name is required: %w", i, ErrValidation)
	}
	if !price.IsPositive() {
		return fmt.Errorf("variant %d: price must be positive: %w", i, ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("variant %d: stock cannot be negative: %w", i, ErrValidation)
	}
	if discounted != nil && (discounted.IsNegative() || discounted.GreaterThan(price)) {
		return fmt.Errorf("variant %d: discounted price must be between 0 and price: %w", i, ErrValidation)
	}
	return nil
}
