package repository

import (
	"context"

	"restaurant-pos/backend/internal/product/domain"
)

// Repository is the product catalog store. Lookups return nil (not an error)
// for missing rows.
type Repository interface {
	ListActive(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id int) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
