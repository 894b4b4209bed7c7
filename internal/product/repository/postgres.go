package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"restaurant-pos/backend/internal/product/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a product repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ListActive returns all active products joined with their category name,
// ordered by category then product name.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.description, p.price, p.category_id, c.name,
		        p.sku, p.stock_quantity, p.min_stock_level, p.is_active, p.created_at, p.updated_at
		 FROM products p
		 JOIN categories c ON p.category_id = c.id
		 WHERE p.is_active = TRUE
		 ORDER BY c.name, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.CategoryName,
			&p.SKU, &p.StockQuantity, &p.MinStockLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetByID returns the product for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, category_id, sku, stock_quantity, min_stock_level,
		        is_active, created_at, updated_at
		 FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CategoryID, &p.SKU,
			&p.StockQuantity, &p.MinStockLevel, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Create persists the product and assigns its ID.
func (r *PostgresRepository) Create(ctx context.Context, p *domain.Product) error {
	now := time.Now().UTC()
	p.IsActive = true
	p.CreatedAt = now
	p.UpdatedAt = now
	return r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, description, price, category_id, sku, stock_quantity, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
		 RETURNING id`,
		p.Name, p.Description, p.Price, p.CategoryID, p.SKU, p.StockQuantity, now).
		Scan(&p.ID)
}

// ListCategories returns all active categories ordered by name.
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_active, created_at FROM categories WHERE is_active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
