package repository

import (
	"context"
	"time"

	"restaurant-pos/backend/internal/order/domain"
)

// ListFilter narrows and pages the order listing.
type ListFilter struct {
	Page      int
	Limit     int
	Search    string // matches customer name or order number
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount float64
	MaxAmount float64 // 0 means no upper bound
	Status    domain.Status
}

// Stats are aggregate order figures for the dashboard.
type Stats struct {
	TotalOrders  int     `json:"total_orders"`
	TotalRevenue float64 `json:"total_revenue"`
	AverageOrder float64 `json:"average_order"`
	TodayOrders  int     `json:"today_orders"`
	TodayRevenue float64 `json:"today_revenue"`
}

// Repository is the order store. Create runs in a single transaction: item
// prices are read from the products table at order time, so a concurrent price
// change cannot split one order across two price lists.
type Repository interface {
	Create(ctx context.Context, items []domain.NewOrderItem, customerName, specialInstructions string, taxRate float64) (*domain.Order, error)
	List(ctx context.Context, f ListFilter) ([]domain.Order, int, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error)
	GetStats(ctx context.Context) (*Stats, error)
}
