package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Status is the lifecycle state of an order. POS orders are created completed;
// the other states cover back-office corrections.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Order is one completed sale.
type Order struct {
	ID                  string      `json:"id"`
	OrderNumber         string      `json:"order_number"`
	TotalAmount         float64     `json:"total_amount"`
	TaxAmount           float64     `json:"tax_amount"`
	CustomerName        string      `json:"customer_name"`
	SpecialInstructions string      `json:"special_instructions,omitempty"`
	Status              Status      `json:"status"`
	CreatedAt           time.Time   `json:"created_at"`
	CompletedAt         *time.Time  `json:"completed_at,omitempty"`
	Items               []OrderItem `json:"items,omitempty"`
	ItemsSummary        string      `json:"items_summary,omitempty"`
}

// OrderItem is one line of an order, priced at order time.
type OrderItem struct {
	ID             int     `json:"id"`
	OrderID        string  `json:"order_id"`
	ProductID      int     `json:"product_id"`
	ProductName    string  `json:"product_name,omitempty"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	TotalPrice     float64 `json:"total_price"`
	Customizations string  `json:"customizations,omitempty"`
}

// NewOrderItem is one requested line when creating an order.
type NewOrderItem struct {
	ProductID      int    `json:"product_id"`
	Quantity       int    `json:"quantity"`
	Customizations string `json:"customizations,omitempty"`
}

// ValidateItems checks a create-order request has at least one sane line.
func ValidateItems(items []NewOrderItem) error {
	if len(items) == 0 {
		return errors.New("items are required")
	}
	for _, item := range items {
		if item.ProductID <= 0 {
			return errors.New("product_id is required for every item")
		}
		if item.Quantity <= 0 {
			return errors.New("quantity must be positive")
		}
	}
	return nil
}

// ComputeTotals returns the tax and final total for a subtotal at taxRate,
// rounded to cents.
func ComputeTotals(subtotal, taxRate float64) (tax, total float64) {
	tax = roundCents(subtotal * taxRate)
	total = roundCents(subtotal + tax)
	return tax, total
}

// NewOrderNumber derives an order number from the creation time, matching the
// ORD<unix-millis> format receipts already use.
func NewOrderNumber(at time.Time) string {
	return fmt.Sprintf("ORD%d", at.UnixMilli())
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
