package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/backend/internal/order/domain"
)

// ErrProductNotFound is returned by Create when an item names a product that
// does not exist.
var ErrProductNotFound = errors.New("product not found")

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an order repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create prices the items, computes tax, and inserts the order with its lines
// in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, items []domain.NewOrderItem, customerName, specialInstructions string, taxRate float64) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var subtotal float64
	lines := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		var unitPrice float64
		err := tx.QueryRowContext(ctx, `SELECT price FROM products WHERE id = $1`, item.ProductID).
			Scan(&unitPrice)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, item.ProductID)
			}
			return nil, err
		}
		totalPrice := unitPrice * float64(item.Quantity)
		subtotal += totalPrice
		lines = append(lines, domain.OrderItem{
			ProductID:      item.ProductID,
			Quantity:       item.Quantity,
			UnitPrice:      unitPrice,
			TotalPrice:     totalPrice,
			Customizations: item.Customizations,
		})
	}

	tax, total := domain.ComputeTotals(subtotal, taxRate)
	now := time.Now().UTC()
	if customerName == "" {
		customerName = "Walk-in Customer"
	}

	order := &domain.Order{
		ID:                  uuid.New().String(),
		OrderNumber:         domain.NewOrderNumber(now),
		TotalAmount:         total,
		TaxAmount:           tax,
		CustomerName:        customerName,
		SpecialInstructions: specialInstructions,
		Status:              domain.StatusCompleted,
		CreatedAt:           now,
		Items:               lines,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, total_amount, tax_amount, customer_name, special_instructions, status, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		order.ID, order.OrderNumber, order.TotalAmount, order.TaxAmount,
		order.CustomerName, nullIfEmpty(order.SpecialInstructions), string(order.Status), now)
	if err != nil {
		return nil, err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price, customizations)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice,
			nullIfEmpty(item.Customizations)).
			Scan(&item.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	order.CompletedAt = &now
	return order, nil
}

// List returns a page of orders matching f plus the total match count.
func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]domain.Order, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}

	where, args := buildListWhere(f)

	var total int
	countQuery := `SELECT COUNT(*) FROM orders o` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT o.id, o.order_number, o.total_amount, o.tax_amount, o.customer_name, o.status,
	                 o.created_at, o.completed_at,
	                 COALESCE(STRING_AGG(p.name || ' (x' || oi.quantity || ')', ', '), '') AS items_summary
	          FROM orders o
	          LEFT JOIN order_items oi ON o.id = oi.order_id
	          LEFT JOIN products p ON oi.product_id = p.id` +
		where +
		` GROUP BY o.id, o.order_number, o.total_amount, o.tax_amount, o.customer_name, o.status, o.created_at, o.completed_at
	          ORDER BY o.created_at DESC
	          LIMIT ` + fmt.Sprintf("$%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o           domain.Order
			status      string
			completedAt sql.NullTime
		)
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.TotalAmount, &o.TaxAmount, &o.CustomerName,
			&status, &o.CreatedAt, &completedAt, &o.ItemsSummary); err != nil {
			return nil, 0, err
		}
		o.Status = domain.Status(status)
		if completedAt.Valid {
			t := completedAt.Time
			o.CompletedAt = &t
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// GetByID returns one order with its items and product names, or nil.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var (
		o            domain.Order
		status       string
		instructions sql.NullString
		completedAt  sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_number, total_amount, tax_amount, customer_name, special_instructions,
		        status, created_at, completed_at
		 FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.OrderNumber, &o.TotalAmount, &o.TaxAmount, &o.CustomerName,
			&instructions, &status, &o.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	o.Status = domain.Status(status)
	o.SpecialInstructions = instructions.String
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.total_price,
		        COALESCE(oi.customizations, '')
		 FROM order_items oi
		 JOIN products p ON oi.product_id = p.id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.Customizations); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

// UpdateStatus sets the order's status, stamping completed_at when completing.
// Returns nil if the order does not exist.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) (*domain.Order, error) {
	var completedAt any
	if status == domain.StatusCompleted {
		completedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, completed_at = COALESCE($3, completed_at) WHERE id = $1`,
		id, string(status), completedAt)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

// GetStats returns aggregate order figures, including today's totals.
func (r *PostgresRepository) GetStats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(total_amount), 0),
		        COALESCE(AVG(total_amount), 0),
		        COUNT(*) FILTER (WHERE created_at::date = CURRENT_DATE),
		        COALESCE(SUM(total_amount) FILTER (WHERE created_at::date = CURRENT_DATE), 0)
		 FROM orders`).
		Scan(&s.TotalOrders, &s.TotalRevenue, &s.AverageOrder, &s.TodayOrders, &s.TodayRevenue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func buildListWhere(f ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(o.customer_name ILIKE $%d OR o.order_number ILIKE $%d)", n, n))
	}
	if f.StartDate != nil {
		add("o.created_at >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("o.created_at <= $%d", *f.EndDate)
	}
	if f.MinAmount > 0 {
		add("o.total_amount >= $%d", f.MinAmount)
	}
	if f.MaxAmount > 0 {
		add("o.total_amount <= $%d", f.MaxAmount)
	}
	if f.Status != "" {
		add("o.status = $%d", string(f.Status))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
