// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev cashier (1234567) already exists.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"restaurant-pos/backend/internal/config"
	"restaurant-pos/backend/internal/db"
	"restaurant-pos/backend/internal/employee/domain"
	employeerepo "restaurant-pos/backend/internal/employee/repository"
	"restaurant-pos/backend/internal/security"
)

const (
	devCashierID  = "1234567"
	devCashierPIN = "1234"
	devAdminID    = "9999999"
	devAdminPIN   = "987654"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	employees := employeerepo.NewPostgresRepository(conn)

	existing, err := employees.GetActiveByID(ctx, devCashierID)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", devCashierID)
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	cashierHash, err := hasher.Hash([]byte(devCashierPIN))
	if err != nil {
		log.Fatalf("hash cashier PIN: %v", err)
	}
	adminHash, err := hasher.Hash([]byte(devAdminPIN))
	if err != nil {
		log.Fatalf("hash admin PIN: %v", err)
	}

	now := time.Now().UTC()

	if err := employees.Create(ctx, &domain.Employee{
		EmployeeID: devCashierID,
		PINHash:    cashierHash,
		Role:       domain.RoleCashier,
		FirstName:  "Casey",
		LastName:   "Nguyen",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		log.Fatalf("create cashier: %v", err)
	}

	if err := employees.Create(ctx, &domain.Employee{
		EmployeeID: devAdminID,
		PINHash:    adminHash,
		Role:       domain.RoleAdmin,
		FirstName:  "Morgan",
		LastName:   "Park",
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		log.Fatalf("create admin: %v", err)
	}

	if err := seedCatalog(ctx, conn); err != nil {
		log.Fatalf("seed catalog: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Cashier login: %s / %s\n", devCashierID, devCashierPIN)
	fmt.Printf("Admin login:   %s / %s\n", devAdminID, devAdminPIN)
}

func seedCatalog(ctx context.Context, conn *sql.DB) error {
	categories := map[string][]struct {
		name  string
		price float64
		sku   string
	}{
		"Burgers": {
			{"Classic Burger", 8.99, "BRG-001"},
			{"Double Cheeseburger", 11.49, "BRG-002"},
		},
		"Sides": {
			{"French Fries", 3.49, "SID-001"},
			{"Onion Rings", 4.29, "SID-002"},
		},
		"Drinks": {
			{"Fountain Soda", 2.29, "DRK-001"},
			{"Iced Tea", 2.49, "DRK-002"},
		},
	}

	for category, products := range categories {
		var categoryID int
		err := conn.QueryRowContext(ctx,
			`INSERT INTO categories (name) VALUES ($1) RETURNING id`, category,
		).Scan(&categoryID)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", category, err)
		}
		for _, p := range products {
			_, err := conn.ExecContext(ctx,
				`INSERT INTO products (name, price, category_id, sku, stock_quantity)
				 VALUES ($1, $2, $3, $4, 100)`,
				p.name, p.price, categoryID, p.sku,
			)
			if err != nil {
				return fmt.Errorf("insert product %s: %w", p.name, err)
			}
		}
	}
	return nil
}
