package mysql

import (
	"database/sql"
	"fmt"
)

// Seed inserts the demo catalog when the products table is empty.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		return fmt.Errorf("counting products: %w", err)
	}
	if count > 0 {
		return nil
	}

	samples := []struct {
		name    string
		price   float64
		stock   int
		barcode string
	}{
		{"Laptop", 999.99, 10, "123456"},
		{"Wireless Mouse", 25.50, 50, "123457"},
		{"Mechanical Keyboard", 75.00, 30, "123458"},
		{"27\" Monitor", 299.99, 15, "123459"},
		{"USB-C Cable", 15.99, 100, "123460"},
	}

	for _, s := range samples {
		_, err := db.Exec(
			`INSERT INTO products (name, price, stock, barcode) VALUES (?, ?, ?, ?)`,
			s.name, s.price, s.stock, s.barcode,
		)
		if err != nil {
			return fmt.Errorf("seeding product %s: %w", s.name, err)
		}
	}

	return nil
}
