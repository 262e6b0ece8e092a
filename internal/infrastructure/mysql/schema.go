package mysql

import (
	"database/sql"
	"fmt"
)

// Bootstrap creates the tables if they do not exist. InnoDB is required for
// the row locking the ledger relies on.
func Bootstrap(db *sql.DB) error {
	statements := []struct {
		name  string
		query string
	}{
		{"products", `
			CREATE TABLE IF NOT EXISTS products (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				price DECIMAL(10,2) NOT NULL,
				stock INT NOT NULL DEFAULT 0,
				barcode VARCHAR(64) NULL,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				UNIQUE KEY uniq_barcode (barcode),
				CONSTRAINT chk_stock_non_negative CHECK (stock >= 0)
			) ENGINE=InnoDB`},
		{"invoices", `
			CREATE TABLE IF NOT EXISTS invoices (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				customer_name VARCHAR(255) NOT NULL DEFAULT 'Walk-in Customer',
				payment_method VARCHAR(50) NOT NULL DEFAULT 'cash',
				tax_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
				total_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
				created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			) ENGINE=InnoDB`},
		{"invoice_items", `
			CREATE TABLE IF NOT EXISTS invoice_items (
				id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
				invoice_id INT NOT NULL,
				product_id INT NOT NULL,
				quantity INT NOT NULL,
				unit_price DECIMAL(10,2) NOT NULL,
				FOREIGN KEY (invoice_id) REFERENCES invoices(id),
				FOREIGN KEY (product_id) REFERENCES products(id),
				INDEX idx_invoice (invoice_id),
				INDEX idx_product (product_id)
			) ENGINE=InnoDB`},
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt.query); err != nil {
			return fmt.Errorf("creating table %s: %w", stmt.name, err)
		}
	}

	return nil
}
