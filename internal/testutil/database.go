package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration test database. Tests are skipped when no
// MySQL instance named 'tillbook_test' is reachable on localhost:3306.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/tillbook_test?parseTime=true&clientFoundRows=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the test tables. Children first, FK order.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{"invoice_items", "invoices", "products"}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema used by the integration tests.
func SetupTestTables(t *testing.T, db *sql.DB) {
	createProducts := `
	CREATE TABLE IF NOT EXISTS products (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		stock INT NOT NULL DEFAULT 0,
		barcode VARCHAR(64) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uniq_barcode (barcode)
	) ENGINE=InnoDB`

	createInvoices := `
	CREATE TABLE IF NOT EXISTS invoices (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		customer_name VARCHAR(255) NOT NULL DEFAULT 'Walk-in Customer',
		payment_method VARCHAR(50) NOT NULL DEFAULT 'cash',
		tax_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		total_amount DECIMAL(10,2) NOT NULL DEFAULT 0.00,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`

	createInvoiceItems := `
	CREATE TABLE IF NOT EXISTS invoice_items (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		invoice_id INT NOT NULL,
		product_id INT NOT NULL,
		quantity INT NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL,
		INDEX idx_invoice (invoice_id),
		INDEX idx_product (product_id)
	) ENGINE=InnoDB`

	tables := []struct {
		name  string
		query string
	}{
		{"products", createProducts},
		{"invoices", createInvoices},
		{"invoice_items", createInvoiceItems},
	}

	for _, tbl := range tables {
		if _, err := db.Exec(tbl.query); err != nil {
			t.Logf("failed to create table %s: %v", tbl.name, err)
		}
	}
}
