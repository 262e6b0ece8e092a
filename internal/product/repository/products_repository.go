package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tillbook/internal/domain"
	"tillbook/internal/errors"
)

type MySQLRepository struct {
	db *sql.DB
}

func NewMySQLRepository(db *sql.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

const productColumns = `id, name, price, stock, barcode, created_at`

func scanProduct(row *sql.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Barcode, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MySQLRepository) FindAll(ctx context.Context, onlyInStock bool) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	if onlyInStock {
		query = `SELECT ` + productColumns + ` FROM products WHERE stock > 0 ORDER BY id`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.Barcode, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product rows: %w", err)
	}

	return products, nil
}

func (r *MySQLRepository) FindByID(ctx context.Context, id int) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by id: %w", err)
	}

	return p, nil
}

// FindByBarcode returns in-stock products only; the scanner flow at the till
// has no use for a product it cannot sell.
func (r *MySQLRepository) FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE barcode = ? AND stock > 0`, barcode)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with barcode %s not found", barcode))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by barcode: %w", err)
	}

	return p, nil
}

// FindByIDForUpdate loads a product under a row lock. It must run inside the
// transaction that will conditionally adjust its stock.
func (r *MySQLRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int) (*domain.Product, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = ? FOR UPDATE`, id)

	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product for update: %w", err)
	}

	return p, nil
}

// AdjustStock applies a signed delta: positive removes units from inventory,
// negative returns them. The insufficient-stock check happens in the service
// while the row lock from FindByIDForUpdate is held.
func (r *MySQLRepository) AdjustStock(ctx context.Context, tx *sql.Tx, id int, delta int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products SET stock = stock - ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("adjusting product stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}

	return nil
}

func (r *MySQLRepository) Insert(ctx context.Context, p domain.Product) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, price, stock, barcode) VALUES (?, ?, ?, ?)`,
		p.Name, p.Price, p.Stock, p.Barcode,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return int(id), nil
}

func (r *MySQLRepository) Update(ctx context.Context, p domain.Product) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, price = ?, stock = ?, barcode = ? WHERE id = ?`,
		p.Name, p.Price, p.Stock, p.Barcode, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	return nil
}

func (r *MySQLRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product with id %d not found", id))
	}

	return nil
}

// CountItemRefs backs the referential guard on product deletion.
func (r *MySQLRepository) CountItemRefs(ctx context.Context, productID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoice_items WHERE product_id = ?`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting invoice item references: %w", err)
	}
	return count, nil
}
