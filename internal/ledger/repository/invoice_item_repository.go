package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tillbook/internal/domain"
	"tillbook/internal/dto"
	"tillbook/internal/errors"
)

type MySQLInvoiceItemRepository struct {
	db *sql.DB
}

func NewMySQLInvoiceItemRepository(db *sql.DB) *MySQLInvoiceItemRepository {
	return &MySQLInvoiceItemRepository{db: db}
}

func (r *MySQLInvoiceItemRepository) Insert(ctx context.Context, tx *sql.Tx, item domain.InvoiceItem) (int, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price)
		 VALUES (?, ?, ?, ?)`,
		item.InvoiceID, item.ProductID, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting invoice item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return int(id), nil
}

// FindByIDForUpdate locks the item row so concurrent updates of the same item
// serialize before either touches product stock.
func (r *MySQLInvoiceItemRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int) (*domain.InvoiceItem, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, invoice_id, product_id, quantity, unit_price
		 FROM invoice_items WHERE id = ? FOR UPDATE`, id)

	var item domain.InvoiceItem
	err := row.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity, &item.UnitPrice)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("invoice item with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying invoice item for update: %w", err)
	}

	return &item, nil
}

func (r *MySQLInvoiceItemRepository) Update(ctx context.Context, tx *sql.Tx, id int, quantity int, unitPrice float64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE invoice_items SET quantity = ?, unit_price = ? WHERE id = ?`,
		quantity, unitPrice, id,
	)
	if err != nil {
		return fmt.Errorf("updating invoice item: %w", err)
	}

	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	return nil
}

func (r *MySQLInvoiceItemRepository) Delete(ctx context.Context, tx *sql.Tx, id int) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM invoice_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting invoice item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("invoice item with id %d not found", id))
	}

	return nil
}

// SumLineTotals computes the invoice subtotal from the item set visible to the
// open transaction. recalcInvoiceTotals is a pure function of this value.
func (r *MySQLInvoiceItemRepository) SumLineTotals(ctx context.Context, tx *sql.Tx, invoiceID int) (float64, error) {
	var subtotal float64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity * unit_price), 0)
		 FROM invoice_items WHERE invoice_id = ?`, invoiceID).Scan(&subtotal)
	if err != nil {
		return 0, fmt.Errorf("summing invoice item totals: %w", err)
	}
	return subtotal, nil
}

func (r *MySQLInvoiceItemRepository) CountByInvoiceID(ctx context.Context, tx *sql.Tx, invoiceID int) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoice_items WHERE invoice_id = ?`, invoiceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting invoice items: %w", err)
	}
	return count, nil
}

// FindDetailByInvoiceID returns the items with their referenced product, for
// responses that nest product detail. Missing products come back nil.
func (r *MySQLInvoiceItemRepository) FindDetailByInvoiceID(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id, i.invoice_id, i.product_id, i.quantity, i.unit_price,
		        p.id, p.name, p.price, p.stock, p.barcode, p.created_at
		 FROM invoice_items i
		 LEFT JOIN products p ON p.id = i.product_id
		 WHERE i.invoice_id = ?
		 ORDER BY i.id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("querying invoice item details: %w", err)
	}
	defer rows.Close()

	var details []dto.InvoiceItemDetail
	for rows.Next() {
		var d dto.InvoiceItemDetail
		var (
			productID sql.NullInt64
			name      sql.NullString
			price     sql.NullFloat64
			stock     sql.NullInt64
			barcode   sql.NullString
			createdAt sql.NullTime
		)

		err := rows.Scan(
			&d.Item.ID, &d.Item.InvoiceID, &d.Item.ProductID, &d.Item.Quantity, &d.Item.UnitPrice,
			&productID, &name, &price, &stock, &barcode, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice item detail row: %w", err)
		}

		if productID.Valid {
			p := &domain.Product{
				ID:        int(productID.Int64),
				Name:      name.String,
				Price:     price.Float64,
				Stock:     int(stock.Int64),
				CreatedAt: createdAt.Time,
			}
			if barcode.Valid {
				b := barcode.String
				p.Barcode = &b
			}
			d.Product = p
		}

		details = append(details, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice item detail rows: %w", err)
	}

	return details, nil
}
