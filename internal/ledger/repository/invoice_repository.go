package repository

import (
	"context"
	"database/sql"
	"fmt"

	"tillbook/internal/domain"
	"tillbook/internal/errors"
)

type MySQLInvoiceRepository struct {
	db *sql.DB
}

func NewMySQLInvoiceRepository(db *sql.DB) *MySQLInvoiceRepository {
	return &MySQLInvoiceRepository{db: db}
}

const invoiceColumns = `id, customer_name, payment_method, tax_amount, total_amount, created_at`

func (r *MySQLInvoiceRepository) Insert(ctx context.Context, tx *sql.Tx, inv domain.Invoice) (int, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (customer_name, payment_method, tax_amount, total_amount)
		 VALUES (?, ?, ?, ?)`,
		inv.CustomerName, inv.PaymentMethod, inv.TaxAmount, inv.TotalAmount,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return int(id), nil
}

func (r *MySQLInvoiceRepository) FindAll(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		err := rows.Scan(&inv.ID, &inv.CustomerName, &inv.PaymentMethod,
			&inv.TaxAmount, &inv.TotalAmount, &inv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoice rows: %w", err)
	}

	return invoices, nil
}

func (r *MySQLInvoiceRepository) FindByID(ctx context.Context, id int) (*domain.Invoice, error) {
	return r.findByID(ctx, r.db.QueryRowContext, id)
}

// FindByIDTx reads the invoice inside an open transaction so an item mutation
// and its existence check see the same state.
func (r *MySQLInvoiceRepository) FindByIDTx(ctx context.Context, tx *sql.Tx, id int) (*domain.Invoice, error) {
	return r.findByID(ctx, tx.QueryRowContext, id)
}

type queryRowFunc func(ctx context.Context, query string, args ...any) *sql.Row

func (r *MySQLInvoiceRepository) findByID(ctx context.Context, queryRow queryRowFunc, id int) (*domain.Invoice, error) {
	row := queryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)

	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.CustomerName, &inv.PaymentMethod,
		&inv.TaxAmount, &inv.TotalAmount, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("invoice with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying invoice by id: %w", err)
	}

	return &inv, nil
}

func (r *MySQLInvoiceRepository) UpdateTotals(ctx context.Context, tx *sql.Tx, id int, taxAmount, totalAmount float64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE invoices SET tax_amount = ?, total_amount = ? WHERE id = ?`,
		taxAmount, totalAmount, id,
	)
	if err != nil {
		return fmt.Errorf("updating invoice totals: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("invoice with id %d not found", id))
	}

	return nil
}

// UpdateMeta changes customer_name / payment_method only; totals stay derived.
func (r *MySQLInvoiceRepository) UpdateMeta(ctx context.Context, id int, customerName, paymentMethod string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invoices SET customer_name = ?, payment_method = ? WHERE id = ?`,
		customerName, paymentMethod, id,
	)
	if err != nil {
		return fmt.Errorf("updating invoice metadata: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("invoice with id %d not found", id))
	}

	return nil
}

func (r *MySQLInvoiceRepository) Delete(ctx context.Context, tx *sql.Tx, id int) error {
	result, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting invoice: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("invoice with id %d not found", id))
	}

	return nil
}
