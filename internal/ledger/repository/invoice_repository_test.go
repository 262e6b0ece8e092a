package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillbook/internal/domain"
	apperrors "tillbook/internal/errors"
	"tillbook/internal/testutil"
)

func withTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()
	fn(tx)
	require.NoError(t, tx.Commit())
}

func TestInvoiceRepository_InsertAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLInvoiceRepository(db)
	ctx := context.Background()

	var id int
	withTx(t, db, func(tx *sql.Tx) {
		var err error
		id, err = repo.Insert(ctx, tx, domain.Invoice{
			CustomerName:  "Alice",
			PaymentMethod: "card",
			TaxAmount:     2.4,
			TotalAmount:   32.4,
		})
		require.NoError(t, err)
	})

	inv, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", inv.CustomerName)
	assert.Equal(t, "card", inv.PaymentMethod)
	assert.InDelta(t, 32.4, inv.TotalAmount, 1e-9)
}

func TestInvoiceRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	_, err := NewMySQLInvoiceRepository(db).FindByID(context.Background(), 99999)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestInvoiceRepository_UpdateTotals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLInvoiceRepository(db)
	ctx := context.Background()

	var id int
	withTx(t, db, func(tx *sql.Tx) {
		var err error
		id, err = repo.Insert(ctx, tx, domain.Invoice{CustomerName: "Walk-in Customer", PaymentMethod: "cash"})
		require.NoError(t, err)
	})

	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.UpdateTotals(ctx, tx, id, 0.8, 10.8))
	})

	inv, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, inv.TaxAmount, 1e-9)
	assert.InDelta(t, 10.8, inv.TotalAmount, 1e-9)
}

func TestInvoiceRepository_UpdateTotals_UnchangedValues(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLInvoiceRepository(db)
	ctx := context.Background()

	var id int
	withTx(t, db, func(tx *sql.Tx) {
		var err error
		id, err = repo.Insert(ctx, tx, domain.Invoice{
			CustomerName:  "Walk-in Customer",
			PaymentMethod: "cash",
			TaxAmount:     0.8,
			TotalAmount:   10.8,
		})
		require.NoError(t, err)
	})

	// Writing the values the row already holds must not look like a missing
	// row; recalculation is idempotent and may produce no net change.
	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.UpdateTotals(ctx, tx, id, 0.8, 10.8))
	})

	require.NoError(t, repo.UpdateMeta(ctx, id, "Walk-in Customer", "cash"))

	inv, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 10.8, inv.TotalAmount, 1e-9)
}

func TestInvoiceRepository_UpdateMeta(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLInvoiceRepository(db)
	ctx := context.Background()

	var id int
	withTx(t, db, func(tx *sql.Tx) {
		var err error
		id, err = repo.Insert(ctx, tx, domain.Invoice{CustomerName: "Walk-in Customer", PaymentMethod: "cash"})
		require.NoError(t, err)
	})

	require.NoError(t, repo.UpdateMeta(ctx, id, "Bob", "card"))

	inv, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Bob", inv.CustomerName)
	assert.Equal(t, "card", inv.PaymentMethod)

	err = repo.UpdateMeta(ctx, 99999, "Nobody", "cash")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestInvoiceRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLInvoiceRepository(db)
	ctx := context.Background()

	var id int
	withTx(t, db, func(tx *sql.Tx) {
		var err error
		id, err = repo.Insert(ctx, tx, domain.Invoice{CustomerName: "Walk-in Customer", PaymentMethod: "cash"})
		require.NoError(t, err)
	})

	withTx(t, db, func(tx *sql.Tx) {
		require.NoError(t, repo.Delete(ctx, tx, id))
	})

	_, err := repo.FindByID(ctx, id)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}
