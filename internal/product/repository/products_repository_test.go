package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillbook/internal/domain"
	apperrors "tillbook/internal/errors"
	"tillbook/internal/testutil"
)

func TestProductRepository_InsertAndFind(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	barcode := "900001"
	id, err := repo.Insert(ctx, domain.Product{Name: "Laptop", Price: 999.99, Stock: 10, Barcode: &barcode})
	require.NoError(t, err)
	require.Greater(t, id, 0)

	p, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)
	assert.InDelta(t, 999.99, p.Price, 1e-9)
	assert.Equal(t, 10, p.Stock)
	require.NotNil(t, p.Barcode)
	assert.Equal(t, "900001", *p.Barcode)
}

func TestProductRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	_, err := NewMySQLRepository(db).FindByID(context.Background(), 99999)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestProductRepository_FindAll_OnlyInStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	_, err := repo.Insert(ctx, domain.Product{Name: "In Stock", Price: 5, Stock: 3})
	require.NoError(t, err)
	_, err = repo.Insert(ctx, domain.Product{Name: "Sold Out", Price: 5, Stock: 0})
	require.NoError(t, err)

	all, err := repo.FindAll(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inStock, err := repo.FindAll(ctx, true)
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, "In Stock", inStock[0].Name)
}

func TestProductRepository_FindByBarcode_SkipsOutOfStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	barcode := "900002"
	_, err := repo.Insert(ctx, domain.Product{Name: "Sold Out", Price: 5, Stock: 0, Barcode: &barcode})
	require.NoError(t, err)

	_, err = repo.FindByBarcode(ctx, barcode)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestProductRepository_AdjustStock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	id, err := repo.Insert(ctx, domain.Product{Name: "Cable", Price: 15.99, Stock: 100})
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	locked, err := repo.FindByIDForUpdate(ctx, tx, id)
	require.NoError(t, err)
	assert.Equal(t, 100, locked.Stock)

	require.NoError(t, repo.AdjustStock(ctx, tx, id, 4))
	require.NoError(t, repo.AdjustStock(ctx, tx, id, -1))
	require.NoError(t, tx.Commit())

	p, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 97, p.Stock)
}

func TestProductRepository_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	id, err := repo.Insert(ctx, domain.Product{Name: "Mouse", Price: 25.50, Stock: 50})
	require.NoError(t, err)

	p, err := repo.FindByID(ctx, id)
	require.NoError(t, err)

	p.Price = 19.99
	p.Stock = 60
	require.NoError(t, repo.Update(ctx, *p))

	updated, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 19.99, updated.Price, 1e-9)
	assert.Equal(t, 60, updated.Stock)
}

func TestProductRepository_Delete_And_CountItemRefs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.SetupTestTables(t, db)

	repo := NewMySQLRepository(db)
	ctx := context.Background()

	id, err := repo.Insert(ctx, domain.Product{Name: "Keyboard", Price: 75, Stock: 30})
	require.NoError(t, err)

	refs, err := repo.CountItemRefs(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, refs)

	_, err = db.ExecContext(ctx,
		`INSERT INTO invoice_items (invoice_id, product_id, quantity, unit_price) VALUES (1, ?, 2, 75)`, id)
	require.NoError(t, err)

	refs, err = repo.CountItemRefs(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, refs)

	require.NoError(t, repo.Delete(ctx, id))

	err = repo.Delete(ctx, id)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}
