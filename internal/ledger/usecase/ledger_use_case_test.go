package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tillbook/internal/domain"
	"tillbook/internal/dto"
	apperrors "tillbook/internal/errors"
)

type mockLedgerService struct {
	CheckoutFunc      func(ctx context.Context, in dto.CheckoutInput) (int, error)
	CreateInvoiceFunc func(ctx context.Context, in dto.CreateInvoiceInput) (int, error)
	AddItemFunc       func(ctx context.Context, invoiceID int, line dto.CartLine) (int, error)
	UpdateItemFunc    func(ctx context.Context, itemID int, in dto.UpdateItemInput) (*domain.InvoiceItem, error)
	DeleteItemFunc    func(ctx context.Context, itemID int) error
	DeleteInvoiceFunc func(ctx context.Context, invoiceID int) error
}

func (m *mockLedgerService) Checkout(ctx context.Context, in dto.CheckoutInput) (int, error) {
	return m.CheckoutFunc(ctx, in)
}

func (m *mockLedgerService) CreateInvoice(ctx context.Context, in dto.CreateInvoiceInput) (int, error) {
	return m.CreateInvoiceFunc(ctx, in)
}

func (m *mockLedgerService) AddItem(ctx context.Context, invoiceID int, line dto.CartLine) (int, error) {
	return m.AddItemFunc(ctx, invoiceID, line)
}

func (m *mockLedgerService) UpdateItem(ctx context.Context, itemID int, in dto.UpdateItemInput) (*domain.InvoiceItem, error) {
	return m.UpdateItemFunc(ctx, itemID, in)
}

func (m *mockLedgerService) DeleteItem(ctx context.Context, itemID int) error {
	return m.DeleteItemFunc(ctx, itemID)
}

func (m *mockLedgerService) DeleteInvoice(ctx context.Context, invoiceID int) error {
	return m.DeleteInvoiceFunc(ctx, invoiceID)
}

type mockInvoiceReader struct {
	FindAllFunc    func(ctx context.Context) ([]domain.Invoice, error)
	FindByIDFunc   func(ctx context.Context, id int) (*domain.Invoice, error)
	UpdateMetaFunc func(ctx context.Context, id int, customerName, paymentMethod string) error
}

func (m *mockInvoiceReader) FindAll(ctx context.Context) ([]domain.Invoice, error) {
	return m.FindAllFunc(ctx)
}

func (m *mockInvoiceReader) FindByID(ctx context.Context, id int) (*domain.Invoice, error) {
	return m.FindByIDFunc(ctx, id)
}

func (m *mockInvoiceReader) UpdateMeta(ctx context.Context, id int, customerName, paymentMethod string) error {
	return m.UpdateMetaFunc(ctx, id, customerName, paymentMethod)
}

type mockItemReader struct {
	FindDetailByInvoiceIDFunc func(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error)
}

func (m *mockItemReader) FindDetailByInvoiceID(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error) {
	return m.FindDetailByInvoiceIDFunc(ctx, invoiceID)
}

func walkInInvoice(id int) *domain.Invoice {
	return &domain.Invoice{
		ID:            id,
		CustomerName:  domain.DefaultCustomerName,
		PaymentMethod: domain.DefaultPaymentMethod,
		CreatedAt:     time.Now(),
	}
}

func newTestUseCase(svc LedgerService, invoices InvoiceReader, items InvoiceItemReader) *LedgerUseCase {
	return NewLedgerUseCase(svc, invoices, items, zap.NewNop(), 3)
}

func defaultReaders() (*mockInvoiceReader, *mockItemReader) {
	invoices := &mockInvoiceReader{
		FindByIDFunc: func(ctx context.Context, id int) (*domain.Invoice, error) {
			return walkInInvoice(id), nil
		},
	}
	items := &mockItemReader{
		FindDetailByInvoiceIDFunc: func(ctx context.Context, id int) ([]dto.InvoiceItemDetail, error) {
			return nil, nil
		},
	}
	return invoices, items
}

func deadlockErr() error {
	return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
}

func TestCheckout_AppliesDefaults(t *testing.T) {
	var captured dto.CheckoutInput
	svc := &mockLedgerService{
		CheckoutFunc: func(ctx context.Context, in dto.CheckoutInput) (int, error) {
			captured = in
			return 1, nil
		},
	}
	invoices, items := defaultReaders()

	uc := newTestUseCase(svc, invoices, items)
	_, err := uc.Checkout(context.Background(), dto.CheckoutInput{
		Cart: []dto.CartLine{{ProductID: 1, Quantity: 1, UnitPrice: 10}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultCustomerName, captured.CustomerName)
	assert.Equal(t, domain.DefaultPaymentMethod, captured.PaymentMethod)
}

func TestCheckout_RetriesOnDeadlock(t *testing.T) {
	attempts := 0
	svc := &mockLedgerService{
		CheckoutFunc: func(ctx context.Context, in dto.CheckoutInput) (int, error) {
			attempts++
			if attempts < 3 {
				return 0, deadlockErr()
			}
			return 7, nil
		},
	}
	invoices, items := defaultReaders()

	uc := newTestUseCase(svc, invoices, items)
	detail, err := uc.Checkout(context.Background(), dto.CheckoutInput{
		CustomerName:  "Bob",
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 7, detail.Invoice.ID)
}

func TestCheckout_DeadlockRetriesExhausted(t *testing.T) {
	attempts := 0
	svc := &mockLedgerService{
		CheckoutFunc: func(ctx context.Context, in dto.CheckoutInput) (int, error) {
			attempts++
			return 0, deadlockErr()
		},
	}
	invoices, items := defaultReaders()

	uc := newTestUseCase(svc, invoices, items)
	_, err := uc.Checkout(context.Background(), dto.CheckoutInput{
		CustomerName:  "Bob",
		PaymentMethod: "card",
	})

	_, ok := apperrors.IsDeadlockError(err)
	assert.True(t, ok)
	assert.Equal(t, 3, attempts)
}

func TestCheckout_NonDeadlockErrorNotRetried(t *testing.T) {
	attempts := 0
	svc := &mockLedgerService{
		CheckoutFunc: func(ctx context.Context, in dto.CheckoutInput) (int, error) {
			attempts++
			return 0, apperrors.NewInsufficientStockError("Laptop", 5, 2)
		},
	}
	invoices, items := defaultReaders()

	uc := newTestUseCase(svc, invoices, items)
	_, err := uc.Checkout(context.Background(), dto.CheckoutInput{
		CustomerName:  "Bob",
		PaymentMethod: "card",
	})

	_, ok := apperrors.IsInsufficientStockError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, attempts)
}

func TestAddItem_ReturnsCreatedItem(t *testing.T) {
	svc := &mockLedgerService{
		AddItemFunc: func(ctx context.Context, invoiceID int, line dto.CartLine) (int, error) {
			return 42, nil
		},
	}
	invoices, items := defaultReaders()

	uc := newTestUseCase(svc, invoices, items)
	item, err := uc.AddItem(context.Background(), 3, dto.CartLine{
		ProductID: 5, Quantity: 2, UnitPrice: 9.99,
	})
	require.NoError(t, err)

	assert.Equal(t, 42, item.ID)
	assert.Equal(t, 3, item.InvoiceID)
	assert.Equal(t, 5, item.ProductID)
	assert.Equal(t, 2, item.Quantity)
	assert.InDelta(t, 9.99, item.UnitPrice, 1e-9)
}

func TestGetInvoice_AssemblesDetail(t *testing.T) {
	invoices := &mockInvoiceReader{
		FindByIDFunc: func(ctx context.Context, id int) (*domain.Invoice, error) {
			inv := walkInInvoice(id)
			inv.TotalAmount = 32.4
			inv.TaxAmount = 2.4
			return inv, nil
		},
	}
	items := &mockItemReader{
		FindDetailByInvoiceIDFunc: func(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error) {
			return []dto.InvoiceItemDetail{
				{
					Item:    domain.InvoiceItem{ID: 1, InvoiceID: invoiceID, ProductID: 2, Quantity: 3, UnitPrice: 10},
					Product: &domain.Product{ID: 2, Name: "Laptop"},
				},
			}, nil
		},
	}

	uc := newTestUseCase(&mockLedgerService{}, invoices, items)
	detail, err := uc.GetInvoice(context.Background(), 9)
	require.NoError(t, err)

	assert.Equal(t, 9, detail.Invoice.ID)
	assert.InDelta(t, 32.4, detail.Invoice.TotalAmount, 1e-9)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, "Laptop", detail.Items[0].Product.Name)
}

func TestUpdateInvoiceMeta_PartialUpdate(t *testing.T) {
	var gotName, gotMethod string
	invoices := &mockInvoiceReader{
		FindByIDFunc: func(ctx context.Context, id int) (*domain.Invoice, error) {
			return walkInInvoice(id), nil
		},
		UpdateMetaFunc: func(ctx context.Context, id int, customerName, paymentMethod string) error {
			gotName, gotMethod = customerName, paymentMethod
			return nil
		},
	}
	items := &mockItemReader{
		FindDetailByInvoiceIDFunc: func(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error) {
			return nil, nil
		},
	}

	uc := newTestUseCase(&mockLedgerService{}, invoices, items)

	name := "Carol"
	_, err := uc.UpdateInvoiceMeta(context.Background(), 4, &name, nil)
	require.NoError(t, err)

	assert.Equal(t, "Carol", gotName)
	assert.Equal(t, domain.DefaultPaymentMethod, gotMethod)
}

func TestListItems_InvoiceNotFound(t *testing.T) {
	invoices := &mockInvoiceReader{
		FindByIDFunc: func(ctx context.Context, id int) (*domain.Invoice, error) {
			return nil, apperrors.NewNotFoundError("invoice not found")
		},
	}
	items := &mockItemReader{
		FindDetailByInvoiceIDFunc: func(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error) {
			return nil, errors.New("should not be called")
		},
	}

	uc := newTestUseCase(&mockLedgerService{}, invoices, items)
	_, err := uc.ListItems(context.Background(), 1)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestIsDeadlockError(t *testing.T) {
	assert.True(t, isDeadlockError(deadlockErr()))
	assert.True(t, isDeadlockError(&mysql.MySQLError{Number: 1205}))
	assert.False(t, isDeadlockError(&mysql.MySQLError{Number: 1062}))
	assert.False(t, isDeadlockError(errors.New("plain error")))
}
