package usecase

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"tillbook/internal/domain"
	"tillbook/internal/dto"
	apperrors "tillbook/internal/errors"
)

type LedgerService interface {
	Checkout(ctx context.Context, in dto.CheckoutInput) (int, error)
	CreateInvoice(ctx context.Context, in dto.CreateInvoiceInput) (int, error)
	AddItem(ctx context.Context, invoiceID int, line dto.CartLine) (int, error)
	UpdateItem(ctx context.Context, itemID int, in dto.UpdateItemInput) (*domain.InvoiceItem, error)
	DeleteItem(ctx context.Context, itemID int) error
	DeleteInvoice(ctx context.Context, invoiceID int) error
}

type InvoiceReader interface {
	FindAll(ctx context.Context) ([]domain.Invoice, error)
	FindByID(ctx context.Context, id int) (*domain.Invoice, error)
	UpdateMeta(ctx context.Context, id int, customerName, paymentMethod string) error
}

type InvoiceItemReader interface {
	FindDetailByInvoiceID(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error)
}

// LedgerUseCase fronts the transactional service. It owns deadlock retry:
// a rolled-back pathway left no partial state, so retrying it is safe.
type LedgerUseCase struct {
	svc              LedgerService
	invoices         InvoiceReader
	items            InvoiceItemReader
	logger           *zap.Logger
	maxRetryAttempts int
}

func NewLedgerUseCase(
	svc LedgerService,
	invoices InvoiceReader,
	items InvoiceItemReader,
	logger *zap.Logger,
	maxRetryAttempts int,
) *LedgerUseCase {
	return &LedgerUseCase{
		svc:              svc,
		invoices:         invoices,
		items:            items,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
	}
}

func (uc *LedgerUseCase) Checkout(ctx context.Context, in dto.CheckoutInput) (*dto.InvoiceDetail, error) {
	applyInvoiceDefaults(&in.CustomerName, &in.PaymentMethod)

	var invoiceID int
	err := uc.withRetry(ctx, "checkout", func() error {
		var err error
		invoiceID, err = uc.svc.Checkout(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	return uc.GetInvoice(ctx, invoiceID)
}

func (uc *LedgerUseCase) CreateInvoice(ctx context.Context, in dto.CreateInvoiceInput) (*dto.InvoiceDetail, error) {
	applyInvoiceDefaults(&in.CustomerName, &in.PaymentMethod)

	var invoiceID int
	err := uc.withRetry(ctx, "create-invoice", func() error {
		var err error
		invoiceID, err = uc.svc.CreateInvoice(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	return uc.GetInvoice(ctx, invoiceID)
}

func (uc *LedgerUseCase) AddItem(ctx context.Context, invoiceID int, line dto.CartLine) (*domain.InvoiceItem, error) {
	var itemID int
	err := uc.withRetry(ctx, "add-item", func() error {
		var err error
		itemID, err = uc.svc.AddItem(ctx, invoiceID, line)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &domain.InvoiceItem{
		ID:        itemID,
		InvoiceID: invoiceID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
	}, nil
}

func (uc *LedgerUseCase) UpdateItem(ctx context.Context, itemID int, in dto.UpdateItemInput) (*domain.InvoiceItem, error) {
	var item *domain.InvoiceItem
	err := uc.withRetry(ctx, "update-item", func() error {
		var err error
		item, err = uc.svc.UpdateItem(ctx, itemID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (uc *LedgerUseCase) DeleteItem(ctx context.Context, itemID int) error {
	return uc.withRetry(ctx, "delete-item", func() error {
		return uc.svc.DeleteItem(ctx, itemID)
	})
}

func (uc *LedgerUseCase) DeleteInvoice(ctx context.Context, invoiceID int) error {
	return uc.withRetry(ctx, "delete-invoice", func() error {
		return uc.svc.DeleteInvoice(ctx, invoiceID)
	})
}

func (uc *LedgerUseCase) ListInvoices(ctx context.Context) ([]dto.InvoiceDetail, error) {
	invoices, err := uc.invoices.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]dto.InvoiceDetail, 0, len(invoices))
	for _, inv := range invoices {
		items, err := uc.items.FindDetailByInvoiceID(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, dto.InvoiceDetail{Invoice: inv, Items: items})
	}

	return details, nil
}

func (uc *LedgerUseCase) GetInvoice(ctx context.Context, invoiceID int) (*dto.InvoiceDetail, error) {
	inv, err := uc.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	items, err := uc.items.FindDetailByInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	return &dto.InvoiceDetail{Invoice: *inv, Items: items}, nil
}

func (uc *LedgerUseCase) ListItems(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error) {
	if _, err := uc.invoices.FindByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return uc.items.FindDetailByInvoiceID(ctx, invoiceID)
}

// UpdateInvoiceMeta changes customer name / payment method. Totals are derived
// from items only and are never writable here.
func (uc *LedgerUseCase) UpdateInvoiceMeta(ctx context.Context, invoiceID int, customerName, paymentMethod *string) (*dto.InvoiceDetail, error) {
	inv, err := uc.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	name := inv.CustomerName
	if customerName != nil {
		name = *customerName
	}
	method := inv.PaymentMethod
	if paymentMethod != nil {
		method = *paymentMethod
	}

	if err := uc.invoices.UpdateMeta(ctx, invoiceID, name, method); err != nil {
		return nil, err
	}

	return uc.GetInvoice(ctx, invoiceID)
}

// Backoff bases per attempt; actual sleep adds up to ±20% jitter.
var retryBackoffs = []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

func (uc *LedgerUseCase) withRetry(ctx context.Context, op string, fn func() error) error {
	maxAttempts := uc.maxRetryAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !isDeadlockError(err) {
			return err
		}

		if attempt < maxAttempts {
			backoff := retryBackoffs[min(attempt, len(retryBackoffs))-1]
			jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
			uc.logger.Warn("deadlock detected, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", maxAttempts))
			select {
			case <-time.After(jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return apperrors.NewDeadlockError("max retries exceeded, try again")
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

func applyInvoiceDefaults(customerName, paymentMethod *string) {
	if *customerName == "" {
		*customerName = domain.DefaultCustomerName
	}
	if *paymentMethod == "" {
		*paymentMethod = domain.DefaultPaymentMethod
	}
}
