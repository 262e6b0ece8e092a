package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"tillbook/internal/domain"
	"tillbook/internal/dto"
	apperrors "tillbook/internal/errors"

	"go.uber.org/zap"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type ProductRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int) (*domain.Product, error)
	AdjustStock(ctx context.Context, tx *sql.Tx, id int, delta int) error
}

type InvoiceRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, inv domain.Invoice) (int, error)
	FindByIDTx(ctx context.Context, tx *sql.Tx, id int) (*domain.Invoice, error)
	UpdateTotals(ctx context.Context, tx *sql.Tx, id int, taxAmount, totalAmount float64) error
	Delete(ctx context.Context, tx *sql.Tx, id int) error
}

type InvoiceItemRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.InvoiceItem) (int, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int) (*domain.InvoiceItem, error)
	Update(ctx context.Context, tx *sql.Tx, id int, quantity int, unitPrice float64) error
	Delete(ctx context.Context, tx *sql.Tx, id int) error
	SumLineTotals(ctx context.Context, tx *sql.Tx, invoiceID int) (float64, error)
	CountByInvoiceID(ctx context.Context, tx *sql.Tx, invoiceID int) (int, error)
}

// LedgerService runs every stock/invoice mutation as one transaction: the
// whole pathway commits or none of it does. It never retries; the use case
// above it owns deadlock retry.
type LedgerService struct {
	db          TransactionManager
	productRepo ProductRepository
	invoiceRepo InvoiceRepository
	itemRepo    InvoiceItemRepository
	logger      *zap.Logger
	txTimeout   time.Duration
}

func NewLedgerService(
	db TransactionManager,
	productRepo ProductRepository,
	invoiceRepo InvoiceRepository,
	itemRepo InvoiceItemRepository,
	logger *zap.Logger,
	txTimeout time.Duration,
) *LedgerService {
	return &LedgerService{
		db:          db,
		productRepo: productRepo,
		invoiceRepo: invoiceRepo,
		itemRepo:    itemRepo,
		logger:      logger,
		txTimeout:   txTimeout,
	}
}

func (s *LedgerService) begin(ctx context.Context) (*sql.Tx, context.Context, context.CancelFunc, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		cancel()
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, nil, nil, err
	}

	return tx, txCtx, cancel, nil
}

// Checkout creates an invoice and its items atomically. Totals are computed
// over the cart up front; the client-declared unit price is trusted as the
// sale price.
func (s *LedgerService) Checkout(ctx context.Context, in dto.CheckoutInput) (int, error) {
	totals := cartTotals(in.Cart)

	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	// Rollback is a no-op once committed.
	defer tx.Rollback()

	invoiceID, err := s.invoiceRepo.Insert(txCtx, tx, domain.Invoice{
		CustomerName:  in.CustomerName,
		PaymentMethod: in.PaymentMethod,
		TaxAmount:     totals.Tax,
		TotalAmount:   totals.Total,
	})
	if err != nil {
		return 0, err
	}

	if err := s.addLines(txCtx, tx, invoiceID, in.Cart); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit checkout", zap.Int("invoiceId", invoiceID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("checkout committed",
		zap.Int("invoiceId", invoiceID),
		zap.Int("lineCount", len(in.Cart)),
		zap.Float64("totalAmount", totals.Total))

	return invoiceID, nil
}

// CreateInvoice creates an empty invoice, optionally attaches an initial item
// batch with the same per-line validation as checkout, then recalculates.
func (s *LedgerService) CreateInvoice(ctx context.Context, in dto.CreateInvoiceInput) (int, error) {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer tx.Rollback()

	invoiceID, err := s.invoiceRepo.Insert(txCtx, tx, domain.Invoice{
		CustomerName:  in.CustomerName,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		return 0, err
	}

	if len(in.Items) > 0 {
		if err := s.addLines(txCtx, tx, invoiceID, in.Items); err != nil {
			return 0, err
		}
		if err := s.recalcInvoiceTotals(txCtx, tx, invoiceID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit invoice creation", zap.Int("invoiceId", invoiceID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("invoice created", zap.Int("invoiceId", invoiceID), zap.Int("itemCount", len(in.Items)))

	return invoiceID, nil
}

// AddItem appends one line to an existing invoice, consuming stock and
// recalculating totals in the same transaction.
func (s *LedgerService) AddItem(ctx context.Context, invoiceID int, line dto.CartLine) (int, error) {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer tx.Rollback()

	if _, err := s.invoiceRepo.FindByIDTx(txCtx, tx, invoiceID); err != nil {
		return 0, err
	}

	itemID, err := s.addLine(txCtx, tx, invoiceID, line)
	if err != nil {
		return 0, err
	}

	if err := s.recalcInvoiceTotals(txCtx, tx, invoiceID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit item add", zap.Int("invoiceId", invoiceID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("invoice item added",
		zap.Int("invoiceId", invoiceID),
		zap.Int("itemId", itemID),
		zap.Int("productId", line.ProductID),
		zap.Int("quantity", line.Quantity))

	return itemID, nil
}

// UpdateItem adjusts an item's quantity and/or unit price. A quantity increase
// consumes additional stock, a decrease returns the freed units, and a delta
// of zero leaves stock alone but still recalculates totals.
func (s *LedgerService) UpdateItem(ctx context.Context, itemID int, in dto.UpdateItemInput) (*domain.InvoiceItem, error) {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer tx.Rollback()

	item, err := s.itemRepo.FindByIDForUpdate(txCtx, tx, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByIDForUpdate(txCtx, tx, item.ProductID)
	if err != nil {
		return nil, err
	}

	newQty := item.Quantity
	if in.Quantity != nil {
		newQty = *in.Quantity
	}
	newPrice := item.UnitPrice
	if in.UnitPrice != nil {
		newPrice = *in.UnitPrice
	}

	delta := newQty - item.Quantity
	if delta > 0 && product.Stock < delta {
		return nil, apperrors.NewInsufficientStockError(product.Name, delta, product.Stock)
	}
	if delta != 0 {
		if err := s.productRepo.AdjustStock(txCtx, tx, product.ID, delta); err != nil {
			return nil, err
		}
	}

	if err := s.itemRepo.Update(txCtx, tx, itemID, newQty, newPrice); err != nil {
		return nil, err
	}

	if err := s.recalcInvoiceTotals(txCtx, tx, item.InvoiceID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit item update", zap.Int("itemId", itemID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("invoice item updated",
		zap.Int("itemId", itemID),
		zap.Int("invoiceId", item.InvoiceID),
		zap.Int("stockDelta", delta))

	updated := *item
	updated.Quantity = newQty
	updated.UnitPrice = newPrice
	return &updated, nil
}

// DeleteItem returns the item's full quantity to stock and recalculates the
// owning invoice. A missing product skips the stock return; a missing invoice
// skips the recalculation. The item is deleted either way.
func (s *LedgerService) DeleteItem(ctx context.Context, itemID int) error {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()

	item, err := s.itemRepo.FindByIDForUpdate(txCtx, tx, itemID)
	if err != nil {
		return err
	}

	product, err := s.productRepo.FindByIDForUpdate(txCtx, tx, item.ProductID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); !ok {
			return err
		}
		s.logger.Warn("product missing on item delete, skipping stock return",
			zap.Int("itemId", itemID), zap.Int("productId", item.ProductID))
	}
	if product != nil {
		if err := s.productRepo.AdjustStock(txCtx, tx, product.ID, -item.Quantity); err != nil {
			return err
		}
	}

	if err := s.itemRepo.Delete(txCtx, tx, itemID); err != nil {
		return err
	}

	if _, err := s.invoiceRepo.FindByIDTx(txCtx, tx, item.InvoiceID); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); !ok {
			return err
		}
		s.logger.Warn("invoice missing on item delete, skipping totals recalculation",
			zap.Int("itemId", itemID), zap.Int("invoiceId", item.InvoiceID))
	} else if err := s.recalcInvoiceTotals(txCtx, tx, item.InvoiceID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit item delete", zap.Int("itemId", itemID), zap.Error(err))
		return err
	}

	s.logger.Info("invoice item deleted",
		zap.Int("itemId", itemID),
		zap.Int("invoiceId", item.InvoiceID),
		zap.Int("returnedQuantity", item.Quantity))

	return nil
}

// DeleteInvoice removes an invoice only when it has no items, so this path
// never needs to restore stock.
func (s *LedgerService) DeleteInvoice(ctx context.Context, invoiceID int) error {
	tx, txCtx, cancel, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer cancel()
	defer tx.Rollback()

	if _, err := s.invoiceRepo.FindByIDTx(txCtx, tx, invoiceID); err != nil {
		return err
	}

	count, err := s.itemRepo.CountByInvoiceID(txCtx, tx, invoiceID)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewConflictError(
			fmt.Sprintf("cannot delete invoice %d because it has items", invoiceID))
	}

	if err := s.invoiceRepo.Delete(txCtx, tx, invoiceID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit invoice delete", zap.Int("invoiceId", invoiceID), zap.Error(err))
		return err
	}

	s.logger.Info("invoice deleted", zap.Int("invoiceId", invoiceID))

	return nil
}

// addLines locks product rows in ascending id order to avoid deadlocks
// between concurrent multi-line transactions.
func (s *LedgerService) addLines(ctx context.Context, tx *sql.Tx, invoiceID int, lines []dto.CartLine) error {
	sorted := make([]dto.CartLine, len(lines))
	copy(sorted, lines)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	for _, line := range sorted {
		if _, err := s.addLine(ctx, tx, invoiceID, line); err != nil {
			return err
		}
	}
	return nil
}

// addLine is the per-line check-then-act sequence: lock the product, verify
// stock, snapshot the sale price onto the item, consume the stock.
func (s *LedgerService) addLine(ctx context.Context, tx *sql.Tx, invoiceID int, line dto.CartLine) (int, error) {
	product, err := s.productRepo.FindByIDForUpdate(ctx, tx, line.ProductID)
	if err != nil {
		return 0, err
	}

	if product.Stock < line.Quantity {
		return 0, apperrors.NewInsufficientStockError(product.Name, line.Quantity, product.Stock)
	}

	itemID, err := s.itemRepo.Insert(ctx, tx, domain.InvoiceItem{
		InvoiceID: invoiceID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
	})
	if err != nil {
		return 0, err
	}

	if err := s.productRepo.AdjustStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
		return 0, err
	}

	return itemID, nil
}

// recalcInvoiceTotals rereads the invoice's current item set and persists the
// derived tax and total. Idempotent; called after every item-set change.
func (s *LedgerService) recalcInvoiceTotals(ctx context.Context, tx *sql.Tx, invoiceID int) error {
	subtotal, err := s.itemRepo.SumLineTotals(ctx, tx, invoiceID)
	if err != nil {
		return err
	}

	totals := domain.TotalsFromSubtotal(subtotal)
	return s.invoiceRepo.UpdateTotals(ctx, tx, invoiceID, totals.Tax, totals.Total)
}

func cartTotals(cart []dto.CartLine) domain.InvoiceTotals {
	items := make([]domain.InvoiceItem, len(cart))
	for i, line := range cart {
		items[i] = domain.InvoiceItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
	return domain.ComputeTotals(items)
}
