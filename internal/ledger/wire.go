package ledger

import (
	"database/sql"

	"go.uber.org/zap"

	"tillbook/internal/config"
	"tillbook/internal/ledger/controller"
	"tillbook/internal/ledger/repository"
	"tillbook/internal/ledger/service"
	"tillbook/internal/ledger/usecase"
	productrepo "tillbook/internal/product/repository"
)

func NewModule(db *sql.DB, cfg *config.Config, logger *zap.Logger) *controller.Controller {
	invoiceRepo := repository.NewMySQLInvoiceRepository(db)
	itemRepo := repository.NewMySQLInvoiceItemRepository(db)
	productRepo := productrepo.NewMySQLRepository(db)

	svc := service.NewLedgerService(
		db,
		productRepo,
		invoiceRepo,
		itemRepo,
		logger,
		cfg.Ledger.TxTimeout,
	)

	uc := usecase.NewLedgerUseCase(
		svc,
		invoiceRepo,
		itemRepo,
		logger,
		cfg.Ledger.MaxRetryAttempts,
	)

	return controller.NewController(uc, logger)
}
