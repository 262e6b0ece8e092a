package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tillbook/internal/domain"
	"tillbook/internal/dto"
	apperrors "tillbook/internal/errors"
)

type LedgerUseCase interface {
	Checkout(ctx context.Context, in dto.CheckoutInput) (*dto.InvoiceDetail, error)
	CreateInvoice(ctx context.Context, in dto.CreateInvoiceInput) (*dto.InvoiceDetail, error)
	AddItem(ctx context.Context, invoiceID int, line dto.CartLine) (*domain.InvoiceItem, error)
	UpdateItem(ctx context.Context, itemID int, in dto.UpdateItemInput) (*domain.InvoiceItem, error)
	DeleteItem(ctx context.Context, itemID int) error
	DeleteInvoice(ctx context.Context, invoiceID int) error
	ListInvoices(ctx context.Context) ([]dto.InvoiceDetail, error)
	GetInvoice(ctx context.Context, invoiceID int) (*dto.InvoiceDetail, error)
	ListItems(ctx context.Context, invoiceID int) ([]dto.InvoiceItemDetail, error)
	UpdateInvoiceMeta(ctx context.Context, invoiceID int, customerName, paymentMethod *string) (*dto.InvoiceDetail, error)
}

type Controller struct {
	useCase LedgerUseCase
	logger  *zap.Logger
}

func NewController(useCase LedgerUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *Controller) Routes(r chi.Router) {
	r.Post("/checkout", c.HandleCheckout)

	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", c.HandleListInvoices)
		r.Post("/", c.HandleCreateInvoice)
		r.Get("/{invoiceId}", c.HandleGetInvoice)
		r.Put("/{invoiceId}", c.HandleUpdateInvoice)
		r.Delete("/{invoiceId}", c.HandleDeleteInvoice)
		r.Get("/{invoiceId}/items", c.HandleListItems)
		r.Post("/{invoiceId}/items", c.HandleAddItem)
	})

	r.Route("/invoice-items", func(r chi.Router) {
		r.Put("/{itemId}", c.HandleUpdateItem)
		r.Delete("/{itemId}", c.HandleDeleteItem)
	})
}

func (c *Controller) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateCartLines("cart", len(req.Cart), func(i int) (int, int, float64) {
		return req.Cart[i].ProductID, req.Cart[i].Quantity, req.Cart[i].Price
	}); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	cart := make([]dto.CartLine, len(req.Cart))
	for i, line := range req.Cart {
		cart[i] = dto.CartLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
		}
	}

	detail, err := c.useCase.Checkout(r.Context(), dto.CheckoutInput{
		CustomerName:  req.CustomerName,
		PaymentMethod: req.PaymentMethod,
		Cart:          cart,
	})
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.NewInvoiceResponse(*detail))
}

func (c *Controller) HandleListInvoices(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	details, err := c.useCase.ListInvoices(r.Context())
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	responses := make([]dto.InvoiceResponse, 0, len(details))
	for _, d := range details {
		responses = append(responses, dto.NewInvoiceResponse(d))
	}

	c.writeJSON(w, http.StatusOK, responses)
}

func (c *Controller) HandleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if len(req.Items) > 0 {
		if err := validateCartLines("items", len(req.Items), func(i int) (int, int, float64) {
			return req.Items[i].ProductID, req.Items[i].Quantity, req.Items[i].UnitPrice
		}); err != nil {
			ve, _ := apperrors.IsValidationError(err)
			c.writeValidationError(w, ve.Message, ve.Details...)
			return
		}
	}

	items := make([]dto.CartLine, len(req.Items))
	for i, it := range req.Items {
		items[i] = dto.CartLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	detail, err := c.useCase.CreateInvoice(r.Context(), dto.CreateInvoiceInput{
		CustomerName:  req.CustomerName,
		PaymentMethod: req.PaymentMethod,
		Items:         items,
	})
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, dto.NewInvoiceResponse(*detail))
}

func (c *Controller) HandleGetInvoice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	invoiceID, ok := c.pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	detail, err := c.useCase.GetInvoice(r.Context(), invoiceID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewInvoiceResponse(*detail))
}

func (c *Controller) HandleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	invoiceID, ok := c.pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	var req dto.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	detail, err := c.useCase.UpdateInvoiceMeta(r.Context(), invoiceID, req.CustomerName, req.PaymentMethod)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.NewInvoiceResponse(*detail))
}

func (c *Controller) HandleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	invoiceID, ok := c.pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	if err := c.useCase.DeleteInvoice(r.Context(), invoiceID); err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Invoice deleted successfully",
		"id":      invoiceID,
	})
}

func (c *Controller) HandleListItems(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	invoiceID, ok := c.pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	items, err := c.useCase.ListItems(r.Context(), invoiceID)
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	responses := make([]dto.InvoiceItemResponse, 0, len(items))
	for _, it := range items {
		responses = append(responses, dto.NewInvoiceItemResponse(it))
	}

	c.writeJSON(w, http.StatusOK, responses)
}

func (c *Controller) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	invoiceID, ok := c.pathID(w, r, "invoiceId")
	if !ok {
		return
	}

	var req dto.InvoiceItemPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateItemPayload(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}

	item, err := c.useCase.AddItem(r.Context(), invoiceID, dto.CartLine{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Item added",
		"item": dto.InvoiceItemResponse{
			ID:        item.ID,
			InvoiceID: item.InvoiceID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		},
	})
}

func (c *Controller) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	itemID, ok := c.pathID(w, r, "itemId")
	if !ok {
		return
	}

	var req dto.UpdateInvoiceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	var details []apperrors.ValidationDetail
	if req.Quantity != nil && *req.Quantity < 1 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must be a positive integer",
		})
	}
	if req.UnitPrice != nil && *req.UnitPrice < 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "unit_price",
			Message: "unit_price must be non-negative",
		})
	}
	if len(details) > 0 {
		c.writeValidationError(w, "validation failed", details...)
		return
	}

	item, err := c.useCase.UpdateItem(r.Context(), itemID, dto.UpdateItemInput{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Item updated",
		"item": dto.InvoiceItemResponse{
			ID:        item.ID,
			InvoiceID: item.InvoiceID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		},
	})
}

func (c *Controller) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	itemID, ok := c.pathID(w, r, "itemId")
	if !ok {
		return
	}

	if err := c.useCase.DeleteItem(r.Context(), itemID); err != nil {
		c.handleError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]any{
		"message": "Item deleted",
		"id":      itemID,
	})
}

func (c *Controller) pathID(w http.ResponseWriter, r *http.Request, param string) (int, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		c.writeValidationError(w, "invalid "+param, apperrors.ValidationDetail{
			Field:   param,
			Message: param + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func validateItemPayload(p dto.InvoiceItemPayload) error {
	var details []apperrors.ValidationDetail

	if p.ProductID <= 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "product_id",
			Message: "product_id must be a positive integer",
		})
	}
	if p.Quantity < 1 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must be a positive integer",
		})
	}
	if p.UnitPrice < 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "unit_price",
			Message: "unit_price must be non-negative",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func validateCartLines(field string, count int, line func(i int) (productID, quantity int, price float64)) error {
	var details []apperrors.ValidationDetail

	if count == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   field,
			Message: field + " must not be empty",
		})
	}
	if count > 100 {
		details = append(details, apperrors.ValidationDetail{
			Field:   field,
			Message: field + " exceeds maximum of 100 lines",
		})
	}

	for i := 0; i < count; i++ {
		productID, quantity, price := line(i)
		prefix := field + "[" + strconv.Itoa(i) + "]"

		if productID <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".product_id",
				Message: "product_id must be a positive integer",
			})
		}
		if quantity < 1 {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".quantity",
				Message: "quantity must be a positive integer",
			})
		}
		if price < 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".price",
				Message: "price must be non-negative",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}
	return nil
}

func (c *Controller) handleError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if nfe, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", nfe.Message)
		return
	}
	if ise, ok := apperrors.IsInsufficientStockError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "INSUFFICIENT_STOCK", ise.Error())
		return
	}
	if ce, ok := apperrors.IsConflictError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "CONFLICT", ce.Message)
		return
	}
	if de, ok := apperrors.IsDeadlockError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "TX_CONFLICT", de.Message)
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type errorResponse struct {
	TraceID string `json:"trace_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Controller) writeError(w http.ResponseWriter, traceID string, status int, code, message string) {
	c.writeJSON(w, status, errorResponse{
		TraceID: traceID,
		Code:    code,
		Message: message,
	})
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
