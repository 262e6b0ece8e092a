package dto

import (
	"time"

	"tillbook/internal/domain"
)

// Wire shapes use snake_case field names; the frontend depends on them.

type CheckoutCartItem struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type CheckoutRequest struct {
	Cart          []CheckoutCartItem `json:"cart"`
	CustomerName  string             `json:"customer_name"`
	PaymentMethod string             `json:"payment_method"`
}

type InvoiceItemPayload struct {
	ProductID int     `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type CreateInvoiceRequest struct {
	CustomerName  string               `json:"customer_name"`
	PaymentMethod string               `json:"payment_method"`
	Items         []InvoiceItemPayload `json:"items"`
}

type UpdateInvoiceRequest struct {
	CustomerName  *string `json:"customer_name"`
	PaymentMethod *string `json:"payment_method"`
}

type UpdateInvoiceItemRequest struct {
	Quantity  *int     `json:"quantity"`
	UnitPrice *float64 `json:"unit_price"`
}

type ProductResponse struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	Barcode   *string   `json:"barcode"`
	CreatedAt time.Time `json:"created_at"`
}

type InvoiceItemResponse struct {
	ID        int              `json:"id"`
	InvoiceID int              `json:"invoice_id"`
	ProductID int              `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice float64          `json:"unit_price"`
	Product   *ProductResponse `json:"product,omitempty"`
}

type InvoiceResponse struct {
	ID            int                   `json:"id"`
	CustomerName  string                `json:"customer_name"`
	PaymentMethod string                `json:"payment_method"`
	TaxAmount     float64               `json:"tax_amount"`
	TotalAmount   float64               `json:"total_amount"`
	CreatedAt     time.Time             `json:"created_at"`
	Items         []InvoiceItemResponse `json:"items"`
}

func NewProductResponse(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Stock:     p.Stock,
		Barcode:   p.Barcode,
		CreatedAt: p.CreatedAt,
	}
}

func NewInvoiceItemResponse(d InvoiceItemDetail) InvoiceItemResponse {
	resp := InvoiceItemResponse{
		ID:        d.Item.ID,
		InvoiceID: d.Item.InvoiceID,
		ProductID: d.Item.ProductID,
		Quantity:  d.Item.Quantity,
		UnitPrice: d.Item.UnitPrice,
	}
	if d.Product != nil {
		p := NewProductResponse(*d.Product)
		resp.Product = &p
	}
	return resp
}

func NewInvoiceResponse(d InvoiceDetail) InvoiceResponse {
	items := make([]InvoiceItemResponse, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, NewInvoiceItemResponse(it))
	}
	return InvoiceResponse{
		ID:            d.Invoice.ID,
		CustomerName:  d.Invoice.CustomerName,
		PaymentMethod: d.Invoice.PaymentMethod,
		TaxAmount:     d.Invoice.TaxAmount,
		TotalAmount:   d.Invoice.TotalAmount,
		CreatedAt:     d.Invoice.CreatedAt,
		Items:         items,
	}
}
