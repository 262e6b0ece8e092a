package dto

import "tillbook/internal/domain"

// CartLine is one requested sale line. UnitPrice is the client-declared sale
// price and is trusted as-is; it is not cross-checked against Product.Price.
type CartLine struct {
	ProductID int
	Quantity  int
	UnitPrice float64
}

type CheckoutInput struct {
	CustomerName  string
	PaymentMethod string
	Cart          []CartLine
}

type CreateInvoiceInput struct {
	CustomerName  string
	PaymentMethod string
	Items         []CartLine
}

// UpdateItemInput carries optional fields; nil means "leave unchanged".
type UpdateItemInput struct {
	Quantity  *int
	UnitPrice *float64
}

type InvoiceItemDetail struct {
	Item    domain.InvoiceItem
	Product *domain.Product
}

type InvoiceDetail struct {
	Invoice domain.Invoice
	Items   []InvoiceItemDetail
}
