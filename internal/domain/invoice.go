package domain

import "time"

// TaxRate is the fixed sales tax multiplier applied to every invoice subtotal.
const TaxRate = 0.08

const (
	DefaultCustomerName  = "Walk-in Customer"
	DefaultPaymentMethod = "cash"
)

type Invoice struct {
	ID            int
	CustomerName  string
	PaymentMethod string
	TaxAmount     float64
	TotalAmount   float64
	CreatedAt     time.Time
}

// InvoiceItem is exclusively owned by its invoice and snapshots the unit price
// at the time of sale, independent of later changes to Product.Price.
type InvoiceItem struct {
	ID        int
	InvoiceID int
	ProductID int
	Quantity  int
	UnitPrice float64
}

func (it InvoiceItem) LineTotal() float64 {
	return it.UnitPrice * float64(it.Quantity)
}

type InvoiceTotals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// TotalsFromSubtotal derives tax and total from a pre-tax subtotal.
func TotalsFromSubtotal(subtotal float64) InvoiceTotals {
	tax := subtotal * TaxRate
	return InvoiceTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// ComputeTotals sums the current item set and applies TaxRate.
func ComputeTotals(items []InvoiceItem) InvoiceTotals {
	subtotal := 0.0
	for _, it := range items {
		subtotal += it.LineTotal()
	}
	return TotalsFromSubtotal(subtotal)
}
