package domain

import "time"

type Product struct {
	ID        int
	Name      string
	Price     float64
	Stock     int
	Barcode   *string
	CreatedAt time.Time
}

func (p Product) InStock() bool {
	return p.Stock > 0
}
