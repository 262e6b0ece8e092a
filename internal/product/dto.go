package product

type CreateProductRequest struct {
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Stock   int     `json:"stock"`
	Barcode *string `json:"barcode"`
}

// UpdateProductRequest fields are optional; nil leaves the field unchanged.
type UpdateProductRequest struct {
	Name    *string  `json:"name"`
	Price   *float64 `json:"price"`
	Stock   *int     `json:"stock"`
	Barcode *string  `json:"barcode"`
}
