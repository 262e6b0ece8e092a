package product

import (
	"context"
	"fmt"

	"tillbook/internal/domain"
	apperrors "tillbook/internal/errors"
)

type Repository interface {
	FindAll(ctx context.Context, onlyInStock bool) ([]domain.Product, error)
	FindByID(ctx context.Context, id int) (*domain.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	Insert(ctx context.Context, p domain.Product) (int, error)
	Update(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, id int) error
	CountItemRefs(ctx context.Context, productID int) (int, error)
}

// Service owns product catalog CRUD. Sale-driven stock changes never go
// through here; the ledger's adjustStock is the only path for those. Update
// writing Stock directly is the administrative restock path.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, onlyInStock bool) ([]domain.Product, error) {
	return s.repo.FindAll(ctx, onlyInStock)
}

func (s *Service) Get(ctx context.Context, id int) (*domain.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	return s.repo.FindByBarcode(ctx, barcode)
}

func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*domain.Product, error) {
	p := domain.Product{
		Name:    req.Name,
		Price:   req.Price,
		Stock:   req.Stock,
		Barcode: req.Barcode,
	}

	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int, req UpdateProductRequest) (*domain.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Stock != nil {
		p.Stock = *req.Stock
	}
	if req.Barcode != nil {
		p.Barcode = req.Barcode
	}

	if err := s.repo.Update(ctx, *p); err != nil {
		return nil, err
	}

	return s.repo.FindByID(ctx, id)
}

// Delete refuses to remove a product that any invoice item still references.
func (s *Service) Delete(ctx context.Context, id int) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.CountItemRefs(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return apperrors.NewConflictError(
			fmt.Sprintf("cannot delete product %d because it is used in invoice items", id))
	}

	return s.repo.Delete(ctx, id)
}
