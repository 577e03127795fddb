package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultMinStock = 5

type Product struct {
	ID             uuid.UUID
	CategoryID     *uuid.UUID
	Code           string
	Name           string
	Description    string
	Brand          string
	Model          string
	Price          decimal.Decimal // tax excluded
	Stock          *int            // nil means stock is not tracked
	MinStock       int
	WarrantyMonths int
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (p *Product) TracksStock() bool {
	return p.Stock != nil
}

// Withdraw takes quantity units out of stock. Products without tracked stock
// are left untouched.
func (p *Product) Withdraw(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p.Stock == nil {
		return nil
	}
	if *p.Stock-quantity < 0 {
		return &OutOfStockError{
			ProductID:   p.ID,
			ProductName: p.Name,
			Requested:   quantity,
			Remaining:   *p.Stock,
		}
	}
	stock := *p.Stock - quantity
	p.Stock = &stock
	return nil
}

func (p *Product) Restock(quantity int) {
	if p.Stock == nil {
		return
	}
	stock := *p.Stock + quantity
	p.Stock = &stock
}

func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Code) == "":
		return NewValidationError("product code is required")
	case strings.TrimSpace(p.Name) == "":
		return NewValidationError("product name is required")
	case p.Price.IsNegative():
		return ErrNegativePrice
	case !WholeCents(p.Price):
		return ErrSubCentAmount
	case p.Stock != nil && *p.Stock < 0:
		return NewValidationError("stock cannot be negative")
	case p.MinStock < 0:
		return NewValidationError("min stock cannot be negative")
	case p.WarrantyMonths < 0:
		return NewValidationError("warranty months cannot be negative")
	}
	return nil
}

// NewProductParams carries the fields accepted when a product is created.
type NewProductParams struct {
	CategoryID     *uuid.UUID
	Code           string
	Name           string
	Description    string
	Brand          string
	Model          string
	Price          decimal.Decimal
	Stock          *int
	MinStock       *int
	WarrantyMonths *int
	IsActive       *bool
}

// ProductPatch lists the product fields that may be changed after creation.
// Nil fields are left as they are.
type ProductPatch struct {
	CategoryID     *uuid.UUID
	Code           *string
	Name           *string
	Description    *string
	Brand          *string
	Model          *string
	Price          *decimal.Decimal
	Stock          *int
	UntrackStock   bool
	MinStock       *int
	WarrantyMonths *int
	IsActive       *bool
}

func (p *Product) Apply(patch ProductPatch) {
	if patch.CategoryID != nil {
		id := *patch.CategoryID
		p.CategoryID = &id
	}
	if patch.Code != nil {
		p.Code = *patch.Code
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Model != nil {
		p.Model = *patch.Model
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.UntrackStock {
		p.Stock = nil
	} else if patch.Stock != nil {
		stock := *patch.Stock
		p.Stock = &stock
	}
	if patch.MinStock != nil {
		p.MinStock = *patch.MinStock
	}
	if patch.WarrantyMonths != nil {
		p.WarrantyMonths = *patch.WarrantyMonths
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
}

type ProductFilter struct {
	CategoryID *uuid.UUID
	OnlyActive bool
	Search     string
}

func (f ProductFilter) Matches(p Product) bool {
	if f.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *f.CategoryID) {
		return false
	}
	if f.OnlyActive && !p.IsActive {
		return false
	}
	if f.Search != "" {
		search := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.Code), search) {
			return false
		}
	}
	return true
}

type ProductRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindForUpdate locks the product row until the surrounding unit of work ends.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
	Count(ctx context.Context) (int, error)
}

func NewProduct(id uuid.UUID, params NewProductParams, now time.Time) (*Product, error) {
	product := &Product{
		ID:             id,
		CategoryID:     params.CategoryID,
		Code:           strings.TrimSpace(params.Code),
		Name:           strings.TrimSpace(params.Name),
		Description:    params.Description,
		Brand:          params.Brand,
		Model:          params.Model,
		Price:          params.Price,
		MinStock:       defaultMinStock,
		WarrantyMonths: 12,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if params.Stock != nil {
		stock := *params.Stock
		product.Stock = &stock
	}
	if params.MinStock != nil {
		product.MinStock = *params.MinStock
	}
	if params.WarrantyMonths != nil {
		product.WarrantyMonths = *params.WarrantyMonths
	}
	if params.IsActive != nil {
		product.IsActive = *params.IsActive
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return product, nil
}
