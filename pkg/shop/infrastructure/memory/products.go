package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"pcstore/pkg/shop/domain/model"
)

type productRepository struct {
	tables *tables
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return uuid.NewRandom()
}

func (r *productRepository) Create(_ context.Context, product *model.Product) error {
	if _, exists := r.tables.products[product.ID]; exists {
		return fmt.Errorf("%w: product %s already exists", model.ErrConflict, product.ID)
	}
	if r.codeTaken(product.Code, product.ID) {
		return model.ErrProductCodeTaken
	}
	r.tables.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *productRepository) Update(_ context.Context, product *model.Product) error {
	if _, ok := r.tables.products[product.ID]; !ok {
		return model.ErrProductNotFound
	}
	if r.codeTaken(product.Code, product.ID) {
		return model.ErrProductCodeTaken
	}
	r.tables.products[product.ID] = cloneProduct(*product)
	return nil
}

func (r *productRepository) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.tables.products[id]; !ok {
		return model.ErrProductNotFound
	}
	delete(r.tables.products, id)
	return nil
}

func (r *productRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	product, ok := r.tables.products[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	clone := cloneProduct(product)
	return &clone, nil
}

// FindForUpdate needs no row lock, the unit of work already holds the store.
func (r *productRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.Find(ctx, id)
}

func (r *productRepository) List(_ context.Context, filter model.ProductFilter) ([]model.Product, error) {
	products := make([]model.Product, 0)
	for _, product := range r.tables.products {
		if filter.Matches(product) {
			products = append(products, cloneProduct(product))
		}
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].Code < products[j].Code
	})
	return products, nil
}

func (r *productRepository) Count(context.Context) (int, error) {
	return len(r.tables.products), nil
}

func (r *productRepository) codeTaken(code string, except uuid.UUID) bool {
	for id, product := range r.tables.products {
		if id != except && product.Code == code {
			return true
		}
	}
	return false
}

func cloneProduct(p model.Product) model.Product {
	if p.Stock != nil {
		stock := *p.Stock
		p.Stock = &stock
	}
	if p.CategoryID != nil {
		categoryID := *p.CategoryID
		p.CategoryID = &categoryID
	}
	return p
}
