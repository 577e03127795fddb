package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, params model.NewProductParams) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, patch model.ProductPatch) (*model.Product, error)
	// DeleteProduct refuses products that existing orders still point at.
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
}

func NewCatalogService(
	products model.ProductRepository,
	orders model.OrderRepository,
	carts model.CartRepository,
	dispatcher domain.EventDispatcher,
	clock func() time.Time,
) CatalogService {
	if clock == nil {
		clock = time.Now
	}
	return &catalogService{products: products, orders: orders, carts: carts, dispatcher: dispatcher, clock: clock}
}

type catalogService struct {
	products   model.ProductRepository
	orders     model.OrderRepository
	carts      model.CartRepository
	dispatcher domain.EventDispatcher
	clock      func() time.Time
}

func (s *catalogService) CreateProduct(ctx context.Context, params model.NewProductParams) (*model.Product, error) {
	productID, err := s.products.NextID()
	if err != nil {
		return nil, err
	}

	product, err := model.NewProduct(productID, params, s.clock().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductCreated{ProductID: productID, Code: product.Code})
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, patch model.ProductPatch) (*model.Product, error) {
	product, err := s.products.FindForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}

	oldStock := product.Stock
	product.Apply(patch)
	if err := product.Validate(); err != nil {
		return nil, err
	}
	product.UpdatedAt = s.clock().UTC()

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	if product.Stock != nil && (oldStock == nil || *oldStock != *product.Stock) {
		change := *product.Stock
		if oldStock != nil {
			change -= *oldStock
		}
		_ = s.dispatcher.Dispatch(model.ProductStockChanged{
			ProductID:    productID,
			ChangeAmount: change,
			NewQuantity:  *product.Stock,
		})
	}
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.products.FindForUpdate(ctx, productID); err != nil {
		return err
	}

	referenced, err := s.orders.ProductReferenced(ctx, productID)
	if err != nil {
		return err
	}
	if referenced {
		return model.ErrProductInUse
	}

	if err := s.carts.DeleteItemsByProduct(ctx, productID); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, productID); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductDeleted{ProductID: productID})
	return nil
}
