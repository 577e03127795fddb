package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, params model.NewProductParams) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error)
}

func NewCatalogService(uow UnitOfWork, dispatcher domain.EventDispatcher, clock func() time.Time) CatalogService {
	return &catalogService{uow: uow, dispatcher: dispatcher, clock: clock}
}

type catalogService struct {
	uow        UnitOfWork
	dispatcher domain.EventDispatcher
	clock      func() time.Time
}

func (s *catalogService) CreateProduct(ctx context.Context, params model.NewProductParams) (*model.Product, error) {
	var product *model.Product
	err := s.executeInTransaction(ctx, func(svc domainservice.CatalogService) (err error) {
		product, err = svc.CreateProduct(ctx, params)
		return err
	})
	return product, err
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID uuid.UUID, patch model.ProductPatch) (*model.Product, error) {
	var product *model.Product
	err := s.executeInTransaction(ctx, func(svc domainservice.CatalogService) (err error) {
		product, err = svc.UpdateProduct(ctx, productID, patch)
		return err
	})
	return product, err
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return s.executeInTransaction(ctx, func(svc domainservice.CatalogService) error {
		return svc.DeleteProduct(ctx, productID)
	})
}

func (s *catalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	var product *model.Product
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		product, err = provider.ProductRepository().Find(ctx, productID)
		return err
	})
	return product, err
}

func (s *catalogService) ListProducts(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	var products []model.Product
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		products, err = provider.ProductRepository().List(ctx, filter)
		return err
	})
	return products, err
}

func (s *catalogService) executeInTransaction(ctx context.Context, action func(svc domainservice.CatalogService) error) error {
	var events *eventBuffer
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) error {
		events = &eventBuffer{}
		svc := domainservice.NewCatalogService(
			provider.ProductRepository(),
			provider.OrderRepository(),
			provider.CartRepository(),
			events,
			s.clock,
		)
		return action(svc)
	})
	if err != nil {
		return err
	}
	dispatchEvents(s.dispatcher, events)
	return nil
}
