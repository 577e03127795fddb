package service

import (
	"context"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req domainservice.PlaceOrderRequest) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID uuid.UUID) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, patch model.OrderPatch) (*model.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

func NewOrderService(uow UnitOfWork, dispatcher domain.EventDispatcher, opts domainservice.OrderOptions) OrderService {
	return &orderService{uow: uow, dispatcher: dispatcher, opts: opts}
}

type orderService struct {
	uow        UnitOfWork
	dispatcher domain.EventDispatcher
	opts       domainservice.OrderOptions
}

func (s *orderService) PlaceOrder(ctx context.Context, req domainservice.PlaceOrderRequest) (*model.Order, error) {
	var order *model.Order
	err := s.executeInTransaction(ctx, func(svc domainservice.OrderService) (err error) {
		order, err = svc.PlaceOrder(ctx, req)
		return err
	})
	return order, err
}

func (s *orderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.executeInTransaction(ctx, func(svc domainservice.OrderService) error {
		return svc.DeleteOrder(ctx, orderID)
	})
}

func (s *orderService) UpdateOrder(ctx context.Context, orderID uuid.UUID, patch model.OrderPatch) (*model.Order, error) {
	var order *model.Order
	err := s.executeInTransaction(ctx, func(svc domainservice.OrderService) (err error) {
		order, err = svc.UpdateOrder(ctx, orderID, patch)
		return err
	})
	return order, err
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	var order *model.Order
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		order, err = provider.OrderRepository().Find(ctx, orderID)
		return err
	})
	return order, err
}

func (s *orderService) ListOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) (err error) {
		orders, err = provider.OrderRepository().List(ctx, filter)
		return err
	})
	return orders, err
}

// executeInTransaction publishes the events raised by action only once the
// transaction has committed.
func (s *orderService) executeInTransaction(ctx context.Context, action func(svc domainservice.OrderService) error) error {
	var events *eventBuffer
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) error {
		events = &eventBuffer{}
		svc := domainservice.NewOrderService(provider.ProductRepository(), provider.OrderRepository(), events, s.opts)
		return action(svc)
	})
	if err != nil {
		return err
	}
	dispatchEvents(s.dispatcher, events)
	return nil
}
