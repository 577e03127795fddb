package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"pcstore/pkg/common/domain"
	"pcstore/pkg/shop/domain/model"
	domainservice "pcstore/pkg/shop/domain/service"
)

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error)
	SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

func NewCartService(uow UnitOfWork, dispatcher domain.EventDispatcher, clock func() time.Time) CartService {
	return &cartService{uow: uow, dispatcher: dispatcher, clock: clock}
}

type cartService struct {
	uow        UnitOfWork
	dispatcher domain.EventDispatcher
	clock      func() time.Time
}

func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var cart *model.Cart
	err := s.executeInTransaction(ctx, func(svc domainservice.CartService) (err error) {
		cart, err = svc.GetCart(ctx, userID)
		return err
	})
	return cart, err
}

func (s *cartService) AddToCart(ctx context.Context, userID, productID uuid.UUID, quantity int) (*model.CartItem, error) {
	var item *model.CartItem
	err := s.executeInTransaction(ctx, func(svc domainservice.CartService) (err error) {
		item, err = svc.AddToCart(ctx, userID, productID, quantity)
		return err
	})
	return item, err
}

func (s *cartService) SetItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*model.CartItem, error) {
	var item *model.CartItem
	err := s.executeInTransaction(ctx, func(svc domainservice.CartService) (err error) {
		item, err = svc.SetItemQuantity(ctx, userID, itemID, quantity)
		return err
	})
	return item, err
}

func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.executeInTransaction(ctx, func(svc domainservice.CartService) error {
		return svc.RemoveItem(ctx, userID, itemID)
	})
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.executeInTransaction(ctx, func(svc domainservice.CartService) error {
		return svc.Clear(ctx, userID)
	})
}

func (s *cartService) executeInTransaction(ctx context.Context, action func(svc domainservice.CartService) error) error {
	var events *eventBuffer
	err := s.uow.Execute(ctx, func(provider RepositoryProvider) error {
		events = &eventBuffer{}
		svc := domainservice.NewCartService(provider.CartRepository(), provider.ProductRepository(), events, s.clock)
		return action(svc)
	})
	if err != nil {
		return err
	}
	dispatchEvents(s.dispatcher, events)
	return nil
}
